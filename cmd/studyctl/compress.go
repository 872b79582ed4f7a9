package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

func newCompressCmd(cfg *Config) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compress FILE",
		Short: "Compress an image until its inline form fits the size limit",
		Long: `Runs only the adaptive compressor on FILE and reports the size of the first
candidate within the limit. --out writes the candidate's JPEG bytes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Image.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}

			encoder, err := imagesvc.NewJPEGEncoder(cfg.Image.Interpolator)
			if err != nil {
				return fmt.Errorf("new jpeg encoder: %w", err)
			}

			dataURL, err := imagesvc.NewAdaptiveCompressor(encoder, cfg.Image).Compress(cmd.Context(), src)
			if err != nil {
				return fmt.Errorf("compress: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "source: %d bytes\ninline: %d chars\nlimit: %d\n",
				len(src), len(dataURL), cfg.Image.SizeLimit)

			if out == "" {
				return nil
			}

			_, data, err := domain.DecodeInlineData(dataURL)
			if err != nil {
				return fmt.Errorf("decode inline data: %w", err)
			}

			if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec
				return fmt.Errorf("write file: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the compressed JPEG to this file")

	return cmd
}
