package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/repo/object"
	"github.com/mkrupp/studyhub/internal/svc/authclient"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
	"github.com/mkrupp/studyhub/internal/svc/qnasvc"
)

func newResolveCmd(cfg *Config) *cobra.Command {
	var (
		namespace  string
		principal  string
		fileRoot   string
		printValue bool
		noUpload   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve SOURCE",
		Short: "Resolve an image reference into the payload stored on a record",
		Long: `Runs the full pipeline against the configured object store. SOURCE is a file
path, a file:// or http(s) URL, or an inline data: URL.

Prints the payload kind and length; --print also prints the payload itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if principal != "" {
				ctx = context_.WithPrincipal(ctx, principal)
			}

			var store object.Store

			if !noUpload {
				var err error

				if store, err = object.NewStore(ctx, cfg.Object); err != nil {
					return fmt.Errorf("new object store: %w", err)
				}
			}

			source := args[0]
			imageCfg := cfg.Image

			if fileRoot != "" {
				imageCfg.FileRoot = fileRoot
				if !slices.Contains(imageCfg.Readers, imagesvc.ReaderFileSystem) {
					imageCfg.Readers = append([]string{imagesvc.ReaderFileSystem}, imageCfg.Readers...)
				}

				if !strings.Contains(source, "://") && !strings.HasPrefix(source, "data:") && !filepath.IsAbs(source) {
					if abs, err := filepath.Abs(source); err == nil {
						source = abs
					}
				}
			}

			svc, err := imagesvc.NewImageService(imageCfg, authclient.NewHTTPClient(cfg.AuthClient, nil), store, nil)
			if err != nil {
				return fmt.Errorf("new image service: %w", err)
			}
			payload := svc.Resolve(ctx, &source, namespace)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kind: %s\nlength: %d\nlimit: %d\n", payload.Kind, len(payload.Value), cfg.Image.SizeLimit)

			if printValue {
				fmt.Fprintln(out, payload.Value)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", qnasvc.QuestionsNamespace, "storage namespace for remote uploads")
	cmd.Flags().StringVar(&principal, "principal", "", "principal to scope uploads to; asks the auth service when empty")
	cmd.Flags().StringVar(&fileRoot, "file-root", "/", "directory local files may be read from; empty disables file paths")
	cmd.Flags().BoolVar(&printValue, "print", false, "print the payload value")
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "skip the remote upload stage")

	return cmd
}
