package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mkrupp/studyhub/internal/infra/config"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	"github.com/mkrupp/studyhub/internal/repo/object"
	"github.com/mkrupp/studyhub/internal/svc/authclient"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

const configPrefix = "STUDYHUB_STUDYCTL"

// Config is read with the STUDYHUB_STUDYCTL prefix, so the server's STUDYHUB_* settings
// apply unless overridden.
type Config struct {
	config.EnvConfig

	Log        logging.LoggerConfig        `envPrefix:"LOG_"`
	Image      imagesvc.PipelineConfig     `envPrefix:"IMAGE_"`
	AuthClient authclient.HTTPClientConfig `envPrefix:"AUTH_CLIENT_"`
	Object     object.StoreConfig          `envPrefix:"OBJECT_"`
}

func newRootCmd() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:   "studyctl",
		Short: "Run the studyhub image pipeline from the command line",
		Long: `studyctl resolves image references the way the Q&A service does before a
record is written: remote upload, inline encoding and adaptive compression.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envErr := loadDotEnv()

			if err := config.Parse(cmd.Context(), &cfg, configPrefix); err != nil {
				return fmt.Errorf("parse config: %w", err)
			}

			logging.Configure(cmd.Context(), cfg.Log, "studyhub.studyctl")

			if envErr != nil {
				logging.GetLogger("cmd.studyctl").WarnContext(cmd.Context(), "ignoring .env", logging.Err(envErr))
			}

			return nil
		},
	}

	cmd.AddCommand(newResolveCmd(&cfg))
	cmd.AddCommand(newCompressCmd(&cfg))

	return cmd
}

// loadDotEnv loads .env files into the environment. A missing file is not an error.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
