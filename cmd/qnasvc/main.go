package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mkrupp/studyhub/internal/infra/config"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	"github.com/mkrupp/studyhub/internal/infra/transport/http"
	"github.com/mkrupp/studyhub/internal/repo/object"
	"github.com/mkrupp/studyhub/internal/repo/record"
	"github.com/mkrupp/studyhub/internal/svc/authclient"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
	"github.com/mkrupp/studyhub/internal/svc/qnasvc"
)

const (
	appName = "studyhub"
	svcName = "qnasvc"
)

type Config struct {
	config.EnvConfig

	Log        logging.LoggerConfig         `envPrefix:"LOG_"`
	Image      imagesvc.PipelineConfig      `envPrefix:"IMAGE_"`
	Media      imagesvc.HTTPTransportConfig `envPrefix:"MEDIA_"`
	HTTP       qnasvc.HTTPTransportConfig   `envPrefix:"HTTP_"`
	AuthClient authclient.HTTPClientConfig  `envPrefix:"AUTH_CLIENT_"`
	Object     object.StoreConfig           `envPrefix:"OBJECT_"`
	Record     record.RepositoryConfig      `envPrefix:"RECORD_"`

	// AuthEnabled validates bearer tokens and asks the auth service for anonymous
	// principals; without it every request is anonymous
	AuthEnabled bool `env:"AUTH_ENABLED" default:"true"`
	// RemoteUpload enables the remote upload stage of the image pipeline
	RemoteUpload bool `env:"REMOTE_UPLOAD" default:"true"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment alone may configure the service.
	envErr := loadDotEnv()

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if envErr != nil {
		logging.GetLogger("cmd.qnasvc").WarnContext(ctx, "ignoring .env", logging.Err(envErr))
	}

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.qnasvc")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", logging.Err(err))
		} else {
			log.InfoContext(ctx, "shutdown")
		}
	}()

	records, err := record.NewRepository(ctx, cfg.Record)
	if err != nil {
		return fmt.Errorf("new record repository: %w", err)
	}

	defer func() {
		if cerr := records.Close(); cerr != nil {
			log.WarnContext(ctx, "close record repository failed", logging.Err(cerr))
		}
	}()

	store, err := object.NewStore(ctx, cfg.Object)
	if err != nil {
		return fmt.Errorf("new object store: %w", err)
	}

	var (
		validator  http.TokenValidator
		principals authclient.PrincipalProvider
	)

	if cfg.AuthEnabled {
		authClient := authclient.NewHTTPClient(cfg.AuthClient, nil)
		validator, principals = authClient, authClient
	}

	var uploadStore object.Store
	if cfg.RemoteUpload {
		uploadStore = store
	}

	imageSvc, err := imagesvc.NewImageService(cfg.Image, principals, uploadStore, nil)
	if err != nil {
		return fmt.Errorf("new image service: %w", err)
	}

	qnaSvc := qnasvc.NewRecordQnAService(records, imageSvc)

	var media http.HTTPTransport
	if cfg.Object.Driver != "s3" {
		media = imagesvc.NewHTTPTransport(store, cfg.Image, cfg.Media)
	}

	httpTransport := qnasvc.NewHTTPTransport(qnaSvc, media, validator, cfg.HTTP)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP.HTTPTransportConfig); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// loadDotEnv loads .env files into the environment. A missing file is not an error.
func loadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}
