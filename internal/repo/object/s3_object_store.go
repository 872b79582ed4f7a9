package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// S3StoreConfig holds configuration for an S3 compatible object store (AWS, MinIO, R2).
type S3StoreConfig struct {
	// Endpoint overrides the AWS endpoint, e.g. http://localhost:9000 for MinIO
	Endpoint string `env:"ENDPOINT" default:""`
	Region   string `env:"REGION" default:"us-east-1"`
	Bucket   string `env:"BUCKET" default:"studyhub-media"`

	// AccessKeyID and SecretAccessKey select static credentials; empty uses the default chain
	AccessKeyID     string `env:"ACCESS_KEY_ID" default:""`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" default:""`

	UsePathStyle bool `env:"USE_PATH_STYLE" default:"true"`

	// PublicBaseURL serves objects from a public bucket or CDN; empty hands out presigned GETs
	PublicBaseURL string        `env:"PUBLIC_BASE_URL" default:""`
	PresignTTL    time.Duration `env:"PRESIGN_TTL" default:"168h"`
}

// S3Store implements Store on top of the AWS S3 API.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	cfg       S3StoreConfig
	log       logging.Logger
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3 client for the configured endpoint and bucket.
// No request is made until the first operation.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.Endpoint != "" {
		//nolint:staticcheck
		resolver := aws.EndpointResolverWithOptionsFunc(
			func(_, _ string, _ ...any) (aws.Endpoint, error) {
				//nolint:exhaustruct
				return aws.Endpoint{URL: cfg.Endpoint, HostnameImmutable: true}, nil
			},
		)

		//nolint:staticcheck
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver))
	}

	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		cfg:       cfg,
		log: logging.GetLogger("repo.object.s3_store").With(
			logging.Group("store", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint),
		),
	}, nil
}

func (store *S3Store) Put(ctx context.Context, key domain.ObjectKey, contentType string, body []byte) (err error) {
	defer func() {
		log := store.log.With(logging.Group("object", "key", key, "size", len(body)))
		if err != nil {
			log.ErrorContext(ctx, "object put failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "object stored")
		}
	}()

	if err := key.Validate(); err != nil {
		return fmt.Errorf("validate key: %w", err)
	}

	//nolint:exhaustruct
	if _, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.cfg.Bucket),
		Key:           aws.String(key.String()),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	}); err != nil {
		return fmt.Errorf("put object: %w", err)
	}

	return nil
}

// URL returns <PublicBaseURL>/<key> when a public base is configured, otherwise a
// presigned GET valid for PresignTTL.
func (store *S3Store) URL(ctx context.Context, key domain.ObjectKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("validate key: %w", err)
	}

	if store.cfg.PublicBaseURL != "" {
		return strings.TrimRight(store.cfg.PublicBaseURL, "/") + "/" + key.String(), nil
	}

	//nolint:exhaustruct
	req, err := store.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.cfg.Bucket),
		Key:    aws.String(key.String()),
	}, s3.WithPresignExpires(store.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}

	return req.URL, nil
}

func (store *S3Store) Fetch(ctx context.Context, key domain.ObjectKey) (obj *domain.Object, err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
			store.log.ErrorContext(ctx, "object fetch failed", logging.Group("object", "key", key), logging.Err(err))
		}
	}()

	//nolint:exhaustruct
	out, err := store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.cfg.Bucket),
		Key:    aws.String(key.String()),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
		}

		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return domain.NewObject(key, aws.ToString(out.ContentType), body), nil
}

func (store *S3Store) Delete(ctx context.Context, key domain.ObjectKey) error {
	//nolint:exhaustruct
	if _, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.cfg.Bucket),
		Key:    aws.String(key.String()),
	}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}
