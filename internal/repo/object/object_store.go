package object

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/studyhub/internal/domain"
)

// ErrUnknownDriver is returned when the configured object store driver does not exist.
var ErrUnknownDriver = errors.New("unknown object store driver")

// Store defines the interface for the content store that holds uploaded images.
type Store interface {
	// Put writes body under key, replacing any existing object.
	Put(ctx context.Context, key domain.ObjectKey, contentType string, body []byte) error

	// URL returns a durable retrieval URL for the object at key.
	URL(ctx context.Context, key domain.ObjectKey) (string, error)

	// Fetch retrieves the object at key.
	// Returns domain.ErrObjectNotFound if it does not exist.
	Fetch(ctx context.Context, key domain.ObjectKey) (*domain.Object, error)

	// Delete removes the object at key.
	Delete(ctx context.Context, key domain.ObjectKey) error
}

// StoreConfig selects and configures the object store backend.
type StoreConfig struct {
	// Driver is either "filesystem" or "s3"
	Driver string `env:"DRIVER" default:"filesystem"`

	FileSystem FileSystemStoreConfig `envPrefix:"FS_"`
	S3         S3StoreConfig         `envPrefix:"S3_"`
}

// NewStore creates the Store selected by cfg.Driver.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "filesystem", "":
		return NewFileSystemStore(ctx, cfg.FileSystem)
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
