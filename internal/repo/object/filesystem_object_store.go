package object

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

var (
	ErrBytesWrittenMismatch = errors.New("bytes written mismatch")
	ErrBytesReadMismatch    = errors.New("bytes read mismatch")
)

// lockSuffix marks lock files next to the objects they guard.
const lockSuffix = ".lock"

// FileSystemStoreConfig holds configuration for the filesystem-based object store.
type FileSystemStoreConfig struct {
	// Basedir is the root directory for object storage
	Basedir string `env:"BASEDIR" default:"var/storage/media"`
	// PublicBaseURL prefixes the URLs handed out for stored objects
	PublicBaseURL string `env:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
}

// FileSystemStore implements Store on the local filesystem. Keys map to paths below
// Basedir; writes hold an exclusive flock so concurrent writers of one key serialize.
// Objects are served by the Q&A transport under /media/.
type FileSystemStore struct {
	cfg FileSystemStoreConfig
	log logging.Logger
}

var _ Store = (*FileSystemStore)(nil)

// NewFileSystemStore creates the base directory and returns a ready store.
func NewFileSystemStore(ctx context.Context, cfg FileSystemStoreConfig) (store *FileSystemStore, err error) {
	log := logging.GetLogger("repo.object.filesystem_store").With(
		logging.Group("store", "basedir", cfg.Basedir),
	)

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "init storage failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(cfg.Basedir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return &FileSystemStore{cfg: cfg, log: log}, nil
}

// Filename returns the full filesystem path for the object at key.
func (store *FileSystemStore) Filename(key domain.ObjectKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("validate key: %w", err)
	}

	if strings.HasSuffix(string(key), lockSuffix) {
		return "", fmt.Errorf("%w: reserved suffix %q", domain.ErrInvalidObjectKey, lockSuffix)
	}

	return filepath.Join(store.cfg.Basedir, filepath.FromSlash(string(key))), nil
}

func (store *FileSystemStore) Put(ctx context.Context, key domain.ObjectKey, contentType string, body []byte) (err error) {
	obj := domain.NewObject(key, contentType, body)
	log := store.log.With(logging.Group("object", "key", key, "size", obj.Size()))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "object put failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "object stored")
		}
	}()

	filename, err := store.Filename(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	release, err := store.flock(ctx, filename, syscall.LOCK_EX)
	if err != nil {
		return fmt.Errorf("flock: %w", err)
	}
	defer release()

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	if n, err := obj.WriteTo(file); err != nil {
		return fmt.Errorf("write: %w", err)
	} else if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	} else if n != obj.Size() {
		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, obj.Size(), n)
	}

	return nil
}

// URL returns <PublicBaseURL>/media/<key> with every path segment escaped.
func (store *FileSystemStore) URL(_ context.Context, key domain.ObjectKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("validate key: %w", err)
	}

	segments := strings.Split(string(key), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.TrimRight(store.cfg.PublicBaseURL, "/") + "/media/" + strings.Join(segments, "/"), nil
}

func (store *FileSystemStore) Fetch(ctx context.Context, key domain.ObjectKey) (obj *domain.Object, err error) {
	defer func() {
		log := store.log.With(logging.Group("object", "key", key))
		if err != nil && !errors.Is(err, domain.ErrObjectNotFound) {
			log.ErrorContext(ctx, "object fetch failed", logging.Err(err))
		} else if err == nil {
			log.DebugContext(ctx, "object fetched", "size", obj.Size())
		}
	}()

	filename, err := store.Filename(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	} else if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	}

	obj = domain.NewObject(key, "", nil)
	if n, err := obj.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	} else if n != info.Size() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrBytesReadMismatch, info.Size(), n)
	}

	obj.ContentType = mimetype.Detect(obj.Body).String()

	return obj, nil
}

func (store *FileSystemStore) Delete(ctx context.Context, key domain.ObjectKey) (err error) {
	defer func() {
		log := store.log.With(logging.Group("object", "key", key))
		if err != nil {
			log.ErrorContext(ctx, "object delete failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "object deleted")
		}
	}()

	filename, err := store.Filename(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filename); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, key)
	} else if err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

func (store *FileSystemStore) flock(ctx context.Context, filename string, mode int) (release func(), err error) {
	lockfile := filename + lockSuffix
	log := store.log.With(logging.Group("object", "lockfile", lockfile))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "lock failed", logging.Err(err))
		}
	}()

	file, err := os.OpenFile(lockfile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	//nolint:gosec
	if err := syscall.Flock(int(file.Fd()), mode); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("flock: %w", err)
	}

	return func() {
		//nolint:gosec
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		_ = os.Remove(lockfile)
	}, nil
}
