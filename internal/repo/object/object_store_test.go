package object_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/repo/object"
)

func TestFileSystemStore_URL(t *testing.T) {
	t.Parallel()

	store, err := object.NewFileSystemStore(context.Background(), object.FileSystemStoreConfig{
		Basedir:       t.TempDir(),
		PublicBaseURL: "http://localhost:8080/",
	})
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	tests := []struct {
		key     domain.ObjectKey
		want    string
		wantErr error
	}{
		{key: "questions/anon/1-abc.jpg", want: "http://localhost:8080/media/questions/anon/1-abc.jpg"},
		{key: "questions/a b/x.jpg", want: "http://localhost:8080/media/questions/a%20b/x.jpg"},
		{key: "../etc/passwd", wantErr: domain.ErrInvalidObjectKey},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			t.Parallel()

			got, err := store.URL(context.Background(), tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("URL() error = %v, want %v", err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileSystemStore_RejectsLockKeys(t *testing.T) {
	t.Parallel()

	store, err := object.NewFileSystemStore(context.Background(), object.FileSystemStoreConfig{Basedir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileSystemStore() error = %v", err)
	}

	if _, err := store.Filename("questions/x.jpg.lock"); !errors.Is(err, domain.ErrInvalidObjectKey) {
		t.Errorf("Filename() error = %v, want ErrInvalidObjectKey", err)
	}
}

func newTestS3Store(t *testing.T, publicBaseURL string) *object.S3Store {
	t.Helper()

	store, err := object.NewS3Store(context.Background(), object.S3StoreConfig{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "media",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
		UsePathStyle:    true,
		PublicBaseURL:   publicBaseURL,
		PresignTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	return store
}

func TestS3Store_PublicURL(t *testing.T) {
	t.Parallel()

	store := newTestS3Store(t, "https://cdn.test/media/")

	got, err := store.URL(context.Background(), "questions/anon/1-abc.jpg")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}

	if got != "https://cdn.test/media/questions/anon/1-abc.jpg" {
		t.Errorf("URL() = %q", got)
	}
}

func TestS3Store_PresignedURL(t *testing.T) {
	t.Parallel()

	store := newTestS3Store(t, "")

	got, err := store.URL(context.Background(), "questions/anon/1-abc.jpg")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse presigned url: %v", err)
	}

	if parsed.Host != "localhost:9000" || !strings.HasSuffix(parsed.Path, "/media/questions/anon/1-abc.jpg") {
		t.Errorf("presigned url = %q", got)
	}

	if parsed.Query().Get("X-Amz-Signature") == "" || parsed.Query().Get("X-Amz-Expires") != "3600" {
		t.Errorf("presigned url missing signature or expiry: %q", got)
	}
}

func TestNewStore_UnknownDriver(t *testing.T) {
	t.Parallel()

	//nolint:exhaustruct
	if _, err := object.NewStore(context.Background(), object.StoreConfig{Driver: "ftp"}); !errors.Is(err, object.ErrUnknownDriver) {
		t.Errorf("NewStore() error = %v, want ErrUnknownDriver", err)
	}
}
