//go:build integration || all

package object_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mkrupp/studyhub/internal/domain"

	. "github.com/mkrupp/studyhub/internal/repo/object"
)

//nolint:gochecknoglobals
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
}

func setupFileSystemTestStore(t *testing.T) (*FileSystemStore, string) {
	t.Helper()

	tempDir := t.TempDir()

	store, err := NewFileSystemStore(context.TODO(), FileSystemStoreConfig{
		Basedir:       tempDir,
		PublicBaseURL: "http://media.test/",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	return store, tempDir
}

func TestFileSystemStore_PutFetch(t *testing.T) {
	t.Parallel()

	store, tempDir := setupFileSystemTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		key      domain.ObjectKey
		body     []byte
		wantType string
	}{
		{
			name:     "stores png",
			key:      "questions/anon/1700000000000-abcdef.png",
			body:     tinyPNG,
			wantType: "image/png",
		},
		{
			name:     "overwrites existing object",
			key:      "questions/anon/1700000000000-abcdef.png",
			body:     []byte("plain text"),
			wantType: "text/plain",
		},
		{
			name:     "stores empty object",
			key:      "questions/q1/answers/user/empty.jpg",
			body:     []byte{},
			wantType: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Put(ctx, tt.key, "image/png", tt.body); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			content, err := os.ReadFile(filepath.Join(tempDir, filepath.FromSlash(string(tt.key))))
			if err != nil {
				t.Fatalf("read stored file: %v", err)
			}

			if !bytes.Equal(content, tt.body) {
				t.Errorf("stored content = %q, want %q", content, tt.body)
			}

			obj, err := store.Fetch(ctx, tt.key)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}

			if !bytes.Equal(obj.Body, tt.body) || !strings.HasPrefix(obj.ContentType, tt.wantType) {
				t.Errorf("Fetch() = %q (%s), want %q (%s)", obj.Body, obj.ContentType, tt.body, tt.wantType)
			}

			if _, err := os.Stat(filepath.Join(tempDir, filepath.FromSlash(string(tt.key))) + ".lock"); !os.IsNotExist(err) {
				t.Errorf("lock file left behind: %v", err)
			}
		})
	}
}

func TestFileSystemStore_ConcurrentPut(t *testing.T) {
	t.Parallel()

	store, _ := setupFileSystemTestStore(t)
	ctx := context.Background()
	key := domain.ObjectKey("questions/anon/shared.jpg")

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := store.Put(ctx, key, "image/jpeg", bytes.Repeat([]byte{byte('a' + i)}, 4096)); err != nil {
				t.Errorf("Put() error = %v", err)
			}
		}()
	}

	wg.Wait()

	obj, err := store.Fetch(ctx, key)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if obj.Size() != 4096 || !bytes.Equal(obj.Body, bytes.Repeat(obj.Body[:1], 4096)) {
		t.Errorf("interleaved write detected, size %d", obj.Size())
	}
}

func TestFileSystemStore_NotFound(t *testing.T) {
	t.Parallel()

	store, _ := setupFileSystemTestStore(t)
	ctx := context.Background()

	if _, err := store.Fetch(ctx, "questions/missing.jpg"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Errorf("Fetch() error = %v, want ErrObjectNotFound", err)
	}

	if _, err := store.Fetch(ctx, "questions"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Errorf("Fetch(dir) error = %v, want ErrObjectNotFound", err)
	}

	if err := store.Delete(ctx, "questions/missing.jpg"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Errorf("Delete() error = %v, want ErrObjectNotFound", err)
	}
}

func TestFileSystemStore_Delete(t *testing.T) {
	t.Parallel()

	store, _ := setupFileSystemTestStore(t)
	ctx := context.Background()
	key := domain.ObjectKey("questions/anon/gone.jpg")

	if err := store.Put(ctx, key, "image/jpeg", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Fetch(ctx, key); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Errorf("Fetch() after delete error = %v", err)
	}
}
