package imagesvc_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

func TestRemoteUploader_Upload(t *testing.T) {
	t.Parallel()

	png := makePNG(t, 4, 4)

	tests := []struct {
		name       string
		principals *mockPrincipals
		data       []byte
		wantKey    *regexp.Regexp
		wantType   string
	}{
		{
			name:       "scoped to principal",
			principals: &mockPrincipals{principal: "user-1"},
			data:       png,
			wantKey:    regexp.MustCompile(`^questions/user-1/\d+-[0-9a-hjkmnp-tv-z]{6}\.png$`),
			wantType:   imagesvc.MIMETypePNG,
		},
		{
			name:       "principal failure writes anonymously",
			principals: &mockPrincipals{err: domain.ErrNoPrincipal},
			data:       png,
			wantKey:    regexp.MustCompile(`^questions/anon/\d+-[0-9a-z]{6}\.png$`),
			wantType:   imagesvc.MIMETypePNG,
		},
		{
			name:       "principal cannot escape its segment",
			principals: &mockPrincipals{principal: "../../etc"},
			data:       png,
			wantKey:    regexp.MustCompile(`^questions/\.\._\.\._etc/\d+-[0-9a-z]{6}\.png$`),
			wantType:   imagesvc.MIMETypePNG,
		},
		{
			name:       "jpeg stored as jpg",
			principals: &mockPrincipals{principal: "user-1"},
			data:       makeJPEG(t, 4, 4),
			wantKey:    regexp.MustCompile(`^questions/user-1/\d+-[0-9a-z]{6}\.jpg$`),
			wantType:   imagesvc.MIMETypeJPEG,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			uploader := imagesvc.NewRemoteUploader(tt.principals, staticReader(tt.data, nil), store, imagesvc.DefaultPipelineConfig())

			url, err := uploader.Upload(context.Background(), "/tmp/photo", "questions")
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}

			keys := store.keys()
			if len(keys) != 1 {
				t.Fatalf("store holds %d objects, want 1", len(keys))
			}

			if !tt.wantKey.MatchString(keys[0].String()) {
				t.Errorf("key = %q, want match %s", keys[0], tt.wantKey)
			}

			if url != "https://store/"+keys[0].String() {
				t.Errorf("Upload() = %q", url)
			}

			obj, _ := store.Fetch(context.Background(), keys[0])
			if obj.ContentType != tt.wantType {
				t.Errorf("content type = %q, want %q", obj.ContentType, tt.wantType)
			}
		})
	}
}

func TestRemoteUploader_NilPrincipals(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	uploader := imagesvc.NewRemoteUploader(nil, staticReader(makePNG(t, 2, 2), nil), store, imagesvc.DefaultPipelineConfig())

	if _, err := uploader.Upload(context.Background(), "/tmp/x.png", "questions/q1/answers"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if keys := store.keys(); len(keys) != 1 || !regexp.MustCompile(`^questions/q1/answers/anon/`).MatchString(keys[0].String()) {
		t.Errorf("keys = %v", keys)
	}
}

func TestRemoteUploader_Failures(t *testing.T) {
	t.Parallel()

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		uploader := imagesvc.NewRemoteUploader(nil, staticReader(nil, errMock), store, imagesvc.DefaultPipelineConfig())

		if _, err := uploader.Upload(context.Background(), "/tmp/x", "questions"); !errors.Is(err, errMock) {
			t.Errorf("Upload() error = %v, want %v", err, errMock)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		uploader := imagesvc.NewRemoteUploader(nil, staticReader([]byte("DB_PASSWORD=hunter2\n"), nil), store, imagesvc.DefaultPipelineConfig())

		_, err := uploader.Upload(context.Background(), "/tmp/secrets.env", "questions")
		if !errors.Is(err, domain.ErrImageTypeNotSupported) {
			t.Errorf("Upload() error = %v, want ErrImageTypeNotSupported", err)
		}

		if keys := store.keys(); len(keys) != 0 {
			t.Errorf("store holds %v, want nothing", keys)
		}
	})

	t.Run("put failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.putErr = errMock

		uploader := imagesvc.NewRemoteUploader(nil, staticReader(makePNG(t, 2, 2), nil), store, imagesvc.DefaultPipelineConfig())

		if _, err := uploader.Upload(context.Background(), "/tmp/x", "questions"); !errors.Is(err, errMock) {
			t.Errorf("Upload() error = %v, want %v", err, errMock)
		}
	})

	t.Run("url failure", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.urlErr = errMock

		uploader := imagesvc.NewRemoteUploader(nil, staticReader(makePNG(t, 2, 2), nil), store, imagesvc.DefaultPipelineConfig())

		if _, err := uploader.Upload(context.Background(), "/tmp/x", "questions"); !errors.Is(err, errMock) {
			t.Errorf("Upload() error = %v, want %v", err, errMock)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.block = true

		cfg := imagesvc.DefaultPipelineConfig()
		cfg.UploadTimeout = 20 * time.Millisecond

		uploader := imagesvc.NewRemoteUploader(nil, staticReader(makePNG(t, 2, 2), nil), store, cfg)

		start := time.Now()

		_, err := uploader.Upload(context.Background(), "/tmp/x", "questions")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Upload() error = %v, want DeadlineExceeded", err)
		}

		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("Upload() took %v", elapsed)
		}
	})
}
