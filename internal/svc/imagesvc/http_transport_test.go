package imagesvc_test

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkrupp/studyhub/internal/domain"
	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

func newTestTransport(t *testing.T) (*imagesvc.HTTPTransport, *memStore) {
	t.Helper()

	store := newMemStore()

	if err := store.Put(context.Background(), "questions/user-1/1-abcdef.png", imagesvc.MIMETypePNG, makePNG(t, 40, 20)); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := store.Put(context.Background(), "questions/user-1/2-huge00.png", imagesvc.MIMETypePNG, headerOnlyPNG(40000, 40000)); err != nil {
		t.Fatalf("put: %v", err)
	}

	cfg := imagesvc.HTTPTransportConfig{URLWidthParam: "width", ContentDispositionDownload: false, CacheMaxAge: 60}

	return imagesvc.NewHTTPTransport(store, imagesvc.DefaultPipelineConfig(), cfg), store
}

func TestHTTPTransport_Download(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantWidth  int
	}{
		{name: "original", url: "/media/questions/user-1/1-abcdef.png", wantStatus: http.StatusOK, wantWidth: 40},
		{name: "downscaled", url: "/media/questions/user-1/1-abcdef.png?width=10", wantStatus: http.StatusOK, wantWidth: 10},
		{name: "never upscaled", url: "/media/questions/user-1/1-abcdef.png?width=400", wantStatus: http.StatusOK, wantWidth: 40},
		{name: "too many pixels to resize", url: "/media/questions/user-1/2-huge00.png?width=10", wantStatus: http.StatusUnprocessableEntity},
		{name: "invalid width", url: "/media/questions/user-1/1-abcdef.png?width=-1", wantStatus: http.StatusBadRequest},
		{name: "missing", url: "/media/questions/user-1/missing.png", wantStatus: http.StatusNotFound},
	}

	ht, _ := newTestTransport(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			if tt.wantStatus != http.StatusOK {
				return
			}

			if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
				t.Errorf("Cache-Control = %q", got)
			}

			cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
			if err != nil {
				t.Fatalf("decode response: %v", err)
			}

			if cfg.Width != tt.wantWidth {
				t.Errorf("width = %d, want %d", cfg.Width, tt.wantWidth)
			}
		})
	}
}

func TestHTTPTransport_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		principal  string
		key        string
		wantStatus int
		wantKept   bool
	}{
		{name: "anonymous caller", key: "questions/user-1/1-abcdef.png", wantStatus: http.StatusUnauthorized, wantKept: true},
		{name: "other principal", principal: "user-2", key: "questions/user-1/1-abcdef.png", wantStatus: http.StatusNotFound, wantKept: true},
		{name: "owner", principal: "user-1", key: "questions/user-1/1-abcdef.png", wantStatus: http.StatusNoContent, wantKept: false},
		{name: "owner, missing object", principal: "user-1", key: "questions/user-1/gone.png", wantStatus: http.StatusNotFound, wantKept: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ht, store := newTestTransport(t)

			req := httptest.NewRequest(http.MethodDelete, "/media/"+tt.key, nil)
			if tt.principal != "" {
				req = req.WithContext(context_.WithPrincipal(req.Context(), tt.principal))
			}

			rec := httptest.NewRecorder()
			ht.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			_, err := store.Fetch(context.Background(), domain.ObjectKey("questions/user-1/1-abcdef.png"))
			if kept := err == nil; kept != tt.wantKept {
				t.Errorf("object kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}
