package imagesvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mkrupp/studyhub/internal/domain"
	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	http_ "github.com/mkrupp/studyhub/internal/infra/transport/http"
	"github.com/mkrupp/studyhub/internal/repo/object"
)

// ErrInvalidWidth is returned for width parameters that are not positive integers.
var ErrInvalidWidth = errors.New("invalid width")

// HTTPTransportConfig contains configuration parameters for the media transport.
type HTTPTransportConfig struct {
	// URLWidthParam is the URL parameter for specifying image resize width.
	URLWidthParam string `env:"URL_WIDTH_PARAM" default:"width"`

	// ContentDispositionDownload controls whether files are served with download headers.
	ContentDispositionDownload bool `env:"CONTENT_DISPOSITION_DOWNLOAD" default:"false"`

	// CacheMaxAge is sent as Cache-Control max-age; stored names are never reused
	CacheMaxAge int `env:"CACHE_MAX_AGE" default:"86400"`
}

// HTTPTransport serves uploaded images from an object.Store:
//   - GET /media/{key...}: download, optionally downscaled with ?width=
//   - DELETE /media/{key...}: delete, allowed for the principal the key is scoped to
type HTTPTransport struct {
	store     object.Store
	interpol  string
	maxPixels int
	log       logging.Logger
	cfg       HTTPTransportConfig
	mux       *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
func NewHTTPTransport(store object.Store, pipelineCfg PipelineConfig, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		store:     store,
		interpol:  pipelineCfg.Interpolator,
		maxPixels: pipelineCfg.MaxPixels,
		log:       logging.GetLogger("svc.imagesvc.http_transport"),
		cfg:       cfg,
		mux:       http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET /media/{key...}", ht.HandleDownload)
	ht.mux.HandleFunc("DELETE /media/{key...}", ht.HandleDelete)

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

// HandleDownload serves an object. A width parameter downscales images; it is ignored
// for widths at or above the original.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDownload(w, r)
}

//nolint:cyclop
func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "media download failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "media downloaded")
		}
	}(r.Context())

	key := domain.ObjectKey(r.PathValue("key"))
	log = log.With(logging.Group("media", "key", key))

	var width int

	if widthStr := r.URL.Query().Get(ht.cfg.URLWidthParam); widthStr != "" {
		width, err = strconv.Atoi(widthStr)
		if err != nil || width <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

			return fmt.Errorf("%w: %q", ErrInvalidWidth, widthStr)
		}
	}

	obj, err := ht.store.Fetch(r.Context(), key)
	if err != nil {
		ht.writeStoreError(w, err)

		return fmt.Errorf("fetch: %w", err)
	}

	if width > 0 {
		if obj, err = ht.resized(obj, width); err != nil {
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)

			return fmt.Errorf("resize: %w", err)
		}
	}

	if ht.cfg.ContentDispositionDownload {
		name := key.String()[strings.LastIndex(key.String(), "/")+1:]
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	}

	if ht.cfg.CacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(ht.cfg.CacheMaxAge))
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size(), 10))

	if _, err := obj.WriteTo(w); err != nil {
		return fmt.Errorf("write to: %w", err)
	}

	return nil
}

func (ht *HTTPTransport) resized(obj *domain.Object, width int) (*domain.Object, error) {
	img, mimeType, err := decodeImage(obj.Body, ht.maxPixels)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if width >= img.Bounds().Dx() {
		return obj, nil
	}

	interpol, err := getInterpolatorByName(ht.interpol)
	if err != nil {
		return nil, fmt.Errorf("get interpolator: %w", err)
	}

	body, mimeType, err := encodeImage(resizeImage(img, width, interpol, nil), mimeType)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return domain.NewObject(obj.Key, mimeType, body), nil
}

// HandleDelete removes an object. Keys are <namespace...>/<principal>/<name>; only the
// principal the key is scoped to may delete it.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "media delete failed", logging.Err(err))
		} else {
			log.InfoContext(ctx, "media deleted")
		}
	}(r.Context())

	key := domain.ObjectKey(r.PathValue("key"))
	log = log.With(logging.Group("media", "key", key))

	principal, ok := context_.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return domain.ErrUnauthorized
	}

	if keyPrincipal(key) != sanitizePathSegment(principal) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)

		return fmt.Errorf("%w: key not owned by %q", domain.ErrUnauthorized, principal)
	}

	if err := ht.store.Delete(r.Context(), key); err != nil {
		ht.writeStoreError(w, err)

		return fmt.Errorf("delete: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

func (ht *HTTPTransport) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrObjectNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidObjectKey):
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// keyPrincipal returns the second to last key segment, the principal written by
// RemoteUploader.
func keyPrincipal(key domain.ObjectKey) string {
	segments := strings.Split(key.String(), "/")
	if len(segments) < 2 {
		return ""
	}

	return segments[len(segments)-2]
}
