package imagesvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/repo/object"
	"github.com/mkrupp/studyhub/internal/svc/authclient"
)

// ImageService resolves the image reference of a submission into the value stored on
// the record.
type ImageService interface {
	// Resolve never fails. The returned payload is PayloadNone when no image was given.
	// namespace scopes remote storage, e.g. "questions" or "questions/<id>/answers".
	Resolve(ctx context.Context, source *string, namespace string) domain.Payload
}

// NewImageService wires the default pipeline: the configured reader chain, remote upload
// to store, inline encoding and JPEG compression. store may be nil to disable remote
// upload. httpClient may be nil.
func NewImageService(
	cfg PipelineConfig,
	principals authclient.PrincipalProvider,
	store object.Store,
	httpClient *http.Client,
) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	reader, err := NewByteReader(cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("new byte reader: %w", err)
	}

	encoder, err := NewJPEGEncoder(cfg.Interpolator)
	if err != nil {
		return nil, fmt.Errorf("new jpeg encoder: %w", err)
	}

	var uploader Uploader
	if store != nil {
		uploader = NewRemoteUploader(principals, reader, store, cfg)
	}

	return NewResolver(
		uploader,
		NewInlineEncoder(reader, cfg),
		NewAdaptiveCompressor(encoder, cfg),
	), nil
}
