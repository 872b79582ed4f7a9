package imagesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// Inliner turns an ImageSource into an inline data URL within the size limit.
//
// When the inline form is too large, Encode returns domain.ErrTooLarge together with
// the raw image bytes so a compressor can take over. domain.ErrUnreadable means the
// bytes could not be obtained at all.
type Inliner interface {
	Encode(ctx context.Context, source domain.ImageSource) (inline string, raw []byte, err error)
}

// InlineEncoder implements Inliner with a ByteReader for locators.
type InlineEncoder struct {
	reader    ByteReader
	sizeLimit int
	log       logging.Logger
}

var _ Inliner = (*InlineEncoder)(nil)

// NewInlineEncoder creates an InlineEncoder bounded by cfg.SizeLimit.
func NewInlineEncoder(reader ByteReader, cfg PipelineConfig) *InlineEncoder {
	return &InlineEncoder{
		reader:    reader,
		sizeLimit: cfg.SizeLimit,
		log:       logging.GetLogger("svc.imagesvc.inline_encoder"),
	}
}

func (enc *InlineEncoder) Encode(ctx context.Context, source domain.ImageSource) (inline string, raw []byte, err error) {
	log := enc.log.With(logging.Group("image", "source", source.Kind.String(), "limit", enc.sizeLimit))

	defer func() {
		switch {
		case errors.Is(err, domain.ErrTooLarge):
			log.DebugContext(ctx, "inline payload too large", "raw_size", len(raw))
		case err != nil:
			log.WarnContext(ctx, "inline encoding failed", logging.Err(err))
		default:
			log.DebugContext(ctx, "inline payload fits", "size", len(inline))
		}
	}()

	switch source.Kind {
	case domain.SourceInline:
		return enc.encodeInline(source.Raw)
	case domain.SourceLocator:
		return enc.encodeLocator(ctx, source.Raw)
	default:
		return "", nil, domain.ErrNoImage
	}
}

func (enc *InlineEncoder) encodeInline(dataURL string) (string, []byte, error) {
	if len(dataURL) <= enc.sizeLimit {
		return dataURL, nil, nil
	}

	_, data, err := domain.DecodeInlineData(dataURL)
	if err != nil {
		return "", nil, errors.Join(domain.ErrUnreadable, err)
	}

	return "", data, fmt.Errorf("%w: %d > %d", domain.ErrTooLarge, len(dataURL), enc.sizeLimit)
}

func (enc *InlineEncoder) encodeLocator(ctx context.Context, locator string) (string, []byte, error) {
	data, err := enc.reader.ReadBytes(ctx, locator)
	if err != nil {
		if !errors.Is(err, domain.ErrUnreadable) {
			err = errors.Join(domain.ErrUnreadable, err)
		}

		return "", nil, fmt.Errorf("read bytes: %w", err)
	}

	mimeType, _, ok := detectImageType(data)
	if !ok {
		return "", nil, notAnImage(data)
	}

	dataURL := domain.InlineDataURL(mimeType, data)
	if len(dataURL) > enc.sizeLimit {
		return "", data, fmt.Errorf("%w: %d > %d", domain.ErrTooLarge, len(dataURL), enc.sizeLimit)
	}

	return dataURL, data, nil
}
