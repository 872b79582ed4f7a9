package imagesvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// Compressor shrinks image bytes into an inline data URL within the size limit.
type Compressor interface {
	Compress(ctx context.Context, src []byte) (string, error)
}

// Encoder produces one candidate data URL for a compression attempt.
type Encoder interface {
	Encode(ctx context.Context, img image.Image, attempt domain.CompressionAttempt) (string, error)
}

// JPEGEncoder scales to the attempt width and encodes JPEG at quality*100.
// Transparent areas are flattened onto white.
type JPEGEncoder struct {
	interpol draw.Interpolator
}

var _ Encoder = (*JPEGEncoder)(nil)

// NewJPEGEncoder creates a JPEGEncoder using the named interpolator.
func NewJPEGEncoder(interpolator string) (*JPEGEncoder, error) {
	interpol, err := getInterpolatorByName(interpolator)
	if err != nil {
		return nil, fmt.Errorf("get interpolator: %w", err)
	}

	return &JPEGEncoder{interpol: interpol}, nil
}

func (enc *JPEGEncoder) Encode(_ context.Context, img image.Image, attempt domain.CompressionAttempt) (string, error) {
	scaled := resizeImage(img, attempt.Width, enc.interpol, color.White)

	quality := int(math.Round(attempt.Quality * 100))
	quality = min(max(quality, 1), 100)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return domain.InlineDataURL(MIMETypeJPEG, buf.Bytes()), nil
}

var errEncoderPanic = errors.New("encoder panic")

// AdaptiveCompressor implements Compressor with a greedy first-fit search: the source is
// decoded once, then every attempt is encoded in order and the first candidate within
// the size limit wins. It does not look for the best quality that would still fit.
type AdaptiveCompressor struct {
	encoder   Encoder
	sizeLimit int
	maxPixels int
	widths    []int
	qualities []float64
	log       logging.Logger
}

var _ Compressor = (*AdaptiveCompressor)(nil)

// NewAdaptiveCompressor creates an AdaptiveCompressor over cfg's attempt tables.
func NewAdaptiveCompressor(encoder Encoder, cfg PipelineConfig) *AdaptiveCompressor {
	return &AdaptiveCompressor{
		encoder:   encoder,
		sizeLimit: cfg.SizeLimit,
		maxPixels: cfg.MaxPixels,
		widths:    cfg.Widths,
		qualities: cfg.Qualities,
		log:       logging.GetLogger("svc.imagesvc.adaptive_compressor"),
	}
}

// Compress implements Compressor. Per-attempt encoder failures are skipped. Sources
// declaring more than the configured pixel cap fail with domain.ErrTooManyPixels. Returns
// domain.ErrNoFit when every attempt is exhausted and the context error when it is
// cancelled between attempts.
func (comp *AdaptiveCompressor) Compress(ctx context.Context, src []byte) (payload string, err error) {
	log := comp.log.With(logging.Group("compress", "src_size", len(src), "limit", comp.sizeLimit))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "compression failed", logging.Err(err))
		}
	}()

	img, mimeType, err := decodeImage(src, comp.maxPixels)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	log = log.With(
		"type", mimeType,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)

	tried := 0

	for i, attempt := range domain.Attempts(comp.widths, comp.qualities) {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("attempt %d: %w", i, err)
		}

		tried++

		candidate, err := comp.encodeAttempt(ctx, img, attempt)
		if err != nil {
			log.WarnContext(ctx, "compression attempt failed", "attempt", attempt.String(), logging.Err(err))

			continue
		}

		if len(candidate) <= comp.sizeLimit {
			log.DebugContext(ctx, "compression attempt fits",
				"attempt", attempt.String(),
				"index", i,
				"size", len(candidate),
			)

			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %d attempts", domain.ErrNoFit, tried)
}

// encodeAttempt runs the encoder for one attempt; a panic counts as a failed attempt.
func (comp *AdaptiveCompressor) encodeAttempt(
	ctx context.Context,
	img image.Image,
	attempt domain.CompressionAttempt,
) (candidate string, err error) {
	defer func() {
		if p := recover(); p != nil {
			candidate, err = "", fmt.Errorf("%w: %v", errEncoderPanic, p)
		}
	}()

	return comp.encoder.Encode(ctx, img, attempt)
}
