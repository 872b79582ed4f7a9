package imagesvc

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/mkrupp/studyhub/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeGIF  = "image/gif"
	MIMETypeTIFF = "image/tiff"
	MIMETypeWEBP = "image/webp"
	MIMETypeBMP  = "image/bmp"
)

//nolint:gochecknoglobals
var (
	imageDecoders = map[string]func(io.Reader) (image.Image, error){
		MIMETypeJPEG: jpeg.Decode,
		MIMETypePNG:  png.Decode,
		MIMETypeGIF:  gif.Decode,
		MIMETypeTIFF: tiff.Decode,
		MIMETypeWEBP: webp.Decode,
		MIMETypeBMP:  bmp.Decode,
	}

	imageEncoders = map[string]func(io.Writer, image.Image) error{
		MIMETypeJPEG: func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, nil) },
		MIMETypePNG:  png.Encode,
		MIMETypeGIF:  func(w io.Writer, i image.Image) error { return gif.Encode(w, i, nil) },
		MIMETypeTIFF: func(w io.Writer, i image.Image) error { return tiff.Encode(w, i, nil) },
		MIMETypeBMP:  bmp.Encode,
	}
)

// detectImageType returns the image media type of data and its file extension without
// the dot. Data that is not an image reports ok = false.
func detectImageType(data []byte) (mimeType, ext string, ok bool) {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", "", false
	}

	mimeType, _, _ = strings.Cut(detected.String(), ";")
	ext = strings.TrimPrefix(detected.Extension(), ".")

	if mimeType == MIMETypeJPEG {
		ext = "jpg"
	}

	return mimeType, ext, true
}

// notAnImage reports data that is not recognised as any image type.
func notAnImage(data []byte) error {
	return fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimetype.Detect(data).String())
}

// decodeImage detects the format of data and decodes it. The header is checked first:
// images declaring more than maxPixels pixels are refused before any pixel buffer is
// allocated.
func decodeImage(data []byte, maxPixels int) (image.Image, string, error) {
	mimeType, _, ok := detectImageType(data)
	if !ok {
		return nil, "", notAnImage(data)
	}

	decoder, ok := imageDecoders[mimeType]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s config: %w", mimeType, err)
	}

	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d", domain.ErrTooManyPixels, cfg.Width, cfg.Height, maxPixels)
	}

	img, err := decoder(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", mimeType, err)
	}

	return img, mimeType, nil
}

// encodeImage encodes img as mimeType. WEBP has no encoder and falls back to PNG; the
// returned type is the one actually written.
func encodeImage(img image.Image, mimeType string) ([]byte, string, error) {
	encoder, ok := imageEncoders[mimeType]
	if !ok {
		if mimeType != MIMETypeWEBP {
			return nil, "", fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
		}

		mimeType, encoder = MIMETypePNG, imageEncoders[MIMETypePNG]
	}

	var buf bytes.Buffer
	if err := encoder(&buf, img); err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", mimeType, err)
	}

	return buf.Bytes(), mimeType, nil
}
