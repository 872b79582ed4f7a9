package domain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// InlineMarker prefixes strings that already carry their image bytes.
	InlineMarker = "data:"

	// DefaultMIMEType is declared for inline payloads whose type cannot be detected.
	DefaultMIMEType = "image/jpeg"

	// DefaultSizeLimit is the largest inline payload a single record field may hold.
	DefaultSizeLimit = 1048487
)

var (
	// ErrNoImage is returned by stages asked to process an absent image.
	ErrNoImage = errors.New("no image")
	// ErrUnreadable is returned when the bytes behind a source cannot be read by any strategy.
	ErrUnreadable = errors.New("image unreadable")
	// ErrTooLarge is returned when an inline representation exceeds the size limit.
	ErrTooLarge = errors.New("image too large")
	// ErrNoFit is returned when no compression attempt produced a payload within the size limit.
	ErrNoFit = errors.New("no compression attempt fits")
	// ErrImageTypeNotSupported is returned for image formats that cannot be decoded.
	ErrImageTypeNotSupported = errors.New("image type not supported")
	// ErrTooManyPixels is returned for images whose declared dimensions exceed the pixel cap.
	ErrTooManyPixels = errors.New("image has too many pixels")
	// ErrMalformedInline is returned for inline data that does not follow the data URL syntax.
	ErrMalformedInline = errors.New("malformed inline data")
)

// SourceKind tells which variant of an ImageSource is active.
type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceInline
	SourceLocator
)

func (kind SourceKind) String() string {
	switch kind {
	case SourceInline:
		return "inline"
	case SourceLocator:
		return "locator"
	default:
		return "none"
	}
}

// ImageSource describes what the caller handed in: nothing, an inline data URL
// or an opaque locator that has to be read before use.
type ImageSource struct {
	Kind SourceKind
	// Raw is the unmodified caller string. For SourceInline it is the encoded bytes,
	// for SourceLocator it is the URI.
	Raw string
}

// NoImage is the ImageSource used when no image is attached.
func NoImage() ImageSource {
	return ImageSource{Kind: SourceNone, Raw: ""}
}

// InlineData wraps an already encoded data URL.
func InlineData(encoded string) ImageSource {
	return ImageSource{Kind: SourceInline, Raw: encoded}
}

// ResourceLocator wraps a locator string such as a file path or content URI.
func ResourceLocator(uri string) ImageSource {
	return ImageSource{Kind: SourceLocator, Raw: uri}
}

// IsNone reports whether no image is attached.
func (src ImageSource) IsNone() bool {
	return src.Kind == SourceNone
}

// InlineDataURL renders bytes as a base64 data URL with the given media type.
func InlineDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	var sb strings.Builder

	sb.Grow(len(InlineMarker) + len(mimeType) + len(";base64,") + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(InlineMarker)
	sb.WriteString(mimeType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(data))

	return sb.String()
}

// DecodeInlineData splits a data URL into its media type and decoded bytes.
// Only base64 payloads are supported.
func DecodeInlineData(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, InlineMarker)
	if !ok {
		return "", nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedInline, InlineMarker)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload separator", ErrMalformedInline)
	}

	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: payload is not base64", ErrMalformedInline)
	}

	if mimeType == "" {
		mimeType = DefaultMIMEType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrMalformedInline, fmt.Errorf("decode base64: %w", err))
	}

	return mimeType, data, nil
}
