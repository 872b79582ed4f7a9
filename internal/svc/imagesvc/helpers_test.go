package imagesvc_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/repo/object"
)

var errMock = errors.New("mock failure")

// makePNG renders a w x h gradient so encoders have something to compress.
func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / max(1, w-1)), G: uint8(y * 255 / max(1, h-1)), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	return buf.Bytes()
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	return buf.Bytes()
}

// paddedPNG is a valid PNG followed by junk up to size bytes; PNG decoders stop at IEND.
func paddedPNG(t *testing.T, size int) []byte {
	t.Helper()

	data := makePNG(t, 4, 4)
	if len(data) >= size {
		return data
	}

	return append(data, make([]byte, size-len(data))...)
}

// headerOnlyPNG declares a w x h RGBA image but carries no pixel data.
func headerOnlyPNG(w, h uint32) []byte {
	chunk := func(buf *bytes.Buffer, typ string, data []byte) {
		_ = binary.Write(buf, binary.BigEndian, uint32(len(data)))

		body := append([]byte(typ), data...)
		buf.Write(body)
		_ = binary.Write(buf, binary.BigEndian, crc32.ChecksumIEEE(body))
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk(&buf, "IHDR", ihdr)
	chunk(&buf, "IDAT", nil)
	chunk(&buf, "IEND", nil)

	return buf.Bytes()
}

type byteReaderFunc func(ctx context.Context, locator string) ([]byte, error)

func (f byteReaderFunc) ReadBytes(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

func staticReader(data []byte, err error) byteReaderFunc {
	return func(context.Context, string) ([]byte, error) { return data, err }
}

type mockUploader struct {
	url   string
	err   error
	panic bool
	calls int
}

func (m *mockUploader) Upload(context.Context, string, string) (string, error) {
	m.calls++

	if m.panic {
		panic("uploader exploded")
	}

	return m.url, m.err
}

type mockInliner struct {
	inline string
	raw    []byte
	err    error
	calls  int
}

func (m *mockInliner) Encode(context.Context, domain.ImageSource) (string, []byte, error) {
	m.calls++

	return m.inline, m.raw, m.err
}

type mockCompressor struct {
	payload string
	err     error
	calls   int
}

func (m *mockCompressor) Compress(context.Context, []byte) (string, error) {
	m.calls++

	return m.payload, m.err
}

// syntheticEncoder answers attempts from a table; unknown attempts fail.
type syntheticEncoder struct {
	results  map[domain.CompressionAttempt]string
	panics   map[domain.CompressionAttempt]bool
	fallback string
	attempts []domain.CompressionAttempt
}

func (e *syntheticEncoder) Encode(_ context.Context, _ image.Image, attempt domain.CompressionAttempt) (string, error) {
	e.attempts = append(e.attempts, attempt)

	if e.panics[attempt] {
		panic("encoder exploded")
	}

	if result, ok := e.results[attempt]; ok {
		return result, nil
	}

	if e.fallback != "" {
		return e.fallback, nil
	}

	return "", errMock
}

type mockPrincipals struct {
	principal string
	err       error
}

func (m *mockPrincipals) EnsurePrincipal(context.Context) (string, error) {
	return m.principal, m.err
}

// memStore is an in-memory object.Store.
type memStore struct {
	mu      sync.Mutex
	objects map[domain.ObjectKey]*domain.Object
	putErr  error
	urlErr  error
	block   bool
}

var _ object.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{objects: map[domain.ObjectKey]*domain.Object{}}
}

func (s *memStore) Put(ctx context.Context, key domain.ObjectKey, contentType string, body []byte) error {
	if s.block {
		<-ctx.Done()

		return ctx.Err()
	}

	if s.putErr != nil {
		return s.putErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = domain.NewObject(key, contentType, body)

	return nil
}

func (s *memStore) URL(_ context.Context, key domain.ObjectKey) (string, error) {
	if s.urlErr != nil {
		return "", s.urlErr
	}

	return "https://store/" + key.String(), nil
}

func (s *memStore) Fetch(_ context.Context, key domain.ObjectKey) (*domain.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}

	return obj, nil
}

func (s *memStore) Delete(_ context.Context, key domain.ObjectKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return domain.ErrObjectNotFound
	}

	delete(s.objects, key)

	return nil
}

func (s *memStore) keys() []domain.ObjectKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]domain.ObjectKey, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}

	return keys
}

func ptr(s string) *string {
	return &s
}
