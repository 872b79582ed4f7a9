package domain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrObjectNotFound is returned when an object does not exist in the content store.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidObjectKey is returned for empty keys or keys escaping their namespace.
	ErrInvalidObjectKey = errors.New("invalid object key")
)

// ObjectKey names an object in the content store, e.g. "questions/anon/1700000000000-a1b2c3.jpg".
type ObjectKey string

// String returns the string representation of the ObjectKey.
func (key ObjectKey) String() string {
	return string(key)
}

// Validate checks that the key is non-empty, relative and free of ".." segments.
func (key ObjectKey) Validate() error {
	str := string(key)

	if str == "" || strings.HasPrefix(str, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidObjectKey, str)
	}

	if path.Clean(str) != str {
		return fmt.Errorf("%w: %q", ErrInvalidObjectKey, str)
	}

	for _, segment := range strings.Split(str, "/") {
		if segment == ".." || segment == "." {
			return fmt.Errorf("%w: %q", ErrInvalidObjectKey, str)
		}
	}

	return nil
}

// Object is a stored piece of content addressed by its key.
type Object struct {
	Key         ObjectKey
	ContentType string
	Body        []byte
}

// NewObject creates a new Object with the given key, content type and content.
func NewObject(key ObjectKey, contentType string, body []byte) *Object {
	return &Object{
		Key:         key,
		ContentType: contentType,
		Body:        body,
	}
}

// Size returns the size of the object's content in bytes.
func (obj *Object) Size() int64 {
	return int64(len(obj.Body))
}

// Reader returns a reader over the object's content.
func (obj *Object) Reader() *bytes.Reader {
	return bytes.NewReader(obj.Body)
}

// WriteTo writes the object's content to the given writer.
func (obj *Object) WriteTo(writer io.Writer) (int64, error) {
	n, err := writer.Write(obj.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write: %w", err)
	}

	return int64(n), nil
}

// ReadFrom replaces the object's content with everything read from reader.
func (obj *Object) ReadFrom(reader io.Reader) (int64, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return 0, fmt.Errorf("read all: %w", err)
	}

	obj.Body = body

	return int64(len(body)), nil
}
