package imagesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
)

// Reader names accepted in PipelineConfig.Readers.
const (
	ReaderFileSystem = "filesystem"
	ReaderHTTP       = "http"
)

var (
	// ErrUnsupportedLocator is returned by a reader that cannot handle the locator's scheme.
	ErrUnsupportedLocator = errors.New("unsupported locator")
	// ErrUnknownReader is returned for reader names that are not registered.
	ErrUnknownReader = errors.New("unknown reader")
	// ErrReadLimitExceeded is returned when a resource is larger than MaxBytes.
	ErrReadLimitExceeded = errors.New("read limit exceeded")
	// ErrUnexpectedStatus is returned for non-2xx http responses.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrOutsideFileRoot is returned for paths that do not resolve below the reader's root.
	ErrOutsideFileRoot = errors.New("path outside file root")
	// ErrForbiddenAddress is returned when the http reader refuses to dial an address.
	ErrForbiddenAddress = errors.New("forbidden address")
)

// nonPublicPrefixes are refused on top of what netip classifies as non-global or private.
//
//nolint:gochecknoglobals
var nonPublicPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("64:ff9b::/96"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// ByteReader resolves a locator to the bytes behind it.
type ByteReader interface {
	ReadBytes(ctx context.Context, locator string) ([]byte, error)
}

// readLimited reads r up to maxBytes; zero or less disables the cap.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read all: %w", err)
		}

		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read all: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrReadLimitExceeded, maxBytes)
	}

	return data, nil
}

// FileSystemReader reads file:// URIs and bare paths below Root. Relative paths are
// taken relative to Root; symlinks may not leave it. An empty Root refuses every path.
type FileSystemReader struct {
	Root     string
	MaxBytes int64
}

var _ ByteReader = (*FileSystemReader)(nil)

func (fr *FileSystemReader) ReadBytes(ctx context.Context, locator string) ([]byte, error) {
	path := locator

	if strings.Contains(locator, "://") {
		u, err := url.Parse(locator)
		if err != nil {
			return nil, fmt.Errorf("parse locator: %w", err)
		}

		if u.Scheme != "file" {
			return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
		}

		path = u.Path
	}

	name, err := fr.relativeName(path)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	root, err := os.OpenRoot(fr.Root)
	if err != nil {
		return nil, fmt.Errorf("open root: %w", err)
	}
	defer root.Close()

	file, err := root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	return readLimited(file, fr.MaxBytes)
}

// relativeName maps path to a local name below Root.
func (fr *FileSystemReader) relativeName(path string) (string, error) {
	if fr.Root == "" {
		return "", fmt.Errorf("%w: no root configured", ErrOutsideFileRoot)
	}

	name := path

	if filepath.IsAbs(path) {
		root, err := filepath.Abs(fr.Root)
		if err != nil {
			return "", fmt.Errorf("abs root: %w", err)
		}

		if name, err = filepath.Rel(root, filepath.Clean(path)); err != nil {
			return "", fmt.Errorf("%w: %q", ErrOutsideFileRoot, path)
		}
	}

	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrOutsideFileRoot, path)
	}

	return name, nil
}

// HTTPReader fetches http:// and https:// locators.
type HTTPReader struct {
	Client   *http.Client
	MaxBytes int64
}

var _ ByteReader = (*HTTPReader)(nil)

func (hr *HTTPReader) ReadBytes(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("parse locator: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedLocator, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	client := hr.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return readLimited(resp.Body, hr.MaxBytes)
}

// NewHTTPReaderClient creates the client the http reader uses by default. Unless
// allowPrivate is set it refuses to connect to loopback, private, link-local and other
// non-public addresses, checked on every dial so redirects and DNS answers are covered.
// Proxies from the environment are not used.
func NewHTTPReaderClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = refuseNonPublic
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	//nolint:exhaustruct
	return &http.Client{Timeout: timeout, Transport: transport}
}

func refuseNonPublic(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrForbiddenAddress, address)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil || !isPublicAddr(addr) {
		return fmt.Errorf("%w: %q", ErrForbiddenAddress, address)
	}

	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()

	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}

	for _, prefix := range nonPublicPrefixes {
		if prefix.Contains(addr) {
			return false
		}
	}

	return true
}

// ChainReader tries its readers in order; the first success wins. When every reader
// fails the joined errors are wrapped in domain.ErrUnreadable.
type ChainReader []ByteReader

var _ ByteReader = (ChainReader)(nil)

func (chain ChainReader) ReadBytes(ctx context.Context, locator string) ([]byte, error) {
	errs := make([]error, 0, len(chain))

	for _, reader := range chain {
		data, err := reader.ReadBytes(ctx, locator)
		if err == nil {
			return data, nil
		}

		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no readers configured"))
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrUnreadable, errors.Join(errs...))
}

// NewByteReader builds the ChainReader named by cfg.Readers. A nil client is replaced by
// NewHTTPReaderClient; a given client is used as is.
func NewByteReader(cfg PipelineConfig, client *http.Client) (ChainReader, error) {
	chain := make(ChainReader, 0, len(cfg.Readers))

	for _, name := range cfg.Readers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case ReaderFileSystem:
			chain = append(chain, &FileSystemReader{Root: cfg.FileRoot, MaxBytes: cfg.MaxReadBytes})
		case ReaderHTTP:
			if client == nil {
				client = NewHTTPReaderClient(cfg.ReadTimeout, cfg.AllowPrivateHosts)
			}

			chain = append(chain, &HTTPReader{Client: client, MaxBytes: cfg.MaxReadBytes})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownReader, name)
		}
	}

	return chain, nil
}
