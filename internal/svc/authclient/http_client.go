package authclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

const (
	TraceIDHeader       = "X-Request-ID"
	AuthorizationHeader = "Authorization"
)

// maxPrincipalLength caps the response body read from the auth service.
const maxPrincipalLength = 256

// HTTPClientConfig holds configuration for the HTTP auth client.
type HTTPClientConfig struct {
	// AuthURL is the endpoint for token validation requests
	AuthURL string `env:"AUTH_URL" default:"http://localhost:8081/auth/validate"`
	// AnonymousURL issues anonymous principals; empty disables anonymous sign-in
	AnonymousURL string `env:"ANONYMOUS_URL" default:"http://localhost:8081/auth/anonymous"`
	// Timeout bounds every request to the auth service
	Timeout time.Duration `env:"TIMEOUT" default:"5s"`
}

// HTTPClient implements AuthClient and PrincipalProvider on top of the auth service's
// HTTP API.
type HTTPClient struct {
	httpClient *http.Client
	log        logging.Logger
	cfg        HTTPClientConfig
}

var (
	_ AuthClient        = (*HTTPClient)(nil)
	_ PrincipalProvider = (*HTTPClient)(nil)
)

// NewHTTPClient creates a new HTTPClient with the given configuration.
// If httpClient is nil, a client with the configured timeout is used.
func NewHTTPClient(
	cfg HTTPClientConfig,
	httpClient *http.Client,
) *HTTPClient {
	if httpClient == nil {
		//nolint:exhaustruct
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPClient{
		httpClient: httpClient,
		log:        logging.GetLogger("svc.authclient.http_client"),
		cfg:        cfg,
	}
}

// Validate implements AuthClient.Validate by posting the token to AuthURL in the
// Authorization header. A non-200 answer means the token is invalid.
func (ht *HTTPClient) Validate(ctx context.Context, token string) (string, bool, error) {
	if token == "" {
		return "", false, domain.ErrNoAuthToken
	}

	principal, status, err := ht.post(ctx, ht.cfg.AuthURL, token)
	if err != nil {
		return "", false, err
	}

	if status != http.StatusOK || principal == "" {
		return "", false, nil
	}

	return principal, true, nil
}

// EnsurePrincipal implements PrincipalProvider. The request principal wins; otherwise
// the auth service is asked for an anonymous one.
func (ht *HTTPClient) EnsurePrincipal(ctx context.Context) (principal string, err error) {
	if principal, ok := context_.PrincipalFromContext(ctx); ok {
		return principal, nil
	}

	defer func() {
		if err != nil {
			ht.log.WarnContext(ctx, "anonymous sign-in failed", logging.Err(err))
		} else {
			ht.log.DebugContext(ctx, "anonymous principal issued", "principal", principal)
		}
	}()

	if ht.cfg.AnonymousURL == "" {
		return "", fmt.Errorf("%w: anonymous sign-in disabled", domain.ErrNoPrincipal)
	}

	principal, status, err := ht.post(ctx, ht.cfg.AnonymousURL, "")
	if err != nil {
		return "", err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", domain.ErrNoPrincipal, status)
	}

	if principal == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrNoPrincipal)
	}

	return principal, nil
}

func (ht *HTTPClient) post(ctx context.Context, url, token string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("new request: %w", err)
	}

	if token != "" {
		req.Header.Set(AuthorizationHeader, token)
	}

	if traceID, ok := context_.TraceIDFromContext(ctx); ok {
		req.Header.Set(TraceIDHeader, traceID)
	}

	resp, err := ht.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPrincipalLength))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return strings.TrimSpace(string(body)), resp.StatusCode, nil
}
