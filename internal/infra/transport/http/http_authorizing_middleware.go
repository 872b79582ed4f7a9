package http

import (
	"context"
	"net/http"
	"strings"

	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// TokenValidator resolves a bearer token into the principal it was issued to.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (principal string, ok bool, err error)
}

// AuthorizingMiddleware creates middleware that attaches the caller's principal to the
// request context. Requests without an Authorization header pass through anonymously;
// requests carrying a token the validator rejects get 401.
func AuthorizingMiddleware(
	next http.Handler,
	validator TokenValidator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)

			return
		}

		principal, ok, err := validator.Validate(r.Context(), token)
		if err != nil {
			log.ErrorContext(r.Context(), "validate token failed", logging.Err(err))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		} else if !ok {
			log.WarnContext(r.Context(), "invalid token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithPrincipal(r.Context(), principal)))
	})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)

	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	return header
}
