package middleware

import (
	"net/http"
	"strings"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// SessionToken extracts the session token from the first configured cookie
// that is present, falling back to an Authorization: Bearer header.
func SessionToken(r *http.Request, cookieNames []string) string {
	for _, name := range cookieNames {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	if h := r.Header.Get(authorizationHeader); len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(h[len(bearerPrefix):])
	}
	return ""
}

// SessionMiddleware attaches a per-request session to the context. The token
// is not verified here; the first service call that needs the identity does
// it, and the result is shared for the rest of the request.
func SessionMiddleware(verifier *application.SessionVerifier, cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cfgProvider.Get().Auth.SessionCookieNames)
			if token == "" {
				logger.Debug(r.Context(), "Request carries no session token", "path", r.URL.Path)
			}
			ctx := WithRequestSession(r.Context(), verifier.NewRequestSession(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
