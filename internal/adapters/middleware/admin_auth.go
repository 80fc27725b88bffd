package middleware

import (
	"net/http"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/crypto"
)

const apiKeyHeaderName = "X-API-Key"

// AdminAPIKeyAuthMiddleware guards operator endpoints with the configured
// admin API key, sent in the X-API-Key header.
func AdminAPIKeyAuthMiddleware(cfgProvider config.Provider, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(apiKeyHeaderName)

			cfg := cfgProvider.Get()
			if cfg == nil || cfg.Auth.AdminAPIKey == "" {
				logger.Error(r.Context(), "Admin auth failed: admin API key not configured", "path", r.URL.Path)
				metrics.IncrementAdminAuth("unconfigured")
				domain.NewErrorResponse(domain.ErrInternal, "Server configuration error", "Admin auth cannot be performed.").
					WriteJSON(w, http.StatusInternalServerError)
				return
			}

			if apiKey == "" {
				logger.Warn(r.Context(), "Admin auth failed: key missing", "path", r.URL.Path)
				metrics.IncrementAdminAuth("missing")
				domain.NewErrorResponse(domain.ErrInvalidAPIKey, "Admin API key is required", "Provide the key in the X-API-Key header.").
					WriteJSON(w, http.StatusUnauthorized)
				return
			}

			if !crypto.SecretsEqual(apiKey, cfg.Auth.AdminAPIKey) {
				logger.Warn(r.Context(), "Admin auth failed: invalid key", "path", r.URL.Path)
				metrics.IncrementAdminAuth("invalid")
				domain.NewErrorResponse(domain.ErrAccessDenied, "Invalid admin API key", "").
					WriteJSON(w, http.StatusForbidden)
				return
			}

			metrics.IncrementAdminAuth("ok")
			next.ServeHTTP(w, r)
		})
	}
}
