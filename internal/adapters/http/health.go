package http

import (
	"context"
	"net/http"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const healthCheckTimeout = 2 * time.Second

// Dependency is one backing service probed by the health endpoints.
type Dependency struct {
	Name   string
	Pinger domain.Pinger
}

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthHandler pings every dependency and answers 200 when all succeed,
// 503 with the per-dependency status otherwise.
func HealthHandler(deps []Dependency, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		statuses := make(map[string]string, len(deps))
		healthy := true
		for _, dep := range deps {
			if err := dep.Pinger.Ping(ctx); err != nil {
				logger.Warn(r.Context(), "Health check failed", "dependency", dep.Name, "error", err.Error())
				statuses[dep.Name] = "unhealthy"
				healthy = false
				continue
			}
			statuses[dep.Name] = "healthy"
		}

		if !healthy {
			respond(w, r, logger, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Dependencies: statuses})
			return
		}
		respond(w, r, logger, http.StatusOK, HealthResponse{Status: "healthy", Dependencies: statuses})
	}
}
