package http

import (
	"fmt"
	"net/http"

	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// InvalidateCacheRequest names the entity whose cached reads must be dropped.
type InvalidateCacheRequest struct {
	Entity    string `json:"entity"`
	ID        string `json:"id"`
	RelatedID string `json:"related_id,omitempty"`
}

// InvalidateCacheResponse reports how many keys the fan-out removed.
type InvalidateCacheResponse struct {
	Entity      string `json:"entity"`
	ID          string `json:"id"`
	KeysRemoved int64  `json:"keys_removed"`
}

// InvalidateCacheHandler runs the invalidation fan-out for one entity on
// operator request. RelatedID is the author for posts and the workspace for
// pages and memberships.
func InvalidateCacheHandler(invalidator *application.Invalidator, logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InvalidateCacheRequest
		if err := decodeJSON(w, r, &req); err != nil {
			logger.Warn(r.Context(), "Failed to decode cache invalidation payload", "error", err.Error())
			respondError(w, r, logger, err)
			return
		}

		kind, ok := application.ParseChangeKind(req.Entity)
		if !ok {
			respondError(w, r, logger, fmt.Errorf("%w: unknown entity %q", domain.ErrInvalidInput, req.Entity))
			return
		}
		if req.ID == "" {
			respondError(w, r, logger, fmt.Errorf("%w: id is required", domain.ErrInvalidInput))
			return
		}

		removed := invalidator.Apply(r.Context(), application.NewChange(kind, req.ID, req.RelatedID))
		logger.Info(r.Context(), "Cache invalidated by operator", "entity", req.Entity, "id", req.ID, "keys_removed", removed)
		respond(w, r, logger, http.StatusOK, InvalidateCacheResponse{Entity: req.Entity, ID: req.ID, KeysRemoved: removed})
	}
}
