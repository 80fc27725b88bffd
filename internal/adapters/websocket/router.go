package websocket

import (
	"context"
	"net/http"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const streamPattern = "GET /ws/workspaces/{id}"

// Router mounts the event stream on a mux. Session resolution happens in the
// server-wide middleware chain.
type Router struct {
	logger    domain.Logger
	wsHandler http.Handler
}

// NewRouter creates a new Router.
func NewRouter(logger domain.Logger, wsHandler *Handler) *Router {
	return &Router{logger: logger, wsHandler: wsHandler}
}

// RegisterRoutes registers the event stream endpoint.
func (r *Router) RegisterRoutes(ctx context.Context, mux *http.ServeMux) {
	mux.Handle(streamPattern, r.wsHandler)
	r.logger.Info(ctx, "WebSocket endpoint registered", "pattern", streamPattern)
}
