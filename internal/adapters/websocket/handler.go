package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/middleware"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"
	"github.com/nikitalobanov12/WriteShare/pkg/safego"
)

const (
	subprotocol        = "json.v1"
	defaultPongWait    = 10 * time.Second
	membershipCheckTTL = 5 * time.Second
)

// Handler upgrades members of a workspace to its live change-event stream.
type Handler struct {
	logger         domain.Logger
	configProvider config.Provider
	access         *application.AccessService
	subscriber     domain.EventSubscriber
	registry       *application.ConnectionRegistry
}

// NewHandler creates a new Handler.
func NewHandler(
	logger domain.Logger,
	cfgProvider config.Provider,
	access *application.AccessService,
	subscriber domain.EventSubscriber,
	registry *application.ConnectionRegistry,
) *Handler {
	return &Handler{
		logger:         logger,
		configProvider: cfgProvider,
		access:         access,
		subscriber:     subscriber,
		registry:       registry,
	}
}

// ServeHTTP authorizes before the upgrade so failures still get the JSON
// error envelope, then serves the stream until either side closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	workspaceID := r.PathValue("id")
	if workspaceID == "" {
		domain.NewErrorResponse(domain.ErrBadRequest, "Missing workspace id in path.", "").WriteJSON(w, http.StatusBadRequest)
		return
	}

	identity, err := middleware.RequestSessionFrom(ctx).Require(ctx, domain.PermissionRead)
	if err != nil {
		h.rejectUpgrade(w, r, err)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, membershipCheckTTL)
	err = h.access.RequireMember(checkCtx, workspaceID, identity.UserID)
	cancel()
	if err != nil {
		h.rejectUpgrade(w, r, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{subprotocol}})
	if err != nil {
		h.logger.Error(ctx, "WebSocket upgrade failed", "error", err.Error(), "workspace_id", workspaceID)
		return
	}

	// The handler stays on the request goroutine for the life of the stream,
	// so the request context bounds the connection.
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, identity.UserID)
	ctx = context.WithValue(ctx, contextkeys.WorkspaceIDKey, workspaceID)
	connCtx, connCancel := context.WithCancel(ctx)
	conn := NewConnection(connCtx, connCancel, c, workspaceID, r.RemoteAddr, h.logger, h.configProvider.Get().App)

	deregister := h.registry.Register(conn)
	defer deregister()

	h.logger.Info(connCtx, "Event stream opened",
		"workspace_id", workspaceID,
		"user_id", identity.UserID,
		"subprotocol", c.Subprotocol(),
		"remote_addr", conn.RemoteAddr(),
	)
	h.manageConnection(conn)
	h.logger.Info(context.Background(), "Event stream closed", "workspace_id", workspaceID, "user_id", identity.UserID)
}

func (h *Handler) rejectUpgrade(w http.ResponseWriter, r *http.Request, err error) {
	resp, status := domain.ErrorResponseFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Event stream authorization failed", "error", err.Error())
	} else {
		h.logger.Debug(r.Context(), "Event stream rejected", "status", status, "error", err.Error())
	}
	resp.WriteJSON(w, status)
}

func (h *Handler) manageConnection(conn *Connection) {
	connCtx := conn.Context()
	defer conn.Close(websocket.StatusNormalClosure, "connection ended")

	sub, err := h.subscriber.SubscribeWorkspace(connCtx, conn.WorkspaceID(), func(event domain.ChangeEvent) {
		if err := conn.WriteJSON(domain.NewEventMessage(event)); err != nil {
			return
		}
		metrics.IncrementEventsDelivered()
	})
	if err != nil {
		h.logger.Error(connCtx, "Failed to subscribe to workspace events", "workspace_id", conn.WorkspaceID(), "error", err.Error())
		_ = conn.CloseWithError(domain.NewErrorResponse(domain.ErrInternal, "Event stream unavailable.", ""), "subscribe failed")
		return
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			h.logger.Warn(context.Background(), "Failed to unsubscribe from workspace events", "workspace_id", conn.WorkspaceID(), "error", err.Error())
		}
	}()

	if err := conn.WriteJSON(domain.NewReadyMessage()); err != nil {
		h.logger.Error(connCtx, "Failed to send ready message", "error", err.Error())
		return
	}

	appCfg := h.configProvider.Get().App
	if interval := time.Duration(appCfg.PingIntervalSeconds) * time.Second; interval > 0 {
		pongWait := time.Duration(appCfg.PongWaitSeconds) * time.Second
		if pongWait <= 0 {
			pongWait = defaultPongWait
		}
		h.startPingLoop(conn, interval, pongWait)
	}

	h.readLoop(conn)
}

func (h *Handler) startPingLoop(conn *Connection, interval, pongWait time.Duration) {
	safego.Execute(conn.Context(), h.logger, "EventStreamPingLoop", func() {
		h.pingLoop(conn, interval, pongWait)
	})
}

// pingLoop closes the connection when a pong does not arrive within pongWait.
func (h *Handler) pingLoop(conn *Connection, interval, pongWait time.Duration) {
	connCtx := conn.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-connCtx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(context.Background(), pongWait); err != nil {
				if connCtx.Err() != nil {
					return
				}
				h.logger.Warn(connCtx, "Pong not received, closing event stream", "workspace_id", conn.WorkspaceID(), "error", err.Error())
				_ = conn.Close(websocket.StatusPolicyViolation, "pong timeout")
				return
			}
		}
	}
}

// readLoop drains client frames so control frames are processed. The stream
// is server-to-client only; data frames are ignored. Reads are not bound to
// the connection context: they end when the socket closes.
func (h *Handler) readLoop(conn *Connection) {
	connCtx := conn.Context()
	for {
		msgType, _, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			switch {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				h.logger.Debug(connCtx, "Client closed event stream", "status", status)
			case connCtx.Err() != nil:
			default:
				h.logger.Debug(connCtx, "Event stream read ended", "error", err.Error())
			}
			return
		}
		h.logger.Debug(connCtx, "Ignoring client message on event stream", "message_type", msgType.String())
	}
}
