package nats

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// Hub fans the pod's single event subscription out to the local handlers
// registered per workspace.
type Hub struct {
	logger domain.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]domain.ChangeEventHandler
}

// NewHub creates an empty Hub.
func NewHub(logger domain.Logger) *Hub {
	return &Hub{
		logger:   logger,
		handlers: make(map[string]map[uint64]domain.ChangeEventHandler),
	}
}

type hubSubscription struct {
	hub         *Hub
	workspaceID string
	id          uint64
	once        sync.Once
}

func (s *hubSubscription) Unsubscribe() error {
	s.once.Do(func() { s.hub.remove(s.workspaceID, s.id) })
	return nil
}

// Register adds handler for workspaceID until the returned subscription is
// cancelled.
func (h *Hub) Register(workspaceID string, handler domain.ChangeEventHandler) domain.EventSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.handlers[workspaceID] == nil {
		h.handlers[workspaceID] = make(map[uint64]domain.ChangeEventHandler)
	}
	h.handlers[workspaceID][id] = handler
	return &hubSubscription{hub: h, workspaceID: workspaceID, id: id}
}

func (h *Hub) remove(workspaceID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers[workspaceID], id)
	if len(h.handlers[workspaceID]) == 0 {
		delete(h.handlers, workspaceID)
	}
}

// Dispatch calls every handler registered for the event's workspace and
// returns how many there were. Handlers must not block.
func (h *Hub) Dispatch(event domain.ChangeEvent) int {
	h.mu.RLock()
	targets := make([]domain.ChangeEventHandler, 0, len(h.handlers[event.WorkspaceID]))
	for _, fn := range h.handlers[event.WorkspaceID] {
		targets = append(targets, fn)
	}
	h.mu.RUnlock()

	for _, fn := range targets {
		fn(event)
	}
	return len(targets)
}

// HandleMsg decodes a JetStream message and dispatches it. Undecodable
// payloads are acked and dropped so they are not redelivered.
func (h *Hub) HandleMsg(msg *nats.Msg) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil || event.WorkspaceID == "" {
		h.logger.Warn(context.Background(), "Dropping malformed change event", "subject", msg.Subject)
		h.ack(msg)
		return
	}

	n := h.Dispatch(event)
	h.logger.Debug(context.Background(), "Change event dispatched",
		"subject", msg.Subject,
		"type", string(event.Type),
		"workspace_id", event.WorkspaceID,
		"listeners", n,
	)
	h.ack(msg)
}

func (h *Hub) ack(msg *nats.Msg) {
	if msg.Sub == nil {
		return
	}
	if err := msg.Ack(); err != nil {
		h.logger.Warn(context.Background(), "Failed to ack change event", "subject", msg.Subject, "error", err.Error())
	}
}
