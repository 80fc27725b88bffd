package application

import (
	"context"
	"sync"

	"github.com/coder/websocket"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// ConnectionRegistry tracks the event-stream connections open on this pod so
// they can be closed together on shutdown.
type ConnectionRegistry struct {
	logger domain.Logger
	mu     sync.Mutex
	conns  map[domain.ManagedConnection]struct{}
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(logger domain.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{logger: logger, conns: make(map[domain.ManagedConnection]struct{})}
}

// Register adds conn and returns the function that removes it.
func (r *ConnectionRegistry) Register(conn domain.ManagedConnection) (deregister func()) {
	r.mu.Lock()
	r.conns[conn] = struct{}{}
	r.mu.Unlock()
	metrics.IncrementActiveConnections()
	r.logger.Debug(conn.Context(), "Event stream registered", "workspace_id", conn.WorkspaceID(), "remote_addr", conn.RemoteAddr())

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.conns, conn)
			r.mu.Unlock()
			metrics.DecrementActiveConnections()
		})
	}
}

// Count returns the number of open connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll closes every registered connection with the given status.
func (r *ConnectionRegistry) CloseAll(code websocket.StatusCode, reason string) int {
	r.mu.Lock()
	conns := make([]domain.ManagedConnection, 0, len(r.conns))
	for c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	r.logger.Info(context.Background(), "Closing event streams", "count", len(conns))
	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c domain.ManagedConnection) {
			defer wg.Done()
			if err := c.Close(code, reason); err != nil {
				r.logger.Debug(context.Background(), "Event stream close returned error", "remote_addr", c.RemoteAddr(), "error", err.Error())
			}
		}(c)
	}
	wg.Wait()
	return len(conns)
}
