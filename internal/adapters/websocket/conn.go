package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/safego"
)

const (
	defaultBufferSize   = 64
	defaultWriteTimeout = 10 * time.Second
)

// Connection wraps a websocket.Conn with a buffered writer. When the buffer
// is full the oldest queued message is dropped, so a slow client never
// blocks event delivery to others.
type Connection struct {
	wsConn       *websocket.Conn
	logger       domain.Logger
	workspaceID  string
	remoteAddr   string
	writeTimeout time.Duration

	connCtx context.Context
	cancel  context.CancelFunc

	buffer   chan []byte
	writerWg sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewConnection starts the writer goroutine for an accepted websocket.
func NewConnection(
	connCtx context.Context,
	cancel context.CancelFunc,
	wsConn *websocket.Conn,
	workspaceID string,
	remoteAddr string,
	logger domain.Logger,
	appCfg config.AppConfig,
) *Connection {
	bufferSize := appCfg.EventBufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	writeTimeout := time.Duration(appCfg.WriteTimeoutSeconds) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	c := &Connection{
		wsConn:       wsConn,
		logger:       logger,
		workspaceID:  workspaceID,
		remoteAddr:   remoteAddr,
		writeTimeout: writeTimeout,
		connCtx:      connCtx,
		cancel:       cancel,
		buffer:       make(chan []byte, bufferSize),
	}
	c.writerWg.Add(1)
	safego.Execute(connCtx, logger, "EventStreamWriter-"+workspaceID, c.writeLoop)
	return c
}

func (c *Connection) writeLoop() {
	defer c.writerWg.Done()
	for {
		select {
		case <-c.connCtx.Done():
			return
		case msg := <-c.buffer:
			ctx, cancel := context.WithTimeout(c.connCtx, c.writeTimeout)
			err := c.wsConn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					c.logger.Warn(c.connCtx, "Failed to write to event stream", "error", err.Error())
				}
				c.cancel()
				return
			}
		}
	}
}

// WriteJSON queues v for the client.
func (c *Connection) WriteJSON(v interface{}) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := c.connCtx.Err(); err != nil {
		return err
	}

	for {
		select {
		case c.buffer <- msg:
			return nil
		default:
		}
		select {
		case <-c.buffer:
			c.logger.Warn(c.connCtx, "Event stream buffer full, dropped oldest message", "capacity", cap(c.buffer))
		default:
		}
	}
}

// Ping sends a ping and waits for the pong. A concurrent reader must be
// running for the pong to be processed.
func (c *Connection) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.wsConn.Ping(ctx)
}

// Read returns the next data message.
func (c *Connection) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	return c.wsConn.Read(ctx)
}

// Close stops the writer and closes the socket. Only the first call has an
// effect.
func (c *Connection) Close(statusCode websocket.StatusCode, reason string) error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.writerWg.Wait()
		c.closeErr = c.wsConn.Close(statusCode, reason)
	})
	return c.closeErr
}

// CloseWithError sends an error message and closes with the matching code.
func (c *Connection) CloseWithError(errResp domain.ErrorResponse, reason string) error {
	msg, err := json.Marshal(domain.NewErrorMessage(errResp))
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
		_ = c.wsConn.Write(ctx, websocket.MessageText, msg)
		cancel()
	}
	return c.Close(errResp.ToWebSocketCloseCode(), reason)
}

func (c *Connection) Context() context.Context { return c.connCtx }

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

func (c *Connection) WorkspaceID() string { return c.workspaceID }

var _ domain.ManagedConnection = (*Connection)(nil)
