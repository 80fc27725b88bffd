package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/middleware"
	redisadapter "github.com/nikitalobanov12/WriteShare/internal/adapters/redis"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/internal/domain/domaintest"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	handlers map[string][]domain.ChangeEventHandler
	removed  chan string
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string][]domain.ChangeEventHandler{}, removed: make(chan string, 4)}
}

type fakeSubscription struct {
	s    *fakeSubscriber
	wsID string
}

func (f fakeSubscription) Unsubscribe() error {
	f.s.mu.Lock()
	delete(f.s.handlers, f.wsID)
	f.s.mu.Unlock()
	f.s.removed <- f.wsID
	return nil
}

func (s *fakeSubscriber) SubscribeWorkspace(_ context.Context, wsID string, h domain.ChangeEventHandler) (domain.EventSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[wsID] = append(s.handlers[wsID], h)
	return fakeSubscription{s: s, wsID: wsID}, nil
}

func (s *fakeSubscriber) emit(e domain.ChangeEvent) {
	s.mu.Lock()
	hs := append([]domain.ChangeEventHandler(nil), s.handlers[e.WorkspaceID]...)
	s.mu.Unlock()
	for _, h := range hs {
		h(e)
	}
}

func newStreamServer(t *testing.T) (*httptest.Server, *fakeSubscriber, *application.ConnectionRegistry) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNop()
	cfg := config.NewStaticProvider(&config.Config{
		Auth: config.AuthConfig{SessionCookieNames: []string{"next-auth.session-token"}},
		App:  config.AppConfig{EventBufferSize: 8, WriteTimeoutSeconds: 2, PingIntervalSeconds: 1, PongWaitSeconds: 1},
	})
	caches := application.NewCaches(redisadapter.NewCacheAdapter(client, log), domain.DefaultTTLPolicy())
	verifier := application.NewSessionVerifier(caches, domaintest.Identities{
		"alice-token": {UserID: "alice", UserEmail: "alice@example.com"},
		"bob-token":   {UserID: "bob", UserEmail: "bob@example.com"},
	}, log)

	store := domaintest.NewStore()
	store.AddUser("alice", "alice@example.com", "Alice")
	store.AddUser("bob", "bob@example.com", "Bob")
	store.AddWorkspace("7", "alice")

	sub := newFakeSubscriber()
	registry := application.NewConnectionRegistry(log)
	mux := http.NewServeMux()
	NewRouter(log, NewHandler(log, cfg, application.NewAccessService(store, store), sub, registry)).RegisterRoutes(context.Background(), mux)

	srv := httptest.NewServer(middleware.SessionMiddleware(verifier, cfg, log)(mux))
	t.Cleanup(srv.Close)
	return srv, sub, registry
}

func dial(ctx context.Context, srv *httptest.Server, path, token string) (*websocket.Conn, *http.Response, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+path, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{"json.v1"},
	})
}

type streamMessage struct {
	Type    string             `json:"type"`
	Payload domain.ChangeEvent `json:"payload"`
}

func TestEventStream_ReadyThenEvents(t *testing.T) {
	srv, sub, _ := newStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dial(ctx, srv, "/ws/workspaces/7", "alice-token")
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")
	assert.Equal(t, "json.v1", c.Subprotocol())

	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	assert.Equal(t, domain.MessageTypeReady, msg.Type)

	sub.emit(domain.ChangeEvent{Type: domain.EventPageCreated, WorkspaceID: "7", PageID: "p9", ActorID: "alice"})
	sub.emit(domain.ChangeEvent{Type: domain.EventPageCreated, WorkspaceID: "8", PageID: "other"})

	require.NoError(t, wsjson.Read(ctx, c, &msg))
	assert.Equal(t, domain.MessageTypeEvent, msg.Type)
	assert.Equal(t, "p9", msg.Payload.PageID)
	assert.Equal(t, domain.EventPageCreated, msg.Payload.Type)
}

func TestEventStream_UnsubscribesOnClose(t *testing.T) {
	srv, sub, registry := newStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dial(ctx, srv, "/ws/workspaces/7", "alice-token")
	require.NoError(t, err)
	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	assert.Equal(t, 1, registry.Count())
	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))

	select {
	case wsID := <-sub.removed:
		assert.Equal(t, "7", wsID)
	case <-ctx.Done():
		t.Fatal("subscription was not removed")
	}
	assert.Eventually(t, func() bool { return registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEventStream_CloseAllSendsGoingAway(t *testing.T) {
	srv, _, registry := newStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dial(ctx, srv, "/ws/workspaces/7", "alice-token")
	require.NoError(t, err)
	var msg streamMessage
	require.NoError(t, wsjson.Read(ctx, c, &msg))

	assert.Equal(t, 1, registry.CloseAll(domain.StatusGoingAway, "Server is shutting down"))
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}

func TestEventStream_RejectsBeforeUpgrade(t *testing.T) {
	srv, _, _ := newStreamServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"unknown token", "nope", http.StatusUnauthorized},
		{"not a member", "bob-token", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := dial(ctx, srv, "/ws/workspaces/7", tc.token)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestConnection_WriteJSONDropsOldestWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		logger:  logger.NewNop(),
		connCtx: ctx,
		cancel:  cancel,
		buffer:  make(chan []byte, 2),
	}
	require.NoError(t, c.WriteJSON(1))
	require.NoError(t, c.WriteJSON(2))
	require.NoError(t, c.WriteJSON(3))

	assert.Equal(t, "2", string(<-c.buffer))
	assert.Equal(t, "3", string(<-c.buffer))

	cancel()
	assert.ErrorIs(t, c.WriteJSON(4), context.Canceled)
}

type recordedLog struct {
	msg    string
	fields []any
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []recordedLog
}

func (l *recordingLogger) Debug(context.Context, string, ...any) {}
func (l *recordingLogger) Info(context.Context, string, ...any)  {}
func (l *recordingLogger) Warn(context.Context, string, ...any)  {}
func (l *recordingLogger) Fatal(context.Context, string, ...any) {}
func (l *recordingLogger) With(...any) domain.Logger             { return l }

func (l *recordingLogger) Error(_ context.Context, msg string, fields ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, recordedLog{msg: msg, fields: fields})
}

func (l *recordingLogger) recoveredFrom(goroutine string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.errors {
		if e.msg == "Panic recovered in goroutine" && assert.ObjectsAreEqual([]any{"goroutine", goroutine}, e.fields[:2]) {
			return true
		}
	}
	return false
}

func TestHandler_PingLoopPanicIsRecovered(t *testing.T) {
	log := &recordingLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// No socket behind the connection: the first ping panics.
	conn := &Connection{logger: log, connCtx: ctx, cancel: cancel, buffer: make(chan []byte, 1)}
	h := &Handler{logger: log}

	h.startPingLoop(conn, time.Millisecond, time.Second)

	assert.Eventually(t, func() bool { return log.recoveredFrom("EventStreamPingLoop") }, 2*time.Second, 5*time.Millisecond)
}
