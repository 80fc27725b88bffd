package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
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

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

type testServer struct {
	handler   http.Handler
	store     *domaintest.Store
	redis     *miniredis.Miniredis
	throttle  *domaintest.Throttle
	publisher *domaintest.Publisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewNop()
	caches := application.NewCaches(redisadapter.NewCacheAdapter(client, log), domain.DefaultTTLPolicy())
	cfg := config.NewStaticProvider(&config.Config{
		Auth: config.AuthConfig{
			SessionCookieNames: []string{"next-auth.session-token"},
			AdminAPIKey:        "admin-key",
			CollabSecret:       "collab-secret",
		},
		App: config.AppConfig{CRDTSnapshotThrottleSeconds: 10},
	})

	store := domaintest.NewStore()
	store.AddUser("alice", "alice@example.com", "Alice")
	store.AddUser("bob", "bob@example.com", "Bob")
	store.AddWorkspace("7", "alice")
	store.AddPage("p1", "7", nil)

	identities := domaintest.Identities{
		aliceToken: {UserID: "alice", UserEmail: "alice@example.com"},
		bobToken:   {UserID: "bob", UserEmail: "bob@example.com"},
	}
	throttle := &domaintest.Throttle{Allowed: true, RetryAfter: time.Hour}
	pub := &domaintest.Publisher{}

	inv := application.NewInvalidator(caches, log)
	access := application.NewAccessService(store, store)
	api := NewAPIHandlers(
		application.NewUserService(store, store, caches, inv, log),
		application.NewWorkspaceService(store, store, store, access, caches, inv, pub, log),
		application.NewPageService(store, access, caches, inv, throttle, pub, cfg, log),
		application.NewPostService(store, caches, inv, log),
		application.NewCollabService(access, cfg, log),
		log,
	)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.Handle("POST /admin/cache/invalidate",
		middleware.AdminAPIKeyAuthMiddleware(cfg, log)(InvalidateCacheHandler(inv, log)))

	verifier := application.NewSessionVerifier(caches, identities, log)
	handler := middleware.SessionMiddleware(verifier, cfg, log)(mux)
	return &testServer{handler: handler, store: store, redis: s, throttle: throttle, publisher: pub}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_RequiresSession(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/api/users/me", "/api/workspaces", "/api/posts", "/api/invites"} {
		rec := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, domain.ErrUnauthorized, decode[domain.ErrorResponse](t, rec).Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/users/me", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_SessionCookie(t *testing.T) {
	ts := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.AddCookie(&http.Cookie{Name: "next-auth.session-token", Value: aliceToken})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode[domain.User](t, rec).ID)
}

func TestAPI_UpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPatch, "/api/users/me", aliceToken, map[string]any{"name": "Alice Liddell"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice Liddell", *decode[domain.User](t, rec).Name)

	rec = ts.do(t, http.MethodPatch, "/api/users/me", aliceToken, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	r := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString("{not json"))
	r.Header.Set("Authorization", "Bearer "+aliceToken)
	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, r)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestAPI_WorkspaceLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/workspaces", aliceToken, map[string]any{"name": "Roadmap"})
	require.Equal(t, http.StatusCreated, rec.Code)
	ws := decode[domain.Workspace](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/workspaces", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.WorkspaceWithRole](t, rec), 2)

	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", aliceToken, map[string]any{"email": "bob@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	inv := decode[domain.Invite](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", aliceToken, map[string]any{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", aliceToken, map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/invites", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.InviteDetails](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/invites/"+inv.ID+"/accept", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[successResponse](t, rec).Success)

	rec = ts.do(t, http.MethodGet, "/api/workspaces", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.WorkspaceWithRole](t, rec), 1)
}

func TestAPI_Pages(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/workspaces/7/pages", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/workspaces/7/pages", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PageSummary](t, rec), 1)

	rec = ts.do(t, http.MethodPost, "/api/workspaces/7/pages", aliceToken, map[string]any{"parentId": "p1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.Page](t, rec)
	assert.Equal(t, "Untitled", created.Title)

	rec = ts.do(t, http.MethodGet, "/api/workspaces/7/pages", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PageSummary](t, rec), 2, "page list must be refetched after a create")

	rec = ts.do(t, http.MethodGet, "/api/pages/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/pages/"+created.ID, aliceToken, map[string]any{"title": "Spec"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spec", decode[domain.Page](t, rec).Title)

	rec = ts.do(t, http.MethodGet, "/api/pages/"+created.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Spec", decode[domain.Page](t, rec).Title)

	rec = ts.do(t, http.MethodDelete, "/api/pages/"+created.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Page](t, rec).IsArchived)

	types := []domain.ChangeEventType{}
	for _, e := range ts.publisher.Published() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []domain.ChangeEventType{domain.EventPageCreated, domain.EventPageUpdated, domain.EventPageArchived}, types)
}

func TestAPI_SaveCRDTState(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/pages/p1/crdt", aliceToken, map[string]any{"state": []byte{1, 2, 3}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[crdtStateResponse](t, rec).Saved)
	assert.Equal(t, []byte{1, 2, 3}, ts.store.Page("p1").CRDTState)

	ts.throttle.Allowed = false
	rec = ts.do(t, http.MethodPut, "/api/pages/p1/crdt", aliceToken, map[string]any{"state": []byte{4}})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.False(t, decode[crdtStateResponse](t, rec).Saved)

	rec = ts.do(t, http.MethodPut, "/api/pages/p1/crdt", aliceToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_OversizedBodyIsRejected(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/pages/p1/crdt", aliceToken, map[string]any{"state": make([]byte, maxBodyBytes)})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, domain.ErrPayloadTooLarge, decode[domain.ErrorResponse](t, rec).Code)
	assert.Zero(t, ts.store.Count("SaveCRDTState"))
}

func TestAPI_Posts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/posts/latest", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/posts", aliceToken, map[string]any{"name": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[domain.Post](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/posts/latest", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, post.ID, decode[domain.Post](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/api/posts", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Post](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/posts/abc", aliceToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/api/posts/" + jsonNumber(post.ID)
	rec = ts.do(t, http.MethodDelete, path, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, path, aliceToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/posts", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Post](t, rec))
}

func TestAPI_CollabAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/collab/auth", aliceToken, map[string]any{"room": "page-p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	grant := decode[application.CollabGrant](t, rec)
	assert.Equal(t, "page-p1", grant.Room)
	assert.NotEmpty(t, grant.Token)

	rec = ts.do(t, http.MethodPost, "/api/collab/auth", bobToken, map[string]any{"room": "page-p1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/collab/auth", aliceToken, map[string]any{"room": "lobby"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_InvalidateCache(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.redis.Set("workspace:7:pages", `[]`))
	require.NoError(t, ts.redis.Set("page:p1:details", `{}`))

	post := func(key string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
		r := httptest.NewRequest(http.MethodPost, "/admin/cache/invalidate", &buf)
		r.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, r)
		return rec
	}

	rec := post("wrong", map[string]any{"entity": "page", "id": "p1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post("admin-key", map[string]any{"entity": "comment", "id": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("admin-key", map[string]any{"entity": "page"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post("admin-key", map[string]any{"entity": "page", "id": "p1", "related_id": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[InvalidateCacheResponse](t, rec).KeysRemoved)
	assert.False(t, ts.redis.Exists("workspace:7:pages"))
	assert.False(t, ts.redis.Exists("page:p1:details"))
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("refused") })

	rec := httptest.NewRecorder()
	HealthHandler([]Dependency{{"postgres", up}, {"redis", up}}, logger.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)

	rec = httptest.NewRecorder()
	HealthHandler([]Dependency{{"postgres", up}, {"redis", down}}, logger.NewNop()).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"postgres": "healthy", "redis": "unhealthy"}, body.Dependencies)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
