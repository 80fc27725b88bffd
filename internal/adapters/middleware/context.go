package middleware

import (
	"bufio"
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"
)

const XRequestIDHeader = "X-Request-ID"

// RequestIDMiddleware injects a request ID into the context.
// It tries to get it from the X-Request-ID header, otherwise generates a new UUID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(XRequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
		w.Header().Set(XRequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithRequestSession stores rs on ctx.
func WithRequestSession(ctx context.Context, rs *application.RequestSession) context.Context {
	return context.WithValue(ctx, contextkeys.RequestSessionKey, rs)
}

// RequestSessionFrom returns the session stored by SessionMiddleware, or an
// anonymous one when none was stored.
func RequestSessionFrom(ctx context.Context) *application.RequestSession {
	if rs, ok := ctx.Value(contextkeys.RequestSessionKey).(*application.RequestSession); ok && rs != nil {
		return rs
	}
	return application.AnonymousSession()
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrade reach the
// underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack supports the websocket upgrade.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	s.status = http.StatusSwitchingProtocols
	return http.NewResponseController(s.ResponseWriter).Hijack()
}

// MetricsMiddleware counts requests by the matched route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.IncrementHTTPRequest(route, rec.status)
	})
}
