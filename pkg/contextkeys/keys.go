package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey carries the X-Request-ID of the current request.
	RequestIDKey contextKey = "request_id"

	// UserIDKey carries the verified user id once the session has been resolved.
	UserIDKey contextKey = "user_id"

	// WorkspaceIDKey and PageIDKey carry the entity a request operates on, for log correlation.
	WorkspaceIDKey contextKey = "workspace_id"
	PageIDKey      contextKey = "page_id"

	// RequestSessionKey holds the per-request *application.RequestSession.
	RequestSessionKey contextKey = "request_session"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
