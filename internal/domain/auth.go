package domain

import (
	"context"
	"time"
)

// SessionIdentity is the trusted identity resolved from a session token.
// A non-nil identity is always authenticated.
type SessionIdentity struct {
	UserID    string  `json:"userId"`
	UserEmail string  `json:"userEmail"`
	UserName  *string `json:"userName"`
	UserImage *string `json:"userImage"`

	// Expires is when the underlying session ends. Zero means unknown.
	Expires time.Time `json:"expires"`
}

// ExpiredAt reports whether the session has ended at t.
func (s *SessionIdentity) ExpiredAt(t time.Time) bool {
	return !s.Expires.IsZero() && !t.Before(s.Expires)
}

// DisplayName falls back to the email when the user has no name.
func (s *SessionIdentity) DisplayName() string {
	if s.UserName != nil && *s.UserName != "" {
		return *s.UserName
	}
	return s.UserEmail
}

// IdentityProvider validates session tokens against the authoritative session store.
type IdentityProvider interface {
	// ResolveSession returns (nil, nil) when the token does not name a live session.
	ResolveSession(ctx context.Context, token string) (*SessionIdentity, error)
}

// Permission is a coarse operation class checked before every service call.
type Permission string

const (
	PermissionRead   Permission = "read"
	PermissionWrite  Permission = "write"
	PermissionCreate Permission = "create"
	PermissionDelete Permission = "delete"
)

// basicPermissions is what every authenticated session is granted. There are no
// roles yet; PermissionDelete is deliberately absent.
var basicPermissions = map[Permission]struct{}{
	PermissionRead:   {},
	PermissionWrite:  {},
	PermissionCreate: {},
}

// IsBasic reports whether p belongs to the set granted to any signed-in user.
func (p Permission) IsBasic() bool {
	_, ok := basicPermissions[p]
	return ok
}
