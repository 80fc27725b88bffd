package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/rediskeys"
)

// Session verification sources, used as metric labels.
const (
	sessionSourceCache         = "cache"
	sessionSourceProvider      = "provider"
	sessionSourceAnonymous     = "anonymous"
	sessionSourceProviderError = "provider_error"
)

// SessionVerifier resolves session tokens to identities, reading through the
// session cache before asking the identity provider.
type SessionVerifier struct {
	cache    *EntityCache
	provider domain.IdentityProvider
	logger   domain.Logger
	now      func() time.Time
}

// NewSessionVerifier creates a new SessionVerifier.
func NewSessionVerifier(caches *Caches, provider domain.IdentityProvider, logger domain.Logger) *SessionVerifier {
	if caches == nil {
		panic("caches is nil in NewSessionVerifier")
	}
	if provider == nil {
		panic("identity provider is nil in NewSessionVerifier")
	}
	if logger == nil {
		panic("logger is nil in NewSessionVerifier")
	}
	return &SessionVerifier{
		cache:    caches.Session,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// NewRequestSession starts the per-request session for token. An empty token
// gives an anonymous session.
func (v *SessionVerifier) NewRequestSession(token string) *RequestSession {
	return &RequestSession{verifier: v, token: token}
}

// resolve walks cache then provider. Provider failures are logged and resolve
// to anonymous without caching anything.
func (v *SessionVerifier) resolve(ctx context.Context, token string) *domain.SessionIdentity {
	if token == "" {
		metrics.IncrementSessionVerification(sessionSourceAnonymous)
		return nil
	}

	id := rediskeys.SessionID(token)
	now := v.now()

	var cached domain.SessionIdentity
	if v.cache.Get(ctx, id, "", &cached) {
		if cached.UserID != "" && !cached.ExpiredAt(now) {
			metrics.IncrementSessionVerification(sessionSourceCache)
			return &cached
		}
		v.cache.Delete(ctx, id, "")
	}

	identity, err := v.provider.ResolveSession(ctx, token)
	if err != nil {
		v.logger.Warn(ctx, "Identity provider lookup failed, treating session as anonymous", "error", err.Error())
		metrics.IncrementSessionVerification(sessionSourceProviderError)
		return nil
	}
	if identity == nil || identity.UserID == "" || identity.ExpiredAt(now) {
		v.logger.Debug(ctx, "Session token does not name a live session")
		metrics.IncrementSessionVerification(sessionSourceAnonymous)
		return nil
	}

	ttl := v.cache.DefaultTTL()
	if !identity.Expires.IsZero() {
		if remaining := identity.Expires.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	v.cache.SetWithTTL(ctx, id, "", identity, ttl)
	metrics.IncrementSessionVerification(sessionSourceProvider)
	return identity
}

// RequestSession is the session of a single request. The identity is
// resolved at most once, on first use, and reused for the rest of the
// request. It must not be shared across requests.
type RequestSession struct {
	verifier *SessionVerifier
	token    string

	once     sync.Once
	identity *domain.SessionIdentity
}

// AnonymousSession returns a session that never authenticates.
func AnonymousSession() *RequestSession {
	return &RequestSession{}
}

// Verify returns the request's identity, or nil when the request is anonymous.
func (s *RequestSession) Verify(ctx context.Context) *domain.SessionIdentity {
	s.once.Do(func() {
		if s.verifier == nil || s.token == "" {
			metrics.IncrementSessionVerification(sessionSourceAnonymous)
			return
		}
		s.identity = s.verifier.resolve(ctx, s.token)
	})
	return s.identity
}

// CheckPermission reports whether the request may perform operations of class p.
// Anonymous requests are denied everything; signed-in users get the basic set.
func (s *RequestSession) CheckPermission(ctx context.Context, p domain.Permission) bool {
	if s.Verify(ctx) == nil {
		return false
	}
	return p.IsBasic()
}

// Require returns the identity if the request holds p, or an error wrapping
// ErrUnauthenticated or ErrForbidden.
func (s *RequestSession) Require(ctx context.Context, p domain.Permission) (*domain.SessionIdentity, error) {
	identity := s.Verify(ctx)
	if identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	if !p.IsBasic() {
		return nil, fmt.Errorf("%w: %s permission is not granted", domain.ErrForbidden, p)
	}
	return identity, nil
}
