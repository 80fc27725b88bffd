package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/crypto"
)

const (
	pageRoomPrefix        = "page-"
	anonymousDisplayName  = "Anonymous"
	defaultCollabTokenTTL = time.Hour
)

// cursorColors are assigned to room participants at random.
var cursorColors = []string{
	"#DC2626", "#EA580C", "#D97706", "#CA8A04", "#65A30D", "#16A34A", "#059669",
	"#0891B2", "#0284C7", "#2563EB", "#7C3AED", "#C026D3", "#DC2626", "#BE185D",
}

// CollabGrant is a signed token admitting one user to one editing room.
type CollabGrant struct {
	Token     string    `json:"token"`
	Room      string    `json:"room"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CollabService issues room tokens for the collaborative editor.
type CollabService struct {
	access *AccessService
	config config.Provider
	logger domain.Logger
	now    func() time.Time
	pick   func(n int) int
}

// NewCollabService creates a new CollabService.
func NewCollabService(access *AccessService, cfgProvider config.Provider, logger domain.Logger) *CollabService {
	return &CollabService{
		access: access,
		config: cfgProvider,
		logger: logger,
		now:    time.Now,
		pick:   rand.IntN,
	}
}

// Authorize grants full access to room, which must name a page ("page-<id>")
// in a workspace the caller belongs to.
func (s *CollabService) Authorize(ctx context.Context, rs *RequestSession, room string) (*CollabGrant, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}

	pageID, ok := strings.CutPrefix(room, pageRoomPrefix)
	if !ok || pageID == "" {
		return nil, fmt.Errorf("%w: room must be a page room", domain.ErrInvalidInput)
	}

	allowed, err := s.access.CanAccessPage(ctx, identity.UserID, pageID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no access to room %s", domain.ErrForbidden, room)
	}

	auth := s.config.Get().Auth
	if auth.CollabSecret == "" {
		return nil, errors.New("collaboration secret is not configured")
	}
	ttl := time.Duration(auth.CollabTokenTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCollabTokenTTL
	}

	info := crypto.RoomUserInfo{
		Name:  anonymousDisplayName,
		Color: cursorColors[s.pick(len(cursorColors))],
	}
	if identity.UserName != nil && *identity.UserName != "" {
		info.Name = *identity.UserName
	}
	if identity.UserImage != nil {
		info.Avatar = *identity.UserImage
	}

	token, claims, err := crypto.SignRoomToken([]byte(auth.CollabSecret), identity.UserID, room, info, ttl, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "Collaboration room token issued", "room", room, "user_id", identity.UserID)
	return &CollabGrant{Token: token, Room: room, ExpiresAt: claims.ExpiresAt.Time}, nil
}
