package application

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const maxUserNameLength = 50

// UserService serves the signed-in user's profile.
type UserService struct {
	users       domain.UserRepository
	pages       domain.PageRepository
	caches      *Caches
	invalidator *Invalidator
	logger      domain.Logger
}

// NewUserService creates a new UserService. pages locates the cached page
// reads that embed a user's summary.
func NewUserService(users domain.UserRepository, pages domain.PageRepository, caches *Caches, invalidator *Invalidator, logger domain.Logger) *UserService {
	return &UserService{users: users, pages: pages, caches: caches, invalidator: invalidator, logger: logger}
}

// Current returns the caller's profile.
func (s *UserService) Current(ctx context.Context, rs *RequestSession) (*domain.User, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	return CacheOrFetch(ctx, s.caches.Store, ReadUserProfile.Key(identity.UserID), ReadUserProfile.TTL(s.caches.TTL),
		func(ctx context.Context) (*domain.User, error) {
			return s.users.GetUser(ctx, identity.UserID)
		})
}

// UpdateProfile sets the caller's display name and, when image is non-nil, avatar URL.
func (s *UserService) UpdateProfile(ctx context.Context, rs *RequestSession, name string, image *string) (*domain.User, error) {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxUserNameLength {
		return nil, fmt.Errorf("%w: name must be between 1 and %d characters", domain.ErrInvalidInput, maxUserNameLength)
	}
	if image != nil && !isHTTPURL(*image) {
		return nil, fmt.Errorf("%w: image must be an http(s) URL", domain.ErrInvalidInput)
	}

	user, err := s.users.UpdateProfile(ctx, identity.UserID, name, image)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	authored, err := s.pages.ListPagesCreatedBy(ctx, identity.UserID)
	if err != nil {
		s.logger.Warn(ctx, "Failed to list authored pages, their cached summaries may lag", "user_id", identity.UserID, "error", err.Error())
	}
	s.invalidator.OnUserChanged(ctx, identity.UserID, authored...)
	s.logger.Info(ctx, "Profile updated", "user_id", identity.UserID)
	return user, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
