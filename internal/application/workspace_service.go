package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const maxWorkspaceNameLength = 100

// WorkspaceService manages workspaces, their members and invites.
type WorkspaceService struct {
	workspaces  domain.WorkspaceRepository
	invites     domain.InviteRepository
	users       domain.UserRepository
	access      *AccessService
	caches      *Caches
	invalidator *Invalidator
	events      *eventNotifier
	logger      domain.Logger
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(
	workspaces domain.WorkspaceRepository,
	invites domain.InviteRepository,
	users domain.UserRepository,
	access *AccessService,
	caches *Caches,
	invalidator *Invalidator,
	publisher domain.EventPublisher,
	logger domain.Logger,
) *WorkspaceService {
	return &WorkspaceService{
		workspaces:  workspaces,
		invites:     invites,
		users:       users,
		access:      access,
		caches:      caches,
		invalidator: invalidator,
		events:      newEventNotifier(publisher, logger),
		logger:      logger,
	}
}

// ListWorkspaces returns every workspace the caller belongs to.
func (s *WorkspaceService) ListWorkspaces(ctx context.Context, rs *RequestSession) ([]domain.WorkspaceWithRole, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	return CacheOrFetch(ctx, s.caches.Store, ReadUserWorkspaces.Key(identity.UserID), ReadUserWorkspaces.TTL(s.caches.TTL),
		func(ctx context.Context) ([]domain.WorkspaceWithRole, error) {
			list, err := s.workspaces.ListWorkspacesForUser(ctx, identity.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to list workspaces: %w", err)
			}
			if list == nil {
				list = []domain.WorkspaceWithRole{}
			}
			return list, nil
		})
}

// CreateWorkspace creates a workspace owned by the caller.
func (s *WorkspaceService) CreateWorkspace(ctx context.Context, rs *RequestSession, name string, description *string) (*domain.Workspace, error) {
	identity, err := rs.Require(ctx, domain.PermissionCreate)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxWorkspaceNameLength {
		return nil, fmt.Errorf("%w: name must be between 1 and %d characters", domain.ErrInvalidInput, maxWorkspaceNameLength)
	}

	ws, err := s.workspaces.CreateWorkspace(ctx, name, description, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	s.invalidator.OnMembershipChanged(ctx, identity.UserID, ws.ID)
	s.logger.Info(ctx, "Workspace created", "workspace_id", ws.ID, "owner_id", identity.UserID)
	return ws, nil
}

// InviteUser invites the registered user with email into workspaceID.
func (s *WorkspaceService) InviteUser(ctx context.Context, rs *RequestSession, workspaceID, email string) (*domain.Invite, error) {
	identity, err := rs.Require(ctx, domain.PermissionCreate)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireMember(ctx, workspaceID, identity.UserID); err != nil {
		return nil, err
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(addr.Address))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: user not found", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitee: %w", err)
	}

	member, err := s.workspaces.IsMember(ctx, workspaceID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if member {
		return nil, fmt.Errorf("%w: user is already a member of this workspace", domain.ErrConflict)
	}

	pending, err := s.invites.HasPendingInvite(ctx, workspaceID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending invites: %w", err)
	}
	if pending {
		return nil, fmt.Errorf("%w: user has already been invited to this workspace", domain.ErrConflict)
	}

	invite, err := s.invites.CreateInvite(ctx, workspaceID, user.Email, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	s.logger.Info(ctx, "Workspace invite created", "workspace_id", workspaceID, "invite_id", invite.ID)
	return invite, nil
}

// ListInvites returns the caller's pending invites, newest first.
func (s *WorkspaceService) ListInvites(ctx context.Context, rs *RequestSession) ([]domain.InviteDetails, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	invites, err := s.invites.ListPendingInvites(ctx, identity.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	if invites == nil {
		invites = []domain.InviteDetails{}
	}
	return invites, nil
}

// AcceptInvite adds the caller to the invite's workspace.
func (s *WorkspaceService) AcceptInvite(ctx context.Context, rs *RequestSession, inviteID string) error {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return err
	}

	invite, err := s.invites.GetInvite(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("failed to load invite: %w", err)
	}
	if !strings.EqualFold(invite.Email, identity.UserEmail) {
		return fmt.Errorf("%w: invite not found", domain.ErrNotFound)
	}
	if invite.Status != domain.InviteStatusPending {
		return fmt.Errorf("%w: invite is not pending", domain.ErrConflict)
	}

	if err := s.invites.AcceptInvite(ctx, invite.ID, invite.WorkspaceID, identity.UserID); err != nil {
		return fmt.Errorf("failed to accept invite: %w", err)
	}

	s.invalidator.OnMembershipChanged(ctx, identity.UserID, invite.WorkspaceID)
	s.invalidator.OnWorkspaceChanged(ctx, invite.WorkspaceID)
	s.events.notify(ctx, domain.EventMemberJoined, invite.WorkspaceID, "", identity.UserID)
	s.logger.Info(ctx, "Workspace invite accepted", "workspace_id", invite.WorkspaceID, "invite_id", invite.ID)
	return nil
}
