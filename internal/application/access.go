package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// AccessService answers membership questions. Membership is read from the
// database on every call and never cached.
type AccessService struct {
	workspaces domain.WorkspaceRepository
	pages      domain.PageRepository
}

// NewAccessService creates a new AccessService.
func NewAccessService(workspaces domain.WorkspaceRepository, pages domain.PageRepository) *AccessService {
	return &AccessService{workspaces: workspaces, pages: pages}
}

// RequireMember returns an error wrapping ErrForbidden unless userID belongs to workspaceID.
func (a *AccessService) RequireMember(ctx context.Context, workspaceID, userID string) error {
	ok, err := a.workspaces.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: you don't have access to this workspace", domain.ErrForbidden)
	}
	return nil
}

// CanAccessPage reports whether userID is a member of the workspace owning pageID.
// A missing page is reported as no access.
func (a *AccessService) CanAccessPage(ctx context.Context, userID, pageID string) (bool, error) {
	page, err := a.pages.GetPage(ctx, pageID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load page: %w", err)
	}
	return a.workspaces.IsMember(ctx, page.WorkspaceID, userID)
}

// eventNotifier publishes change events after commits. Failures are logged and
// never reach the caller.
type eventNotifier struct {
	publisher domain.EventPublisher
	logger    domain.Logger
	now       func() time.Time
}

func newEventNotifier(publisher domain.EventPublisher, logger domain.Logger) *eventNotifier {
	return &eventNotifier{publisher: publisher, logger: logger, now: time.Now}
}

func (n *eventNotifier) notify(ctx context.Context, eventType domain.ChangeEventType, workspaceID, pageID, actorID string) {
	if n.publisher == nil {
		return
	}
	event := domain.ChangeEvent{
		Type:        eventType,
		WorkspaceID: workspaceID,
		PageID:      pageID,
		ActorID:     actorID,
		At:          n.now().UTC(),
	}
	if err := n.publisher.PublishChange(ctx, event); err != nil {
		metrics.IncrementEventsPublished(metrics.ResultError)
		n.logger.Warn(ctx, "Failed to publish change event", "type", string(eventType), "workspace_id", workspaceID, "error", err.Error())
		return
	}
	metrics.IncrementEventsPublished(metrics.ResultOK)
}
