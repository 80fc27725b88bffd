package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const defaultPageTitle = "Untitled"

var errPageNotAccessible = fmt.Errorf("%w: page not found or you don't have access", domain.ErrNotFound)

// CreatePageInput holds the fields of a new page.
type CreatePageInput struct {
	Title    string
	ParentID *string
	Emoji    *string
}

// PageService manages the pages of a workspace.
type PageService struct {
	pages       domain.PageRepository
	access      *AccessService
	caches      *Caches
	invalidator *Invalidator
	throttle    domain.SnapshotThrottle
	events      *eventNotifier
	config      config.Provider
	logger      domain.Logger

	flushMu      sync.Mutex
	flushWg      sync.WaitGroup
	flushes      map[string]*pendingFlush
	flushStopped bool
}

// NewPageService creates a new PageService.
func NewPageService(
	pages domain.PageRepository,
	access *AccessService,
	caches *Caches,
	invalidator *Invalidator,
	throttle domain.SnapshotThrottle,
	publisher domain.EventPublisher,
	cfgProvider config.Provider,
	logger domain.Logger,
) *PageService {
	return &PageService{
		pages:       pages,
		access:      access,
		caches:      caches,
		invalidator: invalidator,
		throttle:    throttle,
		events:      newEventNotifier(publisher, logger),
		config:      cfgProvider,
		logger:      logger,
		flushes:     make(map[string]*pendingFlush),
	}
}

// ListPages returns the non-archived pages of a workspace the caller belongs to.
func (s *PageService) ListPages(ctx context.Context, rs *RequestSession, workspaceID string) ([]domain.PageSummary, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireMember(ctx, workspaceID, identity.UserID); err != nil {
		return nil, err
	}

	return CacheOrFetch(ctx, s.caches.Store, ReadWorkspacePages.Key(workspaceID), ReadWorkspacePages.TTL(s.caches.TTL),
		func(ctx context.Context) ([]domain.PageSummary, error) {
			pages, err := s.pages.ListWorkspacePages(ctx, workspaceID)
			if err != nil {
				return nil, fmt.Errorf("failed to list pages: %w", err)
			}
			if pages == nil {
				pages = []domain.PageSummary{}
			}
			return pages, nil
		})
}

// GetPage returns a page of a workspace the caller belongs to. The cached
// details are shared by all members, so membership is checked on every call.
func (s *PageService) GetPage(ctx context.Context, rs *RequestSession, pageID string) (*domain.Page, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}

	page, err := CacheOrFetch(ctx, s.caches.Store, ReadPageDetails.Key(pageID), ReadPageDetails.TTL(s.caches.TTL),
		func(ctx context.Context) (*domain.Page, error) {
			return s.pages.GetPage(ctx, pageID)
		})
	if errors.Is(err, domain.ErrNotFound) || (err == nil && page == nil) {
		return nil, errPageNotAccessible
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}

	if err := s.requirePageMember(ctx, page, identity.UserID); err != nil {
		return nil, err
	}
	return page, nil
}

// CreatePage adds a page to workspaceID, optionally under a parent page of the same workspace.
func (s *PageService) CreatePage(ctx context.Context, rs *RequestSession, workspaceID string, in CreatePageInput) (*domain.Page, error) {
	identity, err := rs.Require(ctx, domain.PermissionCreate)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireMember(ctx, workspaceID, identity.UserID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		parent, err := s.pages.GetPage(ctx, *in.ParentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to load parent page: %w", err)
		}
		if parent == nil || parent.WorkspaceID != workspaceID {
			return nil, fmt.Errorf("%w: invalid parent page", domain.ErrInvalidInput)
		}
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = defaultPageTitle
	}

	page, err := s.pages.CreatePage(ctx, domain.Page{
		Title:       title,
		Emoji:       in.Emoji,
		WorkspaceID: workspaceID,
		ParentID:    in.ParentID,
		CreatedByID: identity.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s.invalidator.OnPageChanged(ctx, page.ID, workspaceID, deref(page.ParentID))
	s.events.notify(ctx, domain.EventPageCreated, workspaceID, page.ID, identity.UserID)
	s.logger.Info(ctx, "Page created", "page_id", page.ID, "workspace_id", workspaceID)
	return page, nil
}

// UpdatePage applies a partial edit.
func (s *PageService) UpdatePage(ctx context.Context, rs *RequestSession, pageID string, update domain.PageUpdate) (*domain.Page, error) {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
	}

	current, err := s.loadForMutation(ctx, pageID, identity.UserID)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.UpdatePage(ctx, pageID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}

	s.invalidator.OnPageChanged(ctx, pageID, current.WorkspaceID, deref(current.ParentID))
	s.events.notify(ctx, domain.EventPageUpdated, current.WorkspaceID, pageID, identity.UserID)
	return page, nil
}

// SaveCRDTState persists the collaborative editor state of a page. The first
// state of a throttle window is written at once and reported as saved; later
// ones replace each other as the pending snapshot, which is written when the
// window closes. If the throttle itself is unavailable the write goes ahead.
func (s *PageService) SaveCRDTState(ctx context.Context, rs *RequestSession, pageID string, state []byte) (bool, error) {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return false, err
	}
	if len(state) == 0 {
		return false, fmt.Errorf("%w: empty CRDT state", domain.ErrInvalidInput)
	}

	current, err := s.loadForMutation(ctx, pageID, identity.UserID)
	if err != nil {
		return false, err
	}

	if window := s.snapshotWindow(); window > 0 && s.throttle != nil {
		offer, err := s.throttle.Offer(ctx, pageID, state, window)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "Snapshot throttle unavailable, saving anyway", "page_id", pageID, "error", err.Error())
		case !offer.WriteNow:
			s.scheduleSnapshotFlush(pageID, current.WorkspaceID, offer.RetryAfter)
			s.logger.Debug(ctx, "Snapshot deferred to end of throttle window", "page_id", pageID, "retry_after", offer.RetryAfter.String())
			return false, nil
		}
	}

	if err := s.persistSnapshot(ctx, pageID, current.WorkspaceID, state); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PageService) persistSnapshot(ctx context.Context, pageID, workspaceID string, state []byte) error {
	if err := s.pages.SaveCRDTState(ctx, pageID, state); err != nil {
		return fmt.Errorf("failed to save CRDT state: %w", err)
	}
	s.invalidator.OnPageChanged(ctx, pageID, workspaceID, "")
	return nil
}

// ArchivePage hides a page from listings. Pages are never hard deleted.
func (s *PageService) ArchivePage(ctx context.Context, rs *RequestSession, pageID string) (*domain.Page, error) {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}

	current, err := s.loadForMutation(ctx, pageID, identity.UserID)
	if err != nil {
		return nil, err
	}

	page, err := s.pages.ArchivePage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to archive page: %w", err)
	}

	s.invalidator.OnPageChanged(ctx, pageID, current.WorkspaceID, deref(current.ParentID))
	s.events.notify(ctx, domain.EventPageArchived, current.WorkspaceID, pageID, identity.UserID)
	s.logger.Info(ctx, "Page archived", "page_id", pageID, "workspace_id", current.WorkspaceID)
	return page, nil
}

// loadForMutation reads the page from the database, never the cache, and checks membership.
func (s *PageService) loadForMutation(ctx context.Context, pageID, userID string) (*domain.Page, error) {
	page, err := s.pages.GetPage(ctx, pageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errPageNotAccessible
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	if err := s.requirePageMember(ctx, page, userID); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *PageService) requirePageMember(ctx context.Context, page *domain.Page, userID string) error {
	err := s.access.RequireMember(ctx, page.WorkspaceID, userID)
	if errors.Is(err, domain.ErrForbidden) {
		return errPageNotAccessible
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
