// Package domaintest provides in-memory implementations of the domain ports
// for tests.
package domaintest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// Store implements every repository interface over maps. Call counts of the
// read paths are recorded for cache assertions.
type Store struct {
	mu         sync.Mutex
	seq        int
	clock      time.Time
	users      map[string]*domain.User
	workspaces map[string]*domain.Workspace
	members    map[string]map[string]domain.MemberRole
	invites    map[string]*domain.Invite
	pages      map[string]*domain.Page
	posts      map[int64]*domain.Post
	calls      map[string]int
}

// NewStore returns an empty store with a fixed clock.
func NewStore() *Store {
	return &Store{
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:      map[string]*domain.User{},
		workspaces: map[string]*domain.Workspace{},
		members:    map[string]map[string]domain.MemberRole{},
		invites:    map[string]*domain.Invite{},
		pages:      map[string]*domain.Page{},
		posts:      map[int64]*domain.Post{},
		calls:      map[string]int{},
	}
}

func (m *Store) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Store) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

// Count returns how often the named repository method was called.
func (m *Store) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// AddUser seeds a user.
func (m *Store) AddUser(id, email, name string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: id, Email: email, Name: &name}
	m.users[id] = u
	return u
}

// AddWorkspace seeds a workspace. The first member is its owner.
func (m *Store) AddWorkspace(id string, memberIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workspaces[id] = &domain.Workspace{ID: id, Name: "ws " + id, CreatedAt: m.tick()}
	m.members[id] = map[string]domain.MemberRole{}
	for i, uid := range memberIDs {
		role := domain.RoleMember
		if i == 0 {
			role = domain.RoleOwner
		}
		m.members[id][uid] = role
	}
}

// AddPage seeds a page.
func (m *Store) AddPage(id, workspaceID string, parentID *string) *domain.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Page{ID: id, Title: "page " + id, WorkspaceID: workspaceID, ParentID: parentID, CreatedAt: m.tick()}
	m.pages[id] = p
	return p
}

// AddPageBy seeds a page created by userID.
func (m *Store) AddPageBy(id, workspaceID, userID string) *domain.Page {
	p := m.AddPage(id, workspaceID, nil)
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedByID = userID
	return p
}

// creatorOf joins the page creator the way the database does. Callers hold m.mu.
func (m *Store) creatorOf(p *domain.Page) domain.UserSummary {
	u, ok := m.users[p.CreatedByID]
	if !ok {
		return domain.UserSummary{ID: p.CreatedByID}
	}
	return domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}
}

func (m *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetUser"]++
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Store) UpdateProfile(_ context.Context, id string, name string, image *string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	u.Name = &name
	if image != nil {
		u.Image = image
	}
	cp := *u
	return &cp, nil
}

func (m *Store) ListWorkspacesForUser(_ context.Context, userID string) ([]domain.WorkspaceWithRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListWorkspacesForUser"]++
	var out []domain.WorkspaceWithRole
	for wsID, members := range m.members {
		if role, ok := members[userID]; ok {
			out = append(out, domain.WorkspaceWithRole{Workspace: *m.workspaces[wsID], Role: role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) CreateWorkspace(_ context.Context, name string, description *string, ownerID string) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws := &domain.Workspace{ID: m.nextID("ws"), Name: name, Description: description, CreatedAt: m.tick()}
	m.workspaces[ws.ID] = ws
	m.members[ws.ID] = map[string]domain.MemberRole{ownerID: domain.RoleOwner}
	cp := *ws
	return &cp, nil
}

func (m *Store) GetWorkspace(_ context.Context, id string) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (m *Store) IsMember(_ context.Context, workspaceID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["IsMember"]++
	_, ok := m.members[workspaceID][userID]
	return ok, nil
}

func (m *Store) CreateInvite(_ context.Context, workspaceID, email, invitedByID string) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := &domain.Invite{
		ID: m.nextID("inv"), WorkspaceID: workspaceID, Email: email,
		InvitedByID: invitedByID, Status: domain.InviteStatusPending, CreatedAt: m.tick(),
	}
	m.invites[inv.ID] = inv
	cp := *inv
	return &cp, nil
}

func (m *Store) HasPendingInvite(_ context.Context, workspaceID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.WorkspaceID == workspaceID && strings.EqualFold(inv.Email, email) && inv.Status == domain.InviteStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) ListPendingInvites(_ context.Context, email string) ([]domain.InviteDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.InviteDetails
	for _, inv := range m.invites {
		if strings.EqualFold(inv.Email, email) && inv.Status == domain.InviteStatusPending {
			out = append(out, domain.InviteDetails{Invite: *inv, WorkspaceName: m.workspaces[inv.WorkspaceID].Name})
		}
	}
	return out, nil
}

func (m *Store) GetInvite(_ context.Context, id string) (*domain.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *Store) AcceptInvite(_ context.Context, inviteID, workspaceID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[inviteID].Status = domain.InviteStatusAccepted
	m.members[workspaceID][userID] = domain.RoleMember
	return nil
}

func (m *Store) ListWorkspacePages(_ context.Context, workspaceID string) ([]domain.PageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListWorkspacePages"]++
	var out []domain.PageSummary
	for _, p := range m.pages {
		if p.WorkspaceID == workspaceID && !p.IsArchived {
			out = append(out, domain.PageSummary{
				PageRef:   domain.PageRef{ID: p.ID, Title: p.Title, Emoji: p.Emoji},
				ParentID:  p.ParentID,
				CreatedBy: m.creatorOf(p),
				CreatedAt: p.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) GetPage(_ context.Context, id string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetPage"]++
	p, ok := m.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.CreatedBy = m.creatorOf(p)
	return &cp, nil
}

func (m *Store) CreatePage(_ context.Context, page domain.Page) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page.ID = m.nextID("page")
	page.CreatedAt = m.tick()
	page.UpdatedAt = page.CreatedAt
	m.pages[page.ID] = &page
	cp := page
	return &cp, nil
}

func (m *Store) UpdatePage(_ context.Context, id string, update domain.PageUpdate) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.Content != nil {
		p.Content = update.Content
	}
	if update.Emoji != nil {
		p.Emoji = update.Emoji
	}
	if update.CoverImage != nil {
		p.CoverImage = update.CoverImage
	}
	p.UpdatedAt = m.tick()
	cp := *p
	return &cp, nil
}

func (m *Store) SaveCRDTState(_ context.Context, id string, state []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["SaveCRDTState"]++
	p, ok := m.pages[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.CRDTState = append([]byte(nil), state...)
	return nil
}

func (m *Store) ArchivePage(_ context.Context, id string) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.IsArchived = true
	cp := *p
	return &cp, nil
}

func (m *Store) ListPagesCreatedBy(_ context.Context, userID string) ([]domain.AuthoredPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListPagesCreatedBy"]++
	var out []domain.AuthoredPage
	for _, p := range m.pages {
		if p.CreatedByID == userID {
			out = append(out, domain.AuthoredPage{ID: p.ID, WorkspaceID: p.WorkspaceID})
		}
	}
	return out, nil
}

func (m *Store) CreatePost(_ context.Context, name, authorID string) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p := &domain.Post{ID: int64(m.seq), Name: name, CreatedByID: authorID, CreatedAt: m.tick()}
	m.posts[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *Store) LatestPost(ctx context.Context, authorID string) (*domain.Post, error) {
	posts, _ := m.ListPosts(ctx, authorID)
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

func (m *Store) ListPosts(_ context.Context, authorID string) ([]domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListPosts"]++
	var out []domain.Post
	for _, p := range m.posts {
		if p.CreatedByID == authorID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Store) GetPost(_ context.Context, id int64) (*domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Store) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	return nil
}

// Publisher records published events. A non-nil Err fails every publish.
type Publisher struct {
	Err error

	mu     sync.Mutex
	events []domain.ChangeEvent
}

func (f *Publisher) PublishChange(_ context.Context, event domain.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.events = append(f.events, event)
	return nil
}

// Published returns a copy of the recorded events.
func (f *Publisher) Published() []domain.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChangeEvent(nil), f.events...)
}

// Throttle answers every Offer with Allowed and Err. Offers that are not
// allowed become the pending state, which ClaimPending hands out at once.
type Throttle struct {
	Allowed    bool
	Err        error
	RetryAfter time.Duration

	mu      sync.Mutex
	calls   int
	pending map[string][]byte
}

func (f *Throttle) Offer(_ context.Context, pageID string, state []byte, _ time.Duration) (domain.SnapshotOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return domain.SnapshotOffer{}, f.Err
	}
	if f.Allowed {
		delete(f.pending, pageID)
		return domain.SnapshotOffer{WriteNow: true}, nil
	}
	if f.pending == nil {
		f.pending = map[string][]byte{}
	}
	f.pending[pageID] = append([]byte(nil), state...)
	return domain.SnapshotOffer{RetryAfter: f.RetryAfter}, nil
}

func (f *Throttle) ClaimPending(ctx context.Context, pageID string, _ time.Duration) ([]byte, time.Duration, error) {
	state, err := f.TakePending(ctx, pageID)
	return state, 0, err
}

func (f *Throttle) TakePending(_ context.Context, pageID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	state, ok := f.pending[pageID]
	if !ok {
		return nil, nil
	}
	delete(f.pending, pageID)
	return state, nil
}

// Calls returns the number of Offer calls.
func (f *Throttle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Pending returns the pending state of a page, or nil.
func (f *Throttle) Pending(pageID string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[pageID]
}

// Page returns the stored page, or nil.
func (m *Store) Page(id string) *domain.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Identities resolves the mapped tokens and nothing else.
type Identities map[string]*domain.SessionIdentity

func (m Identities) ResolveSession(_ context.Context, token string) (*domain.SessionIdentity, error) {
	return m[token], nil
}
