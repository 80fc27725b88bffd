package domain

import "context"

// Repository methods return an error wrapping ErrNotFound when a single
// requested row does not exist.

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, name string, image *string) (*User, error)
}

type WorkspaceRepository interface {
	ListWorkspacesForUser(ctx context.Context, userID string) ([]WorkspaceWithRole, error)
	// CreateWorkspace inserts the workspace and its owner membership atomically.
	CreateWorkspace(ctx context.Context, name string, description *string, ownerID string) (*Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)
	IsMember(ctx context.Context, workspaceID, userID string) (bool, error)
}

type InviteRepository interface {
	CreateInvite(ctx context.Context, workspaceID, email, invitedByID string) (*Invite, error)
	HasPendingInvite(ctx context.Context, workspaceID, email string) (bool, error)
	ListPendingInvites(ctx context.Context, email string) ([]InviteDetails, error)
	GetInvite(ctx context.Context, id string) (*Invite, error)
	// AcceptInvite adds the membership and marks the invite accepted atomically.
	AcceptInvite(ctx context.Context, inviteID, workspaceID, userID string) error
}

type PageRepository interface {
	// ListWorkspacePages returns non-archived pages, newest first.
	ListWorkspacePages(ctx context.Context, workspaceID string) ([]PageSummary, error)
	GetPage(ctx context.Context, id string) (*Page, error)
	CreatePage(ctx context.Context, page Page) (*Page, error)
	UpdatePage(ctx context.Context, id string, update PageUpdate) (*Page, error)
	SaveCRDTState(ctx context.Context, id string, state []byte) error
	ArchivePage(ctx context.Context, id string) (*Page, error)
	// ListPagesCreatedBy returns every page the user created, archived or not.
	ListPagesCreatedBy(ctx context.Context, userID string) ([]AuthoredPage, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, name, authorID string) (*Post, error)
	// LatestPost returns (nil, nil) when the author has no posts.
	LatestPost(ctx context.Context, authorID string) (*Post, error)
	ListPosts(ctx context.Context, authorID string) ([]Post, error)
	GetPost(ctx context.Context, id int64) (*Post, error)
	DeletePost(ctx context.Context, id int64) error
}
