package domain

import "time"

// User is an account as stored by the identity provider's user table.
type User struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name"`
	Email         string     `json:"email"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
	Image         *string    `json:"image"`
}

// UserSummary is the author/inviter shape embedded in other payloads.
type UserSummary struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
	Image *string `json:"image"`
}

// MemberRole of a user inside a workspace.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// Workspace groups pages and members.
type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkspaceWithRole is a workspace as seen by one of its members.
type WorkspaceWithRole struct {
	Workspace
	Role MemberRole `json:"role"`
}

// InviteStatus is the lifecycle state of a workspace invite.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// Invite asks the owner of Email to join a workspace.
type Invite struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspaceId"`
	Email       string       `json:"email"`
	InvitedByID string       `json:"invitedById"`
	Status      InviteStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// InviteDetails is an invite joined with its workspace and inviter.
type InviteDetails struct {
	Invite
	WorkspaceName string      `json:"workspaceName"`
	InvitedBy     UserSummary `json:"invitedBy"`
}

// PageRef is the minimal page shape used for child listings.
type PageRef struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Emoji *string `json:"emoji"`
}

// PageSummary is one row of a workspace page listing.
type PageSummary struct {
	PageRef
	ParentID  *string     `json:"parentId"`
	CreatedBy UserSummary `json:"createdBy"`
	Children  []PageRef   `json:"children"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// AuthoredPage locates a page by its creator, whose summary the page embeds.
type AuthoredPage struct {
	ID          string
	WorkspaceID string
}

// Page is the full document, including its collaborative editor state.
type Page struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Content     *string     `json:"content"`
	Emoji       *string     `json:"emoji"`
	CoverImage  *string     `json:"coverImage"`
	CRDTState   []byte      `json:"crdtState,omitempty"`
	IsArchived  bool        `json:"isArchived"`
	WorkspaceID string      `json:"workspaceId"`
	ParentID    *string     `json:"parentId"`
	CreatedByID string      `json:"createdById"`
	CreatedBy   UserSummary `json:"createdBy"`
	Children    []PageRef   `json:"children"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// PageUpdate carries the optional fields of a page edit. Nil means unchanged.
type PageUpdate struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	Emoji      *string `json:"emoji"`
	CoverImage *string `json:"coverImage"`
}

// Empty reports whether the update changes nothing.
func (u PageUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Emoji == nil && u.CoverImage == nil
}

// Post is a short user-authored entry.
type Post struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreatedByID string    `json:"createdById"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
