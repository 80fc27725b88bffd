package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/rediskeys"
)

// ChangeKind is the entity class of a committed mutation.
type ChangeKind int

const (
	ChangeUser ChangeKind = iota + 1
	ChangePost
	ChangeWorkspace
	ChangePage
	ChangeMembership
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeUser:
		return "user"
	case ChangePost:
		return "post"
	case ChangeWorkspace:
		return "workspace"
	case ChangePage:
		return "page"
	case ChangeMembership:
		return "membership"
	}
	panic(fmt.Sprintf("application: invalid change kind %d", int(k)))
}

// ParseChangeKind maps a kind name back to its ChangeKind.
func ParseChangeKind(s string) (ChangeKind, bool) {
	for k := ChangeUser; k <= ChangeMembership; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Change describes a committed mutation. ID is the changed entity; for
// membership changes it is the member's user id. The other fields are
// optional context that widens the fan-out when known.
type Change struct {
	Kind        ChangeKind
	ID          string
	UserID      string
	WorkspaceID string
	ParentID    string
	// AuthoredPages are the pages created by a changed user. Their details and
	// workspace listings embed the user's summary.
	AuthoredPages []domain.AuthoredPage
}

// NewChange builds a Change from an entity id and an optional related id: the
// author of a post, or the workspace of a page or membership.
func NewChange(kind ChangeKind, id, relatedID string) Change {
	ch := Change{Kind: kind, ID: id}
	switch kind {
	case ChangePost:
		ch.UserID = relatedID
	case ChangePage, ChangeMembership:
		ch.WorkspaceID = relatedID
	}
	return ch
}

// invalidationEdge deletes the keys one kind of change makes stale. covers
// names the CachedReads whose keys the edge removes.
type invalidationEdge struct {
	name   string
	kind   ChangeKind
	covers []string
	apply  func(ctx context.Context, c *Caches, ch Change) (deleted int64, applied bool)
}

// invalidationTable is the single list of what must be dropped when an entity
// changes. A new CachedRead needs an edge here before it ships.
var invalidationTable = []invalidationEdge{
	{
		name:   "user/entity",
		kind:   ChangeUser,
		covers: []string{ReadUserProfile.Name, ReadUserWorkspaces.Name, ReadUserLatestPost.Name, ReadUserAllPosts.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.User.DeleteAll(ctx, ch.ID), true
		},
	},
	{
		name: "user/scoped-posts",
		kind: ChangeUser,
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.Store.DeletePattern(ctx, rediskeys.ScopedPattern(rediskeys.PrefixPost, rediskeys.PrefixUser, ch.ID)), true
		},
	},
	{
		name:   "user/authored-page-details",
		kind:   ChangeUser,
		covers: []string{ReadPageDetails.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			if len(ch.AuthoredPages) == 0 {
				return 0, false
			}
			var deleted int64
			for _, p := range ch.AuthoredPages {
				deleted += boolToCount(c.Page.Delete(ctx, p.ID, rediskeys.SuffixDetails))
			}
			return deleted, true
		},
	},
	{
		name:   "user/authored-workspace-page-lists",
		kind:   ChangeUser,
		covers: []string{ReadWorkspacePages.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			if len(ch.AuthoredPages) == 0 {
				return 0, false
			}
			seen := make(map[string]struct{}, len(ch.AuthoredPages))
			var deleted int64
			for _, p := range ch.AuthoredPages {
				if _, ok := seen[p.WorkspaceID]; ok {
					continue
				}
				seen[p.WorkspaceID] = struct{}{}
				deleted += boolToCount(c.Workspace.Delete(ctx, p.WorkspaceID, rediskeys.SuffixPages))
			}
			return deleted, true
		},
	},
	{
		name: "post/entity",
		kind: ChangePost,
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.Post.DeleteAll(ctx, ch.ID), true
		},
	},
	{
		name:   "post/author-post-lists",
		kind:   ChangePost,
		covers: []string{ReadUserLatestPost.Name, ReadUserAllPosts.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			if ch.UserID == "" {
				return 0, false
			}
			var deleted int64
			for _, suffix := range []string{rediskeys.SuffixPosts, rediskeys.SuffixLatestPost, rediskeys.SuffixAllPosts} {
				if c.User.Delete(ctx, ch.UserID, suffix) {
					deleted++
				}
			}
			return deleted, true
		},
	},
	{
		name:   "workspace/entity",
		kind:   ChangeWorkspace,
		covers: []string{ReadWorkspacePages.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.Workspace.DeleteAll(ctx, ch.ID), true
		},
	},
	{
		name: "workspace/scoped-pages",
		kind: ChangeWorkspace,
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.Store.DeletePattern(ctx, rediskeys.ScopedPattern(rediskeys.PrefixPage, rediskeys.PrefixWorkspace, ch.ID)), true
		},
	},
	{
		name:   "page/entity",
		kind:   ChangePage,
		covers: []string{ReadPageDetails.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return c.Page.DeleteAll(ctx, ch.ID), true
		},
	},
	{
		name:   "page/workspace-page-list",
		kind:   ChangePage,
		covers: []string{ReadWorkspacePages.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			if ch.WorkspaceID == "" {
				return 0, false
			}
			return boolToCount(c.Workspace.Delete(ctx, ch.WorkspaceID, rediskeys.SuffixPages)), true
		},
	},
	{
		name:   "page/parent-details",
		kind:   ChangePage,
		covers: []string{ReadPageDetails.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			if ch.ParentID == "" {
				return 0, false
			}
			return boolToCount(c.Page.Delete(ctx, ch.ParentID, rediskeys.SuffixDetails)), true
		},
	},
	{
		name:   "membership/user-workspace-list",
		kind:   ChangeMembership,
		covers: []string{ReadUserWorkspaces.Name},
		apply: func(ctx context.Context, c *Caches, ch Change) (int64, bool) {
			return boolToCount(c.User.Delete(ctx, ch.ID, rediskeys.SuffixWorkspaces)), true
		},
	},
}

func boolToCount(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Invalidator applies the invalidation table after mutations commit. Like
// every cache operation it never fails the caller.
type Invalidator struct {
	caches *Caches
	logger domain.Logger
}

// NewInvalidator creates a new Invalidator.
func NewInvalidator(caches *Caches, logger domain.Logger) *Invalidator {
	if caches == nil {
		panic("caches is nil in NewInvalidator")
	}
	if logger == nil {
		panic("logger is nil in NewInvalidator")
	}
	return &Invalidator{caches: caches, logger: logger}
}

// Apply runs every edge registered for ch.Kind and returns the number of keys removed.
func (inv *Invalidator) Apply(ctx context.Context, ch Change) int64 {
	if ch.ID == "" {
		inv.logger.Warn(ctx, "Skipping invalidation for change without id", "change", ch.Kind.String())
		return 0
	}

	var total int64
	for _, edge := range invalidationTable {
		if edge.kind != ch.Kind {
			continue
		}
		deleted, applied := edge.apply(ctx, inv.caches, ch)
		if !applied {
			continue
		}
		metrics.IncrementInvalidationEdge(edge.name)
		total += deleted
	}

	inv.logger.Debug(ctx, "Cache invalidated", "change", ch.Kind.String(), "id", ch.ID, "keys_deleted", total)
	return total
}

// OnUserChanged drops a user's keys, every post key scoped to them and the
// cached details and workspace listings of the pages they authored.
func (inv *Invalidator) OnUserChanged(ctx context.Context, userID string, authored ...domain.AuthoredPage) int64 {
	return inv.Apply(ctx, Change{Kind: ChangeUser, ID: userID, AuthoredPages: authored})
}

// OnPostChanged drops a post's keys and, when authorID is known, the author's post lists.
func (inv *Invalidator) OnPostChanged(ctx context.Context, postID int64, authorID string) int64 {
	return inv.Apply(ctx, Change{Kind: ChangePost, ID: strconv.FormatInt(postID, 10), UserID: authorID})
}

// OnWorkspaceChanged drops a workspace's keys and every page key scoped to it.
func (inv *Invalidator) OnWorkspaceChanged(ctx context.Context, workspaceID string) int64 {
	return inv.Apply(ctx, Change{Kind: ChangeWorkspace, ID: workspaceID})
}

// OnPageChanged drops a page's keys and, when known, its workspace's page list
// and its parent's details.
func (inv *Invalidator) OnPageChanged(ctx context.Context, pageID, workspaceID, parentID string) int64 {
	return inv.Apply(ctx, Change{Kind: ChangePage, ID: pageID, WorkspaceID: workspaceID, ParentID: parentID})
}

// OnMembershipChanged drops the member's cached workspace list.
func (inv *Invalidator) OnMembershipChanged(ctx context.Context, userID, workspaceID string) int64 {
	return inv.Apply(ctx, Change{Kind: ChangeMembership, ID: userID, WorkspaceID: workspaceID})
}
