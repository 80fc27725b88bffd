package application

import (
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/rediskeys"
)

// CachedRead describes one read path served through CacheOrFetch. Every
// CachedRead must be listed in cachedReads and covered by at least one edge of
// the invalidation table.
type CachedRead struct {
	Name   string
	Prefix rediskeys.Prefix
	Suffix string
	TTL    func(domain.TTLPolicy) time.Duration
	// Embeds lists the change kinds whose data the cached value carries. Each
	// needs an edge of that kind covering the read.
	Embeds []ChangeKind
}

// Key returns the cache key of the read for the owning entity id.
func (r CachedRead) Key(ownerID string) string {
	return rediskeys.SuffixedKey(r.Prefix, ownerID, r.Suffix)
}

func mediumTTL(p domain.TTLPolicy) time.Duration { return p.Medium }
func longTTL(p domain.TTLPolicy) time.Duration   { return p.Long }

var (
	// ReadUserProfile is a user's own profile, stored at the bare user key.
	ReadUserProfile = CachedRead{Name: "user-profile", Prefix: rediskeys.PrefixUser, TTL: longTTL,
		Embeds: []ChangeKind{ChangeUser}}

	// ReadUserWorkspaces is the workspace list of a member.
	ReadUserWorkspaces = CachedRead{Name: "user-workspaces", Prefix: rediskeys.PrefixUser, Suffix: rediskeys.SuffixWorkspaces, TTL: longTTL,
		Embeds: []ChangeKind{ChangeMembership}}

	// ReadUserLatestPost is the newest post of an author.
	ReadUserLatestPost = CachedRead{Name: "user-latest-post", Prefix: rediskeys.PrefixUser, Suffix: rediskeys.SuffixLatestPost, TTL: mediumTTL,
		Embeds: []ChangeKind{ChangePost}}

	// ReadUserAllPosts is every post of an author, newest first.
	ReadUserAllPosts = CachedRead{Name: "user-all-posts", Prefix: rediskeys.PrefixUser, Suffix: rediskeys.SuffixAllPosts, TTL: mediumTTL,
		Embeds: []ChangeKind{ChangePost}}

	// ReadWorkspacePages is the non-archived page list of a workspace.
	ReadWorkspacePages = CachedRead{Name: "workspace-pages", Prefix: rediskeys.PrefixWorkspace, Suffix: rediskeys.SuffixPages, TTL: mediumTTL,
		Embeds: []ChangeKind{ChangePage, ChangeUser}}

	// ReadPageDetails is a full page with its children.
	ReadPageDetails = CachedRead{Name: "page-details", Prefix: rediskeys.PrefixPage, Suffix: rediskeys.SuffixDetails, TTL: mediumTTL,
		Embeds: []ChangeKind{ChangePage, ChangeUser}}
)

var cachedReads = []CachedRead{
	ReadUserProfile,
	ReadUserWorkspaces,
	ReadUserLatestPost,
	ReadUserAllPosts,
	ReadWorkspacePages,
	ReadPageDetails,
}

// CachedReads returns the registry of cached read paths.
func CachedReads() []CachedRead {
	out := make([]CachedRead, len(cachedReads))
	copy(out, cachedReads)
	return out
}
