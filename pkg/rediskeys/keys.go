// Package rediskeys builds every Redis key and glob pattern the service uses.
// Cache keys follow `{prefix}:{id}[:{suffix}]`.
package rediskeys

import (
	"fmt"
	"strings"

	"github.com/nikitalobanov12/WriteShare/pkg/crypto"
)

// Prefix is the closed set of entity namespaces a cache key can live under.
type Prefix int

const (
	PrefixUser Prefix = iota + 1
	PrefixPost
	PrefixWorkspace
	PrefixPage
	PrefixSession
)

const separator = ":"

// Suffixes of the cached read paths. Every one of them must have a matching
// edge in the invalidation table.
const (
	SuffixWorkspaces = "workspaces"
	SuffixPages      = "pages"
	SuffixDetails    = "details"
	SuffixPosts      = "posts"
	SuffixLatestPost = "latest-post"
	SuffixAllPosts   = "all-posts"
)

// Prefixes returns all prefixes in declaration order.
func Prefixes() []Prefix {
	return []Prefix{PrefixUser, PrefixPost, PrefixWorkspace, PrefixPage, PrefixSession}
}

// String returns the key segment for the prefix. An out-of-range value is a
// programming error and panics.
func (p Prefix) String() string {
	switch p {
	case PrefixUser:
		return "user"
	case PrefixPost:
		return "post"
	case PrefixWorkspace:
		return "workspace"
	case PrefixPage:
		return "page"
	case PrefixSession:
		return "session"
	}
	panic(fmt.Sprintf("rediskeys: invalid prefix %d", int(p)))
}

// ParsePrefix maps a key segment back to its Prefix.
func ParsePrefix(s string) (Prefix, bool) {
	for _, p := range Prefixes() {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// ID is any identifier type that has a canonical string form.
type ID interface {
	~string | ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// ids are escaped so that an id containing the separator can never produce the
// same key as a different (id, suffix) pair.
var idEscaper = strings.NewReplacer("%", "%25", separator, "%3A")

// glob metacharacters understood by KEYS/SCAN MATCH.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func canonicalID[T ID](id T) string {
	return idEscaper.Replace(fmt.Sprint(id))
}

// Key returns `{prefix}:{id}`.
func Key[T ID](p Prefix, id T) string {
	return p.String() + separator + canonicalID(id)
}

// SuffixedKey returns `{prefix}:{id}:{suffix}`, or Key when suffix is empty.
func SuffixedKey[T ID](p Prefix, id T, suffix string) string {
	if suffix == "" {
		return Key(p, id)
	}
	return Key(p, id) + separator + suffix
}

// EntityPattern matches every suffixed key of one entity: `{prefix}:{id}:*`.
// It does not match the bare `{prefix}:{id}` key.
func EntityPattern[T ID](p Prefix, id T) string {
	return p.String() + separator + globEscaper.Replace(canonicalID(id)) + separator + "*"
}

// ScopedPattern matches keys of any `p` entity scoped to an owning entity:
// `{p}:*:{owner}:{ownerID}`, e.g. `post:*:user:17`.
func ScopedPattern[T ID](p Prefix, owner Prefix, ownerID T) string {
	return p.String() + separator + "*" + separator + owner.String() + separator + globEscaper.Replace(canonicalID(ownerID))
}

// SessionID is the id a session token is cached under. The token is hashed so
// raw credentials never show up in the key space.
func SessionID(token string) string {
	return crypto.Sha256Hex(token)
}

// SessionKey is the cache key for a session token.
func SessionKey(token string) string {
	return Key(PrefixSession, SessionID(token))
}

// CRDTSnapshotLockKey guards the per-page snapshot write window. It lives
// outside the entity prefixes so cache invalidation never clears it. The hash
// tag keeps it in the same cluster slot as CRDTSnapshotPendingKey.
func CRDTSnapshotLockKey(pageID string) string {
	return fmt.Sprintf("crdt-snapshot:{%s}:lock", pageID)
}

// CRDTSnapshotPendingKey holds the newest state offered inside an open window.
func CRDTSnapshotPendingKey(pageID string) string {
	return fmt.Sprintf("crdt-snapshot:{%s}:pending", pageID)
}
