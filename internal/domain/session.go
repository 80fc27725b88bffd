package domain

import (
	"context"
	"time"
)

// SnapshotOffer is the throttle's answer to one CRDT state write.
type SnapshotOffer struct {
	// WriteNow means a window was opened and the caller persists the state itself.
	WriteNow bool
	// RetryAfter is what is left of the open window when the state was kept as pending.
	RetryAfter time.Duration
}

// SnapshotThrottle limits how often one page's CRDT state is persisted while
// keeping the last state of a burst. Every window has a leading write; states
// offered inside it replace each other as the page's pending snapshot, which
// is written once the window has closed.
type SnapshotThrottle interface {
	// Offer opens a window of the given length and reports WriteNow if none is
	// open, discarding an older pending snapshot. Otherwise it stores state as
	// the pending snapshot.
	Offer(ctx context.Context, pageID string, state []byte, window time.Duration) (SnapshotOffer, error)
	// ClaimPending removes and returns the pending snapshot and opens a new
	// window for its write. While a window is still open it returns a nil
	// state and the time left; with nothing pending it returns nil, 0.
	ClaimPending(ctx context.Context, pageID string, window time.Duration) ([]byte, time.Duration, error)
	// TakePending removes and returns the pending snapshot regardless of the
	// window. Used when the process stops.
	TakePending(ctx context.Context, pageID string) ([]byte, error)
}
