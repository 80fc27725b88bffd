package application

import (
	"context"
	"time"

	"github.com/nikitalobanov12/WriteShare/pkg/safego"
)

const (
	snapshotFlushGrace   = 50 * time.Millisecond
	snapshotFlushTimeout = 10 * time.Second
)

// pendingFlush is this pod's timer for a page whose latest CRDT state waits
// out a throttle window. timer is nil once flushing has stopped.
type pendingFlush struct {
	timer       *time.Timer
	workspaceID string
}

func (s *PageService) snapshotWindow() time.Duration {
	return time.Duration(s.config.Get().App.CRDTSnapshotThrottleSeconds) * time.Second
}

// scheduleSnapshotFlush arms at most one timer per page on this pod. Pods
// that race on the same page are resolved by the throttle's atomic claim.
func (s *PageService) scheduleSnapshotFlush(pageID, workspaceID string, after time.Duration) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	if _, ok := s.flushes[pageID]; ok {
		return
	}
	if s.flushStopped {
		s.flushes[pageID] = &pendingFlush{workspaceID: workspaceID}
		return
	}

	s.flushes[pageID] = &pendingFlush{
		workspaceID: workspaceID,
		timer: time.AfterFunc(after+snapshotFlushGrace, func() {
			s.flushMu.Lock()
			defer s.flushMu.Unlock()
			if s.flushStopped {
				return
			}
			delete(s.flushes, pageID)
			safego.ExecuteTracked(context.Background(), s.logger, &s.flushWg, "CRDTSnapshotFlush", func() {
				s.flushSnapshot(pageID, workspaceID)
			})
		}),
	}
}

// flushSnapshot writes the pending state once the window has closed, or
// waits for the window that is open now.
func (s *PageService) flushSnapshot(pageID, workspaceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotFlushTimeout)
	defer cancel()

	state, retry, err := s.throttle.ClaimPending(ctx, pageID, s.snapshotWindow())
	if err != nil {
		s.logger.Error(ctx, "Failed to claim pending CRDT snapshot", "page_id", pageID, "error", err.Error())
		return
	}
	if state == nil {
		if retry > 0 {
			s.scheduleSnapshotFlush(pageID, workspaceID, retry)
		}
		return
	}

	if err := s.persistSnapshot(ctx, pageID, workspaceID, state); err != nil {
		s.logger.Error(ctx, "Failed to save pending CRDT snapshot", "page_id", pageID, "error", err.Error())
		return
	}
	s.logger.Debug(ctx, "Pending CRDT snapshot saved", "page_id", pageID, "workspace_id", workspaceID)
}

// FlushPendingSnapshots stops scheduling and writes every pending state this
// pod is waiting on without waiting for its window. It returns the number of
// snapshots written.
func (s *PageService) FlushPendingSnapshots(ctx context.Context) int {
	s.flushMu.Lock()
	s.flushStopped = true
	s.flushMu.Unlock()
	s.flushWg.Wait()

	s.flushMu.Lock()
	pending := s.flushes
	s.flushes = make(map[string]*pendingFlush)
	s.flushMu.Unlock()

	var saved int
	for pageID, f := range pending {
		if f.timer != nil {
			f.timer.Stop()
		}
		state, err := s.throttle.TakePending(ctx, pageID)
		if err != nil {
			s.logger.Error(ctx, "Failed to take pending CRDT snapshot", "page_id", pageID, "error", err.Error())
			continue
		}
		if state == nil {
			continue
		}
		if err := s.persistSnapshot(ctx, pageID, f.workspaceID, state); err != nil {
			s.logger.Error(ctx, "Failed to save pending CRDT snapshot", "page_id", pageID, "error", err.Error())
			continue
		}
		saved++
	}
	return saved
}
