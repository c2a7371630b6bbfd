package atomixlock

import (
	"time"

	"go.uber.org/zap"
)

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// armTimer schedules an expiration timer for a queued waiter, keyed by
// its log index, and records the handle so it can later be cancelled by
// a legitimate release, a session release, or an explicit rescind.
func (s *LockService) armTimer(h *LockHolder, delay time.Duration) {
	index := h.Index
	handle := s.scheduler.Schedule(delay, func() {
		s.fireExpire(index)
	})
	s.timers[index] = handle
}

// cancelTimer is best-effort and idempotent: cancelling an index with no
// timer (already fired, already cancelled, or never had one) is a no-op.
func (s *LockService) cancelTimer(index int64) {
	handle, ok := s.timers[index]
	if !ok {
		return
	}
	s.scheduler.Cancel(handle)
	delete(s.timers, index)
}

// fireExpire is the timer callback for a bounded-wait waiter's deadline.
// It must run in the same serialized execution context as command
// handlers (spec section 4.3) and must recheck the waiter's presence
// before acting, since Scheduler.Cancel races are only best-effort (spec
// section 5): if the waiter already left the queue by some other path,
// this is a silent no-op.
func (s *LockService) fireExpire(index int64) {
	entry, ok := s.queue.remove(index)
	if !ok {
		return
	}
	delete(s.timers, index)

	if !s.sessions.Active(entry.Session) {
		return
	}
	s.logger.WithMeta(
		zap.String("partition", s.partition),
		zap.Int64("index", entry.Index),
		zap.String("session", string(entry.Session)),
	).DebugLog("lock wait timed out")
	s.events.OnLock(entry.Session, LockResponse{Index: entry.Index, ID: entry.ID, Acquired: false})
}
