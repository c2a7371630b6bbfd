package atomixlock

import (
	"github.com/coderplay/atomix/internal/logging"
	"github.com/yyle88/must"
	"go.uber.org/zap"
)

// LockService is the per-partition replicated lock state machine. It
// holds all mutable state for one lock; multiple partitions each get
// their own independent instance (spec section 9 -- no process-wide
// singletons).
//
// LockService performs no internal synchronization. The host runtime
// (atomixrun.Executor is the reference implementation) is responsible
// for serializing every call -- command handlers, timer fires, and
// session-release callbacks -- through one logical thread per
// partition (spec section 5).
type LockService struct {
	partition string

	holder *LockHolder
	queue  *waiterQueue
	timers map[int64]TimerHandle

	scheduler Scheduler
	sessions  SessionRegistry
	events    EventSink
	logger    logging.Logger
}

// NewLockService builds a fresh, empty lock state machine for the given
// partition. scheduler, sessions and events are the host collaborators
// this instance will call back into; all three must be non-nil.
func NewLockService(partition string, scheduler Scheduler, sessions SessionRegistry, events EventSink, logger logging.Logger) *LockService {
	return &LockService{
		partition: must.Nice(partition),
		queue:     newWaiterQueue(),
		timers:    make(map[int64]TimerHandle),
		scheduler: must.Nice(scheduler),
		sessions:  must.Nice(sessions),
		events:    must.Nice(events),
		logger:    must.Nice(logger),
	}
}

// Lock applies a committed lock command. It never returns a direct
// acquisition outcome -- every outcome (immediate grant, tryLock
// failure, or a later promotion/timeout for a queued waiter) is
// delivered through EventSink.OnLock (spec section 4.1, 4.4).
func (s *LockService) Lock(ctx ApplyContext, req LockRequest) {
	LOG := s.logger.WithMeta(
		zap.String("partition", s.partition),
		zap.Int64("index", ctx.Index),
		zap.String("session", string(ctx.Session)),
		zap.Int32("id", req.ID),
	)

	switch {
	case s.holder == nil:
		// Case 1: lock free -- immediate grant.
		s.holder = newLockHolder(req.ID, ctx.Index, ctx.Session, 0)
		LOG.DebugLog("lock acquired immediately")
		s.events.OnLock(ctx.Session, LockResponse{Index: ctx.Index, ID: req.ID, Acquired: true})

	case req.Timeout == 0:
		// Case 2: tryLock against a held lock -- immediate failure.
		LOG.DebugLog("tryLock failed, lock held")
		s.events.OnLock(ctx.Session, LockResponse{Index: ctx.Index, ID: req.ID, Acquired: false})

	case req.Timeout > 0:
		// Case 3: bounded wait -- queue and arm an expiration timer.
		expire := ctx.Clock.NowMillis() + req.Timeout.Milliseconds()
		h := newLockHolder(req.ID, ctx.Index, ctx.Session, expire)
		s.queue.pushBack(h)
		s.armTimer(h, req.Timeout)
		LOG.DebugLog("lock request queued with deadline")

	default:
		// Case 4: wait forever -- queue, no timer.
		h := newLockHolder(req.ID, ctx.Index, ctx.Session, 0)
		s.queue.pushBack(h)
		LOG.DebugLog("lock request queued without deadline")
	}
}

// Unlock applies a committed unlock command.
func (s *LockService) Unlock(ctx ApplyContext, req UnlockRequest) UnlockResponse {
	currentIndex := ctx.Index

	if s.holder == nil {
		return UnlockResponse{Index: currentIndex}
	}
	if req.Index != 0 && req.Index != s.holder.Index {
		return UnlockResponse{Index: currentIndex}
	}

	if ctx.Session != s.holder.Session || req.ID != s.holder.ID {
		// Spurious unlock: does not release the holder, but lets the
		// caller rescind a pending request of its own sitting in the
		// queue (spec section 4.1 and the rescind Open Question).
		removed := s.queue.removeMatching(ctx.Session, req.ID)
		for _, w := range removed {
			s.cancelTimer(w.Index)
		}
		return UnlockResponse{Index: currentIndex}
	}

	// Legitimate release.
	s.holder = nil
	s.promote(currentIndex)
	return UnlockResponse{Index: currentIndex}
}

// IsLocked applies a committed isLocked query. It is a pure read: it
// never mutates state.
func (s *LockService) IsLocked(ctx ApplyContext, req IsLockedRequest) IsLockedResponse {
	locked := s.holder != nil && (req.Index == 0 || s.holder.Index == req.Index)
	return IsLockedResponse{Index: ctx.Index, Locked: locked}
}

// promote repeatedly pops the queue's head until it finds a waiter whose
// session is still active, installs it as the new holder, and emits its
// grant -- or leaves the lock free if the queue empties out (spec
// section 4.1, 4.2).
func (s *LockService) promote(currentIndex int64) {
	for {
		head, ok := s.queue.popFront()
		if !ok {
			s.holder = nil
			return
		}
		s.cancelTimer(head.Index)
		if s.sessions.Active(head.Session) {
			s.holder = head
			s.events.OnLock(head.Session, LockResponse{Index: currentIndex, ID: head.ID, Acquired: true})
			return
		}
		// Session went inactive between commit and promotion; skip it
		// and keep looking, deterministically.
	}
}
