package atomixlock

import "time"

// Clock is the replicated wall-clock time source. Readings must be
// identical on every replica at a given log index -- command handlers
// and timer fires must never consult the host OS clock directly (spec
// section 3, invariant 5).
type Clock interface {
	// NowMillis returns the current replicated time in milliseconds
	// since epoch.
	NowMillis() int64
}

// TimerHandle is an opaque scheduled-timer reference returned by
// Scheduler.Schedule and accepted back by Scheduler.Cancel.
type TimerHandle interface{}

// Scheduler wraps the host's timer facility. The only timers in use are
// lock-expiration timers, keyed by waiter index in LockService, never by
// handle identity (spec section 9) so that they survive snapshot
// round-trips.
type Scheduler interface {
	// Schedule arranges for fn to run once, delay from now, on the same
	// serialized execution context as command handlers (spec section
	// 4.3). Schedule must not invoke fn synchronously.
	Schedule(delay time.Duration, fn func()) TimerHandle
	// Cancel is best-effort: if it races a timer already entering the
	// executor, the fired fn must recheck state and no-op (spec section
	// 5). Cancel of an already-fired or already-cancelled handle is a
	// no-op.
	Cancel(handle TimerHandle)
}

// SessionRegistry answers whether a session is still active. A queued
// or holding LockHolder whose session has gone inactive is skipped
// during promotion (spec section 4.2).
type SessionRegistry interface {
	Active(session SessionID) bool
}

// EventSink is where LockService delivers asynchronous onLock
// notifications, addressed to a specific session (spec section 4.4).
type EventSink interface {
	OnLock(session SessionID, resp LockResponse)
}

// ApplyContext carries the per-command execution context the host
// supplies when applying a committed command: the command's own log
// index, the session that issued it, and a reading of the replicated
// clock.
type ApplyContext struct {
	Index   int64
	Session SessionID
	Clock   Clock
}

// SessionEventContext carries the execution context for a session
// lifecycle callback (onClose/onExpire). These are themselves committed
// state transitions with their own log index (spec section 2).
type SessionEventContext struct {
	Index int64
}

// RestoreContext carries the execution context Restore needs to
// reschedule expiration timers against the replicated clock.
type RestoreContext struct {
	Clock Clock
}
