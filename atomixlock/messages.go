// Package atomixlock implements the replicated distributed lock state
// machine: a deterministic command processor that grants a fair,
// session-scoped, exclusive lock with bounded-wait acquisition, driven by
// a host consensus runtime (see Clock, Scheduler, SessionRegistry and
// EventSink in host.go).
//
// Every exported method on LockService must be invoked from a single
// serialized execution context per partition (see atomixrun.Executor) --
// the type itself holds no internal lock, matching the host contract in
// spec section 5.
package atomixlock

import "time"

// SessionID identifies a client session as tracked by the host runtime.
type SessionID string

// LockRequest is the field-level schema of a lock command. Timeout zero
// means tryLock (never waits); negative means wait forever; positive is
// a bounded wait of that duration.
type LockRequest struct {
	ID      int32
	Timeout time.Duration
}

// LockResponse is delivered as a session event (EventSink.OnLock), never
// as the direct return value of the lock command that triggered it --
// LockService.Lock returns nothing.
type LockResponse struct {
	Index    int64
	ID       int32
	Acquired bool
}

// UnlockRequest identifies the acquisition to release. Index zero means
// "release whatever I hold".
type UnlockRequest struct {
	Index int64
	ID    int32
}

// UnlockResponse always carries the current command index, regardless of
// whether the unlock actually changed anything.
type UnlockResponse struct {
	Index int64
}

// IsLockedRequest queries either "is anything locked" (Index zero) or
// "is my specific acquisition still in force" (Index set).
type IsLockedRequest struct {
	Index int64
}

type IsLockedResponse struct {
	Index  int64
	Locked bool
}

// LockCall is the wire/snapshot representation of a LockHolder. It is
// kept distinct from LockHolder so the snapshot format (spec section
// 4.5) can evolve independently of in-memory representation details.
type LockCall struct {
	ID      int32
	Index   int64
	Session SessionID
	Expire  int64
}
