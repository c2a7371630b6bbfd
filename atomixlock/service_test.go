package atomixlock_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/coderplay/atomix/atomixlock"
	"github.com/coderplay/atomix/internal/logging"
	"github.com/coderplay/atomix/internal/refhost"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	host     *refhost.ManualHost
	sessions *refhost.SessionTable
	sink     *refhost.RecordingSink
	svc      *atomixlock.LockService
}

func newFixture(startMs int64) *fixture {
	host := refhost.NewManualHost(startMs)
	sessions := refhost.NewSessionTable()
	sink := refhost.NewRecordingSink()
	svc := atomixlock.NewLockService("p0", host, sessions, sink, logging.NewNopLogger())
	return &fixture{host: host, sessions: sessions, sink: sink, svc: svc}
}

func (f *fixture) ctx(index int64, session atomixlock.SessionID) atomixlock.ApplyContext {
	return atomixlock.ApplyContext{Index: index, Session: session, Clock: f.host}
}

// leakyScheduler wraps a *refhost.ManualHost but drops every Cancel
// request, modeling a host whose timer cancellation is best-effort and
// sometimes loses the race against a timer that has already entered the
// executor (spec section 5). It is only ever used to prove that
// fireExpire's own recheck, not the scheduler's cooperation, is what
// keeps a stale fire from producing a duplicate event.
type leakyScheduler struct {
	inner *refhost.ManualHost
}

func (l *leakyScheduler) NowMillis() int64 {
	return l.inner.NowMillis()
}

func (l *leakyScheduler) Schedule(delay time.Duration, fn func()) atomixlock.TimerHandle {
	return l.inner.Schedule(delay, fn)
}

func (l *leakyScheduler) Cancel(atomixlock.TimerHandle) {
	// Dropped on purpose -- see type doc.
}

// A cancellation that loses its race against an in-flight timer fire
// must not produce a duplicate or stale event: the waiter was already
// promoted through the legitimate release path by the time the stale
// fire reaches fireExpire, which must recheck the queue and no-op.
func TestFireExpire_StaleFireAfterLegitimatePromotionIsNoop(t *testing.T) {
	host := refhost.NewManualHost(1000)
	leaky := &leakyScheduler{inner: host}
	sessions := refhost.NewSessionTable()
	sink := refhost.NewRecordingSink()
	svc := atomixlock.NewLockService("p0", leaky, sessions, sink, logging.NewNopLogger())
	s1, s2 := sessions.Open(), sessions.Open()
	apply := func(index int64, session atomixlock.SessionID) atomixlock.ApplyContext {
		return atomixlock.ApplyContext{Index: index, Session: session, Clock: leaky}
	}

	svc.Lock(apply(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	sink.Drain()
	svc.Lock(apply(2, s2), atomixlock.LockRequest{ID: 2, Timeout: 100 * time.Millisecond})
	require.Empty(t, sink.Drain())

	// Legitimate release promotes s2 and (tries to) cancel its deadline
	// timer -- but leakyScheduler drops the cancel, so the timer is
	// still live in the host's heap.
	svc.Unlock(apply(3, s1), atomixlock.UnlockRequest{Index: 1, ID: 1})
	events := sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.True(t, events[0].Response.Acquired)

	// Advance past the original deadline: the stale timer fires, but
	// fireExpire must find s2's entry already gone from the queue and
	// no-op, instead of emitting a second, contradicting event.
	host.Advance(100 * time.Millisecond)
	require.Empty(t, sink.Drain(), "a stale timer fire must not emit a duplicate event")
	require.True(t, svc.IsLocked(apply(0, s2), atomixlock.IsLockedRequest{Index: 2}).Locked)
}

// Scenario A: uncontended acquire/release.
func TestScenarioA_UncontendedAcquireRelease(t *testing.T) {
	f := newFixture(0)
	s1 := f.sessions.Open()

	f.svc.Lock(f.ctx(10, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s1, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 10, ID: 1, Acquired: true}, events[0].Response)

	require.True(t, f.svc.IsLocked(f.ctx(0, s1), atomixlock.IsLockedRequest{}).Locked)

	resp := f.svc.Unlock(f.ctx(11, s1), atomixlock.UnlockRequest{Index: 10, ID: 1})
	require.Equal(t, atomixlock.UnlockResponse{Index: 11}, resp)
	require.False(t, f.svc.IsLocked(f.ctx(0, s1), atomixlock.IsLockedRequest{}).Locked)
}

// Scenario B: contention with FIFO promotion.
func TestScenarioB_ContentionFIFO(t *testing.T) {
	f := newFixture(0)
	s1, s2, s3 := f.sessions.Open(), f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(20, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()

	f.svc.Lock(f.ctx(21, s2), atomixlock.LockRequest{ID: 5, Timeout: -1})
	require.Empty(t, f.sink.Drain()) // queued, no immediate event

	f.svc.Lock(f.ctx(22, s3), atomixlock.LockRequest{ID: 7, Timeout: -1})
	require.Empty(t, f.sink.Drain())

	resp := f.svc.Unlock(f.ctx(23, s1), atomixlock.UnlockRequest{Index: 20, ID: 1})
	require.Equal(t, int64(23), resp.Index)
	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 23, ID: 5, Acquired: true}, events[0].Response)

	resp = f.svc.Unlock(f.ctx(24, s2), atomixlock.UnlockRequest{Index: 23, ID: 5})
	require.Equal(t, int64(24), resp.Index)
	events = f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s3, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 24, ID: 7, Acquired: true}, events[0].Response)
}

// Scenario C: tryLock failure.
func TestScenarioC_TryLockFailure(t *testing.T) {
	f := newFixture(0)
	s1, s2 := f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()

	f.svc.Lock(f.ctx(30, s2), atomixlock.LockRequest{ID: 9, Timeout: 0})
	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 30, ID: 9, Acquired: false}, events[0].Response)
	require.False(t, f.svc.IsLocked(f.ctx(0, s2), atomixlock.IsLockedRequest{Index: 30}).Locked)
}

// Scenario C-variant (spec section 9 Open Question): a session rescinds
// its own queued waiter by id while a different session holds the lock;
// the holder must be preserved.
func TestUnlock_RescindsQueuedWaiter_PreservesHolder(t *testing.T) {
	f := newFixture(0)
	s1, s2 := f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()

	f.svc.Lock(f.ctx(2, s2), atomixlock.LockRequest{ID: 9, Timeout: -1})
	require.Empty(t, f.sink.Drain())

	resp := f.svc.Unlock(f.ctx(3, s2), atomixlock.UnlockRequest{Index: 0, ID: 9})
	require.Equal(t, atomixlock.UnlockResponse{Index: 3}, resp)
	require.Empty(t, f.sink.Drain())

	require.True(t, f.svc.IsLocked(f.ctx(0, s1), atomixlock.IsLockedRequest{Index: 1}).Locked)

	resp = f.svc.Unlock(f.ctx(4, s1), atomixlock.UnlockRequest{Index: 1, ID: 1})
	require.Equal(t, atomixlock.UnlockResponse{Index: 4}, resp)
	require.False(t, f.svc.IsLocked(f.ctx(0, s1), atomixlock.IsLockedRequest{}).Locked)
}

// Scenario D: timeout expiry.
func TestScenarioD_TimeoutExpiry(t *testing.T) {
	f := newFixture(1000)
	s1, s2 := f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()

	f.svc.Lock(f.ctx(40, s2), atomixlock.LockRequest{ID: 3, Timeout: 500 * time.Millisecond})
	require.Empty(t, f.sink.Drain())

	f.host.Advance(500 * time.Millisecond) // now 1500
	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 40, ID: 3, Acquired: false}, events[0].Response)
	require.True(t, f.svc.IsLocked(f.ctx(0, s1), atomixlock.IsLockedRequest{Index: 1}).Locked)
}

// Scenario E: session expire while holding.
func TestScenarioE_SessionExpireWhileHolding(t *testing.T) {
	f := newFixture(0)
	s1, s2, s3 := f.sessions.Open(), f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()
	f.svc.Lock(f.ctx(2, s2), atomixlock.LockRequest{ID: 2, Timeout: -1})
	f.sink.Drain()
	f.svc.Lock(f.ctx(3, s3), atomixlock.LockRequest{ID: 4, Timeout: -1})
	f.sink.Drain()

	f.sessions.Expire(s1)
	f.svc.ReleaseSession(atomixlock.SessionEventContext{Index: 50}, s1)

	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 50, ID: 2, Acquired: true}, events[0].Response)
}

// Session expiring between commit and promotion is skipped
// deterministically (spec section 4.2): s1 holds, s2's lock request
// commits but s2 goes inactive before it can be promoted, s3 is queued
// behind it -- releasing s1 must skip s2 and promote s3.
func TestSessionRelease_SkipsInactiveWaiterDuringPromotion(t *testing.T) {
	f := newFixture(0)
	s1, s2, s3 := f.sessions.Open(), f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(1, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()
	f.svc.Lock(f.ctx(2, s2), atomixlock.LockRequest{ID: 2, Timeout: -1})
	f.svc.Lock(f.ctx(3, s3), atomixlock.LockRequest{ID: 3, Timeout: -1})
	f.sink.Drain()

	f.sessions.Close(s2) // s2 goes inactive while still queued

	resp := f.svc.Unlock(f.ctx(10, s1), atomixlock.UnlockRequest{Index: 1, ID: 1})
	require.Equal(t, int64(10), resp.Index)

	events := f.sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s3, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 10, ID: 3, Acquired: true}, events[0].Response)
}

// Scenario F: snapshot/restore round-trip, then drive the restored
// instance through the rest of Scenario B.
func TestScenarioF_SnapshotRestore(t *testing.T) {
	f := newFixture(0)
	s1, s2, s3 := f.sessions.Open(), f.sessions.Open(), f.sessions.Open()

	f.svc.Lock(f.ctx(20, s1), atomixlock.LockRequest{ID: 1, Timeout: -1})
	f.sink.Drain()
	f.svc.Lock(f.ctx(21, s2), atomixlock.LockRequest{ID: 5, Timeout: -1})
	f.svc.Lock(f.ctx(22, s3), atomixlock.LockRequest{ID: 7, Timeout: -1})
	f.sink.Drain()

	var buf bytes.Buffer
	require.NoError(t, f.svc.Backup(&buf))

	host2 := refhost.NewManualHost(0)
	sessions2 := refhost.NewSessionTable() // fresh registry, see below
	sink2 := refhost.NewRecordingSink()
	svc2 := atomixlock.NewLockService("p0", host2, sessions2, sink2, logging.NewNopLogger())

	require.NoError(t, svc2.Restore(atomixlock.RestoreContext{Clock: host2}, &buf))

	// The restored registry must track the same session identities as
	// the original for promotion to behave the same way.
	sessions2.Reopen(s1)
	sessions2.Reopen(s2)
	sessions2.Reopen(s3)

	resp := svc2.Unlock(atomixlock.ApplyContext{Index: 23, Session: s1, Clock: host2}, atomixlock.UnlockRequest{Index: 20, ID: 1})
	require.Equal(t, int64(23), resp.Index)
	events := sink2.Drain()
	require.Len(t, events, 1)
	require.Equal(t, s2, events[0].Session)
	require.Equal(t, atomixlock.LockResponse{Index: 23, ID: 5, Acquired: true}, events[0].Response)
}
