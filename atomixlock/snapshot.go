package atomixlock

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"

	"github.com/yyle88/erero"
)

// ErrMalformedSnapshot is the sole runtime fault surface of this package
// (spec section 7): a restore() call that cannot parse its input. Any
// caller wrapping the error from Restore can test it with errors.Is.
var ErrMalformedSnapshot = errors.New("atomixlock: malformed snapshot")

// wireSnapshot is the on-the-wire shape of AtomicLockSnapshot (spec
// section 4.5). Timers are never part of it -- they are derived state,
// rebuilt by Restore.
type wireSnapshot struct {
	Lock  *LockCall
	Queue []LockCall
}

// Backup serializes the current holder and queue, in FIFO order, to w.
// Timers are intentionally not included.
func (s *LockService) Backup(w io.Writer) error {
	snap := wireSnapshot{
		Queue: make([]LockCall, 0, s.queue.len()),
	}
	if s.holder != nil {
		call := s.holder.toLockCall()
		snap.Lock = &call
	}
	for _, h := range s.queue.entries() {
		snap.Queue = append(snap.Queue, h.toLockCall())
	}

	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return erero.Wro(err)
	}
	return nil
}

// Restore rebuilds holder and queue from a snapshot previously produced
// by Backup, cancels and clears every existing timer, then reschedules
// an expiration timer for each restored queue entry that has a deadline
// (spec section 4.5). A deadline that has already passed still schedules
// with delay zero rather than firing inline during restore.
//
// Restore fails fast with ErrMalformedSnapshot if the input cannot be
// parsed -- the only fatal condition this package exposes (spec section
// 7); the host is expected to abort the replica or re-fetch the
// snapshot rather than attempt recovery.
func (s *LockService) Restore(ctx RestoreContext, r io.Reader) error {
	var snap wireSnapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedSnapshot, erero.Wro(err))
	}

	for index := range s.timers {
		s.cancelTimer(index)
	}
	s.timers = make(map[int64]TimerHandle)

	if snap.Lock != nil {
		s.holder = fromLockCall(*snap.Lock)
	} else {
		s.holder = nil
	}

	s.queue.reset()
	now := ctx.Clock.NowMillis()
	for _, call := range snap.Queue {
		h := fromLockCall(call)
		s.queue.pushBack(h)
		if h.Expire > 0 {
			delayMs := h.Expire - now
			if delayMs < 0 {
				delayMs = 0
			}
			s.armTimer(h, msToDuration(delayMs))
		}
	}
	return nil
}
