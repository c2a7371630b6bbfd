package refhost

import (
	"sync"

	"github.com/coderplay/atomix/atomixlock"
)

// OnLockEvent is one recorded delivery to EventSink.OnLock.
type OnLockEvent struct {
	Session  atomixlock.SessionID
	Response atomixlock.LockResponse
}

// RecordingSink is a reference atomixlock.EventSink that records every
// delivery in order, for tests to inspect. (The demo binary prints
// events through its own sink instead.)
type RecordingSink struct {
	mu     sync.Mutex
	events []OnLockEvent
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) OnLock(session atomixlock.SessionID, resp atomixlock.LockResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, OnLockEvent{Session: session, Response: resp})
}

// Events returns a snapshot copy of every event recorded so far.
func (s *RecordingSink) Events() []OnLockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OnLockEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Drain returns every recorded event and resets the recording.
func (s *RecordingSink) Drain() []OnLockEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}
