// Package refhost provides reference host-runtime implementations of
// the atomixlock.Clock, atomixlock.Scheduler, atomixlock.SessionRegistry
// and atomixlock.EventSink contracts. ManualHost is a fully
// deterministic, manually-advanced clock and scheduler used to drive the
// state machine through the exact scenarios in spec section 8; RealHost
// is a wall-clock-driven pair used by the demo binary.
package refhost

import (
	"container/heap"
	"sync"
	"time"

	"github.com/coderplay/atomix/atomixlock"
)

// pendingTimer is one entry in ManualHost's fire heap. seq breaks ties
// between timers with identical fireAt so fire order is always
// deterministic regardless of heap internals.
type pendingTimer struct {
	fireAt    int64
	seq       uint64
	fn        func()
	cancelled bool
	heapIndex int
}

type timerHeap []*pendingTimer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*pendingTimer)
	t.heapIndex = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// ManualHost is a Clock+Scheduler pair whose time only moves when
// Advance is called. Every due timer fires synchronously on the
// caller's goroutine inside Advance, in deterministic (fireAt, seq)
// order -- this is what lets tests reproduce spec section 8's scenarios
// byte-for-byte.
type ManualHost struct {
	mu   sync.Mutex
	now  int64
	seq  uint64
	heap timerHeap
}

// NewManualHost starts the replicated clock at startMs.
func NewManualHost(startMs int64) *ManualHost {
	return &ManualHost{now: startMs}
}

func (h *ManualHost) NowMillis() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Set pins the clock to an absolute reading, for tests that want to
// state a specific replicated time rather than advance by a delta.
func (h *ManualHost) Set(ms int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = ms
}

func (h *ManualHost) Schedule(delay time.Duration, fn func()) atomixlock.TimerHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	t := &pendingTimer{
		fireAt: h.now + delay.Milliseconds(),
		seq:    h.seq,
		fn:     fn,
	}
	heap.Push(&h.heap, t)
	return t
}

func (h *ManualHost) Cancel(handle atomixlock.TimerHandle) {
	t, ok := handle.(*pendingTimer)
	if !ok {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	t.cancelled = true
}

// Advance moves the replicated clock forward by d and fires, in order,
// every timer whose deadline now falls at or before the new reading.
func (h *ManualHost) Advance(d time.Duration) {
	h.mu.Lock()
	h.now += d.Milliseconds()
	now := h.now

	var due []*pendingTimer
	for h.heap.Len() > 0 && h.heap[0].fireAt <= now {
		t := heap.Pop(&h.heap).(*pendingTimer)
		if !t.cancelled {
			due = append(due, t)
		}
	}
	h.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
