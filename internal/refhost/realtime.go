package refhost

import (
	"time"

	"github.com/coderplay/atomix/atomixlock"
)

// RealHost is a wall-clock-driven Clock+Scheduler pair for the demo
// binary. It is a standalone reference implementation, not a consensus
// transport -- the actual replicated log/transport is out of scope for
// this module (spec section 1).
type RealHost struct{}

func NewRealHost() *RealHost {
	return &RealHost{}
}

func (h *RealHost) NowMillis() int64 {
	return time.Now().UnixMilli()
}

func (h *RealHost) Schedule(delay time.Duration, fn func()) atomixlock.TimerHandle {
	return time.AfterFunc(delay, fn)
}

func (h *RealHost) Cancel(handle atomixlock.TimerHandle) {
	if t, ok := handle.(*time.Timer); ok {
		t.Stop()
	}
}
