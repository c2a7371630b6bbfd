// Command atomixdemo drives a single in-process atomixlock.LockService
// against the real-time reference host, the way the teacher package's
// demo1x/demo2x commands drove a real Redis-backed lock. It has no
// replicated log behind it -- one process, one partition, one clock --
// so it is only a tour of the apply semantics, not a cluster.
package main

import (
	"fmt"
	"time"

	"github.com/coderplay/atomix/atomixlock"
	"github.com/coderplay/atomix/atomixrun"
	"github.com/coderplay/atomix/internal/logging"
	"github.com/coderplay/atomix/internal/refhost"
	"github.com/yyle88/rese"
	"go.uber.org/zap"
)

// printSink logs every lock grant/deny to stdout as it happens, instead
// of buffering it like refhost.RecordingSink does for tests.
type printSink struct{}

func (printSink) OnLock(session atomixlock.SessionID, resp atomixlock.LockResponse) {
	if resp.Acquired {
		fmt.Printf("session %s acquired lock id=%d at index=%d\n", session, resp.ID, resp.Index)
	} else {
		fmt.Printf("session %s timed out waiting for lock id=%d at index=%d\n", session, resp.ID, resp.Index)
	}
}

func main() {
	host := refhost.NewRealHost()
	sessions := refhost.NewSessionTable()
	logger := logging.NewZapLogger(rese.P1(zap.NewDevelopment()))
	svc := atomixlock.NewLockService("demo-partition", host, sessions, printSink{}, logger)
	exec := atomixrun.NewExecutor(svc, logger)

	holder := sessions.Open()
	waiter := sessions.Open()

	fmt.Println("holder acquires the lock, no contention")
	if err := exec.ApplyLock(applyCtx(1, holder, host), atomixlock.LockRequest{ID: 1, Timeout: -1}); err != nil {
		panic(err)
	}

	fmt.Println("waiter queues behind it with a 2s timeout")
	if err := exec.ApplyLock(applyCtx(2, waiter, host), atomixlock.LockRequest{ID: 2, Timeout: 2 * time.Second}); err != nil {
		panic(err)
	}

	fmt.Println("holder runs its protected section for 500ms, then releases")
	time.Sleep(500 * time.Millisecond)
	if _, err := exec.ApplyUnlock(applyCtx(3, holder, host), atomixlock.UnlockRequest{Index: 1, ID: 1}); err != nil {
		panic(err)
	}

	// The release promotes the waiter synchronously, but OnLock still
	// runs on this goroutine's call stack; give stdout a moment either
	// way so the ordering reads naturally when this is piped.
	time.Sleep(100 * time.Millisecond)

	fmt.Println("session closes cleanly, releasing anything it still held")
	if err := exec.OnClose(atomixlock.SessionEventContext{Index: 4}, waiter); err != nil {
		panic(err)
	}
}

func applyCtx(index int64, session atomixlock.SessionID, clock atomixlock.Clock) atomixlock.ApplyContext {
	return atomixlock.ApplyContext{Index: index, Session: session, Clock: clock}
}
