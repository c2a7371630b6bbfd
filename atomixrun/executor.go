// Package atomixrun serializes application of the replicated lock state
// machine (atomixlock.LockService) through a single logical thread per
// partition, and converts a handler panic into an error rather than
// letting it escape -- the same guarantee the teacher package gave
// Redis lock operations (recover + convert in
// redissuorun.SuoLockXqt/safeRun), applied here to enforce spec section
// 5's "no two handlers run concurrently against the same state" rule.
package atomixrun

import (
	"io"
	"sync"

	"github.com/coderplay/atomix/atomixlock"
	"github.com/coderplay/atomix/internal/logging"
	"github.com/yyle88/erero"
	"go.uber.org/zap"
)

// Executor wraps one LockService and guarantees every call into it --
// command application, timer fire, session release, or
// snapshot/restore -- is serialized and panic-safe.
type Executor struct {
	mu     sync.Mutex
	svc    *atomixlock.LockService
	logger logging.Logger
}

// NewExecutor wraps svc. logger is used to trace applied lock and
// unlock commands, session events and recovered panics; pass
// logging.NewNopLogger() to silence it.
func NewExecutor(svc *atomixlock.LockService, logger logging.Logger) *Executor {
	return &Executor{svc: svc, logger: logger}
}

// ApplyLock applies a committed lock command.
func (e *Executor) ApplyLock(ctx atomixlock.ApplyContext, req atomixlock.LockRequest) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	LOG := e.logger.WithMeta(zap.Int64("index", ctx.Index), zap.String("session", string(ctx.Session)))
	LOG.DebugLog("apply lock", zap.Int32("id", req.ID))
	e.svc.Lock(ctx, req)
	return nil
}

// ApplyUnlock applies a committed unlock command.
func (e *Executor) ApplyUnlock(ctx atomixlock.ApplyContext, req atomixlock.UnlockRequest) (resp atomixlock.UnlockResponse, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	LOG := e.logger.WithMeta(zap.Int64("index", ctx.Index), zap.String("session", string(ctx.Session)))
	LOG.DebugLog("apply unlock", zap.Int32("id", req.ID))
	resp = e.svc.Unlock(ctx, req)
	return resp, nil
}

// ApplyIsLocked applies a committed isLocked query.
func (e *Executor) ApplyIsLocked(ctx atomixlock.ApplyContext, req atomixlock.IsLockedRequest) (resp atomixlock.IsLockedResponse, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	resp = e.svc.IsLocked(ctx, req)
	return resp, nil
}

// OnClose delivers a session-close lifecycle event.
func (e *Executor) OnClose(ctx atomixlock.SessionEventContext, session atomixlock.SessionID) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	e.logger.WithMeta(zap.String("session", string(session))).DebugLog("session closed")
	e.svc.ReleaseSession(ctx, session)
	return nil
}

// OnExpire delivers a session-expire lifecycle event. Identical
// semantics to OnClose (spec section 4.2).
func (e *Executor) OnExpire(ctx atomixlock.SessionEventContext, session atomixlock.SessionID) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	e.logger.WithMeta(zap.String("session", string(session))).DebugLog("session expired")
	e.svc.ReleaseSession(ctx, session)
	return nil
}

// Backup serializes the current state for log compaction.
func (e *Executor) Backup(w io.Writer) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	if err := e.svc.Backup(w); err != nil {
		return erero.Wro(err)
	}
	return nil
}

// Restore rebuilds state from a snapshot produced by Backup.
func (e *Executor) Restore(ctx atomixlock.RestoreContext, r io.Reader) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.recoverInto(&err)

	if err := e.svc.Restore(ctx, r); err != nil {
		return erero.Wro(err)
	}
	return nil
}

// recoverInto converts a panic inside a handler into *errp, mirroring
// the teacher's safeRun: a bug in one command must not take the whole
// replica down any harder than a returned error would.
func (e *Executor) recoverInto(errp *error) {
	if rec := recover(); rec != nil {
		switch x := rec.(type) {
		case error:
			*errp = erero.Wro(x)
		default:
			*errp = erero.Errorf("atomixrun: recovered from panic: %v", rec)
		}
		e.logger.ErrorLog("handler panicked", zap.Any("recovered", rec))
	}
}
