package atomixlock

import "go.uber.org/zap"

// ReleaseSession implements the identical cleanup semantics shared by
// onClose(session) and onExpire(session) (spec section 4.2): every
// queued entry for the session is cancelled, and if the session was the
// current holder, the lock is released and the promotion loop runs.
//
// ctx.Index is the log index of the session-lifecycle event itself,
// used as the response index for any waiter promoted as a result.
func (s *LockService) ReleaseSession(ctx SessionEventContext, session SessionID) {
	removed := s.queue.removeSession(session)
	for _, w := range removed {
		s.cancelTimer(w.Index)
	}

	if s.holder != nil && s.holder.Session == session {
		s.logger.WithMeta(
			zap.String("partition", s.partition),
			zap.String("session", string(session)),
		).DebugLog("holder session released, promoting next waiter")
		s.holder = nil
		s.promote(ctx.Index)
	}
}
