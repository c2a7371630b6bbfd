package atomixlock

// LockHolder is one record per active acquisition or waiting request.
// Expire is an absolute deadline on the replicated wall clock in
// milliseconds since epoch; zero means no deadline.
type LockHolder struct {
	ID      int32
	Index   int64
	Session SessionID
	Expire  int64
}

func newLockHolder(id int32, index int64, session SessionID, expire int64) *LockHolder {
	return &LockHolder{ID: id, Index: index, Session: session, Expire: expire}
}

func (h *LockHolder) toLockCall() LockCall {
	return LockCall{ID: h.ID, Index: h.Index, Session: h.Session, Expire: h.Expire}
}

func fromLockCall(call LockCall) *LockHolder {
	return &LockHolder{ID: call.ID, Index: call.Index, Session: call.Session, Expire: call.Expire}
}
