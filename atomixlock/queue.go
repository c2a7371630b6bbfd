package atomixlock

import "container/list"

// waiterQueue is the FIFO of queued LockHolder entries. Iteration order
// is always insertion (= commit index) order -- required for the
// fairness invariant in spec section 8. The index map is a lookup
// accelerator only; it never drives iteration order, so it does not
// violate the "no hash-based container for ordering" rule in spec
// section 9.
type waiterQueue struct {
	order *list.List
	byIdx map[int64]*list.Element
}

func newWaiterQueue() *waiterQueue {
	return &waiterQueue{
		order: list.New(),
		byIdx: make(map[int64]*list.Element),
	}
}

func (q *waiterQueue) pushBack(h *LockHolder) {
	el := q.order.PushBack(h)
	q.byIdx[h.Index] = el
}

// popFront removes and returns the head of the queue, or (nil, false) if
// the queue is empty.
func (q *waiterQueue) popFront() (*LockHolder, bool) {
	front := q.order.Front()
	if front == nil {
		return nil, false
	}
	q.order.Remove(front)
	h := front.Value.(*LockHolder)
	delete(q.byIdx, h.Index)
	return h, true
}

// remove removes the entry with the given index, wherever it sits in the
// queue, returning (nil, false) if it is not present (idempotent callers
// rely on this, e.g. a timer fire racing a cancel).
func (q *waiterQueue) remove(index int64) (*LockHolder, bool) {
	el, ok := q.byIdx[index]
	if !ok {
		return nil, false
	}
	q.order.Remove(el)
	delete(q.byIdx, index)
	return el.Value.(*LockHolder), true
}

// removeSession removes every entry whose session matches, in FIFO
// order, returning the removed entries.
func (q *waiterQueue) removeSession(session SessionID) []*LockHolder {
	var removed []*LockHolder
	for el := q.order.Front(); el != nil; {
		next := el.Next()
		h := el.Value.(*LockHolder)
		if h.Session == session {
			q.order.Remove(el)
			delete(q.byIdx, h.Index)
			removed = append(removed, h)
		}
		el = next
	}
	return removed
}

// removeMatching removes every entry whose (session, id) matches,
// letting a client rescind a pending lock request (spec section 4.1).
func (q *waiterQueue) removeMatching(session SessionID, id int32) []*LockHolder {
	var removed []*LockHolder
	for el := q.order.Front(); el != nil; {
		next := el.Next()
		h := el.Value.(*LockHolder)
		if h.Session == session && h.ID == id {
			q.order.Remove(el)
			delete(q.byIdx, h.Index)
			removed = append(removed, h)
		}
		el = next
	}
	return removed
}

// entries returns all queued holders in FIFO order, used by Backup.
func (q *waiterQueue) entries() []*LockHolder {
	out := make([]*LockHolder, 0, q.order.Len())
	for el := q.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*LockHolder))
	}
	return out
}

func (q *waiterQueue) len() int {
	return q.order.Len()
}

// reset clears the queue, used by Restore before repopulating it.
func (q *waiterQueue) reset() {
	q.order.Init()
	q.byIdx = make(map[int64]*list.Element)
}
