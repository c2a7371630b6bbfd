package refhost

import (
	"sync"

	"github.com/coderplay/atomix/atomixlock"
	"github.com/coderplay/atomix/internal/utils"
)

// SessionTable is a reference atomixlock.SessionRegistry backed by a
// mutex-guarded map. Open generates a fresh session id the way the
// teacher package generated per-acquisition session UUIDs.
type SessionTable struct {
	mu     sync.RWMutex
	active map[atomixlock.SessionID]bool
}

func NewSessionTable() *SessionTable {
	return &SessionTable{active: make(map[atomixlock.SessionID]bool)}
}

// Open creates and activates a new session, returning its id.
func (t *SessionTable) Open() atomixlock.SessionID {
	id := atomixlock.SessionID(utils.NewUUID())
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[id] = true
	return id
}

// Reopen activates a specific, already-known session id rather than
// minting a fresh one -- used when rebuilding a session registry
// alongside a restored snapshot, where session identities must match
// what the snapshot's LockHolder entries reference.
func (t *SessionTable) Reopen(id atomixlock.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[id] = true
}

// Close marks a session inactive, as the host does on client
// disconnect (onClose).
func (t *SessionTable) Close(id atomixlock.SessionID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, id)
}

// Expire marks a session inactive, as the host does on lease timeout
// (onExpire). Semantically distinct trigger, identical bookkeeping.
func (t *SessionTable) Expire(id atomixlock.SessionID) {
	t.Close(id)
}

func (t *SessionTable) Active(id atomixlock.SessionID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active[id]
}
