package server

import (
	"sort"
	"sync"
)

// PresenceTracker maps online users to their live connection. It is
// injected into the ChatServer so a shared backing store could replace
// the in-memory implementation in a multi-process deployment.
//
// Presence is advisory: state lives for the process lifetime and resets
// to empty on restart, which is self-healing as clients reconnect.
type PresenceTracker interface {
	// Set records userId as online on connId. The most recent
	// authentication wins: any previous entry for the same connection
	// is replaced.
	Set(userId int, connId string)
	// Remove drops the entry held by connId, if any, and reports
	// whether one was removed. Lookup is by connection because the
	// user behind a dropped connection may be unknown.
	Remove(connId string) bool
	// Snapshot returns the ids of currently online users in ascending
	// order.
	Snapshot() []int
}

type memPresenceTracker struct {
	mu     sync.RWMutex
	online map[int]string
}

func NewPresenceTracker() PresenceTracker {
	return &memPresenceTracker{
		online: make(map[int]string),
	}
}

func (p *memPresenceTracker) Set(userId int, connId string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for uid, cid := range p.online {
		if cid == connId {
			delete(p.online, uid)
		}
	}
	p.online[userId] = connId
}

func (p *memPresenceTracker) Remove(connId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for uid, cid := range p.online {
		if cid == connId {
			delete(p.online, uid)
			return true
		}
	}
	return false
}

func (p *memPresenceTracker) Snapshot() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int, 0, len(p.online))
	for uid := range p.online {
		ids = append(ids, uid)
	}
	sort.Ints(ids)
	return ids
}
