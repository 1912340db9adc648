package analysis

import (
	"container/list"
	"sync"
)

// DefaultTrackedSessions bounds how many sessions a Tracker remembers.
const DefaultTrackedSessions = 1024

// Tracker hands out selection generations per session. A completion whose
// generation is no longer the latest for its session is stale: a newer
// selection has been made since the request started.
//
// Sessions are kept in least-recently-used order and the oldest is forgotten
// once more than capacity are tracked. A session that starts again after
// being forgotten continues above every generation handed out so far to a
// forgotten session, so its old completions still read as stale.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*list.Element
	lru      *list.List
	floor    uint64
}

type sessionGen struct {
	session    string
	generation uint64
}

// NewTracker creates an empty tracker holding DefaultTrackedSessions.
func NewTracker() *Tracker {
	return NewTrackerWithCapacity(DefaultTrackedSessions)
}

// NewTrackerWithCapacity creates an empty tracker remembering at most
// capacity sessions. Values below 1 are treated as 1.
func NewTrackerWithCapacity(capacity int) *Tracker {
	if capacity < 1 {
		capacity = 1
	}
	return &Tracker{
		capacity: capacity,
		sessions: make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Begin records a new selection for session and returns its generation.
func (t *Tracker) Begin(session string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if el, ok := t.sessions[session]; ok {
		sg := el.Value.(*sessionGen)
		sg.generation++
		t.lru.MoveToFront(el)
		return sg.generation
	}

	sg := &sessionGen{session: session, generation: t.floor + 1}
	t.sessions[session] = t.lru.PushFront(sg)
	for t.lru.Len() > t.capacity {
		oldest := t.lru.Back()
		evicted := t.lru.Remove(oldest).(*sessionGen)
		delete(t.sessions, evicted.session)
		if evicted.generation > t.floor {
			t.floor = evicted.generation
		}
	}
	return sg.generation
}

// Current reports whether generation is still the latest for session. A
// forgotten session has no newer selection on record and reads as current.
func (t *Tracker) Current(session string, generation uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.sessions[session]
	if !ok {
		return true
	}
	return el.Value.(*sessionGen).generation == generation
}

// Len returns the number of sessions currently tracked.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}
