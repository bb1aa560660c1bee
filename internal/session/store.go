package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/bus"
)

// ErrSessionExists is returned by Create when the session ID already maps to
// a session.
var ErrSessionExists = errors.New("session already exists")

// Store is a concurrency-safe facade over the session map plus a broadcast
// handle. Readers may run concurrently; writers are serialized by mu.
// Critical sections hold the lock only for the duration of a single
// operation — broadcasts are always issued after the lock is released.
type Store struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	bus               *bus.Bus
	maxClosedSessions int
}

// NewStore constructs an empty Store. maxClosedSessions bounds how many
// Closed sessions are retained before the oldest-closed one is evicted; a
// value <= 0 disables eviction.
func NewStore(b *bus.Bus, maxClosedSessions int) *Store {
	return &Store{
		sessions:          make(map[string]*Session),
		bus:               b,
		maxClosedSessions: maxClosedSessions,
	}
}

// UpsertAndSetStatus performs an atomic get-or-create followed by a status
// write. If the session exists, working_dir is only overwritten when the
// caller passed a non-empty path. Broadcasts exactly once when the session
// was just created or its status changed; a same-status write to an
// existing session (see SetStatus's early return) does not broadcast, even
// if it changed working_dir.
func (st *Store) UpsertAndSetStatus(id string, agentType AgentType, workingDir string, status Status) *Session {
	st.mu.Lock()
	sess, existed := st.sessions[id]
	if !existed {
		sess = NewSession(id, agentType, workingDir)
		st.evictIfNeededLocked()
		st.sessions[id] = sess
	} else if workingDir != "" {
		sess.WorkingDir = workingDir
	}
	changed := sess.SetStatus(status)
	snap := sess.Snapshot(time.Now())
	clone := sess.Clone()
	st.mu.Unlock()

	if changed || !existed {
		st.broadcastUpdate(snap)
	}
	return clone
}

// Create strictly creates a new session, failing if id already maps.
func (st *Store) Create(id string, agentType AgentType, workingDir string) (*Session, error) {
	st.mu.Lock()
	if _, ok := st.sessions[id]; ok {
		st.mu.Unlock()
		return nil, ErrSessionExists
	}
	sess := NewSession(id, agentType, workingDir)
	st.evictIfNeededLocked()
	st.sessions[id] = sess
	snap := sess.Snapshot(time.Now())
	clone := sess.Clone()
	st.mu.Unlock()

	st.broadcastUpdate(snap)
	return clone, nil
}

// UpdateStatus applies a status write to an existing session, returning nil
// if the session is missing.
func (st *Store) UpdateStatus(id string, status Status) *Session {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return nil
	}
	changed := sess.SetStatus(status)
	snap := sess.Snapshot(time.Now())
	clone := sess.Clone()
	st.mu.Unlock()

	if changed {
		st.broadcastUpdate(snap)
	}
	return clone
}

// FieldUpdate names the optional fields update_fields may change.
type FieldUpdate struct {
	Status     *Status
	WorkingDir *string
	Priority   *uint
}

// UpdateFields applies a partial update, broadcasting once if anything
// observable changed.
func (st *Store) UpdateFields(id string, upd FieldUpdate) *Session {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return nil
	}

	changed := false
	if upd.Status != nil {
		if sess.SetStatus(*upd.Status) {
			changed = true
		}
	}
	if upd.WorkingDir != nil && *upd.WorkingDir != sess.WorkingDir {
		sess.WorkingDir = *upd.WorkingDir
		changed = true
	}
	if upd.Priority != nil && *upd.Priority != sess.Priority {
		sess.Priority = *upd.Priority
		changed = true
	}
	snap := sess.Snapshot(time.Now())
	clone := sess.Clone()
	st.mu.Unlock()

	if changed {
		st.broadcastUpdate(snap)
	}
	return clone
}

// Remove transitions the session to Closed and returns its pre-delete
// snapshot view (captured after the transition, per spec.md's "returns
// pre-delete view" — i.e. the view as of the moment of removal).
func (st *Store) Remove(id string) (SessionSnapshot, bool) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return SessionSnapshot{}, false
	}
	sess.SetStatus(Closed)
	snap := sess.Snapshot(time.Now())
	st.mu.Unlock()

	st.broadcastUpdate(snap)
	return snap, true
}

// Get returns a clone of the session, or nil if missing.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// List returns all sessions as clones, sorted by (priority desc,
// last_activity desc).
func (st *Store) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		result = append(result, sess.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority > result[j].Priority
		}
		return result[i].LastActivity.After(result[j].LastActivity)
	})
	return result
}

// ActiveCount returns the number of non-Closed sessions.
func (st *Store) ActiveCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, sess := range st.sessions {
		if !sess.Closed {
			n++
		}
	}
	return n
}

// ClosedCount returns the number of Closed sessions.
func (st *Store) ClosedCount() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	n := 0
	for _, sess := range st.sessions {
		if sess.Closed {
			n++
		}
	}
	return n
}

// Subscribe creates a bus subscription, atomically incrementing the
// subscriber count; the returned Subscription decrements it on Close.
func (st *Store) Subscribe() *bus.Subscription {
	return st.bus.Subscribe()
}

func (st *Store) broadcastUpdate(snap SessionSnapshot) {
	st.bus.Publish(bus.SessionUpdate(snap))
}

// evictIfNeededLocked evicts the Closed session with the oldest closedAt if
// the map is already at maxClosedSessions capacity. Caller must hold mu for
// writing. Active sessions are never evicted by this policy.
func (st *Store) evictIfNeededLocked() {
	if st.maxClosedSessions <= 0 {
		return
	}

	var oldestID string
	oldestAt := time.Time{}
	count := 0
	for id, sess := range st.sessions {
		if !sess.Closed {
			continue
		}
		count++
		if oldestID == "" || sess.ClosedAt().Before(oldestAt) ||
			(sess.ClosedAt().Equal(oldestAt) && id < oldestID) {
			oldestID = id
			oldestAt = sess.ClosedAt()
		}
	}

	if count >= st.maxClosedSessions && oldestID != "" {
		delete(st.sessions, oldestID)
	}
}
