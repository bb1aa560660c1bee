package session

import "time"

// AgentType enumerates the kind of coding agent a Session belongs to. Only
// one value exists in v1; the type exists so the wire schema has somewhere
// to grow without breaking the Status closed-set pattern.
type AgentType int

const (
	ClaudeCode AgentType = iota
)

func (a AgentType) String() string {
	switch a {
	case ClaudeCode:
		return "claude-code"
	default:
		return "unknown"
	}
}

// StatusTransition records one status change in a Session's history.
type StatusTransition struct {
	Timestamp          time.Time
	From               Status
	To                 Status
	DurationInPrevious time.Duration
}

// Session is one agent conversation/workspace tracked by the daemon. since
// and lastActivity are monotonic instants (time.Now() carries a monotonic
// reading in Go); they are never serialized directly — see SessionSnapshot.
type Session struct {
	SessionID    string
	AgentType    AgentType
	Status       Status
	WorkingDir   string // empty means unknown
	Since        time.Time
	LastActivity time.Time
	History      []StatusTransition
	Closed       bool
	Priority     uint

	// closedAt is the monotonic instant the session last became Closed. It
	// backs the Store's oldest-closed-first eviction policy and is never
	// required on the wire (DUMP may surface it as a diagnostic).
	closedAt time.Time
}

// NewSession creates a fresh session in the Working status at the current
// instant. Callers that want a different initial status should call
// SetStatus immediately after construction.
func NewSession(id string, agentType AgentType, workingDir string) *Session {
	now := time.Now()
	return &Session{
		SessionID:    id,
		AgentType:    agentType,
		Status:       Working,
		WorkingDir:   workingDir,
		Since:        now,
		LastActivity: now,
	}
}

// Clone returns a deep copy, duplicating the history slice so the copy can
// be retained and mutated independently of the original.
func (s *Session) Clone() *Session {
	c := *s
	if len(s.History) > 0 {
		c.History = make([]StatusTransition, len(s.History))
		copy(c.History, s.History)
	}
	return &c
}

// SetStatus applies the invariant-preserving discipline from the Session
// Store spec: a same-status write resets the timers but never appends to
// history; a different-status write appends exactly one transition, updates
// status, resets since, and updates last_activity. Returns true if the
// status actually changed (callers use this to decide whether to
// broadcast — see the "same-status write does not broadcast" design
// decision).
func (s *Session) SetStatus(new Status) (changed bool) {
	now := time.Now()
	s.LastActivity = now

	if new == s.Status {
		s.Since = now
		return false
	}

	s.History = append(s.History, StatusTransition{
		Timestamp:          now,
		From:               s.Status,
		To:                 new,
		DurationInPrevious: now.Sub(s.Since),
	})
	s.Status = new
	s.Since = now
	s.Closed = new == Closed
	if s.Closed {
		s.closedAt = now
	}
	return true
}

// IsInactive reports the derived "inactive" classification: a non-Closed
// session whose last activity is older than threshold. Inactive is never a
// Status value; it is only ever computed at query/sort time.
func (s *Session) IsInactive(threshold time.Duration) bool {
	return !s.Closed && time.Since(s.LastActivity) > threshold
}

// ClosedAt returns the instant this session last transitioned to Closed. The
// zero time is returned if the session has never been Closed.
func (s *Session) ClosedAt() time.Time {
	return s.closedAt
}
