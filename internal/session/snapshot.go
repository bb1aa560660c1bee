package session

import "time"

// StatusChange is one history entry as it appears on the wire: the
// monotonic transition instant has already been converted to an
// approximate Unix wall-clock second by the time it reaches here.
type StatusChange struct {
	Status  Status `json:"status"`
	AtSecs  int64  `json:"at_unix_seconds"`
}

// SessionSnapshot is the serializable projection of a Session sent on the
// wire. Conversion from the in-memory Session happens at send time so
// monotonic clocks never cross the wire — see newSnapshot.
type SessionSnapshot struct {
	SessionID      string         `json:"session_id"`
	AgentType      string         `json:"agent_type"`
	Status         string         `json:"status"`
	WorkingDir     string         `json:"working_dir,omitempty"`
	ElapsedSeconds int64          `json:"elapsed_seconds"`
	IdleSeconds    int64          `json:"idle_seconds"`
	History        []StatusChange `json:"history"`
	Closed         bool           `json:"closed"`
	Priority       uint           `json:"priority"`

	// ClosedAtSeconds is a diagnostic-only field (seconds since daemon
	// start). Snapshot never sets it, so it is omitted from every snapshot;
	// DUMP reports this figure for Closed sessions in
	// wire.DumpSession.ClosedAtSeconds instead.
	ClosedAtSeconds int64 `json:"closed_at_seconds,omitempty"`
}

// Snapshot converts a Session into its wire projection. now is captured once
// by the caller (typically the Store, immediately before calling Snapshot
// for one or more sessions) so that a batch of snapshots built from one
// query shares a consistent "now" the way the Rust original's
// `From<&Session> for SessionSnapshot` captures `Instant::now()` once per
// conversion.
func (s *Session) Snapshot(now time.Time) SessionSnapshot {
	history := make([]StatusChange, 0, len(s.History))
	for _, t := range s.History {
		// The transition happened `elapsed` ago relative to now (both
		// instants carry Go's monotonic reading, so this subtraction never
		// touches wall-clock skew). Project that elapsed duration back from
		// wall-clock "now" to approximate the wall-clock second the
		// transition occurred at, without ever serializing a monotonic
		// value directly.
		elapsed := now.Sub(t.Timestamp)
		wallClock := now.Add(-elapsed)
		history = append(history, StatusChange{
			Status: t.To,
			AtSecs: wallClock.Unix(),
		})
	}

	return SessionSnapshot{
		SessionID:      s.SessionID,
		AgentType:      s.AgentType.String(),
		Status:         s.Status.String(),
		WorkingDir:     s.WorkingDir,
		ElapsedSeconds: int64(now.Sub(s.Since).Seconds()),
		IdleSeconds:    int64(now.Sub(s.LastActivity).Seconds()),
		History:        history,
		Closed:         s.Closed,
		Priority:       s.Priority,
	}
}
