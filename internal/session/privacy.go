package session

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
)

// PrivacyFilter applies masking and path-based filtering to session
// snapshots before they cross the wire. The zero value is a no-op filter.
// This is not required by spec.md (working_dir is explicitly part of the
// wire schema), but the daemon supervisor may enable it for operators who
// don't want absolute paths leaving the socket — adapted from the
// teacher's session.PrivacyFilter, itself operating on SessionState; here
// it operates on the wire SessionSnapshot instead, since masking happens at
// serialization time rather than on the stored Session.
type PrivacyFilter struct {
	MaskWorkingDirs bool
	MaskSessionIDs  bool
	AllowedPaths    []string
	BlockedPaths    []string
}

// IsAllowed reports whether a snapshot with the given working directory
// should be sent to subscribers. An empty working directory is always
// allowed (the session hasn't resolved its path yet).
func (f *PrivacyFilter) IsAllowed(workingDir string) bool {
	if workingDir == "" {
		return true
	}

	if len(f.AllowedPaths) > 0 {
		allowed := false
		for _, pattern := range f.AllowedPaths {
			if matchPathOrParent(pattern, workingDir) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	for _, pattern := range f.BlockedPaths {
		if matchPathOrParent(pattern, workingDir) {
			return false
		}
	}

	return true
}

// matchPathOrParent checks if pattern matches path or any of its parent
// directories, so a pattern like "/home/user/*" matches deeply nested paths
// such as "/home/user/work/project-a" via its parent "/home/user/work".
func matchPathOrParent(pattern, path string) bool {
	for p := path; p != "." && p != "" && p != filepath.Dir(p); p = filepath.Dir(p) {
		if matched, _ := filepath.Match(pattern, p); matched {
			return true
		}
	}
	return false
}

// Apply returns a copy of the snapshot with sensitive fields masked
// according to the filter configuration.
func (f *PrivacyFilter) Apply(snap SessionSnapshot) SessionSnapshot {
	if f.MaskWorkingDirs && snap.WorkingDir != "" {
		snap.WorkingDir = filepath.Base(snap.WorkingDir)
	}
	if f.MaskSessionIDs && snap.SessionID != "" {
		snap.SessionID = shortHash(snap.SessionID)
	}
	return snap
}

// FilterList returns a new slice containing only the allowed snapshots,
// with masking applied to each.
func (f *PrivacyFilter) FilterList(snapshots []SessionSnapshot) []SessionSnapshot {
	result := make([]SessionSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if !f.IsAllowed(snap.WorkingDir) {
			continue
		}
		result = append(result, f.Apply(snap))
	}
	return result
}

// IsNoop reports whether the filter does nothing.
func (f *PrivacyFilter) IsNoop() bool {
	return !f.MaskWorkingDirs && !f.MaskSessionIDs &&
		len(f.AllowedPaths) == 0 && len(f.BlockedPaths) == 0
}

// shortHash returns a truncated SHA-256 hex digest for an opaque identifier.
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:6])
}
