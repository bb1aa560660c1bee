package session

import "testing"

func TestPrivacyFilterIsNoopByDefault(t *testing.T) {
	var f PrivacyFilter
	if !f.IsNoop() {
		t.Fatalf("expected zero-value filter to be a no-op")
	}
}

func TestMaskWorkingDirsKeepsOnlyBase(t *testing.T) {
	f := PrivacyFilter{MaskWorkingDirs: true}
	snap := SessionSnapshot{WorkingDir: "/home/user/secret-project"}
	masked := f.Apply(snap)
	if masked.WorkingDir != "secret-project" {
		t.Fatalf("expected base path only, got %q", masked.WorkingDir)
	}
}

func TestMaskSessionIDsProducesStableShortHash(t *testing.T) {
	f := PrivacyFilter{MaskSessionIDs: true}
	snap := SessionSnapshot{SessionID: "550e8400-e29b-41d4-a716-446655440000"}
	first := f.Apply(snap).SessionID
	second := f.Apply(snap).SessionID
	if first != second {
		t.Fatalf("expected deterministic hash, got %q then %q", first, second)
	}
	if first == snap.SessionID {
		t.Fatalf("expected session id to be masked")
	}
	if len(first) != 12 {
		t.Fatalf("expected 12 hex chars (6 bytes), got %d: %q", len(first), first)
	}
}

func TestAllowedPathsRestrictsToMatchingPrefix(t *testing.T) {
	f := PrivacyFilter{AllowedPaths: []string{"/home/user/work/*"}}
	if !f.IsAllowed("/home/user/work/project-a") {
		t.Fatalf("expected nested path under allowed prefix to be allowed")
	}
	if f.IsAllowed("/home/user/personal/project-b") {
		t.Fatalf("expected path outside allowed prefix to be blocked")
	}
}

func TestBlockedPathsOverridesAllowed(t *testing.T) {
	f := PrivacyFilter{
		AllowedPaths: []string{"/home/user/*"},
		BlockedPaths: []string{"/home/user/secret/*"},
	}
	if f.IsAllowed("/home/user/secret/project") {
		t.Fatalf("expected blocked path to be disallowed even though allowed matches")
	}
}

func TestEmptyWorkingDirAlwaysAllowed(t *testing.T) {
	f := PrivacyFilter{AllowedPaths: []string{"/only/this"}}
	if !f.IsAllowed("") {
		t.Fatalf("expected empty working dir to always be allowed")
	}
}

func TestFilterListDropsDisallowedAndMasksSurvivors(t *testing.T) {
	f := PrivacyFilter{
		MaskWorkingDirs: true,
		AllowedPaths:    []string{"/home/user/work/*"},
	}
	snapshots := []SessionSnapshot{
		{SessionID: "a", WorkingDir: "/home/user/work/proj"},
		{SessionID: "b", WorkingDir: "/home/other/proj"},
	}
	result := f.FilterList(snapshots)
	if len(result) != 1 {
		t.Fatalf("expected 1 surviving snapshot, got %d", len(result))
	}
	if result[0].SessionID != "a" {
		t.Fatalf("expected snapshot a to survive, got %q", result[0].SessionID)
	}
	if result[0].WorkingDir != "proj" {
		t.Fatalf("expected masked working dir, got %q", result[0].WorkingDir)
	}
}
