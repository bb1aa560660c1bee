package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/bus"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/daemonconfig"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/ipc"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/session"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/usage"
)

func TestRunHookMalformedJSONProducesAdvisoryAndNoPanic(t *testing.T) {
	var out bytes.Buffer
	runHook(&globalFlags{}, "working", strings.NewReader("not json"), &out)
	if !strings.Contains(out.String(), "advisory") {
		t.Fatalf("expected an advisory message, got %q", out.String())
	}
}

func TestRunHookMissingSessionIDProducesAdvisory(t *testing.T) {
	var out bytes.Buffer
	runHook(&globalFlags{}, "working", strings.NewReader(`{"cwd":"/tmp"}`), &out)
	if !strings.Contains(out.String(), "session_id") {
		t.Fatalf("expected a missing-session_id advisory, got %q", out.String())
	}
}

func TestRunHookSucceedsAgainstLiveDaemon(t *testing.T) {
	b := bus.New(8)
	store := session.NewStore(b, 500)
	fetcher := usage.NewWithOptions(b, time.Hour, usage.DefaultFetchFunc)
	socketPath := filepath.Join(t.TempDir(), "hook.sock")

	srv := ipc.New(store, b, fetcher, socketPath, nil)
	if err := srv.Bind(); err != nil {
		t.Fatalf("bind: %v", err)
	}
	defer srv.Close()
	shutdown := make(chan struct{})
	defer close(shutdown)
	go srv.Serve(shutdown)

	flags := &globalFlags{socketPath: socketPath}
	var out bytes.Buffer
	runHook(flags, "working", strings.NewReader(`{"session_id":"abc","cwd":"/tmp/project"}`), &out)

	if out.Len() != 0 {
		t.Fatalf("expected no advisory output on success, got %q", out.String())
	}

	if _, ok := store.Get("abc"); !ok {
		t.Fatalf("expected the hook event to have created session abc")
	}
}

func TestResolveSocketPathPrefersExplicitFlag(t *testing.T) {
	flags := &globalFlags{socketPath: "/tmp/explicit.sock"}
	if got := flags.resolveSocketPath(); got != "/tmp/explicit.sock" {
		t.Fatalf("expected explicit socket path to win, got %q", got)
	}
}

func TestResolveSocketPathFallsBackToDefault(t *testing.T) {
	flags := &globalFlags{}
	if got := flags.resolveSocketPath(); got != daemonconfig.DefaultSocketPath() {
		t.Fatalf("expected default socket path, got %q", got)
	}
}
