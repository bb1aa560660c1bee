package daemonconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigHasSaneValues(t *testing.T) {
	cfg := Default()
	if cfg.BusCapacity < 16 || cfg.BusCapacity > 64 {
		t.Fatalf("expected bus capacity within spec's suggested range, got %d", cfg.BusCapacity)
	}
	if cfg.UsageFetchInterval != 3*time.Minute {
		t.Fatalf("expected 3 minute default fetch interval, got %s", cfg.UsageFetchInterval)
	}
	if cfg.SocketPath == "" {
		t.Fatalf("expected a non-empty default socket path")
	}
}

func TestLoadOrDefaultFallsBackWhenFileMissing(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxClosedSessions != defaultMaxClosedSessions {
		t.Fatalf("expected default max closed sessions, got %d", cfg.MaxClosedSessions)
	}
}

func TestLoadMergesOverFileOverFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.yaml")
	content := "bus_capacity: 48\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BusCapacity != 48 {
		t.Fatalf("expected overridden bus capacity 48, got %d", cfg.BusCapacity)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected overridden log level, got %q", cfg.LogLevel)
	}
	if cfg.MaxClosedSessions != defaultMaxClosedSessions {
		t.Fatalf("expected unset field to keep default, got %d", cfg.MaxClosedSessions)
	}
}

func TestDefaultSocketPathRespectsXDGRuntimeDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	path := DefaultSocketPath()
	if filepath.Dir(path) != dir {
		t.Fatalf("expected socket path under XDG_RUNTIME_DIR %q, got %q", dir, path)
	}
}
