// Package daemonconfig holds the daemon's own internal operating settings:
// socket path override, bus capacity, usage-fetch interval, retention
// limit, and log level. This is deliberately narrow compared to the
// teacher's internal/config/config.go (no Sources/Models/Sound/TokenNorm
// sections — those are mrf-agent-racer-specific monitor/gamification
// concerns with no analogue here); full external config-file format and
// XDG auto-discovery policy for third-party tools remains out of scope —
// only this daemon's own small settings file and the socket-path-resolution
// algorithm spec.md names as core are implemented.
package daemonconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBusCapacity         = 32
	defaultUsageFetchInterval  = 3 * time.Minute
	defaultMaxClosedSessions   = 500
	defaultInactivityThreshold = time.Hour
	socketFileName             = "agent-console-dashboard.sock"
	runtimeDirName             = "agent-console-dashboard"
)

// Config is the daemon's own operating configuration, loaded from an
// optional YAML file.
type Config struct {
	SocketPath          string        `yaml:"socket_path"`
	BusCapacity         int           `yaml:"bus_capacity"`
	UsageFetchInterval  time.Duration `yaml:"usage_fetch_interval"`
	MaxClosedSessions   int           `yaml:"max_closed_sessions"`
	LogLevel            string        `yaml:"log_level"`
	InactivityThreshold time.Duration `yaml:"inactivity_threshold"`
	MaskWorkingDirs     bool          `yaml:"mask_working_dirs"`
	MaskSessionIDs      bool          `yaml:"mask_session_ids"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		SocketPath:          DefaultSocketPath(),
		BusCapacity:         defaultBusCapacity,
		UsageFetchInterval:  defaultUsageFetchInterval,
		MaxClosedSessions:   defaultMaxClosedSessions,
		LogLevel:            "info",
		InactivityThreshold: defaultInactivityThreshold,
	}
}

// Load reads and merges a YAML file over the defaults. Missing fields in
// the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path if it exists, or returns the built-in defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// DefaultSocketPath implements the core (not excluded) XDG-style default
// socket path algorithm from spec.md §6: the runtime directory per platform
// conventions, a per-user temp dir fallback, filename <app>.sock.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return filepath.Join(dir, socketFileName)
		}
	}

	base := filepath.Join(os.TempDir(), runtimeDirName+"-"+strconv.Itoa(os.Getuid()))
	_ = os.MkdirAll(base, 0o700)
	return filepath.Join(base, socketFileName)
}
