// Package daemon implements the Daemon Supervisor: the process that owns
// the Session Store, the Notification Bus, the IPC Server, and the Usage
// Fetcher for the lifetime of the daemon. Grounded structurally on the
// teacher's cmd/server/main.go (construct store/broadcaster/sources, spawn
// background goroutines under a cancellable context, install a SIGINT/
// SIGTERM handler that cancels and waits) and on the Rust original's
// daemon/mod.rs (daemonize_process/run_daemon: parent spawns a detached
// child and exits 0 immediately, the child continues as the real daemon).
package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/bus"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/daemonconfig"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/ipc"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/logging"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/session"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/usage"
)

// DetachedChildFlag is the marker argument a re-exec'd child carries so it
// never tries to detach a second time.
const DetachedChildFlag = "--detached-child"

// ErrAlreadyRunning is returned by Run when a live peer already answers on
// the configured socket path. Per spec.md §4.6 step 4, this is not a fatal
// startup error: callers should treat it as a successful reuse of the
// existing daemon and exit 0, not propagate it as a failure.
var ErrAlreadyRunning = errors.New("a daemon is already running on this socket")

// Supervisor owns the daemon's runtime components for as long as Run blocks.
type Supervisor struct {
	cfg     *daemonconfig.Config
	store   *session.Store
	bus     *bus.Bus
	fetcher *usage.Fetcher
	server  *ipc.Server

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// Daemonize re-execs the current binary as a detached child (setsid, stdio
// to /dev/null, cwd /) and returns immediately in the parent. Go cannot
// safely fork() a process with a live scheduler/GC/net-poller the way the
// Rust original's `fork` crate can before constructing its async runtime, so
// this implementation spawns an explicit child helper instead — the
// alternative spec.md's design notes explicitly sanction. Callers run this
// in the parent only, then exit 0 on success.
func Daemonize(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving current executable: %w", err)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	childArgs := append(append([]string{}, args...), DetachedChildFlag)
	proc, err := os.StartProcess(exe, append([]string{exe}, childArgs...), &os.ProcAttr{
		Dir:   "/",
		Files: []*os.File{devNull, devNull, devNull},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("spawning detached daemon: %w", err)
	}

	// The parent's only job is to confirm the spawn happened; it never
	// waits on the child, matching "parent calls exit(0) immediately, child
	// continues."
	_ = proc.Release()
	return nil
}

// New wires the Store, Bus, Usage Fetcher and IPC Server from cfg, but does
// not bind the socket or start anything yet — call Run for that.
func New(cfg *daemonconfig.Config) *Supervisor {
	b := bus.New(cfg.BusCapacity)
	store := session.NewStore(b, cfg.MaxClosedSessions)
	fetcher := usage.NewWithOptions(b, cfg.UsageFetchInterval, usage.DefaultFetchFunc)

	var privacy *session.PrivacyFilter
	if cfg.MaskWorkingDirs || cfg.MaskSessionIDs {
		privacy = &session.PrivacyFilter{
			MaskWorkingDirs: cfg.MaskWorkingDirs,
			MaskSessionIDs:  cfg.MaskSessionIDs,
		}
	}

	server := ipc.New(store, b, fetcher, cfg.SocketPath, privacy)

	return &Supervisor{
		cfg:        cfg,
		store:      store,
		bus:        b,
		fetcher:    fetcher,
		server:     server,
		shutdownCh: make(chan struct{}),
	}
}

// RequestShutdown closes the shutdown channel exactly once. Every
// long-running goroutine in the daemon selects on this channel rather than
// cloning a broadcast receiver the way the Rust original's
// tokio::sync::broadcast required — closing a channel already broadcasts a
// single cancellation to unboundedly many receivers.
func (s *Supervisor) RequestShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// Run binds the socket, spawns the IPC Server and Usage Fetcher, installs
// signal handlers, and blocks until shutdown (via signal or STOP). Once the
// socket is bound, it is unlinked on the way out however Run returns; a Bind
// failure returns before anything is bound and leaves the path untouched.
func (s *Supervisor) Run() error {
	s.server.RequestShutdown = s.RequestShutdown

	if err := s.server.Bind(); err != nil {
		if errors.Is(err, ipc.ErrAddrInUse) {
			return ErrAlreadyRunning
		}
		return err
	}
	defer s.server.Close()

	log := logging.WithComponent("daemon")
	log.Info("daemon started", "socket", s.cfg.SocketPath, "pid", os.Getpid())

	var wg sync.WaitGroup
	wg.Add(2)

	serveErrCh := make(chan error, 1)
	go func() {
		defer wg.Done()
		if err := s.server.Serve(s.shutdownCh); err != nil {
			serveErrCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		s.fetcher.Run(s.shutdownCh)
	}()

	s.installSignalHandlers(log)

	<-s.shutdownCh
	wg.Wait()

	select {
	case err := <-serveErrCh:
		return err
	default:
		return nil
	}
}

// installSignalHandlers requests shutdown on SIGINT or SIGTERM. Both are
// registered with a single signal.Notify call, which reports no error, so
// there is no SIGINT-only fallback branch and no registration warning.
func (s *Supervisor) installSignalHandlers(log *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received signal, shutting down", "signal", sig.String())
		s.RequestShutdown()
	}()
}

// Stats returns a point-in-time count of active/closed sessions, for
// bootstrap logging and tests.
func (s *Supervisor) Stats() (active, closed int) {
	return s.store.ActiveCount(), s.store.ClosedCount()
}

// WaitForShutdown blocks until shutdown has been requested or the timeout
// elapses, returning false on timeout. Intended for tests.
func (s *Supervisor) WaitForShutdown(timeout time.Duration) bool {
	select {
	case <-s.shutdownCh:
		return true
	case <-time.After(timeout):
		return false
	}
}
