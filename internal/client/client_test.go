package client

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestCalculateBackoffMatchesSpecifiedSchedule(t *testing.T) {
	want := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		80 * time.Millisecond,
		160 * time.Millisecond,
		320 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}
	for attempt, expected := range want {
		if got := calculateBackoff(attempt); got != expected {
			t.Errorf("attempt %d: got %s, want %s", attempt, got, expected)
		}
	}
}

func TestCalculateBackoffNeverExceedsMax(t *testing.T) {
	for attempt := 0; attempt < 64; attempt++ {
		if got := calculateBackoff(attempt); got > maxBackoff {
			t.Fatalf("attempt %d: backoff %s exceeded cap %s", attempt, got, maxBackoff)
		}
	}
}

func TestDaemonStartFailedErrorMessage(t *testing.T) {
	err := &DaemonStartFailedError{Attempts: 10, LastError: nil}
	msg := err.Error()
	if !strings.Contains(msg, "10 attempts") || !strings.Contains(msg, "unknown") {
		t.Fatalf("unexpected message: %q", msg)
	}

	wrapped := &DaemonStartFailedError{Attempts: 3, LastError: syscall.ECONNREFUSED}
	if !errors.Is(wrapped, syscall.ECONNREFUSED) {
		t.Fatalf("expected DaemonStartFailedError to unwrap to its LastError")
	}
}

func TestIsRecoverableClassifiesConnectionRefusedAndMissingSocket(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.sock")

	_, err := net.Dial("unix", missing)
	if err == nil {
		t.Fatalf("expected an error dialing a nonexistent socket")
	}
	if !isRecoverable(err) {
		t.Fatalf("expected a missing socket file to be recoverable, got: %v", err)
	}
}

func TestIsRecoverableRejectsPermissionDenied(t *testing.T) {
	if !isRecoverable(wrapErrno(syscall.ECONNREFUSED)) {
		t.Fatalf("expected ECONNREFUSED to be recoverable")
	}
	if isRecoverable(wrapErrno(syscall.EACCES)) {
		t.Fatalf("expected EACCES (permission denied) to be non-recoverable")
	}
}

func TestConnectWithAutoStartReturnsImmediatelyWhenDaemonAlreadyListening(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "test.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			close(accepted)
			conn.Close()
		}
	}()

	conn, err := ConnectWithAutoStart(sockPath)
	if err != nil {
		t.Fatalf("expected immediate connect to succeed, got: %v", err)
	}
	defer conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatalf("expected the listener to accept the connection")
	}
}

func wrapErrno(errno syscall.Errno) error {
	return &os.SyscallError{Syscall: "connect", Err: errno}
}
