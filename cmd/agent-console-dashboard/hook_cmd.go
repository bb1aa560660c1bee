package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

// hookBudget bounds how long a hook invocation may block before giving up
// and falling back to its advisory-and-exit-0 path. Hook clients are run
// synchronously by the host tool on its critical path, so spec.md requires
// they never fail or hang that host process.
const hookBudget = 10 * time.Second

// hookEvent is the generic payload a third-party tool's hook script pipes
// in on stdin. cwd maps to working_dir; any other fields a specific
// integration might add are out of scope here (that translation is the
// hook-installation collaborator's job, not this daemon's).
type hookEvent struct {
	SessionID string `json:"session_id"`
	Cwd       string `json:"cwd"`
	Priority  *uint  `json:"priority,omitempty"`
}

func newHookCommand(flags *globalFlags) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Translate one JSON event on stdin into a SET command; never fails the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			runHook(flags, status, os.Stdin, os.Stdout)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status to report: working|attention|question|closed (required)")
	cmd.MarkFlagRequired("status")
	return cmd
}

// runHook never returns an error: any failure is demoted to an advisory
// line on w and the process still exits 0, per spec.md's "a hook MUST NOT
// fail the host process."
func runHook(flags *globalFlags, status string, r io.Reader, w io.Writer) {
	var event hookEvent
	if err := json.NewDecoder(r).Decode(&event); err != nil {
		fmt.Fprintf(w, "agent-console-dashboard: advisory: malformed hook event: %v\n", err)
		return
	}
	if event.SessionID == "" {
		fmt.Fprintln(w, "agent-console-dashboard: advisory: hook event missing session_id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), hookBudget)
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- sendHookCommand(flags.resolveSocketPath(), wire.Command{
			Cmd:        wire.CmdSet,
			SessionID:  event.SessionID,
			Status:     status,
			WorkingDir: event.Cwd,
			Priority:   event.Priority,
		})
	}()

	select {
	case err := <-resultCh:
		if err != nil {
			fmt.Fprintf(w, "agent-console-dashboard: advisory: %v\n", err)
		}
	case <-ctx.Done():
		fmt.Fprintln(w, "agent-console-dashboard: advisory: daemon did not respond within budget")
	}
}

func sendHookCommand(socketPath string, cmd wire.Command) error {
	resp, err := sendCommand(socketPath, cmd)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("daemon rejected event: %s", resp.Error)
	}
	return nil
}
