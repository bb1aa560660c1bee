package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

func newSetCommand(flags *globalFlags) *cobra.Command {
	var sessionID, status, workingDir string
	var priority uint

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Upsert a session and set its status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := wire.Command{
				Cmd:        wire.CmdSet,
				SessionID:  sessionID,
				Status:     status,
				WorkingDir: workingDir,
			}
			if cmd.Flags().Changed("priority") {
				c.Priority = &priority
			}
			return runOneShot(flags, c)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier (required)")
	cmd.Flags().StringVar(&status, "status", "", "working|attention|question|closed (required)")
	cmd.Flags().StringVar(&workingDir, "working-dir", "", "session working directory")
	cmd.Flags().UintVar(&priority, "priority", 0, "display priority")
	cmd.MarkFlagRequired("session-id")
	cmd.MarkFlagRequired("status")
	return cmd
}

func newGetCommand(flags *globalFlags) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a single session's current snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(flags, wire.Command{Cmd: wire.CmdGet, SessionID: sessionID})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier (required)")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func newListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every tracked session, sorted by priority then recency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(flags, wire.Command{Cmd: wire.CmdList})
		},
	}
}

func newRemoveCommand(flags *globalFlags) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Close and remove a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(flags, wire.Command{Cmd: wire.CmdRemove, SessionID: sessionID})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier (required)")
	cmd.MarkFlagRequired("session-id")
	return cmd
}

func newStatusCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print daemon health (uptime, counts, memory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(flags, wire.Command{Cmd: wire.CmdStatus})
		},
	}
}

func newDumpCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print a full diagnostic snapshot of the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(flags, wire.Command{Cmd: wire.CmdDump})
		},
	}
}

func newSubCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sub",
		Short: "Subscribe and print notifications as newline-delimited JSON until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSub(flags)
		},
	}
}

// runOneShot sends cmd and pretty-prints the response's data field (or the
// error) to stdout/stderr.
func runOneShot(flags *globalFlags, cmd wire.Command) error {
	resp, err := sendCommand(flags.resolveSocketPath(), cmd)
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s", resp.Error)
	}
	if len(resp.Data) == 0 {
		return nil
	}

	var pretty any
	if err := json.Unmarshal(resp.Data, &pretty); err != nil {
		os.Stdout.Write(resp.Data)
		fmt.Fprintln(os.Stdout)
		return nil
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(pretty)
}
