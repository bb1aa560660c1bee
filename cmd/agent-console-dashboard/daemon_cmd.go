package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/daemon"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/daemonconfig"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/logging"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

func newDaemonCommand(flags *globalFlags) *cobra.Command {
	var detach bool
	var detachedChild bool
	var force bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the daemon lifecycle",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon, binding its Unix socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if detach && !detachedChild {
				return daemon.Daemonize(os.Args[1:])
			}
			return runDaemon(flags)
		},
	}
	start.Flags().BoolVar(&detach, "detach", false, "run the daemon as a detached background process")
	start.Flags().BoolVar(&detachedChild, daemon.DetachedChildFlag[2:], false, "internal: marks an already-detached re-exec'd child")
	start.Flags().MarkHidden(daemon.DetachedChildFlag[2:])

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Ask a running daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(flags, force)
		},
	}
	stop.Flags().BoolVar(&force, "force", false, "skip the active-session confirmation step")

	cmd.AddCommand(start, stop)
	return cmd
}

func runDaemon(flags *globalFlags) error {
	cfg, err := daemonconfig.LoadOrDefault(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flags.socketPath != "" {
		cfg.SocketPath = flags.socketPath
	}

	if err := logging.Init(logging.Config{LogFile: ""}); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	sup := daemon.New(cfg)
	if err := sup.Run(); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stdout, "reusing existing daemon")
			return nil
		}
		return err
	}
	return nil
}

func runStop(flags *globalFlags, force bool) error {
	confirmed := force
	resp, err := sendCommand(flags.resolveSocketPath(), wire.Command{Cmd: wire.CmdStop, Confirmed: &confirmed})
	if err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("stop failed: %s", resp.Error)
	}

	var stop wire.StopData
	if err := json.Unmarshal(resp.Data, &stop); err != nil {
		return fmt.Errorf("decoding stop response: %w", err)
	}

	if stop.StopStatus == wire.StopConfirmRequired {
		fmt.Fprintf(os.Stdout,
			"%d active session(s) are still running; re-run with --force to stop anyway\n",
			stop.ActiveCount)
		return nil
	}

	fmt.Fprintln(os.Stdout, "daemon stopped")
	return nil
}
