package main

import (
	"github.com/spf13/cobra"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/daemonconfig"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	socketPath string
	configPath string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "agent-console-dashboard",
		Short: "Observe coding-agent sessions and surface them to a terminal dashboard",
	}

	root.PersistentFlags().StringVar(&flags.socketPath, "socket", "", "path to the daemon's Unix socket (default: XDG runtime dir)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the daemon config file")

	root.AddCommand(newDaemonCommand(flags))
	root.AddCommand(newSetCommand(flags))
	root.AddCommand(newGetCommand(flags))
	root.AddCommand(newListCommand(flags))
	root.AddCommand(newRemoveCommand(flags))
	root.AddCommand(newStatusCommand(flags))
	root.AddCommand(newDumpCommand(flags))
	root.AddCommand(newSubCommand(flags))
	root.AddCommand(newHookCommand(flags))

	return root
}

// resolveSocketPath applies the "--socket always overrides" rule from
// spec.md §6's socket path resolution algorithm.
func (f *globalFlags) resolveSocketPath() string {
	if f.socketPath != "" {
		return f.socketPath
	}
	return daemonconfig.DefaultSocketPath()
}
