// Command agent-console-dashboard is the CLI entry point exposing the
// daemon lifecycle (daemon start/stop), one-shot IPC commands
// (set/get/list/rm/status/dump/sub), and a generic hook entry point for
// third-party coding-agent tools. Grounded on the teacher's flag-based
// cmd/server/main.go for the overall wiring shape, with the verb tree built
// on spf13/cobra — a dependency the teacher has no analogue for but that
// other_examples/manifests/sascodiego-CC-Monitor's go.mod shows used for a
// CLI of comparable shape (multiple verbs, persistent flags, a
// daemon-lifecycle subcommand group).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
