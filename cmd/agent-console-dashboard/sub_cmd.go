package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/client"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

// runSub opens a subscription connection and prints every notification it
// receives, one JSON object per line, until the connection drops. This is
// the dashboard's transport; the terminal UI itself is out of scope, but the
// CLI exposes the raw stream so any collaborator can drive it.
func runSub(flags *globalFlags) error {
	conn, err := client.ConnectWithAutoStart(flags.resolveSocketPath())
	if err != nil {
		return err
	}
	defer conn.Close()

	cmd := wire.Command{Version: wire.Version, Cmd: wire.CmdSub}
	raw, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return fmt.Errorf("no subscription ack from daemon: %w", scanner.Err())
	}
	var ack wire.Response
	if err := json.Unmarshal(scanner.Bytes(), &ack); err == nil && !ack.OK {
		return fmt.Errorf("subscription rejected: %s", ack.Error)
	}

	for scanner.Scan() {
		fmt.Fprintln(os.Stdout, scanner.Text())
	}
	return scanner.Err()
}
