package main

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/client"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

// sendCommand opens a fresh connection via the Lazy-Start Client, writes one
// command line, and reads exactly one response line. Every one-shot
// subcommand (set/get/list/rm/status/dump, daemon stop) shares this path;
// only SUB keeps its connection open past the first response.
func sendCommand(socketPath string, cmd wire.Command) (wire.Response, error) {
	conn, err := client.ConnectWithAutoStart(socketPath)
	if err != nil {
		return wire.Response{}, fmt.Errorf("connecting to daemon: %w", err)
	}
	defer conn.Close()

	cmd.Version = wire.Version
	raw, err := json.Marshal(cmd)
	if err != nil {
		return wire.Response{}, err
	}
	if _, err := conn.Write(append(raw, '\n')); err != nil {
		return wire.Response{}, fmt.Errorf("writing command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return wire.Response{}, fmt.Errorf("no response from daemon: %w", scanner.Err())
	}

	var resp wire.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return wire.Response{}, fmt.Errorf("decoding response: %w", err)
	}
	return resp, nil
}
