// Package wire defines the newline-delimited JSON command, response, and
// notification schemas exchanged on the IPC socket. Every object carries
// version:1. Grounded on the teacher's internal/ws/protocol.go (typed
// envelope + payload structs) adapted from a WebSocket frame envelope to
// the raw NDJSON envelope spec.md mandates, and cross-checked against the
// Rust original's ipc.rs struct shapes (IpcCommand/IpcResponse/
// IpcNotification).
package wire

import "encoding/json"

// Version is the only wire protocol version this daemon speaks.
const Version = 1

// Command is a client-to-server request. Unknown keys are accepted and
// ignored for forward compatibility (callers unmarshal into this struct
// directly; encoding/json already ignores unrecognized fields).
type Command struct {
	Version    int    `json:"version"`
	Cmd        string `json:"cmd"`
	SessionID  string `json:"session_id,omitempty"`
	Status     string `json:"status,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`
	Priority   *uint  `json:"priority,omitempty"`
	Confirmed  *bool  `json:"confirmed,omitempty"`
}

// Command names understood by the IPC server.
const (
	CmdSet    = "SET"
	CmdGet    = "GET"
	CmdList   = "LIST"
	CmdRemove = "RM"
	CmdDelete = "DELETE"
	CmdStatus = "STATUS"
	CmdDump   = "DUMP"
	CmdSub    = "SUB"
	CmdStop   = "STOP"
)

// Response is a server-to-client reply: always exactly one line.
type Response struct {
	Version int             `json:"version"`
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Success builds an {ok:true} response with the given data marshaled into
// the data field.
func Success(data any) (Response, error) {
	if data == nil {
		return Response{Version: Version, OK: true}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{}, err
	}
	return Response{Version: Version, OK: true, Data: raw}, nil
}

// Failure builds an {ok:false, error:...} response.
func Failure(errMsg string) Response {
	return Response{Version: Version, OK: false, Error: errMsg}
}

// Notification types sent only on SUB streams.
const (
	NotifyUpdate = "update"
	NotifyUsage  = "usage"
	NotifyWarn   = "warn"
)

// Notification is a server-to-subscriber push.
type Notification struct {
	Version int             `json:"version"`
	Type    string          `json:"type"`
	Session json.RawMessage `json:"session,omitempty"`
	Usage   json.RawMessage `json:"usage,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SessionUpdateNotification builds an {type:"update"} notification wrapping
// a marshaled SessionSnapshot.
func SessionUpdateNotification(snapshot any) (Notification, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Notification{}, err
	}
	return Notification{Version: Version, Type: NotifyUpdate, Session: raw}, nil
}

// UsageNotification builds a {type:"usage"} notification wrapping a
// marshaled usage result.
func UsageNotification(data any) (Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Notification{}, err
	}
	return Notification{Version: Version, Type: NotifyUsage, Usage: raw}, nil
}

// WarnNotification builds a {type:"warn"} notification.
func WarnNotification(message string) Notification {
	return Notification{Version: Version, Type: NotifyWarn, Message: message}
}

// HealthStatus is STATUS's response payload.
type HealthStatus struct {
	UptimeSeconds int64   `json:"uptime_seconds"`
	ActiveCount   int     `json:"active_count"`
	ClosedCount   int     `json:"closed_count"`
	Connections   int     `json:"connections"`
	MemoryMB      float64 `json:"memory_mb,omitempty"`
	SocketPath    string  `json:"socket_path"`
}

// DumpSession is one entry in DUMP's session list.
type DumpSession struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	WorkingDir      string `json:"working_dir,omitempty"`
	ElapsedSeconds  int64  `json:"elapsed_seconds"`
	Closed          bool   `json:"closed"`
	ClosedAtSeconds int64  `json:"closed_at_seconds,omitempty"`
}

// DaemonDump is DUMP's response payload: a diagnostic snapshot for
// introspection.
type DaemonDump struct {
	UptimeSeconds int64         `json:"uptime_seconds"`
	SocketPath    string        `json:"socket_path"`
	Sessions      []DumpSession `json:"sessions"`
	ActiveCount   int           `json:"active_count"`
	ClosedCount   int           `json:"closed_count"`
	Connections   int           `json:"connections"`
}

// StopStatus values for STOP's two-phase confirmation protocol.
const (
	StopConfirmRequired = "confirm_required"
	StopOK              = "ok"
)

// StopData is STOP's response payload.
type StopData struct {
	StopStatus  string `json:"stop_status"`
	ActiveCount int    `json:"active_count,omitempty"`
}
