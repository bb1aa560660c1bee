package wire

import (
	"encoding/json"
	"testing"
)

func TestCommandUnmarshalIgnoresUnknownKeys(t *testing.T) {
	line := `{"version":1,"cmd":"SET","session_id":"abc","status":"working","unknown_future_field":true}`
	var cmd Command
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Cmd != CmdSet || cmd.SessionID != "abc" || cmd.Status != "working" {
		t.Fatalf("unexpected parse result: %+v", cmd)
	}
}

func TestSuccessResponseRoundTrips(t *testing.T) {
	resp, err := Success(map[string]string{"hello": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK || resp.Version != Version {
		t.Fatalf("unexpected response: %+v", resp)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var decoded Response
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if !decoded.OK {
		t.Fatalf("expected ok:true to survive round trip")
	}
}

func TestFailureResponseCarriesError(t *testing.T) {
	resp := Failure("not found")
	if resp.OK {
		t.Fatalf("expected ok:false")
	}
	if resp.Error != "not found" {
		t.Fatalf("expected error message to be preserved, got %q", resp.Error)
	}
}

func TestWarnNotificationShape(t *testing.T) {
	n := WarnNotification("lagged 3 messages, refetch via LIST")
	if n.Type != NotifyWarn {
		t.Fatalf("expected type %q, got %q", NotifyWarn, n.Type)
	}
	if n.Message == "" {
		t.Fatalf("expected non-empty message")
	}
}
