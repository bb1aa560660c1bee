package ipc

import (
	"encoding/json"
	"net"
	"strconv"
	"sync"

	"github.com/PabloLION/agent-console-dashboard-sub001/internal/bus"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/session"
	"github.com/PabloLION/agent-console-dashboard-sub001/internal/wire"
)

// lineWriter serializes writes to a connection so the one-response-per-
// command dispatcher and the subscription pump never interleave partial
// lines, mirroring the teacher's ws.Client's dedicated send channel/
// writePump without needing a channel here since SUB takes over the
// connection exclusively (spec.md's SUB hands the socket to the
// notification stream for the rest of its lifetime).
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineWriter(conn net.Conn) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(conn)}
}

func (w *lineWriter) writeResponse(resp wire.Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(resp)
}

func (w *lineWriter) writeNotification(n wire.Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(n)
}

// runSubscription takes over the connection for its remaining lifetime,
// pumping bus messages to the client as Notification envelopes until the
// connection drops or the daemon shuts down. Grounded on the teacher's
// ws.Client.writePump (drain-a-channel-onto-a-socket loop), adapted from a
// send-channel-fed pump to directly selecting on bus.Subscription.C()
// alongside shutdownCh/peerGone, interleaving a Warn whenever
// Subscription.TakeLag reports a drop.
func (s *Server) runSubscription(conn net.Conn, w *lineWriter, shutdownCh <-chan struct{}) {
	sub := s.store.Subscribe()
	defer sub.Close()

	// Acknowledge the subscription before pumping anything further. There is
	// no synthetic initial burst of the current session list: a subscribing
	// client is expected to issue LIST itself to prime state; the only
	// obligation here is that every update published after this line is
	// delivered (modulo the lag policy).
	ack, _ := wire.Success(nil)
	if err := w.writeResponse(ack); err != nil {
		return
	}

	// A SUB peer sends nothing further; watch for it hanging up so the pump
	// doesn't block forever on a dead connection.
	peerGone := make(chan struct{})
	go func() {
		defer close(peerGone)
		buf := make([]byte, 1)
		conn.Read(buf)
	}()

	for {
		if n := sub.TakeLag(); n > 0 {
			if err := w.writeNotification(wire.WarnNotification(lagMessageFor(n))); err != nil {
				return
			}
		}

		select {
		case <-shutdownCh:
			return
		case <-peerGone:
			return
		case msg := <-sub.C():
			notif, err := s.toNotification(msg)
			if err != nil {
				continue
			}
			if err := w.writeNotification(notif); err != nil {
				return
			}
		}
	}
}

func lagMessageFor(n int) string {
	if n == 1 {
		return "lagged 1 message, refetch via LIST"
	}
	return "lagged " + strconv.Itoa(n) + " messages, refetch via LIST"
}

func (s *Server) toNotification(msg bus.Message) (wire.Notification, error) {
	switch msg.Kind {
	case bus.KindSessionUpdate:
		payload := msg.Payload
		if snap, ok := payload.(session.SessionSnapshot); ok {
			payload = s.privacy.Apply(snap)
		}
		return wire.SessionUpdateNotification(payload)
	case bus.KindUsageUpdate:
		return wire.UsageNotification(msg.Payload)
	default:
		return wire.WarnNotification(msg.Text), nil
	}
}
