// Package bus implements the daemon's internal Notification Bus: a
// multi-producer/multi-subscriber fan-out with a bounded ring per
// subscriber and an oldest-message-drop lag policy. It adapts the teacher's
// ws.Broadcaster (per-client send channel + dedicated writer goroutine)
// away from WebSocket framing and towards spec.md's required
// "at-least-current-snapshot delivery, not exactly-once per transition"
// contract: a full subscriber channel drops its oldest queued message
// rather than dropping the subscriber outright, and the next delivery to
// that subscriber is preceded by a synthetic Warn notification telling it
// to refetch full state via LIST.
package bus

import (
	"strconv"
	"sync"
)

// Kind tags the three message variants the Bus carries.
type Kind int

const (
	KindSessionUpdate Kind = iota
	KindUsageUpdate
	KindWarn
)

// Message is one bus entry. Payload holds a session.SessionSnapshot for
// KindSessionUpdate, a usage.Data for KindUsageUpdate, or is unused (Text
// carries the content) for KindWarn. Payload is declared as `any` rather
// than a concrete type so this package never needs to import the session
// or usage packages — both of those import bus instead.
type Message struct {
	Kind    Kind
	Payload any
	Text    string
}

// SessionUpdate wraps a session snapshot as a bus Message.
func SessionUpdate(snapshot any) Message {
	return Message{Kind: KindSessionUpdate, Payload: snapshot}
}

// UsageUpdate wraps a usage result as a bus Message.
func UsageUpdate(data any) Message {
	return Message{Kind: KindUsageUpdate, Payload: data}
}

// Warn constructs an out-of-band warning message.
func Warn(text string) Message {
	return Message{Kind: KindWarn, Text: text}
}

// Bus is one per daemon. Subscribers are added via Subscribe and removed by
// closing the returned Subscription.
type Bus struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	capacity    int
}

// New constructs a Bus whose subscriber channels have the given capacity
// (spec.md suggests 16-64; daemonconfig defaults to 32).
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 32
	}
	return &Bus{
		subscribers: make(map[*Subscription]struct{}),
		capacity:    capacity,
	}
}

// Subscription is a single subscriber's view of the Bus: a bounded channel
// fed by Publish, plus lag bookkeeping. The zero value is not usable;
// construct via Bus.Subscribe.
type Subscription struct {
	ch       chan Message
	bus      *Bus
	mu       sync.Mutex
	lagged   int
	closed   bool
}

// Subscribe registers a new subscriber and atomically increments the bus's
// subscriber count (the count is simply len(subscribers), read via
// Bus.SubscriberCount).
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:  make(chan Message, b.capacity),
		bus: b,
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// SubscriberCount returns the number of live subscriptions. The Usage
// Fetcher polls this to decide whether to run its periodic fetch.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// Publish fans msg out to every subscriber. Sends are non-blocking: a full
// subscriber channel has its oldest queued message dropped to make room,
// and that subscriber is marked lagged so its next successful receive is
// preceded by a synthetic Warn. Publish never blocks on a slow subscriber.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(msg)
	}
}

func (sub *Subscription) deliver(msg Message) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	select {
	case sub.ch <- msg:
		return
	default:
	}

	// Channel full: drop the oldest queued message to make room, and
	// remember that this subscriber lagged so the next Recv is preceded by
	// a Warn.
	select {
	case <-sub.ch:
		sub.lagged++
	default:
	}
	select {
	case sub.ch <- msg:
	default:
		// Extremely unlikely (another producer raced us for the freed
		// slot); count this as an additional lagged message rather than
		// block.
		sub.lagged++
	}
}

// Recv blocks until a message is available, returning it. If the
// subscriber lagged since the last Recv, the first call after lagging
// returns a synthetic Warn("lagged N") instead of the next queued message;
// the dropped message itself is gone, per the bounded-ring contract.
func (sub *Subscription) Recv() Message {
	sub.mu.Lock()
	if sub.lagged > 0 {
		n := sub.lagged
		sub.lagged = 0
		sub.mu.Unlock()
		return Warn(lagMessage(n))
	}
	sub.mu.Unlock()

	return <-sub.ch
}

// C exposes the raw channel for callers (e.g. the IPC subscription pump)
// that need to select on it alongside a shutdown signal, rather than block
// unconditionally in Recv.
func (sub *Subscription) C() <-chan Message {
	return sub.ch
}

// TakeLag atomically reads and clears the pending lag count. The IPC
// subscription pump calls this at the top of each iteration, before waiting
// for the next channel message, to decide whether to write a Warn ahead of
// the messages that follow the drop.
func (sub *Subscription) TakeLag() int {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	n := sub.lagged
	sub.lagged = 0
	return n
}

// Close unsubscribes from the bus. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.mu.Unlock()

	sub.bus.mu.Lock()
	delete(sub.bus.subscribers, sub)
	sub.bus.mu.Unlock()
}

func lagMessage(n int) string {
	if n == 1 {
		return "lagged 1 message, refetch via LIST"
	}
	return "lagged " + strconv.Itoa(n) + " messages, refetch via LIST"
}
