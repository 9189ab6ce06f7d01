// Package bus adapts the NATS publish/subscribe client to the narrow
// surface the engine needs: fire-and-forget publish, subject subscription,
// and synchronous request/reply with a per-call timeout. It runs entirely
// on its own goroutines (NATS's dispatcher) and only ever hands decoded
// messages to callers — it never touches chain state itself.
package bus

import (
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Bus wraps a connected NATS client.
type Bus struct {
	nc *nats.Conn
}

// Msg is a delivered subscription message.
type Msg struct {
	Subject string
	Reply   string
	Data    []byte
}

// Connect dials the given cluster URIs (comma-joined for nats.go) with the
// same retry posture as the reference client: a 10s initial connect
// timeout and up to 255 reconnect attempts.
func Connect(urls []string) (*Bus, error) {
	nc, err := nats.Connect(
		strings.Join(urls, ","),
		nats.Timeout(10*time.Second),
		nats.MaxReconnects(255),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Bus{nc: nc}, nil
}

// Publish fires data on subject with no reply expected.
func (b *Bus) Publish(subject string, data []byte) error {
	return b.nc.Publish(subject, data)
}

// Subscribe registers handler for every message delivered on subject.
// handler runs on NATS's own dispatch goroutine; it must not block.
func (b *Bus) Subscribe(subject string, handler func(Msg)) (*nats.Subscription, error) {
	return b.nc.Subscribe(subject, func(m *nats.Msg) {
		handler(Msg{Subject: m.Subject, Reply: m.Reply, Data: m.Data})
	})
}

// Request publishes data on subject and blocks for a single reply, up to
// timeout. Timing out here is how the engine implements "drop the event"
// semantics for unanswered synchronous calls.
func (b *Bus) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	msg, err := b.nc.Request(subject, data, timeout)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// RequestMany publishes data on subject with a private inbox as the reply
// address and collects every reply delivered within window, for protocols
// where more than one peer may legitimately answer (e.g. a GetHeight
// broadcast the synchronizer must fan-in across the whole network rather
// than stop at the first reply).
func (b *Bus) RequestMany(subject string, data []byte, window time.Duration) ([]Msg, error) {
	inbox := b.nc.NewInbox()
	replies := make(chan Msg, 64)
	sub, err := b.nc.Subscribe(inbox, func(m *nats.Msg) {
		replies <- Msg{Subject: m.Subject, Reply: m.Reply, Data: m.Data}
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := b.nc.PublishRequest(subject, inbox, data); err != nil {
		return nil, err
	}

	deadline := time.After(window)
	var out []Msg
	for {
		select {
		case m := <-replies:
			out = append(out, m)
		case <-deadline:
			return out, nil
		}
	}
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	b.nc.Close()
}
