// Package bus provides the topic-addressed messaging seam between the
// decision engine and the rest of the lattice. The engine only ever sees
// opaque payloads and topic names; the concrete transport is swappable.
package bus

import (
	"context"
	"time"
)

// Handler processes one inbound payload for a subscribed topic and returns
// the reply to send back to the requester.
type Handler func(ctx context.Context, payload []byte) []byte

// Bus is a request/reply message transport addressed by topic name.
type Bus interface {
	// Request sends payload to topic and waits up to timeout for a single
	// reply. It returns an error if no subscriber exists for the topic or
	// no reply arrives in time.
	Request(ctx context.Context, topic string, payload []byte, timeout time.Duration) ([]byte, error)

	// Subscribe registers h as the responder for topic.
	Subscribe(topic string, h Handler) error
}
