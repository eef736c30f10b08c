package transport

import (
	"context"
	"errors"
)

// MaxMessageBytes is the hard per-message ceiling of the consensus
// transport. Payloads above it must be chunked before publishing.
const MaxMessageBytes = 1024

var (
	ErrMessageTooLarge = errors.New("message exceeds transport size limit")
	ErrUnknownTopic    = errors.New("unknown topic")
)

// Message is one entry of a topic's append-only log, delivered to
// subscribers in sequence order.
type Message struct {
	TopicID  string
	Sequence uint64
	Contents []byte
}

// Subscription is a handle to an active topic subscription.
type Subscription interface {
	Unsubscribe()
}

// Transport is the append-only, per-topic ordered publish/subscribe log the
// protocol layer runs on. Delivery order within one topic equals publish
// order; no ordering is guaranteed across topics.
//
// Both HCSTransport and MemoryTransport implement this interface.
type Transport interface {
	// CreateTopic allocates a new topic and returns its id.
	CreateTopic(ctx context.Context, memo string) (string, error)

	// Publish appends data to the topic's log and returns the assigned
	// consensus sequence number. Returns ErrMessageTooLarge when data
	// exceeds MaxMessageSize.
	Publish(ctx context.Context, topicID string, data []byte) (uint64, error)

	// Subscribe delivers every message appended to the topic, in order, to
	// onMessage until the subscription is cancelled. onMessage is invoked
	// from a dedicated goroutine per subscription.
	Subscribe(ctx context.Context, topicID string, onMessage func(Message)) (Subscription, error)

	// MaxMessageSize reports the per-message byte ceiling.
	MaxMessageSize() int
}
