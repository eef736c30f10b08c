package transport

import (
	"context"
	"fmt"
	"sync"
)

// MemoryTransport is an in-process Transport used by tests and the local
// chat mode. Each topic is an append-only slice; sequence numbers are
// 1-based positions in the log. Subscribers receive messages in publish
// order through a per-subscription delivery goroutine.
type MemoryTransport struct {
	mu        sync.Mutex
	topics    map[string]*memTopic
	nextTopic uint64
	limit     int
}

type memTopic struct {
	log  [][]byte
	subs map[*memSubscription]struct{}
}

type memSubscription struct {
	transport *MemoryTransport
	topic     *memTopic

	mu      sync.Mutex
	cond    *sync.Cond
	pending []Message
	closed  bool
}

// NewMemoryTransport creates an empty in-memory transport with the standard
// message size ceiling.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		topics: make(map[string]*memTopic),
		limit:  MaxMessageBytes,
	}
}

// MaxMessageSize reports the per-message byte ceiling.
func (t *MemoryTransport) MaxMessageSize() int {
	return t.limit
}

// SetMaxMessageSize overrides the ceiling; used by tests to force chunking
// with small payloads.
func (t *MemoryTransport) SetMaxMessageSize(limit int) {
	t.limit = limit
}

// CreateTopic allocates a new topic id of the form "0.0.<n>".
func (t *MemoryTransport) CreateTopic(ctx context.Context, memo string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextTopic++
	id := fmt.Sprintf("0.0.%d", 1000+t.nextTopic)
	t.topics[id] = &memTopic{subs: make(map[*memSubscription]struct{})}
	return id, nil
}

// Publish appends data to the topic log and fans it out to subscribers.
// Unknown topics are created implicitly so peers can be addressed without
// a prior CreateTopic in tests.
func (t *MemoryTransport) Publish(ctx context.Context, topicID string, data []byte) (uint64, error) {
	if len(data) > t.limit {
		return 0, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	t.mu.Lock()
	topic, ok := t.topics[topicID]
	if !ok {
		topic = &memTopic{subs: make(map[*memSubscription]struct{})}
		t.topics[topicID] = topic
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	topic.log = append(topic.log, buf)
	seq := uint64(len(topic.log))

	msg := Message{TopicID: topicID, Sequence: seq, Contents: buf}
	for sub := range topic.subs {
		sub.enqueue(msg)
	}
	t.mu.Unlock()

	return seq, nil
}

// Subscribe registers onMessage for every future message on the topic.
// Delivery happens on a dedicated goroutine so a slow handler on one topic
// never blocks publishers or other subscriptions.
func (t *MemoryTransport) Subscribe(ctx context.Context, topicID string, onMessage func(Message)) (Subscription, error) {
	t.mu.Lock()
	topic, ok := t.topics[topicID]
	if !ok {
		topic = &memTopic{subs: make(map[*memSubscription]struct{})}
		t.topics[topicID] = topic
	}

	sub := &memSubscription{transport: t, topic: topic}
	sub.cond = sync.NewCond(&sub.mu)
	topic.subs[sub] = struct{}{}
	t.mu.Unlock()

	go sub.deliver(onMessage)

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			sub.Unsubscribe()
		}()
	}

	return sub, nil
}

func (s *memSubscription) enqueue(msg Message) {
	s.mu.Lock()
	if !s.closed {
		s.pending = append(s.pending, msg)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *memSubscription) deliver(onMessage func(Message)) {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed && len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}
		msg := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		onMessage(msg)
	}
}

// Unsubscribe detaches the subscription. Pending messages are still
// delivered before the delivery goroutine exits.
func (s *memSubscription) Unsubscribe() {
	s.transport.mu.Lock()
	delete(s.topic.subs, s)
	s.transport.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Log returns a copy of the topic's append-only log; test helper.
func (t *MemoryTransport) Log(topicID string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	topic, ok := t.topics[topicID]
	if !ok {
		return nil
	}
	out := make([][]byte, len(topic.log))
	copy(out, topic.log)
	return out
}
