// Package registry tracks the active communication channel for each remote
// peer. It owns the PeerConnection lifecycle: entries are created on a
// connection request and removed on an explicit close, never collected
// implicitly.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Noopy420/hedera-intel-agent/internal/metrics"
	"github.com/Noopy420/hedera-intel-agent/internal/models"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

// Registry maps peer operator ids to established connections. All methods
// are safe for concurrent use from multiple subscription goroutines; one
// mutex guards the map, which is the only shared mutable state in the
// protocol layer.
type Registry struct {
	transport transport.Transport

	mu          sync.RWMutex
	connections map[string]models.PeerConnection
}

// New creates an empty registry that allocates connection topics through tr.
func New(tr transport.Transport) *Registry {
	return &Registry{
		transport:   tr,
		connections: make(map[string]models.PeerConnection),
	}
}

// Open establishes a connection for the peer, allocating a dedicated topic.
// A second request from the same peer while one is active replaces the old
// entry (last request wins); the replaced connection is returned so the
// caller can tear down its subscription. Check and replace happen in a
// single critical section, so concurrent duplicate requests cannot race.
//
// Any peer may connect; no allow-list is applied.
func (r *Registry) Open(ctx context.Context, peerOperatorID string) (conn models.PeerConnection, replaced *models.PeerConnection, err error) {
	topicID, err := r.transport.CreateTopic(ctx, fmt.Sprintf("connection:%s", peerOperatorID))
	if err != nil {
		return models.PeerConnection{}, nil, fmt.Errorf("allocate connection topic: %w", err)
	}

	conn = models.PeerConnection{
		PeerOperatorID: peerOperatorID,
		TopicID:        topicID,
		EstablishedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	if old, ok := r.connections[peerOperatorID]; ok {
		replaced = &old
	}
	r.connections[peerOperatorID] = conn
	r.mu.Unlock()

	metrics.ConnectionsOpened.Inc()
	if replaced == nil {
		metrics.ActiveConnections.Inc()
	}
	return conn, replaced, nil
}

// Lookup returns the active connection for the peer, if any.
func (r *Registry) Lookup(peerOperatorID string) (models.PeerConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[peerOperatorID]
	return conn, ok
}

// Close removes the peer's entry and returns it. Closing an unknown peer is
// a no-op, not an error.
func (r *Registry) Close(peerOperatorID string) (models.PeerConnection, bool) {
	r.mu.Lock()
	conn, ok := r.connections[peerOperatorID]
	if ok {
		delete(r.connections, peerOperatorID)
	}
	r.mu.Unlock()

	if ok {
		metrics.ConnectionsClosed.Inc()
		metrics.ActiveConnections.Dec()
	}
	return conn, ok
}

// Count reports the number of active connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Snapshot returns a copy of every active connection, for the ops API and
// heartbeats.
func (r *Registry) Snapshot() []models.PeerConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PeerConnection, 0, len(r.connections))
	for _, conn := range r.connections {
		out = append(out, conn)
	}
	return out
}
