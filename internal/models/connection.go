package models

import "time"

// PeerConnection records an established communication channel with a remote
// agent. At most one active connection exists per peer operator id; the
// connection registry owns the lifecycle.
type PeerConnection struct {
	PeerOperatorID string    `json:"peer_operator_id"`
	TopicID        string    `json:"topic_id"`
	EstablishedAt  time.Time `json:"established_at"`
}

// ConnectionRecord is the persisted audit row for a peer connection. The
// in-memory registry stays authoritative for live lifecycle; records exist
// for history and stats.
type ConnectionRecord struct {
	ID             string     `json:"id"` // ULID
	PeerOperatorID string     `json:"peer_operator_id"`
	TopicID        string     `json:"topic_id"`
	OpenedAt       time.Time  `json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	Exchanges      int64      `json:"exchanges"`
}
