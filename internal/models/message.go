package models

// Message represents one recorded exchange on a topic, stored in Redis.
type Message struct {
	ID        string `json:"id"` // ULID
	TopicID   string `json:"topic_id"`
	From      string `json:"from,omitempty"` // peer operator id, if known
	Op        string `json:"op"`
	Body      string `json:"body"`
	Timestamp int64  `json:"ts"` // Unix ms
}
