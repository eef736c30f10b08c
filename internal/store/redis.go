package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

const messageTTL = 24 * time.Hour

// RedisStore keeps a rolling per-topic message history for the ops API and
// the interactive chat mode.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for health checks.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// topicMessagesKey returns the key for a topic's message sorted set.
func topicMessagesKey(topicID string) string {
	return fmt.Sprintf("topic:%s:messages", topicID)
}

// AddMessage records one exchange in the topic's history.
func (s *RedisStore) AddMessage(ctx context.Context, msg *models.Message) error {
	// Generate ULID if not set
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	// Set timestamp if not set
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	// Serialize message
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := topicMessagesKey(msg.TopicID)

	// Add to sorted set
	err = s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(msg.Timestamp),
		Member: string(data),
	}).Err()
	if err != nil {
		return err
	}

	// Keep histories from growing without bound
	s.client.Expire(ctx, key, messageTTL)
	return nil
}

// GetTopicMessages retrieves recent messages from a topic's history, newest
// first. A before timestamp of 0 means "from the latest".
func (s *RedisStore) GetTopicMessages(ctx context.Context, topicID string, limit int, before int64) ([]models.Message, error) {
	key := topicMessagesKey(topicID)

	maxScore := "+inf"
	if before > 0 {
		maxScore = fmt.Sprintf("(%d", before) // exclusive
	}

	raw, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// Skip unreadable entries rather than failing the whole read
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
