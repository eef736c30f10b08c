package store

import (
	"context"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// DataStore defines the interface for persistent storage of peer connection
// history. Both PostgresStore and SQLiteStore implement this interface.
// Persistence is an audit trail; the in-memory registry owns live state.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Connection audit trail
	RecordConnection(ctx context.Context, conn models.PeerConnection) (*models.ConnectionRecord, error)
	MarkClosed(ctx context.Context, peerOperatorID string) error
	IncrementExchanges(ctx context.Context, peerOperatorID string) error
	ListConnections(ctx context.Context, limit, offset int) ([]models.ConnectionRecord, error)

	// Stats
	CountConnections(ctx context.Context) (int64, error)
	CountOpenConnections(ctx context.Context) (int64, error)
	SumExchanges(ctx context.Context) (int64, error)
}
