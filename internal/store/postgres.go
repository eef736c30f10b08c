package store

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS connections (
			id TEXT PRIMARY KEY,
			peer_operator_id TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			opened_at TIMESTAMPTZ DEFAULT NOW(),
			closed_at TIMESTAMPTZ,
			exchanges BIGINT DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_connections_peer ON connections(peer_operator_id);
		CREATE INDEX IF NOT EXISTS idx_connections_open ON connections(closed_at) WHERE closed_at IS NULL;
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RecordConnection inserts an audit row for a newly opened connection.
func (s *PostgresStore) RecordConnection(ctx context.Context, conn models.PeerConnection) (*models.ConnectionRecord, error) {
	rec := &models.ConnectionRecord{
		ID:             ulid.Make().String(),
		PeerOperatorID: conn.PeerOperatorID,
		TopicID:        conn.TopicID,
		OpenedAt:       conn.EstablishedAt,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO connections (id, peer_operator_id, topic_id, opened_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.PeerOperatorID, rec.TopicID, rec.OpenedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkClosed stamps the peer's open audit rows with a close time.
func (s *PostgresStore) MarkClosed(ctx context.Context, peerOperatorID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE connections SET closed_at = NOW()
		WHERE peer_operator_id = $1 AND closed_at IS NULL
	`, peerOperatorID)
	return err
}

// IncrementExchanges bumps the exchange counter on the peer's open row.
func (s *PostgresStore) IncrementExchanges(ctx context.Context, peerOperatorID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE connections SET exchanges = exchanges + 1
		WHERE peer_operator_id = $1 AND closed_at IS NULL
	`, peerOperatorID)
	return err
}

// ListConnections retrieves audit rows, newest first.
func (s *PostgresStore) ListConnections(ctx context.Context, limit, offset int) ([]models.ConnectionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, peer_operator_id, topic_id, opened_at, closed_at, exchanges
		FROM connections
		ORDER BY opened_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ConnectionRecord
	for rows.Next() {
		var rec models.ConnectionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.PeerOperatorID,
			&rec.TopicID,
			&rec.OpenedAt,
			&rec.ClosedAt,
			&rec.Exchanges,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountConnections counts all audit rows.
func (s *PostgresStore) CountConnections(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM connections`).Scan(&count)
	return count, err
}

// CountOpenConnections counts rows without a close stamp.
func (s *PostgresStore) CountOpenConnections(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM connections WHERE closed_at IS NULL
	`).Scan(&count)
	return count, err
}

// SumExchanges totals the exchange counters across all rows.
func (s *PostgresStore) SumExchanges(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.pool.QueryRow(ctx, `SELECT SUM(exchanges) FROM connections`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
