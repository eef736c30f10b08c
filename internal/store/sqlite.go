package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/agent.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/agent.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS connections (
		id TEXT PRIMARY KEY,
		peer_operator_id TEXT NOT NULL,
		topic_id TEXT NOT NULL,
		opened_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		closed_at DATETIME,
		exchanges INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_connections_peer ON connections(peer_operator_id);
	CREATE INDEX IF NOT EXISTS idx_connections_open ON connections(closed_at) WHERE closed_at IS NULL;
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordConnection inserts an audit row for a newly opened connection.
func (s *SQLiteStore) RecordConnection(ctx context.Context, conn models.PeerConnection) (*models.ConnectionRecord, error) {
	rec := &models.ConnectionRecord{
		ID:             ulid.Make().String(),
		PeerOperatorID: conn.PeerOperatorID,
		TopicID:        conn.TopicID,
		OpenedAt:       conn.EstablishedAt,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, peer_operator_id, topic_id, opened_at)
		VALUES (?, ?, ?, ?)
	`, rec.ID, rec.PeerOperatorID, rec.TopicID, rec.OpenedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// MarkClosed stamps the peer's open audit rows with a close time.
func (s *SQLiteStore) MarkClosed(ctx context.Context, peerOperatorID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET closed_at = ?
		WHERE peer_operator_id = ? AND closed_at IS NULL
	`, time.Now().UTC(), peerOperatorID)
	return err
}

// IncrementExchanges bumps the exchange counter on the peer's open row.
func (s *SQLiteStore) IncrementExchanges(ctx context.Context, peerOperatorID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE connections SET exchanges = exchanges + 1
		WHERE peer_operator_id = ? AND closed_at IS NULL
	`, peerOperatorID)
	return err
}

// ListConnections retrieves audit rows, newest first.
func (s *SQLiteStore) ListConnections(ctx context.Context, limit, offset int) ([]models.ConnectionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, peer_operator_id, topic_id, opened_at, closed_at, exchanges
		FROM connections
		ORDER BY opened_at DESC
		LIMIT ? OFFSET ?
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
func (s *SQLiteStore) CountConnections(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM connections`).Scan(&count)
	return count, err
}

// CountOpenConnections counts rows without a close stamp.
func (s *SQLiteStore) CountOpenConnections(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections WHERE closed_at IS NULL
	`).Scan(&count)
	return count, err
}

// SumExchanges totals the exchange counters across all rows.
func (s *SQLiteStore) SumExchanges(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(exchanges) FROM connections`).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}
