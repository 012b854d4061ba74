package truststore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the TrustStore interface, for
// installations that prefer a database over the flat whitelist file
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed initializes) the SQLite trust store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trusted_senders (
			address TEXT PRIMARY KEY,
			added_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Contains reports whether the address is trusted
func (s *SQLiteStore) Contains(ctx context.Context, address string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM trusted_senders WHERE address = ?
	`, core.NormalizeAddress(address)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &core.PersistenceError{Op: "contains", Err: err}
	}
	return true, nil
}

// Add inserts the address; inserting an existing address is a no-op
func (s *SQLiteStore) Add(ctx context.Context, address string) error {
	addr := core.NormalizeAddress(address)
	if addr == "" {
		return &core.PersistenceError{Op: "add", Err: fmt.Errorf("empty address")}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO trusted_senders (address, added_at) VALUES (?, ?)
	`, addr, time.Now().Format(time.RFC3339))
	if err != nil {
		return &core.PersistenceError{Op: "add", Err: err}
	}

	s.logger.Info("Added trusted sender", zap.String("address", addr))
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
