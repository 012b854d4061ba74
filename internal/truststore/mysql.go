package truststore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the TrustStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and initializes the trust store table
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trusted_senders (
			address VARCHAR(255) PRIMARY KEY,
			added_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Contains reports whether the address is trusted
func (s *MySQLStore) Contains(ctx context.Context, address string) (bool, error) {
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
func (s *MySQLStore) Add(ctx context.Context, address string) error {
	addr := core.NormalizeAddress(address)
	if addr == "" {
		return &core.PersistenceError{Op: "add", Err: fmt.Errorf("empty address")}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO trusted_senders (address, added_at) VALUES (?, ?)
	`, addr, time.Now())
	if err != nil {
		return &core.PersistenceError{Op: "add", Err: err}
	}

	s.logger.Info("Added trusted sender", zap.String("address", addr))
	return nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
