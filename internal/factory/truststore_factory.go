package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/truststore"
	"go.uber.org/zap"
)

// TrustStoreFactory creates trust stores based on configuration
type TrustStoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrustStoreFactory creates a new trust store factory
func NewTrustStoreFactory(cfg *config.Config, logger *zap.Logger) *TrustStoreFactory {
	return &TrustStoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTrustStore creates the configured backend, wrapped in the dry-run
// overlay when dry-run mode is on
func (f *TrustStoreFactory) CreateTrustStore() (core.TrustStore, error) {
	storeCfg := f.cfg.GetTrustStore()

	var store core.TrustStore
	var err error
	switch storeCfg.Type {
	case "file":
		store, err = truststore.NewFileStore(storeCfg.Path, storeCfg.Seed, f.logger)
	case "sqlite":
		// Ensure directory exists
		if mkErr := os.MkdirAll(filepath.Dir(storeCfg.SQLitePath), 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", mkErr)
		}
		store, err = truststore.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		store, err = truststore.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported trust store type: %s", storeCfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if f.cfg.GetBool("gatekeeper.dry_run") {
		f.logger.Info("Dry run: trust store writes are suppressed")
		return truststore.NewDryRunStore(store, f.logger), nil
	}
	return store, nil
}
