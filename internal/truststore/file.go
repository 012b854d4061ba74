package truststore

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// FileStore is the default TrustStore: a newline-delimited list of lowercase
// addresses, append-only on disk with a full reload at startup. Blank lines
// are tolerated.
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]struct{}
	logger  *zap.Logger
}

// NewFileStore opens the whitelist file, creating it with the seed entry if
// it does not exist yet
func NewFileStore(path, seed string, logger *zap.Logger) (*FileStore, error) {
	store := &FileStore{
		path:    path,
		entries: make(map[string]struct{}),
		logger:  logger,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := store.create(seed); err != nil {
			return nil, err
		}
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	logger.Info("Loaded trust store",
		zap.String("path", path),
		zap.Int("entries", len(store.entries)))
	return store, nil
}

// create writes a fresh whitelist file, optionally seeded with one address
func (s *FileStore) create(seed string) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return &core.PersistenceError{Op: "create", Err: err}
	}
	defer f.Close()

	if seed = core.NormalizeAddress(seed); seed != "" {
		if _, err := fmt.Fprintln(f, seed); err != nil {
			return &core.PersistenceError{Op: "create", Err: err}
		}
	}
	return nil
}

// load reads the whole file into memory
func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return &core.PersistenceError{Op: "load", Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		addr := core.NormalizeAddress(scanner.Text())
		if addr == "" {
			continue
		}
		s.entries[addr] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return &core.PersistenceError{Op: "load", Err: err}
	}
	return nil
}

// Contains reports whether the address is trusted
func (s *FileStore) Contains(ctx context.Context, address string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[core.NormalizeAddress(address)]
	return ok, nil
}

// Add appends the address to the file, syncing before it returns. Adding an
// already-present address is a no-op.
func (s *FileStore) Add(ctx context.Context, address string) error {
	addr := core.NormalizeAddress(address)
	if addr == "" {
		return &core.PersistenceError{Op: "add", Err: fmt.Errorf("empty address")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[addr]; ok {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return &core.PersistenceError{Op: "add", Err: err}
	}
	if _, err := fmt.Fprintln(f, addr); err != nil {
		f.Close()
		return &core.PersistenceError{Op: "add", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &core.PersistenceError{Op: "add", Err: err}
	}
	if err := f.Close(); err != nil {
		return &core.PersistenceError{Op: "add", Err: err}
	}

	s.entries[addr] = struct{}{}
	s.logger.Info("Added trusted sender", zap.String("address", addr))
	return nil
}

// Len reports the number of trusted addresses
func (s *FileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
