package truststore

import (
	"context"
	"sync"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// DryRunStore wraps a TrustStore with an in-memory overlay. Reads see both
// the inner store and addresses "added" during this run; nothing is ever
// persisted. This keeps dry-run verdict sequences identical to live runs.
type DryRunStore struct {
	inner   core.TrustStore
	mu      sync.Mutex
	overlay map[string]struct{}
	logger  *zap.Logger
}

// NewDryRunStore creates a dry-run overlay around the given store
func NewDryRunStore(inner core.TrustStore, logger *zap.Logger) *DryRunStore {
	return &DryRunStore{
		inner:   inner,
		overlay: make(map[string]struct{}),
		logger:  logger,
	}
}

// Contains checks the overlay first, then the inner store
func (s *DryRunStore) Contains(ctx context.Context, address string) (bool, error) {
	addr := core.NormalizeAddress(address)

	s.mu.Lock()
	_, ok := s.overlay[addr]
	s.mu.Unlock()
	if ok {
		return true, nil
	}

	return s.inner.Contains(ctx, addr)
}

// Add records the address in memory only
func (s *DryRunStore) Add(ctx context.Context, address string) error {
	addr := core.NormalizeAddress(address)

	s.mu.Lock()
	s.overlay[addr] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("Dry run: would add trusted sender", zap.String("address", addr))
	return nil
}
