package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// CSVSink buffers one record per processed message and writes them out as a
// tabular file at the end of the batch
type CSVSink struct {
	path   string
	mu     sync.Mutex
	rows   []*core.Decision
	logger *zap.Logger
}

// NewCSVSink creates a new CSV audit sink
func NewCSVSink(path string, logger *zap.Logger) *CSVSink {
	return &CSVSink{
		path:   path,
		logger: logger,
	}
}

// Record buffers one decision
func (s *CSVSink) Record(decision *core.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, decision)
}

// Flush writes all buffered records to the configured file
func (s *CSVSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"sender", "subject", "verdict", "reason"}); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	for _, d := range s.rows {
		record := []string{d.Sender, d.Subject, string(d.Verdict), d.Reason}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	s.logger.Info("Wrote audit log",
		zap.String("path", s.path),
		zap.Int("records", len(s.rows)))
	return nil
}

// Len reports the number of buffered records
func (s *CSVSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
