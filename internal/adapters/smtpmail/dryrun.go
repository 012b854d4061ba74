package smtpmail

import (
	"context"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// DryRunSender logs what would have been sent instead of sending it. The
// rest of the pipeline behaves identically.
type DryRunSender struct {
	logger *zap.Logger
}

// NewDryRunSender creates a sender that suppresses all outbound mail
func NewDryRunSender(logger *zap.Logger) *DryRunSender {
	return &DryRunSender{logger: logger}
}

// Send logs the would-be message and reports success
func (s *DryRunSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("Dry run: would send message",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

var _ core.MailSender = (*DryRunSender)(nil)
