package core

import (
	"context"
)

// Arbiter defines the interface for the LLM classification service
type Arbiter interface {
	// Judge asks the service whether the message reads like personal human
	// correspondence. Failures are reported as ClassificationServiceError.
	Judge(ctx context.Context, subject, bodySnippet string) (*ArbiterResult, error)
}

// TrustStore defines the interface for the persisted set of trusted senders
type TrustStore interface {
	// Contains reports whether the normalized address is trusted
	Contains(ctx context.Context, address string) (bool, error)

	// Add durably persists the address before returning. Adding an
	// already-present address is a no-op.
	Add(ctx context.Context, address string) error
}

// MailTransport defines the fetch side of the mailbox collaborator
type MailTransport interface {
	// FetchRecent returns up to maxCount of the most recent messages
	FetchRecent(ctx context.Context, maxCount int) ([]FetchedMessage, error)

	// FetchBySubject returns messages whose subject contains the given text
	FetchBySubject(ctx context.Context, subject string) ([]FetchedMessage, error)
}

// MailSender defines the send side of the mailbox collaborator
type MailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuditSink collects one record per processed message and writes them out
// at the end of a batch
type AuditSink interface {
	Record(decision *Decision)
	Flush() error
}
