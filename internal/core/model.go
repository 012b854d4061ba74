package core

import (
	"net/textproto"
	"strings"
	"time"
)

// NormalizeAddress trims and lowercases an email address. Normalization
// happens at the boundary, never downstream.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Message is the normalized form of one fetched email. It is constructed
// once at the mail transport boundary and never mutated afterwards.
type Message struct {
	Sender  string            // lowercase address, extracted from the From header
	Subject string            // decoded subject text
	Body    string            // plain text, truncated at the normalizer boundary
	Headers map[string]string // canonical MIME keys
}

// Header returns the value of the named header, matching case-insensitively.
// An absent header returns the empty string.
func (m *Message) Header(name string) string {
	if m.Headers == nil {
		return ""
	}
	return m.Headers[textproto.CanonicalMIMEHeaderKey(name)]
}

// FetchedMessage pairs a normalized message with the error that occurred
// while normalizing it, if any. A failed message still carries whatever
// fields could be recovered (usually the sender).
type FetchedMessage struct {
	Message *Message
	Err     error
}

// Verdict is the terminal classification outcome for one message
type Verdict string

const (
	VerdictWhitelisted        Verdict = "WHITELISTED"
	VerdictBotHeaderSignal    Verdict = "BOT_HEADER"
	VerdictBotLexicalSignal   Verdict = "BOT_LEXICAL"
	VerdictBotLLM             Verdict = "BOT_LLM"
	VerdictChallenged         Verdict = "CHALLENGED"
	VerdictVerificationFailed Verdict = "VERIFICATION_FAILED"
	VerdictError              Verdict = "ERROR"
)

// Decision couples a verdict with the reason trail that produced it
type Decision struct {
	Sender    string
	Subject   string
	Verdict   Verdict
	Reason    string
	DecidedAt time.Time
}

// PendingChallenge records an outstanding verification challenge. It exists
// only for addresses not currently in the trust store and is settled when a
// qualifying reply is verified, or abandoned once it outlives the TTL.
type PendingChallenge struct {
	Recipient string
	Subject   string
	Ref       string // per-challenge correlation token embedded in the subject
	IssuedAt  time.Time
}

// ArbiterResult represents the LLM arbiter's judgment of one message
type ArbiterResult struct {
	Human     bool
	Reason    string
	ModelUsed string
}
