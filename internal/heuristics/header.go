package heuristics

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// defaultSenderPrefixes are local-part prefixes that mark machine senders
var defaultSenderPrefixes = []string{
	"no-reply",
	"noreply",
	"newsletter",
	"bounce",
	"notifications",
	"info",
	"marketing",
	"sales",
	"service",
	"support",
	"hello",
}

// HeaderResult represents the outcome of the header heuristic. IsBot=false
// means the stage is inconclusive, never that the sender is human.
type HeaderResult struct {
	IsBot  bool
	Reason string
}

// HeaderClassifier inspects technical headers and the sender address shape
// for automation signals
type HeaderClassifier struct {
	prefixes []string
	logger   *zap.Logger
}

// NewHeaderClassifier creates a new header classifier. An empty prefix list
// selects the built-in defaults.
func NewHeaderClassifier(prefixes []string, logger *zap.Logger) *HeaderClassifier {
	if len(prefixes) == 0 {
		prefixes = defaultSenderPrefixes
	}
	normalized := make([]string, len(prefixes))
	for i, p := range prefixes {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return &HeaderClassifier{
		prefixes: normalized,
		logger:   logger,
	}
}

// Classify checks the rules in order; the first match wins
func (h *HeaderClassifier) Classify(msg *core.Message) HeaderResult {
	// 1. Technical automation headers. Almost all newsletters, alerts and
	// marketing tools add one of these.
	if msg.Header("List-Unsubscribe") != "" {
		return HeaderResult{IsBot: true, Reason: "technical automation header: List-Unsubscribe"}
	}
	if strings.EqualFold(strings.TrimSpace(msg.Header("Auto-Submitted")), "auto-generated") {
		return HeaderResult{IsBot: true, Reason: "technical automation header: Auto-Submitted"}
	}

	// 2. Generic sender name
	local := localPart(msg.Sender)
	for _, p := range h.prefixes {
		if strings.HasPrefix(local, p) {
			if h.logger != nil {
				h.logger.Debug("Generic sender prefix matched",
					zap.String("sender", msg.Sender),
					zap.String("prefix", p))
			}
			return HeaderResult{IsBot: true, Reason: fmt.Sprintf("generic sender name: %q", p)}
		}
	}

	return HeaderResult{}
}

// localPart returns the part of an address before the '@'
func localPart(address string) string {
	if i := strings.IndexByte(address, '@'); i >= 0 {
		return address[:i]
	}
	return address
}
