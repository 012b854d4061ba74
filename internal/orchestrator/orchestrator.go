package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/challenge"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/heuristics"
	"go.uber.org/zap"
)

// Orchestrator sequences the classification stages for one message into a
// terminal verdict. The first decisive stage wins. The orchestrator itself
// performs no mutation; sending mail and writing the trust store are
// delegated to the challenge engine.
type Orchestrator struct {
	store   core.TrustStore
	header  *heuristics.HeaderClassifier
	profile heuristics.Profile
	arbiter core.Arbiter
	engine  *challenge.Engine
	logger  *zap.Logger
}

// New creates a new orchestrator
func New(
	store core.TrustStore,
	header *heuristics.HeaderClassifier,
	profile heuristics.Profile,
	arbiter core.Arbiter,
	engine *challenge.Engine,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:   store,
		header:  header,
		profile: profile,
		arbiter: arbiter,
		engine:  engine,
		logger:  logger,
	}
}

// Decide classifies one message. Classification-service failures fail
// closed; only the verdict and reason record them.
func (o *Orchestrator) Decide(ctx context.Context, msg *core.Message) *core.Decision {
	// 1. Trusted sender short-circuits everything
	trusted, err := o.store.Contains(ctx, msg.Sender)
	if err != nil {
		return o.decision(msg, core.VerdictError, fmt.Sprintf("trust store lookup failed: %v", err))
	}
	if trusted {
		return o.decision(msg, core.VerdictWhitelisted, "sender is whitelisted")
	}

	// 2. Header heuristic
	if hr := o.header.Classify(msg); hr.IsBot {
		return o.decision(msg, core.VerdictBotHeaderSignal, hr.Reason)
	}

	// 3. Lexical heuristic
	if score := o.profile.Score(msg.Subject, msg.Body); score.IsSpam {
		return o.decision(msg, core.VerdictBotLexicalSignal,
			fmt.Sprintf("score %.1f >= %.1f: %s", score.Total, o.profile.Threshold, score.Reason()))
	}

	// 4. LLM arbitration; failures mean "do not trust automatically"
	result, err := o.arbiter.Judge(ctx, msg.Subject, msg.Body)
	if err != nil {
		return o.decision(msg, core.VerdictBotLLM,
			fmt.Sprintf("classifier unavailable, failing closed: %v", err))
	}
	if !result.Human {
		return o.decision(msg, core.VerdictBotLLM, result.Reason)
	}

	// Looks human: put the sender through verification
	pc, err := o.engine.Issue(ctx, msg.Sender)
	if err != nil {
		return o.decision(msg, core.VerdictError,
			fmt.Sprintf("failed to issue challenge: %v", err))
	}
	if pc == nil {
		if o.engine.IsOwner(msg.Sender) {
			return o.decision(msg, core.VerdictWhitelisted, "message from the mailbox owner")
		}
		// The engine found the sender already verified (e.g. promoted by an
		// earlier message in this run); treat it as trusted.
		return o.decision(msg, core.VerdictWhitelisted, "sender verified during this run")
	}
	return o.decision(msg, core.VerdictChallenged,
		fmt.Sprintf("verification challenge outstanding (ref %s)", pc.Ref))
}

func (o *Orchestrator) decision(msg *core.Message, verdict core.Verdict, reason string) *core.Decision {
	o.logger.Debug("Decided message",
		zap.String("sender", msg.Sender),
		zap.String("verdict", string(verdict)),
		zap.String("reason", reason))
	return &core.Decision{
		Sender:    msg.Sender,
		Subject:   msg.Subject,
		Verdict:   verdict,
		Reason:    reason,
		DecidedAt: time.Now(),
	}
}
