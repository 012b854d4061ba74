package challenge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// State tracks a sender through the verification protocol
type State int

const (
	StateUnknown State = iota
	StateChallenged
	StateVerified
)

const challengeBody = `Hello,

I am an automated email screening system. Your message has passed the
initial checks, but before it is delivered we need to confirm a human wrote
it: please reply to this email and include the first name of the person you
are trying to reach.

Once verified, this message and all future messages will be delivered right
away.

Thank you,
Automated Gatekeeper`

var refPattern = regexp.MustCompile(`\[ref:([0-9a-f]{8})\]`)

// Engine is the challenge-response verification state machine. It owns the
// set of pending challenges and is the only component allowed to mutate the
// trust store.
type Engine struct {
	store     core.TrustStore
	sender    core.MailSender
	transport core.MailTransport
	owner     string
	subject   string
	secret    string
	ttl       time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	states  map[string]State
	pending map[string]*core.PendingChallenge // keyed by recipient
	byRef   map[string]string                 // ref -> recipient

	now    func() time.Time
	newRef func() string
}

// NewEngine creates a new challenge-response engine. owner is the mailbox
// owner's address; the engine never challenges it and never accepts a
// verification from it.
func NewEngine(
	store core.TrustStore,
	sender core.MailSender,
	transport core.MailTransport,
	cfg config.ChallengeConfig,
	owner string,
	logger *zap.Logger,
) *Engine {
	if cfg.Secret == "" {
		logger.Warn("Challenge secret is empty; no reply can ever verify")
	}
	return &Engine{
		store:     store,
		sender:    sender,
		transport: transport,
		owner:     core.NormalizeAddress(owner),
		subject:   cfg.Subject,
		secret:    cfg.Secret,
		ttl:       cfg.TTL,
		logger:    logger,
		states:    make(map[string]State),
		pending:   make(map[string]*core.PendingChallenge),
		byRef:     make(map[string]string),
		now:       time.Now,
		newRef:    randomRef,
	}
}

// randomRef generates the per-challenge correlation token
func randomRef() string {
	var b [4]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// IsOwner reports whether the address is the mailbox owner's
func (e *Engine) IsOwner(address string) bool {
	return core.NormalizeAddress(address) == e.owner
}

// Issue sends a verification challenge to the recipient unless one is
// already outstanding, the recipient is already verified, or the recipient
// is the mailbox owner. Re-issuing for the same address is a no-op that
// returns the existing challenge.
func (e *Engine) Issue(ctx context.Context, recipient string) (*core.PendingChallenge, error) {
	addr := core.NormalizeAddress(recipient)
	if addr == "" || addr == e.owner {
		return nil, nil
	}

	e.mu.Lock()
	e.expireLocked()
	switch e.states[addr] {
	case StateChallenged:
		pc := e.pending[addr]
		e.mu.Unlock()
		return pc, nil
	case StateVerified:
		e.mu.Unlock()
		return nil, nil
	}
	e.mu.Unlock()

	trusted, err := e.store.Contains(ctx, addr)
	if err != nil {
		return nil, err
	}
	if trusted {
		e.mu.Lock()
		e.states[addr] = StateVerified
		e.mu.Unlock()
		return nil, nil
	}

	ref := e.newRef()
	pc := &core.PendingChallenge{
		Recipient: addr,
		Subject:   fmt.Sprintf("%s [ref:%s]", e.subject, ref),
		Ref:       ref,
		IssuedAt:  e.now(),
	}

	// Register before sending so a concurrent classification of the same
	// sender cannot double-send.
	e.mu.Lock()
	if e.states[addr] == StateChallenged {
		existing := e.pending[addr]
		e.mu.Unlock()
		return existing, nil
	}
	e.states[addr] = StateChallenged
	e.pending[addr] = pc
	e.byRef[ref] = addr
	e.mu.Unlock()

	if err := e.sender.Send(ctx, addr, pc.Subject, challengeBody); err != nil {
		e.mu.Lock()
		delete(e.pending, addr)
		delete(e.byRef, ref)
		delete(e.states, addr)
		e.mu.Unlock()
		return nil, err
	}

	e.logger.Info("Issued verification challenge",
		zap.String("recipient", addr),
		zap.String("ref", ref))
	return pc, nil
}

// VerifyReplies scans the mailbox for replies to outstanding challenges,
// checks the secret token, and promotes verified senders into the trust
// store. It returns one decision per examined reply for the audit trail.
func (e *Engine) VerifyReplies(ctx context.Context) ([]*core.Decision, error) {
	fetched, err := e.transport.FetchBySubject(ctx, e.subject)
	if err != nil {
		return nil, err
	}

	var decisions []*core.Decision
	for _, fm := range fetched {
		if d := e.verifyReply(ctx, fm); d != nil {
			decisions = append(decisions, d)
		}
	}
	return decisions, nil
}

// verifyReply settles one candidate reply; nil means it produced no auditable
// outcome (our own sent challenge, a rescan of a settled reply, or noise)
func (e *Engine) verifyReply(ctx context.Context, fm core.FetchedMessage) *core.Decision {
	if fm.Err != nil {
		sender, subject := "", ""
		if fm.Message != nil {
			sender, subject = fm.Message.Sender, fm.Message.Subject
		}
		if sender == e.owner {
			return nil
		}
		return e.decision(sender, subject, core.VerdictError, fm.Err.Error())
	}

	msg := fm.Message
	// Never treat our own sent challenge as a reply to itself, and never
	// promote the owner's address no matter what the body contains.
	if msg.Sender == e.owner {
		return nil
	}

	e.mu.Lock()
	e.expireLocked()
	pc := e.correlateLocked(msg)
	state := e.states[msg.Sender]
	e.mu.Unlock()

	if pc == nil {
		if state != StateVerified {
			e.logger.Debug("Challenge-subject reply without an outstanding challenge",
				zap.String("sender", msg.Sender))
		}
		return nil
	}

	if e.secret == "" || !strings.Contains(strings.ToUpper(msg.Body), strings.ToUpper(e.secret)) {
		e.logger.Info("Reply did not contain the verification token",
			zap.String("sender", msg.Sender))
		// The challenge stays pending; the sender may try again.
		return e.decision(msg.Sender, msg.Subject, core.VerdictVerificationFailed,
			"reply did not contain the verification token")
	}

	if err := e.store.Add(ctx, msg.Sender); err != nil {
		// Promotion failed; do not claim success and leave the challenge open.
		e.logger.Error("Failed to persist verified sender",
			zap.String("sender", msg.Sender),
			zap.Error(err))
		return e.decision(msg.Sender, msg.Subject, core.VerdictError, err.Error())
	}

	e.mu.Lock()
	delete(e.pending, msg.Sender)
	delete(e.byRef, pc.Ref)
	e.states[msg.Sender] = StateVerified
	e.mu.Unlock()

	e.logger.Info("Verified sender promoted to trust store",
		zap.String("sender", msg.Sender),
		zap.String("ref", pc.Ref))
	return e.decision(msg.Sender, msg.Subject, core.VerdictWhitelisted,
		fmt.Sprintf("challenge reply verified (ref %s)", pc.Ref))
}

// correlateLocked finds the outstanding challenge a reply answers: by the
// ref token when it survived the reply's subject, by sender address
// otherwise. A ref belonging to a different sender is ignored rather than
// cross-promoted.
func (e *Engine) correlateLocked(msg *core.Message) *core.PendingChallenge {
	if m := refPattern.FindStringSubmatch(msg.Subject); m != nil {
		if rcpt, ok := e.byRef[m[1]]; ok && rcpt == msg.Sender {
			return e.pending[rcpt]
		}
	}
	return e.pending[msg.Sender]
}

// expireLocked abandons challenges that outlived the TTL; their senders
// return to Unknown and may be challenged again
func (e *Engine) expireLocked() {
	if e.ttl <= 0 {
		return
	}
	cutoff := e.now().Add(-e.ttl)
	for addr, pc := range e.pending {
		if pc.IssuedAt.Before(cutoff) {
			delete(e.pending, addr)
			delete(e.byRef, pc.Ref)
			delete(e.states, addr)
			e.logger.Info("Abandoned expired challenge",
				zap.String("recipient", addr),
				zap.String("ref", pc.Ref),
				zap.Time("issued_at", pc.IssuedAt))
		}
	}
}

// Pending returns the outstanding challenge for an address, if any
func (e *Engine) Pending(address string) (*core.PendingChallenge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pc, ok := e.pending[core.NormalizeAddress(address)]
	return pc, ok
}

// PendingCount reports the number of outstanding challenges
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) decision(sender, subject string, verdict core.Verdict, reason string) *core.Decision {
	return &core.Decision{
		Sender:    sender,
		Subject:   subject,
		Verdict:   verdict,
		Reason:    reason,
		DecidedAt: e.now(),
	}
}
