package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/adapters/smtpmail"
	"github.com/mikey/mail-gatekeeper/internal/challenge"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/heuristics"
	"github.com/mikey/mail-gatekeeper/internal/truststore"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const testOwner = "mikey@example.com"

type fakeStore struct {
	entries     map[string]struct{}
	containsErr error
	adds        []string
}

func newFakeStore(addrs ...string) *fakeStore {
	s := &fakeStore{entries: make(map[string]struct{})}
	for _, a := range addrs {
		s.entries[a] = struct{}{}
	}
	return s
}

func (s *fakeStore) Contains(ctx context.Context, address string) (bool, error) {
	if s.containsErr != nil {
		return false, s.containsErr
	}
	_, ok := s.entries[core.NormalizeAddress(address)]
	return ok, nil
}

func (s *fakeStore) Add(ctx context.Context, address string) error {
	addr := core.NormalizeAddress(address)
	s.entries[addr] = struct{}{}
	s.adds = append(s.adds, addr)
	return nil
}

// fakeArbiter returns a fixed judgment and counts calls
type fakeArbiter struct {
	human  bool
	reason string
	err    error
	calls  int
}

func (a *fakeArbiter) Judge(ctx context.Context, subject, bodySnippet string) (*core.ArbiterResult, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return &core.ArbiterResult{Human: a.human, Reason: a.reason, ModelUsed: "fake"}, nil
}

type fakeSender struct {
	sent    int
	sendErr error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent++
	return nil
}

type fakeTransport struct{}

func (t *fakeTransport) FetchRecent(ctx context.Context, maxCount int) ([]core.FetchedMessage, error) {
	return nil, nil
}

func (t *fakeTransport) FetchBySubject(ctx context.Context, subject string) ([]core.FetchedMessage, error) {
	return nil, nil
}

func newTestOrchestrator(store core.TrustStore, arb core.Arbiter, sender core.MailSender) *Orchestrator {
	logger := zap.NewNop()
	engine := challenge.NewEngine(store, sender, &fakeTransport{}, config.ChallengeConfig{
		Subject: "Action Required: Please verify you are human",
		Secret:  "Mikey",
		TTL:     time.Hour,
	}, testOwner, logger)
	header := heuristics.NewHeaderClassifier(nil, logger)
	return New(store, header, heuristics.Lenient, arb, engine, logger)
}

func msg(sender, subject, body string) *core.Message {
	return &core.Message{Sender: sender, Subject: subject, Body: body}
}

func TestDecideWhitelistedSkipsAllStages(t *testing.T) {
	arb := &fakeArbiter{}
	o := newTestOrchestrator(newFakeStore("friend@example.com"), arb, &fakeSender{})

	// Even a message full of spam signals is delivered from a trusted sender.
	d := o.Decide(context.Background(), msg("friend@example.com", "FREE LOTTERY WINNER!!!", "click here"))
	assert.Equal(t, core.VerdictWhitelisted, d.Verdict)
	assert.Equal(t, "sender is whitelisted", d.Reason)
	assert.Equal(t, 0, arb.calls)
}

func TestDecideHeaderSignal(t *testing.T) {
	arb := &fakeArbiter{}
	o := newTestOrchestrator(newFakeStore(), arb, &fakeSender{})

	m := msg("someone@example.com", "Monthly update", "news from our team")
	m.Headers = map[string]string{"List-Unsubscribe": "<https://example.com/u>"}

	d := o.Decide(context.Background(), m)
	assert.Equal(t, core.VerdictBotHeaderSignal, d.Verdict)
	assert.Equal(t, 0, arb.calls)
}

func TestDecideLexicalSignal(t *testing.T) {
	arb := &fakeArbiter{}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg("scammer@example.com",
		"You are a WINNER", "claim your lottery inheritance now"))
	assert.Equal(t, core.VerdictBotLexicalSignal, d.Verdict)
	assert.Contains(t, d.Reason, "lottery")
	assert.Equal(t, 0, arb.calls)
	assert.Equal(t, 0, sender.sent)
}

func TestDecideLLMSpam(t *testing.T) {
	arb := &fakeArbiter{human: false, reason: "Reads like templated outreach"}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg("sales@example.com",
		"Quick question", "I came across your profile and wanted to connect"))
	assert.Equal(t, core.VerdictBotLLM, d.Verdict)
	assert.Equal(t, "Reads like templated outreach", d.Reason)
	assert.Equal(t, 1, arb.calls)
	assert.Equal(t, 0, sender.sent)
}

func TestDecideHumanIsChallenged(t *testing.T) {
	arb := &fakeArbiter{human: true, reason: "Personal correspondence"}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg("alice@example.com",
		"catching up", "hey, it has been a while. how are you?"))
	assert.Equal(t, core.VerdictChallenged, d.Verdict)
	assert.Contains(t, d.Reason, "verification challenge outstanding")
	assert.Equal(t, 1, sender.sent)
}

func TestDecideSecondMessageFromChallengedSender(t *testing.T) {
	arb := &fakeArbiter{human: true}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)
	ctx := context.Background()

	first := o.Decide(ctx, msg("alice@example.com", "hello", "are you there?"))
	second := o.Decide(ctx, msg("alice@example.com", "hello again", "following up"))

	assert.Equal(t, core.VerdictChallenged, first.Verdict)
	assert.Equal(t, core.VerdictChallenged, second.Verdict)
	// Only one challenge mail goes out per sender.
	assert.Equal(t, 1, sender.sent)
}

func TestDecideFailsClosedOnArbiterError(t *testing.T) {
	arb := &fakeArbiter{err: &core.ClassificationServiceError{
		Provider:  "openai",
		Transient: true,
		Err:       errors.New("request timed out"),
	}}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg("alice@example.com",
		"catching up", "hey, it has been a while"))
	assert.Equal(t, core.VerdictBotLLM, d.Verdict)
	assert.Contains(t, d.Reason, "failing closed")
	// No challenge and no trust store write on the arbiter's account.
	assert.Equal(t, 0, sender.sent)
}

func TestDecideTrustStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.containsErr = &core.PersistenceError{Op: "contains", Err: errors.New("database locked")}
	o := newTestOrchestrator(store, &fakeArbiter{}, &fakeSender{})

	d := o.Decide(context.Background(), msg("alice@example.com", "hi", "hello"))
	assert.Equal(t, core.VerdictError, d.Verdict)
	assert.Contains(t, d.Reason, "trust store lookup failed")
}

func TestDecideChallengeSendFailure(t *testing.T) {
	arb := &fakeArbiter{human: true}
	sender := &fakeSender{sendErr: &core.TransportError{Op: "send", Err: errors.New("connection refused")}}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg("alice@example.com", "hi", "hello"))
	assert.Equal(t, core.VerdictError, d.Verdict)
	assert.Contains(t, d.Reason, "failed to issue challenge")
}

func TestDecideOwnerMessage(t *testing.T) {
	// The batch runner filters the owner's messages before classification,
	// but a decision reached directly must still attribute them honestly
	// rather than claiming a verification that never happened.
	arb := &fakeArbiter{human: true}
	sender := &fakeSender{}
	o := newTestOrchestrator(newFakeStore(), arb, sender)

	d := o.Decide(context.Background(), msg(testOwner, "note to self", "remember the thing"))
	assert.Equal(t, core.VerdictWhitelisted, d.Verdict)
	assert.Equal(t, "message from the mailbox owner", d.Reason)
	assert.Equal(t, 0, sender.sent)
}

func TestDryRunVerdictEquivalence(t *testing.T) {
	// The same message sequence produces the same verdicts whether side
	// effects are real or suppressed, and a dry run changes nothing.
	sequence := []*core.Message{
		msg("friend@example.com", "dinner", "see you at 8"),
		msg("noreply@shop.example.com", "Your parcel", "tracking inside"),
		msg("scam@example.com", "WINNER", "you won the lottery"),
		msg("alice@example.com", "hello", "wanted to ask you something"),
		msg("alice@example.com", "hello again", "following up"),
	}

	run := func(store core.TrustStore, sender core.MailSender) []core.Verdict {
		o := newTestOrchestrator(store, &fakeArbiter{human: true}, sender)
		var verdicts []core.Verdict
		for _, m := range sequence {
			verdicts = append(verdicts, o.Decide(context.Background(), m).Verdict)
		}
		return verdicts
	}

	liveStore := newFakeStore("friend@example.com")
	liveSender := &fakeSender{}
	live := run(liveStore, liveSender)

	dryInner := newFakeStore("friend@example.com")
	dry := run(truststore.NewDryRunStore(dryInner, zap.NewNop()), smtpmail.NewDryRunSender(zap.NewNop()))

	assert.Equal(t, live, dry)
	assert.Equal(t, 1, liveSender.sent)
	// The dry run left the underlying store untouched.
	assert.Empty(t, dryInner.adds)
}

func TestDecideStageOrder(t *testing.T) {
	// A message that would trip every stage settles on the earliest one.
	arb := &fakeArbiter{human: false, reason: "spam"}
	o := newTestOrchestrator(newFakeStore(), arb, &fakeSender{})

	m := msg("noreply@example.com", "WINNER: free lottery!!!", "click here")
	m.Headers = map[string]string{"List-Unsubscribe": "<https://example.com/u>"}

	d := o.Decide(context.Background(), m)
	assert.Equal(t, core.VerdictBotHeaderSignal, d.Verdict)
	assert.Equal(t, 0, arb.calls)
}
