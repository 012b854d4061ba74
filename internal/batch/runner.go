package batch

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/challenge"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/orchestrator"
	"go.uber.org/zap"
)

// Runner executes one bounded batch: first the reply-verification pass, then
// classification of recent messages with a sender-affine worker pool.
// Sharding by sender keeps one sender's messages in order, so a promotion is
// visible to that sender's later messages within the same run.
type Runner struct {
	transport  core.MailTransport
	orch       *orchestrator.Orchestrator
	engine     *challenge.Engine
	audit      core.AuditSink
	owner      string
	batchSize  int
	workers    int
	runTimeout time.Duration
	logger     *zap.Logger
}

// NewRunner creates a new batch runner
func NewRunner(
	transport core.MailTransport,
	orch *orchestrator.Orchestrator,
	engine *challenge.Engine,
	audit core.AuditSink,
	owner string,
	batchSize int,
	workers int,
	runTimeout time.Duration,
	logger *zap.Logger,
) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		transport:  transport,
		orch:       orch,
		engine:     engine,
		audit:      audit,
		owner:      core.NormalizeAddress(owner),
		batchSize:  batchSize,
		workers:    workers,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Run processes one batch. Already-computed verdicts are flushed to the
// audit sink even when the run aborts on a transport error or deadline.
func (r *Runner) Run(ctx context.Context) error {
	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	defer func() {
		if err := r.audit.Flush(); err != nil {
			r.logger.Error("Failed to flush audit log", zap.Error(err))
		}
	}()

	// Phase 1: settle outstanding challenges before classifying anything,
	// so a freshly verified sender is recognized as trusted in this run.
	r.logger.Info("Checking for verification replies")
	verifications, err := r.engine.VerifyReplies(ctx)
	if err != nil {
		return fmt.Errorf("verification pass failed: %w", err)
	}
	for _, d := range verifications {
		r.audit.Record(d)
	}
	r.logger.Info("Verification pass complete", zap.Int("decisions", len(verifications)))

	// Phase 2: classify recent messages
	fetched, err := r.transport.FetchRecent(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	r.logger.Info("Classifying recent messages", zap.Int("count", len(fetched)))

	results := make([]*core.Decision, len(fetched))
	queues := make([][]int, r.workers)
	for i, fm := range fetched {
		sender := ""
		if fm.Message != nil {
			sender = fm.Message.Sender
		}
		if fm.Err == nil && sender == r.owner {
			// Sent items can show up in broad mailbox views
			r.logger.Debug("Skipping own message", zap.String("subject", fm.Message.Subject))
			continue
		}
		w := shard(sender, r.workers)
		queues[w] = append(queues[w], i)
	}

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		indices := queues[w]
		if len(indices) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, i := range indices {
				if ctx.Err() != nil {
					// Abandon remaining messages cleanly; computed verdicts
					// are still flushed.
					return
				}
				results[i] = r.classify(ctx, fetched[i])
			}
		}()
	}
	wg.Wait()

	for _, d := range results {
		if d != nil {
			r.audit.Record(d)
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

// classify decides one fetched message, mapping a normalization failure to
// an Error verdict
func (r *Runner) classify(ctx context.Context, fm core.FetchedMessage) *core.Decision {
	if fm.Err != nil {
		sender, subject := "", ""
		if fm.Message != nil {
			sender, subject = fm.Message.Sender, fm.Message.Subject
		}
		return &core.Decision{
			Sender:    sender,
			Subject:   subject,
			Verdict:   core.VerdictError,
			Reason:    fm.Err.Error(),
			DecidedAt: time.Now(),
		}
	}
	return r.orch.Decide(ctx, fm.Message)
}

// shard maps a sender to a worker queue
func shard(sender string, workers int) int {
	h := fnv.New32a()
	h.Write([]byte(sender))
	return int(h.Sum32() % uint32(workers))
}
