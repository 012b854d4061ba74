package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-gatekeeper/internal/adapters/imapmail"
	"github.com/mikey/mail-gatekeeper/internal/adapters/mime"
	"github.com/mikey/mail-gatekeeper/internal/adapters/smtpmail"
	"github.com/mikey/mail-gatekeeper/internal/audit"
	"github.com/mikey/mail-gatekeeper/internal/batch"
	"github.com/mikey/mail-gatekeeper/internal/challenge"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/factory"
	"github.com/mikey/mail-gatekeeper/internal/heuristics"
	"github.com/mikey/mail-gatekeeper/internal/logging"
	"github.com/mikey/mail-gatekeeper/internal/orchestrator"
	"github.com/mikey/mail-gatekeeper/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewArbiterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewTrustStoreFactory); err != nil {
		return nil, err
	}

	// Register the run settings and classification profile
	if err := container.Provide(func(cfg *config.Config) (config.GatekeeperConfig, error) {
		return cfg.GetGatekeeper()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(gk config.GatekeeperConfig) (heuristics.Profile, error) {
		return heuristics.ProfileByName(gk.Profile)
	}); err != nil {
		return nil, err
	}

	// Register the trust store
	if err := container.Provide(func(f *factory.TrustStoreFactory) (core.TrustStore, error) {
		return f.CreateTrustStore()
	}); err != nil {
		return nil, err
	}

	// Register the LLM arbiter
	if err := container.Provide(func(f *factory.ArbiterFactory, profile heuristics.Profile) (core.Arbiter, error) {
		return f.CreateArbiter(profile)
	}); err != nil {
		return nil, err
	}

	// Register the header classifier
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *heuristics.HeaderClassifier {
		return heuristics.NewHeaderClassifier(cfg.GetStringSlice("heuristics.sender_prefixes"), logger)
	}); err != nil {
		return nil, err
	}

	// Register the message normalizer
	if err := container.Provide(func(profile heuristics.Profile, tp *utils.TextProcessor, logger *zap.Logger) *mime.Normalizer {
		return mime.NewNormalizer(profile.MaxBodySize, tp, logger)
	}); err != nil {
		return nil, err
	}

	// Register the mail transport
	if err := container.Provide(func(cfg *config.Config, normalizer *mime.Normalizer, logger *zap.Logger) (core.MailTransport, error) {
		imapCfg, err := cfg.GetIMAP()
		if err != nil {
			return nil, err
		}
		return imapmail.Dial(imapCfg, normalizer, logger)
	}); err != nil {
		return nil, err
	}

	// Register the mail sender; dry-run suppresses real sends
	if err := container.Provide(func(cfg *config.Config, gk config.GatekeeperConfig, logger *zap.Logger) (core.MailSender, error) {
		if gk.DryRun {
			return smtpmail.NewDryRunSender(logger), nil
		}
		smtpCfg, err := cfg.GetSMTP()
		if err != nil {
			return nil, err
		}
		return smtpmail.NewSender(smtpCfg, gk.Owner, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register the challenge engine
	if err := container.Provide(func(
		store core.TrustStore,
		sender core.MailSender,
		transport core.MailTransport,
		cfg *config.Config,
		gk config.GatekeeperConfig,
		logger *zap.Logger,
	) (*challenge.Engine, error) {
		challengeCfg, err := cfg.GetChallenge()
		if err != nil {
			return nil, err
		}
		return challenge.NewEngine(store, sender, transport, challengeCfg, gk.Owner, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register the orchestrator
	if err := container.Provide(orchestrator.New); err != nil {
		return nil, err
	}

	// Register the audit sink
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.AuditSink {
		return audit.NewCSVSink(cfg.GetString("audit.path"), logger)
	}); err != nil {
		return nil, err
	}

	// Register the batch runner
	if err := container.Provide(func(
		transport core.MailTransport,
		orch *orchestrator.Orchestrator,
		engine *challenge.Engine,
		sink core.AuditSink,
		gk config.GatekeeperConfig,
		logger *zap.Logger,
	) *batch.Runner {
		return batch.NewRunner(transport, orch, engine, sink, gk.Owner, gk.BatchSize, gk.Workers, gk.RunTimeout, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
