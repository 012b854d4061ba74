package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/mail-gatekeeper/internal/batch"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/di"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	runner *batch.Runner,
	transport core.MailTransport,
	arbiter core.Arbiter,
) error {
	defer logger.Sync()

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := runner.Run(ctx)
	if runErr != nil {
		logger.Error("Batch run failed", zap.Error(runErr))
	} else {
		logger.Info("Batch run complete")
	}

	// Close any resources that need closing
	if closer, ok := transport.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close mail transport", zap.Error(err))
		}
	}
	if closer, ok := arbiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM arbiter", zap.Error(err))
		}
	}

	return runErr
}
