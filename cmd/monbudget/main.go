package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"monbudget/internal/cli"
	"monbudget/internal/clock"
	"monbudget/internal/config"
	"monbudget/internal/database"
	"monbudget/internal/encryption"
	"monbudget/internal/events"
	"monbudget/internal/logger"
	"monbudget/internal/models"
	"monbudget/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Env)
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	root := cli.NewRootCommand(newBuilder(cfg), clock.System{Location: cfg.Location})
	err = root.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newBuilder wires the batch services against the configured database and broker.
func newBuilder(cfg *config.Config) cli.Builder {
	return func(clk clock.Clock) (*cli.Runtime, func(), error) {
		dbManager, err := database.NewManager(database.NewConfig(cfg.Database))
		if err != nil {
			return nil, nil, err
		}
		if err := dbManager.RunMigrations(); err != nil {
			_ = dbManager.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}

		var cipher *encryption.Cipher
		if cfg.EncryptionKey != "" {
			if cipher, err = encryption.New(cfg.EncryptionKey); err != nil {
				_ = dbManager.Close()
				return nil, nil, err
			}
		}

		publisher, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue)
		if err != nil {
			_ = dbManager.Close()
			return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}

		db := dbManager.DB()
		audit := services.NewAuditService(db)
		thresholds := models.AlertThresholds{
			Warning:  cfg.Alerts.Warning,
			Alert:    cfg.Alerts.Alert,
			Critical: cfg.Alerts.Critical,
		}

		rt := &cli.Runtime{
			Executor:       services.NewRecurrenceEngine(db, clk, audit),
			Evaluator:      services.NewBudgetAlertService(db, publisher, thresholds, clk),
			IBANs:          services.NewIBANMigrationService(db, cipher, audit),
			PushgatewayURL: cfg.PushgatewayURL,
		}
		cleanup := func() {
			if err := publisher.Close(); err != nil {
				logger.Get().Warnw("Failed to close publisher", "error", err)
			}
			if err := dbManager.Close(); err != nil {
				logger.Get().Warnw("Failed to close database", "error", err)
			}
		}
		return rt, cleanup, nil
	}
}
