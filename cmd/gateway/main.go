package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tadbirpay/gardeshgari-withdrawal/internal/bank"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/config"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/infrastructure/persistence"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/infrastructure/persistence/postgres"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/worker"
	"github.com/tadbirpay/gardeshgari-withdrawal/internal/workflow"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting withdrawal service",
		"env", cfg.Primary.Env,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepository(db.Pool)
	gatewayRepo := postgres.NewGatewayRepository(db.Pool)

	bankClient := bank.NewClient(cfg.BankClient, logger)
	flow := workflow.NewWorkflow(bankClient, workflow.Options{
		MaxExecutionAttempts: cfg.BankClient.MaxExecutionAttempts,
		RefreshThreshold:     cfg.BankClient.RefreshThreshold,
		RetryDelay:           cfg.BankClient.RetryDelay,
	}, logger)

	poller := worker.NewPoller(
		orderRepo,
		gatewayRepo,
		flow,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go poller.Start(workerCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	cancelWorkers()
	logger.Info("service exited")
}
