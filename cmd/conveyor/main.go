package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyorworks/conveyor/internal/config"
	"github.com/conveyorworks/conveyor/internal/erp"
	"github.com/conveyorworks/conveyor/internal/extraction"
	"github.com/conveyorworks/conveyor/internal/infrastructure"
	"github.com/conveyorworks/conveyor/internal/mail"
	"github.com/conveyorworks/conveyor/internal/masterdata"
	"github.com/conveyorworks/conveyor/internal/posting"
	"github.com/conveyorworks/conveyor/internal/workflow"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		log.Fatal("infrastructure init failed:", err)
	}

	logger := infra.Logger
	logger.Info(
		"conveyor starting",
		"version", cfg.Version,
		"env", cfg.Env(),
		"batch_size", cfg.Workflow.BatchSize,
	)

	if err := infra.Start(); err != nil {
		logger.Error("infrastructure start failed", "error", err)
		return 2
	}
	defer infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())

	infra.Lifecycle.WaitForStartup()

	ctx, stop := signal.NotifyContext(infra.Lifecycle.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, err := extraction.NewGenAI(ctx, cfg.Extraction.GenAI(), logger)
	if err != nil {
		logger.Error("extraction adapter init failed", "error", err)
		return 2
	}

	erpClient, err := erp.New(cfg.ERP.Client(), logger)
	if err != nil {
		logger.Error("erp client init failed", "error", err)
		return 2
	}

	pool := infra.Database.Pool()
	gateway := posting.NewGateway(
		erpClient,
		posting.NewRepository(pool, logger),
		infra.Locks,
		cfg.Posting.Gateway(),
		logger,
	)

	orchestrator := workflow.New(
		mail.NewLocalStore(cfg.Mail.InboxDir, logger),
		adapter,
		masterdata.New(pool, logger),
		gateway,
		workflow.NewRunRepository(pool, logger),
		workflow.NewOrderRepository(pool, logger),
		cfg.Workflow.Orchestrator(),
		logger,
	)

	run, err := orchestrator.Execute(ctx)

	if run.Report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(run.Report); encErr != nil {
			logger.Warn("report encode failed", "error", encErr)
		}
	}

	if err != nil {
		logger.Error("run failed", "run_id", run.ID, "error", err)
		return 2
	}

	logger.Info("conveyor finished", "run_id", run.ID, "status", run.Status)
	if run.Status == workflow.StatusPartialFailure {
		return 1
	}
	return 0
}
