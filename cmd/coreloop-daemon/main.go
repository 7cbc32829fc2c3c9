package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/andrescamacho/coreloop-go/internal/adapters/api"
	daemongrpc "github.com/andrescamacho/coreloop-go/internal/adapters/grpc"
	"github.com/andrescamacho/coreloop-go/internal/adapters/metrics"
	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	constructionServices "github.com/andrescamacho/coreloop-go/internal/application/construction/services"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	resourceServices "github.com/andrescamacho/coreloop-go/internal/application/resources/services"
	"github.com/andrescamacho/coreloop-go/internal/application/setup"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/database"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/logging"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/pidfile"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search ./config.yaml, ./configs, /etc/coreloop)")
	flag.Parse()

	cfg := config.MustLoadConfig(*configPath)

	logger, syncLogger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syncLogger()

	pf := pidfile.New(cfg.Daemon.PIDFile)
	if err := pf.Acquire(); err != nil {
		logger.Fatal("failed to acquire PID file lock", zap.String("pid_file", pf.Path()), zap.Error(err))
	}
	defer func() {
		if err := pf.Release(); err != nil {
			logger.Warn("failed to release PID file", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("daemon failed", zap.Error(err))
		syncLogger()
		pf.Release()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	// 1. Database
	logger.Info("connecting to database", zap.String("type", cfg.Database.Type))
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. Repositories
	playerRepo := persistence.NewGormPlayerRepository(db)
	ledger := persistence.NewGormResourceLedger(db, nil)
	tickLogRepo := persistence.NewGormTickLogRepository(db)
	taskRepo := persistence.NewGormConstructionTaskRepository(db)
	taskQueue := persistence.NewGormTaskQueue(db, nil, cfg.Queue.MaxAttempts)
	uow := persistence.NewGormUnitOfWork(db, nil, cfg.Queue.MaxAttempts)

	// 3. Metrics, before anything records
	var middlewares []mediator.Middleware
	var metricsServer *metrics.Server
	var pollers []interface{ Stop() }
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()

		tickCollector := metrics.NewTickMetricsCollector()
		constructionCollector := metrics.NewConstructionMetricsCollector(db, logger)
		queueCollector := metrics.NewQueueMetricsCollector(taskQueue, queue.UpgradesQueue, logger)
		commandCollector := metrics.NewCommandMetricsCollector()

		for _, c := range []interface{ Register() error }{tickCollector, constructionCollector, queueCollector, commandCollector} {
			if err := c.Register(); err != nil {
				return fmt.Errorf("failed to register metrics: %w", err)
			}
		}
		metrics.SetGlobalTickCollector(tickCollector)
		metrics.SetGlobalConstructionCollector(constructionCollector)
		metrics.SetGlobalQueueCollector(queueCollector)
		middlewares = append(middlewares, metrics.PrometheusMiddleware(commandCollector))

		constructionCollector.Start(ctx)
		queueCollector.Start(ctx)
		pollers = append(pollers, constructionCollector, queueCollector)

		metricsServer = metrics.NewServer(cfg.Metrics, logger)
		metricsServer.Start()
	}

	// 4. Tick scheduler
	ticker := resourceServices.NewTickScheduler(ledger, tickLogRepo, playerRepo, nil, logger,
		resourceServices.TickSchedulerConfig{
			Interval:    cfg.Tick.Interval,
			WoodPerTick: cfg.Tick.WoodPerTick,
			FoodPerTick: cfg.Tick.FoodPerTick,
		})

	// 5. Mediator
	med, err := setup.NewHandlerRegistry(playerRepo, ledger, tickLogRepo, taskRepo, uow, ticker, nil, logger).
		CreateConfiguredMediator(middlewares...)
	if err != nil {
		return fmt.Errorf("failed to create mediator: %w", err)
	}

	// 6. Completion scheduler: re-arm timers of tasks that were in progress
	// when the previous process stopped
	completions := constructionServices.NewCompletionScheduler(taskRepo, nil, logger, cfg.Queue.SweepInterval)
	recovered, err := completions.ScheduleAllPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover in-progress tasks: %w", err)
	}
	logger.Info("in-progress tasks recovered", zap.Int("count", recovered))
	completions.StartSweeper()

	// 7. Queue worker
	worker := constructionServices.NewQueueWorker(taskQueue, taskRepo, completions, nil, logger,
		constructionServices.QueueWorkerConfig{
			QueueName:         queue.UpgradesQueue,
			Workers:           cfg.Queue.Workers,
			VisibilityTimeout: cfg.Queue.VisibilityTimeout,
			PollInterval:      cfg.Queue.PollInterval,
			PollRate:          cfg.Queue.PollRate,
			PollBurst:         cfg.Queue.PollBurst,
			RetryDelay:        cfg.Queue.RetryDelay,
		})

	// 8. gRPC health on the unix socket
	if err := os.MkdirAll(filepath.Dir(cfg.Daemon.SocketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	healthServer, err := daemongrpc.NewDaemonServer(cfg.Daemon.SocketPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon server: %w", err)
	}
	healthServer.Start()

	// 9. Background loops
	if cfg.Tick.Enabled {
		ticker.Start(ctx)
		healthServer.SetServing(daemongrpc.TickerService, true)
	} else {
		logger.Warn("tick scheduler disabled by configuration")
	}
	worker.Start(ctx)
	healthServer.SetServing(daemongrpc.WorkerService, true)

	// 10. HTTP API
	apiServer := api.NewServer(med, cfg.Server, logger)
	if cfg.Metrics.Enabled {
		apiServer.SetMetricsHandler(metrics.Handler())
	}
	apiServer.Start()

	logger.Info("daemon ready",
		zap.String("api", cfg.Server.Address()),
		zap.String("socket", cfg.Daemon.SocketPath))

	<-ctx.Done()
	logger.Info("shutdown signal received, stopping daemon")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Daemon.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	healthServer.SetServing(daemongrpc.WorkerService, false)
	worker.Stop()
	healthServer.SetServing(daemongrpc.TickerService, false)
	ticker.Stop()
	// Due dates are persisted; the next start re-arms whatever is still running
	completions.Stop()
	healthServer.Stop()

	for _, p := range pollers {
		p.Stop()
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}

	logger.Info("daemon stopped")
	return errors.Join(errs...)
}
