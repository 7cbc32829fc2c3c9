package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	resourceServices "github.com/andrescamacho/coreloop-go/internal/application/resources/services"
	"github.com/andrescamacho/coreloop-go/internal/application/setup"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/database"
)

// commandTimeout bounds a single CLI invocation
const commandTimeout = 30 * time.Second

// app is the locally wired application a command runs against
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	mediator mediator.Mediator
}

func openApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger := zap.NewNop()
	if verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}

	players := persistence.NewGormPlayerRepository(db)
	ledger := persistence.NewGormResourceLedger(db, nil)
	tickLog := persistence.NewGormTickLogRepository(db)
	tasks := persistence.NewGormConstructionTaskRepository(db)
	uow := persistence.NewGormUnitOfWork(db, nil, cfg.Queue.MaxAttempts)
	ticker := resourceServices.NewTickScheduler(ledger, tickLog, players, nil, logger,
		resourceServices.TickSchedulerConfig{
			Interval:    cfg.Tick.Interval,
			WoodPerTick: cfg.Tick.WoodPerTick,
			FoodPerTick: cfg.Tick.FoodPerTick,
		})

	m, err := setup.NewHandlerRegistry(players, ledger, tickLog, tasks, uow, ticker, nil, logger).CreateConfiguredMediator()
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to create mediator: %w", err)
	}

	return &app{cfg: cfg, db: db, mediator: m}, nil
}

func (a *app) Close() {
	_ = database.Close(a.db)
}

// withApp opens the application for one command and closes it afterwards
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	return fn(ctx, a)
}

// resolveUserID picks the user a command acts on.
// Priority: positional argument > --user flag > user config default.
func resolveUserID(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if userID != "" {
		return userID, nil
	}

	userConfigHandler, err := config.NewUserConfigHandler()
	if err != nil {
		return "", fmt.Errorf("no user specified and failed to load user config: %w", err)
	}
	userCfg, err := userConfigHandler.Load()
	if err != nil {
		return "", fmt.Errorf("no user specified and failed to load user config: %w", err)
	}
	if userCfg.DefaultUserID != "" {
		return userCfg.DefaultUserID, nil
	}

	return "", fmt.Errorf("no user specified (use --user or 'coreloop config set-user')")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func ptr[T any](v T) *T {
	return &v
}
