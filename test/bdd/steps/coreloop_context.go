package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/construction/services"
	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	resourceServices "github.com/andrescamacho/coreloop-go/internal/application/resources/services"
	"github.com/andrescamacho/coreloop-go/internal/application/setup"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

const testMaxAttempts = 3

var errLedgerUnavailable = errors.New("ledger unavailable")

// flakyLedger fails credits for the users marked failing
type flakyLedger struct {
	resources.Ledger

	mu      sync.Mutex
	failing map[string]bool
}

func (l *flakyLedger) fail(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failing[userID] = true
}

func (l *flakyLedger) Add(ctx context.Context, userID string, amount resources.Cost) (*resources.Balance, error) {
	l.mu.Lock()
	failing := l.failing[userID]
	l.mu.Unlock()

	if failing {
		return nil, errLedgerUnavailable
	}
	return l.Ledger.Add(ctx, userID, amount)
}

// coreLoopContext is the world shared by the ledger, upgrade, tick and
// queue scenarios. Everything runs against the shared SQLite database.
type coreLoopContext struct {
	db       *gorm.DB
	clock    *shared.MockClock
	players  *persistence.GormPlayerRepository
	ledger   *persistence.GormResourceLedger
	flaky    *flakyLedger
	tickLog  *persistence.GormTickLogRepository
	tasks    *persistence.GormConstructionTaskRepository
	queue    *persistence.GormTaskQueue
	uow      *persistence.GormUnitOfWork
	ticker   *resourceServices.TickScheduler
	mediator mediator.Mediator

	scheduler *services.CompletionScheduler
	worker    *services.QueueWorker

	users map[string]string

	task          *construction.Task
	err           error
	summary       *resources.TickSummary
	delivery      *services.ConstructResult
	sweepCount    int
	deductSuccess int
	deductFailure int
}

// InitializeCoreLoopScenario registers the application-level steps
func InitializeCoreLoopScenario(sc *godog.ScenarioContext) {
	c := &coreLoopContext{}

	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		return ctx, c.reset()
	})

	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		c.stopServices()
		return ctx, nil
	})

	// Shared steps
	sc.Step(`^the following users exist:$`, c.theFollowingUsersExist)
	sc.Step(`^"([^"]*)" should have (-?\d+) wood and (-?\d+) food$`, c.userShouldHaveBalance)
	sc.Step(`^the operation should succeed$`, c.theOperationShouldSucceed)
	sc.Step(`^the operation should fail$`, c.theOperationShouldFail)
	sc.Step(`^the operation should fail with an invalid transition$`, c.theOperationShouldFailWithAnInvalidTransition)
	sc.Step(`^the operation should fail with "([^"]*)"$`, c.theOperationShouldFailWith)
	sc.Step(`^(\d+) seconds pass$`, c.secondsPass)

	registerLedgerSteps(sc, c)
	registerUpgradeSteps(sc, c)
	registerTickSteps(sc, c)
	registerQueueSteps(sc, c)
}

func (c *coreLoopContext) reset() error {
	c.stopServices()

	if err := helpers.ResetSharedTestDB(); err != nil {
		return err
	}

	c.db = helpers.SharedTestDB
	c.clock = shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	c.players = persistence.NewGormPlayerRepository(c.db)
	c.ledger = persistence.NewGormResourceLedger(c.db, c.clock)
	c.flaky = &flakyLedger{Ledger: c.ledger, failing: make(map[string]bool)}
	c.tickLog = persistence.NewGormTickLogRepository(c.db)
	c.tasks = persistence.NewGormConstructionTaskRepository(c.db)
	c.queue = persistence.NewGormTaskQueue(c.db, c.clock, testMaxAttempts)
	c.uow = persistence.NewGormUnitOfWork(c.db, c.clock, testMaxAttempts)
	c.ticker = resourceServices.NewTickScheduler(c.flaky, c.tickLog, c.players, c.clock, nil,
		resourceServices.TickSchedulerConfig{Interval: time.Minute, WoodPerTick: 10, FoodPerTick: 10})

	m, err := setup.NewHandlerRegistry(c.players, c.ledger, c.tickLog, c.tasks, c.uow, c.ticker, c.clock, nil).
		CreateConfiguredMediator()
	if err != nil {
		return fmt.Errorf("failed to build mediator: %w", err)
	}
	c.mediator = m

	c.startServices()

	c.users = make(map[string]string)
	c.task = nil
	c.err = nil
	c.summary = nil
	c.delivery = nil
	c.sweepCount = 0
	c.deductSuccess = 0
	c.deductFailure = 0
	return nil
}

// startServices builds a fresh completion scheduler and worker, as a daemon does on boot
func (c *coreLoopContext) startServices() {
	c.scheduler = services.NewCompletionScheduler(c.tasks, c.clock, nil, time.Hour)

	cfg := services.DefaultQueueWorkerConfig()
	cfg.RetryDelay = 0
	c.worker = services.NewQueueWorker(c.queue, c.tasks, c.scheduler, c.clock, nil, cfg)
}

func (c *coreLoopContext) stopServices() {
	if c.scheduler != nil {
		c.scheduler.Stop()
		c.scheduler = nil
	}
	c.worker = nil
}

func (c *coreLoopContext) userID(username string) (string, error) {
	id, ok := c.users[username]
	if !ok {
		return "", fmt.Errorf("user %s was not created in this scenario", username)
	}
	return id, nil
}

func (c *coreLoopContext) theFollowingUsersExist(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		username := getCellValueFromTable(table, row, "username")
		wood, err := parseIntCell(table, row, "wood")
		if err != nil {
			return err
		}
		food, err := parseIntCell(table, row, "food")
		if err != nil {
			return err
		}

		p, err := helpers.SeedUser(context.Background(), c.db, c.clock, username, wood, food)
		if err != nil {
			return fmt.Errorf("failed to create user %s: %w", username, err)
		}
		c.users[username] = p.ID()
	}
	return nil
}

func (c *coreLoopContext) userShouldHaveBalance(username string, wood, food int) error {
	id, err := c.userID(username)
	if err != nil {
		return err
	}

	balance, err := c.ledger.GetBalance(context.Background(), id)
	if err != nil {
		return err
	}
	if balance.Wood() != wood || balance.Food() != food {
		return fmt.Errorf("expected %s to have %d wood and %d food, got %d wood and %d food",
			username, wood, food, balance.Wood(), balance.Food())
	}
	return nil
}

func (c *coreLoopContext) theOperationShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected success, got error: %v", c.err)
	}
	return nil
}

func (c *coreLoopContext) theOperationShouldFail() error {
	if c.err == nil {
		return fmt.Errorf("expected an error, got none")
	}
	return nil
}

func (c *coreLoopContext) theOperationShouldFailWithAnInvalidTransition() error {
	var invalid *construction.ErrInvalidTaskTransition
	if !errors.As(c.err, &invalid) {
		return fmt.Errorf("expected an invalid transition error, got %v", c.err)
	}
	return nil
}

func (c *coreLoopContext) theOperationShouldFailWith(message string) error {
	if c.err == nil {
		return fmt.Errorf("expected error containing %q, got none", message)
	}
	if !strings.Contains(c.err.Error(), message) {
		return fmt.Errorf("expected error containing %q, got %q", message, c.err.Error())
	}
	return nil
}

func (c *coreLoopContext) secondsPass(seconds int) error {
	c.clock.Advance(time.Duration(seconds) * time.Second)
	return nil
}

func (c *coreLoopContext) waitingMessages() (int64, error) {
	depth, err := c.queue.Depth(context.Background(), queue.UpgradesQueue)
	if err != nil {
		return 0, err
	}
	return depth.Waiting, nil
}

func parseIntCell(table *godog.Table, row *messages.PickleTableRow, column string) (int, error) {
	var n int
	value := getCellValueFromTable(table, row, column)
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("column %s: %q is not a number", column, value)
	}
	return n, nil
}

func getCellValueFromTable(table *godog.Table, row *messages.PickleTableRow, columnName string) string {
	if len(table.Rows) == 0 {
		return ""
	}

	headerRow := table.Rows[0]

	for i, headerCell := range headerRow.Cells {
		if headerCell.Value == columnName {
			if i < len(row.Cells) {
				return row.Cells[i].Value
			}
			return ""
		}
	}

	return ""
}
