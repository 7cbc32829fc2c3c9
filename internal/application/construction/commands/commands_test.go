package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/construction/commands"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

type fixture struct {
	db     *gorm.DB
	clock  *shared.MockClock
	uow    *persistence.GormUnitOfWork
	ledger *persistence.GormResourceLedger
	tasks  *persistence.GormConstructionTaskRepository
	queue  *persistence.GormTaskQueue
}

func newFixture(t *testing.T) *fixture {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return &fixture{
		db:     db,
		clock:  clock,
		uow:    persistence.NewGormUnitOfWork(db, clock, 3),
		ledger: persistence.NewGormResourceLedger(db, clock),
		tasks:  persistence.NewGormConstructionTaskRepository(db),
		queue:  persistence.NewGormTaskQueue(db, clock, 3),
	}
}

func (f *fixture) user(t *testing.T, wood, food int) *player.Player {
	return helpers.CreateUser(t, f.db, f.clock, "player1", wood, food)
}

func (f *fixture) create(t *testing.T, userID string, wood, food int) (*commands.CreateUpgradeResponse, error) {
	handler := commands.NewCreateUpgradeHandler(f.uow, f.clock, nil)
	resp, err := handler.Handle(context.Background(), &commands.CreateUpgradeCommand{
		UserID:      userID,
		UpgradeType: "building",
		UpgradeName: "Sawmill",
		WoodCost:    wood,
		FoodCost:    food,
	})
	if err != nil {
		return nil, err
	}
	return resp.(*commands.CreateUpgradeResponse), nil
}

func (f *fixture) balance(t *testing.T, userID string) *resources.Balance {
	b, err := f.ledger.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func TestCreateUpgrade_Succeeds(t *testing.T) {
	// Arrange
	f := newFixture(t)
	user := f.user(t, 100, 100)

	// Act
	resp, err := f.create(t, user.ID(), 50, 30)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, construction.TaskStatusPending, resp.Task.Status())
	assert.Equal(t, construction.DefaultDurationSeconds, resp.Task.DurationSeconds())
	assert.Equal(t, 50, resp.Balance.Wood())
	assert.Equal(t, 70, resp.Balance.Food())

	b := f.balance(t, user.ID())
	assert.Equal(t, 50, b.Wood())
	assert.Equal(t, 70, b.Food())

	depth, err := f.queue.Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth.Waiting)
}

func TestCreateUpgrade_InsufficientLeavesBalance(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 40, 100)

	_, err := f.create(t, user.ID(), 50, 30)

	var insufficient *resources.ErrInsufficientResources
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Insufficient wood. Required: 50, Available: 40", err.Error())

	b := f.balance(t, user.ID())
	assert.Equal(t, 40, b.Wood())
	assert.Equal(t, 100, b.Food())

	pending, err := f.tasks.FindPending(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateUpgrade_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(t, "ghost", 1, 1)

	assert.True(t, shared.IsNotFound(err))
}

func TestCreateUpgrade_Validation(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	handler := commands.NewCreateUpgradeHandler(f.uow, f.clock, nil)

	cases := []struct {
		name string
		cmd  *commands.CreateUpgradeCommand
	}{
		{"unknown type", &commands.CreateUpgradeCommand{UserID: user.ID(), UpgradeType: "castle", UpgradeName: "X"}},
		{"blank name", &commands.CreateUpgradeCommand{UserID: user.ID(), UpgradeType: "unit", UpgradeName: "  "}},
		{"negative cost", &commands.CreateUpgradeCommand{UserID: user.ID(), UpgradeType: "unit", UpgradeName: "X", WoodCost: -1}},
		{"negative duration", &commands.CreateUpgradeCommand{UserID: user.ID(), UpgradeType: "unit", UpgradeName: "X", DurationSeconds: -5}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.Handle(context.Background(), tc.cmd)
			assert.True(t, shared.IsValidationError(err), "got %v", err)
		})
	}

	b := f.balance(t, user.ID())
	assert.Equal(t, 100, b.Wood())
}

func TestCreateUpgrade_RollsBackWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	require.NoError(t, f.db.Migrator().DropTable(&persistence.ConstructionTaskModel{}))

	_, err := f.create(t, user.ID(), 50, 30)

	require.Error(t, err)
	b := f.balance(t, user.ID())
	assert.Equal(t, 100, b.Wood())
	assert.Equal(t, 100, b.Food())

	depth, err := f.queue.Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth.Waiting)
}

func TestTransitionTask_RejectsDisallowedEdge(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	created, err := f.create(t, user.ID(), 10, 10)
	require.NoError(t, err)

	handler := commands.NewTransitionTaskHandler(f.tasks, f.uow, f.clock)
	_, err = handler.Handle(context.Background(), &commands.TransitionTaskCommand{
		TaskID: created.Task.ID(),
		Status: construction.TaskStatusCompleted,
	})

	var invalid *construction.ErrInvalidTaskTransition
	require.ErrorAs(t, err, &invalid)

	task, err := f.tasks.FindByID(context.Background(), created.Task.ID())
	require.NoError(t, err)
	assert.Equal(t, construction.TaskStatusPending, task.Status())
	assert.Nil(t, task.CompletedAt())
}

func TestTransitionTask_StartThenComplete(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	created, err := f.create(t, user.ID(), 10, 10)
	require.NoError(t, err)
	handler := commands.NewTransitionTaskHandler(f.tasks, f.uow, f.clock)

	_, err = handler.Handle(context.Background(), &commands.TransitionTaskCommand{TaskID: created.Task.ID(), Status: construction.TaskStatusInProgress})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	resp, err := handler.Handle(context.Background(), &commands.TransitionTaskCommand{TaskID: created.Task.ID(), Status: construction.TaskStatusCompleted})
	require.NoError(t, err)

	task := resp.(*commands.TransitionTaskResponse).Task
	assert.Equal(t, construction.TaskStatusCompleted, task.Status())
	require.NotNil(t, task.CompletedAt())
	assert.True(t, task.CompletedAt().Equal(f.clock.Now()))
}

func TestTransitionTask_NotFound(t *testing.T) {
	f := newFixture(t)
	handler := commands.NewTransitionTaskHandler(f.tasks, f.uow, f.clock)

	_, err := handler.Handle(context.Background(), &commands.TransitionTaskCommand{TaskID: "missing", Status: construction.TaskStatusInProgress})

	assert.True(t, shared.IsNotFound(err))
}

func TestCancelTask_RefundsCost(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	created, err := f.create(t, user.ID(), 50, 30)
	require.NoError(t, err)

	handler := commands.NewCancelTaskHandler(f.uow, f.clock, nil)
	resp, err := handler.Handle(context.Background(), &commands.CancelTaskCommand{TaskID: created.Task.ID()})

	require.NoError(t, err)
	cancelled := resp.(*commands.CancelTaskResponse)
	assert.Equal(t, construction.TaskStatusCancelled, cancelled.Task.Status())
	assert.Equal(t, 100, cancelled.Balance.Wood())
	assert.Equal(t, 100, cancelled.Balance.Food())
}

func TestCancelTask_ThroughTransitionAlsoRefunds(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	created, err := f.create(t, user.ID(), 50, 30)
	require.NoError(t, err)

	handler := commands.NewTransitionTaskHandler(f.tasks, f.uow, f.clock)
	_, err = handler.Handle(context.Background(), &commands.TransitionTaskCommand{TaskID: created.Task.ID(), Status: construction.TaskStatusCancelled})
	require.NoError(t, err)

	b := f.balance(t, user.ID())
	assert.Equal(t, 100, b.Wood())
	assert.Equal(t, 100, b.Food())
}

func TestCancelTask_OnlyPending(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, 100, 100)
	created, err := f.create(t, user.ID(), 50, 30)
	require.NoError(t, err)

	transition := commands.NewTransitionTaskHandler(f.tasks, f.uow, f.clock)
	_, err = transition.Handle(context.Background(), &commands.TransitionTaskCommand{TaskID: created.Task.ID(), Status: construction.TaskStatusInProgress})
	require.NoError(t, err)

	cancel := commands.NewCancelTaskHandler(f.uow, f.clock, nil)
	_, err = cancel.Handle(context.Background(), &commands.CancelTaskCommand{TaskID: created.Task.ID()})

	var invalid *construction.ErrInvalidTaskTransition
	require.True(t, errors.As(err, &invalid))

	b := f.balance(t, user.ID())
	assert.Equal(t, 50, b.Wood(), "no refund for started work")
}
