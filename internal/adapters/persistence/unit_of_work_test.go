package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

func TestUnitOfWork_CommitsAllWrites(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	uow := persistence.NewGormUnitOfWork(db, clock, 3)
	user := helpers.CreateUser(t, db, clock, "player1", 100, 100)
	task := newTask(t, user.ID(), "Sawmill", clock.Now())

	// Act
	err := uow.Do(context.Background(), func(ctx context.Context, tx construction.Tx) error {
		if _, err := tx.Ledger.Deduct(ctx, user.ID(), task.Cost()); err != nil {
			return err
		}
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return err
		}
		msg, err := queue.NewConstructMessage(task.ID(), task.DurationSeconds(), clock.Now())
		if err != nil {
			return err
		}
		return tx.Queue.Enqueue(ctx, msg)
	})

	// Assert
	require.NoError(t, err)

	balance, err := persistence.NewGormResourceLedger(db, clock).GetBalance(context.Background(), user.ID())
	require.NoError(t, err)
	assert.Equal(t, 50, balance.Wood())
	assert.Equal(t, 70, balance.Food())

	_, err = persistence.NewGormConstructionTaskRepository(db).FindByID(context.Background(), task.ID())
	require.NoError(t, err)

	depth, err := persistence.NewGormTaskQueue(db, clock, 3).Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth.Waiting)
}

func TestUnitOfWork_RollsBackOnError(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	uow := persistence.NewGormUnitOfWork(db, clock, 3)
	user := helpers.CreateUser(t, db, clock, "player1", 100, 100)
	task := newTask(t, user.ID(), "Sawmill", clock.Now())
	boom := errors.New("enqueue failed")

	err := uow.Do(context.Background(), func(ctx context.Context, tx construction.Tx) error {
		if _, err := tx.Ledger.Deduct(ctx, user.ID(), resources.Cost{Wood: 50, Food: 30}); err != nil {
			return err
		}
		if err := tx.Tasks.Create(ctx, task); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)

	balance, err := persistence.NewGormResourceLedger(db, clock).GetBalance(context.Background(), user.ID())
	require.NoError(t, err)
	assert.Equal(t, 100, balance.Wood())
	assert.Equal(t, 100, balance.Food())

	_, err = persistence.NewGormConstructionTaskRepository(db).FindByID(context.Background(), task.ID())
	var notFound *construction.ErrTaskNotFound
	assert.ErrorAs(t, err, &notFound)
}
