package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

func enqueueConstruct(t *testing.T, q *persistence.GormTaskQueue, taskID string, now time.Time) *queue.Message {
	t.Helper()
	msg, err := queue.NewConstructMessage(taskID, 60, now)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), msg))
	return msg
}

func TestTaskQueue_ReceiveLeasesOldestFirst(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)

	first := enqueueConstruct(t, q, "task-1", clock.Now())
	clock.Advance(time.Second)
	enqueueConstruct(t, q, "task-2", clock.Now())

	// Act
	msg, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, first.ID, msg.ID)
	assert.Equal(t, 1, msg.Attempts)
	assert.NotEmpty(t, msg.LeaseToken)

	payload, err := msg.DecodeConstructPayload()
	require.NoError(t, err)
	assert.Equal(t, "task-1", payload.TaskID)
	assert.Equal(t, 60, payload.DurationSeconds)
}

func TestTaskQueue_LeasedMessageIsInvisible(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)
	enqueueConstruct(t, q, "task-1", clock.Now())

	leased, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, leased)

	again, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, again)

	depth, err := q.Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth.Waiting)
	assert.Equal(t, int64(1), depth.InFlight)
}

func TestTaskQueue_ExpiredLeaseRedelivers(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)
	enqueueConstruct(t, q, "task-1", clock.Now())

	first, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)

	clock.Advance(31 * time.Second)

	second, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Attempts)
	assert.NotEqual(t, first.LeaseToken, second.LeaseToken)

	// The first consumer lost its lease and cannot ack
	err = q.Ack(context.Background(), first)
	var lost *queue.ErrLeaseLost
	assert.True(t, errors.As(err, &lost))

	require.NoError(t, q.Ack(context.Background(), second))
}

func TestTaskQueue_AckRemovesMessage(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)
	enqueueConstruct(t, q, "task-1", clock.Now())

	msg, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Ack(context.Background(), msg))

	clock.Advance(time.Hour)
	next, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, next)

	depth, err := q.Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, queue.Depth{}, depth)
}

func TestTaskQueue_ReleaseDelaysRedelivery(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)
	enqueueConstruct(t, q, "task-1", clock.Now())

	msg, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, q.Release(context.Background(), msg, errors.New("database busy"), 5*time.Second))

	early, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, early)

	clock.Advance(5 * time.Second)
	retried, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, 2, retried.Attempts)
	assert.Equal(t, "database busy", retried.LastError)
}

func TestTaskQueue_DeadLettersAfterMaxAttempts(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 2)
	enqueueConstruct(t, q, "task-1", clock.Now())

	for attempt := 1; attempt <= 2; attempt++ {
		msg, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
		require.NoError(t, err)
		require.NotNil(t, msg, "attempt %d", attempt)
		require.NoError(t, q.Release(context.Background(), msg, errors.New("boom"), 0))
	}

	msg, err := q.Receive(context.Background(), queue.UpgradesQueue, 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, msg)

	depth, err := q.Depth(context.Background(), queue.UpgradesQueue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth.DeadLettered)
	assert.Equal(t, int64(0), depth.Waiting)
}

func TestTaskQueue_EnqueueRejectsDuplicateTaskMessage(t *testing.T) {
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	q := persistence.NewGormTaskQueue(db, clock, 3)
	enqueueConstruct(t, q, "task-1", clock.Now())

	dup, err := queue.NewConstructMessage("task-1", 60, clock.Now())
	require.NoError(t, err)

	assert.Error(t, q.Enqueue(context.Background(), dup))
}
