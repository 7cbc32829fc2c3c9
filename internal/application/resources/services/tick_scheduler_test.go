package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/application/resources/services"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

// failingLedger fails Add for one user and delegates everything else
type failingLedger struct {
	resources.Ledger
	failUserID string
}

func (l *failingLedger) Add(ctx context.Context, userID string, amount resources.Cost) (*resources.Balance, error) {
	if userID == l.failUserID {
		return nil, errors.New("connection reset")
	}
	return l.Ledger.Add(ctx, userID, amount)
}

func TestTickScheduler_RunOnceCreditsEveryUser(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	ledger := persistence.NewGormResourceLedger(db, clock)
	tickLog := persistence.NewGormTickLogRepository(db)
	users := persistence.NewGormPlayerRepository(db)

	alice := helpers.CreateUser(t, db, clock, "player1", 150, 120)
	helpers.CreateUser(t, db, clock, "hero2", 200, 180)

	scheduler := services.NewTickScheduler(ledger, tickLog, users, clock, nil, services.DefaultTickSchedulerConfig())

	// Act
	summary, err := scheduler.RunOnce(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)

	balance, err := ledger.GetBalance(context.Background(), alice.ID())
	require.NoError(t, err)
	assert.Equal(t, 160, balance.Wood())
	assert.Equal(t, 130, balance.Food())
	require.NotNil(t, balance.LastTickAt())
	assert.True(t, balance.LastTickAt().Equal(clock.Now()))

	entries, err := tickLog.Find(context.Background(), resources.TickLogFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTickScheduler_OneUserFailureDoesNotStopBatch(t *testing.T) {
	// Arrange: three users, the second one's credit fails
	db := helpers.NewTestDB(t)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	realLedger := persistence.NewGormResourceLedger(db, clock)
	tickLog := persistence.NewGormTickLogRepository(db)
	users := persistence.NewGormPlayerRepository(db)

	helpers.CreateUser(t, db, clock, "player1", 0, 0)
	clock.Advance(time.Second)
	second := helpers.CreateUser(t, db, clock, "hero2", 40, 50)
	clock.Advance(time.Second)
	helpers.CreateUser(t, db, clock, "builder3", 0, 0)

	ledger := &failingLedger{Ledger: realLedger, failUserID: second.ID()}
	scheduler := services.NewTickScheduler(ledger, tickLog, users, clock, nil, services.DefaultTickSchedulerConfig())

	// Act
	summary, err := scheduler.RunOnce(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	entries, err := tickLog.Find(context.Background(), resources.TickLogFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	successes := 0
	for _, entry := range entries {
		if entry.Success() {
			successes++
			continue
		}
		assert.Equal(t, second.ID(), entry.UserID())
		assert.Equal(t, 0, entry.WoodAdded())
		assert.Equal(t, 40, entry.TotalWoodAfter())
		assert.Equal(t, 50, entry.TotalFoodAfter())
		assert.Contains(t, entry.ErrorMessage(), "connection reset")
	}
	assert.Equal(t, 2, successes)

	balance, err := realLedger.GetBalance(context.Background(), second.ID())
	require.NoError(t, err)
	assert.Equal(t, 40, balance.Wood())
}

func TestTickScheduler_NoUsers(t *testing.T) {
	db := helpers.NewTestDB(t)
	scheduler := services.NewTickScheduler(
		persistence.NewGormResourceLedger(db, nil),
		persistence.NewGormTickLogRepository(db),
		persistence.NewGormPlayerRepository(db),
		nil, nil, services.DefaultTickSchedulerConfig())

	summary, err := scheduler.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
}

func TestTickScheduler_StartStop(t *testing.T) {
	db := helpers.NewTestDB(t)
	tickLog := persistence.NewGormTickLogRepository(db)
	helpers.CreateUser(t, db, nil, "player1", 0, 0)

	cfg := services.DefaultTickSchedulerConfig()
	cfg.Interval = 20 * time.Millisecond
	scheduler := services.NewTickScheduler(
		persistence.NewGormResourceLedger(db, nil),
		tickLog,
		persistence.NewGormPlayerRepository(db),
		nil, nil, cfg)

	scheduler.Start(context.Background())

	require.Eventually(t, func() bool {
		entries, err := tickLog.Find(context.Background(), resources.TickLogFilter{})
		return err == nil && len(entries) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	scheduler.Stop()
	// Stop is idempotent
	scheduler.Stop()
}
