package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

func TestTickLogRepository_FindNewestFirst(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTickLogRepository(db)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		after := resources.ReconstructBalance("user-1", 10*(i+1), 10*(i+1), nil, base)
		entry := resources.NewSuccessfulTick("player1", resources.Cost{Wood: 10, Food: 10}, after, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Append(context.Background(), entry))
	}
	other := resources.NewSuccessfulTick("hero2", resources.Cost{Wood: 10, Food: 10},
		resources.ReconstructBalance("user-2", 10, 10, nil, base), base)
	require.NoError(t, repo.Append(context.Background(), other))

	// Act
	userID := "user-1"
	entries, err := repo.Find(context.Background(), resources.TickLogFilter{UserID: &userID, Limit: 2})

	// Assert
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 30, entries[0].TotalWoodAfter())
	assert.Equal(t, 20, entries[1].TotalWoodAfter())

	all, err := repo.Find(context.Background(), resources.TickLogFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestTickLogRepository_FailedTickStoredAsFailure(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTickLogRepository(db)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	failed := resources.NewFailedTick("user-1", "player1",
		resources.ReconstructBalance("user-1", 40, 30, nil, base), errors.New("boom"), base)
	require.False(t, failed.Success())

	// Act
	require.NoError(t, repo.Append(context.Background(), failed))

	// Assert
	userID := "user-1"
	entries, err := repo.Find(context.Background(), resources.TickLogFilter{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success())
	assert.Equal(t, "boom", entries[0].ErrorMessage())
	assert.Equal(t, 0, entries[0].WoodAdded())
	assert.Equal(t, 40, entries[0].TotalWoodAfter())

	stats, err := repo.StatsForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SuccessfulTicks)
	assert.Equal(t, 1, stats.FailedTicks)
}

func TestTickLogRepository_StatsMatchManualSums(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTickLogRepository(db)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var entries []*resources.TickLogEntry
	entries = append(entries,
		resources.NewSuccessfulTick("player1", resources.Cost{Wood: 10, Food: 10},
			resources.ReconstructBalance("user-1", 10, 10, nil, base), base),
		resources.NewFailedTick("user-1", "player1",
			resources.ReconstructBalance("user-1", 10, 10, nil, base), errors.New("db down"), base.Add(time.Minute)),
		resources.NewSuccessfulTick("player1", resources.Cost{Wood: 7, Food: 3},
			resources.ReconstructBalance("user-1", 17, 13, nil, base), base.Add(2*time.Minute)),
	)
	for _, entry := range entries {
		require.NoError(t, repo.Append(context.Background(), entry))
	}

	stats, err := repo.StatsForUser(context.Background(), "user-1")

	require.NoError(t, err)
	manual := resources.ComputeTickStats("user-1", entries)
	assert.Equal(t, manual.TotalTicks, stats.TotalTicks)
	assert.Equal(t, 3, stats.TotalTicks)
	assert.Equal(t, 2, stats.SuccessfulTicks)
	assert.Equal(t, 1, stats.FailedTicks)
	assert.Equal(t, 17, stats.TotalWoodEarned)
	assert.Equal(t, 13, stats.TotalFoodEarned)
	assert.Equal(t, manual.TotalWoodEarned, stats.TotalWoodEarned)
	assert.Equal(t, manual.TotalFoodEarned, stats.TotalFoodEarned)
	assert.Equal(t, "player1", stats.Username)
	require.NotNil(t, stats.FirstTick)
	require.NotNil(t, stats.LastTick)
	assert.True(t, stats.FirstTick.Equal(base))
	assert.True(t, stats.LastTick.Equal(base.Add(2*time.Minute)))
}

func TestTickLogRepository_StatsForUnknownUser(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTickLogRepository(db)

	stats, err := repo.StatsForUser(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalTicks)
	assert.Equal(t, player.UnknownUsername, stats.Username)
	assert.Nil(t, stats.FirstTick)
	assert.Nil(t, stats.LastTick)
}
