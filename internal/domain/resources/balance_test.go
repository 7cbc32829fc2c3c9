package resources_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

func TestCost_Validate(t *testing.T) {
	assert.NoError(t, resources.Cost{}.Validate())
	assert.NoError(t, resources.Cost{Wood: 5, Food: 0}.Validate())

	var negative *resources.ErrNegativeAmount
	err := resources.Cost{Wood: 1, Food: -2}.Validate()
	require.True(t, errors.As(err, &negative))
	assert.Equal(t, resources.ResourceFood, negative.Resource)
	assert.Equal(t, -2, negative.Amount)
}

func TestBalance_CheckAffordable(t *testing.T) {
	balance := resources.ReconstructBalance("user-1", 40, 100, nil, time.Now())

	tests := []struct {
		name     string
		cost     resources.Cost
		resource string
		message  string
	}{
		{"affordable", resources.Cost{Wood: 40, Food: 100}, "", ""},
		{"short on wood", resources.Cost{Wood: 50, Food: 30}, resources.ResourceWood, "Insufficient wood. Required: 50, Available: 40"},
		{"short on food", resources.Cost{Wood: 10, Food: 101}, resources.ResourceFood, "Insufficient food. Required: 101, Available: 100"},
		{"wood reported first", resources.Cost{Wood: 41, Food: 101}, resources.ResourceWood, "Insufficient wood. Required: 41, Available: 40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := balance.CheckAffordable(tt.cost)

			if tt.resource == "" {
				assert.NoError(t, err)
				return
			}
			var insufficient *resources.ErrInsufficientResources
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, tt.resource, insufficient.Resource)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestComputeTickStats(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b1 := resources.ReconstructBalance("user-1", 10, 10, nil, base)
	b2 := resources.ReconstructBalance("user-1", 20, 20, nil, base)

	entries := []*resources.TickLogEntry{
		resources.NewSuccessfulTick("builder", resources.Cost{Wood: 10, Food: 10}, b2, base.Add(2*time.Minute)),
		resources.NewSuccessfulTick("old-name", resources.Cost{Wood: 10, Food: 10}, b1, base),
		resources.NewFailedTick("user-1", "builder", b2, errors.New("db down"), base.Add(3*time.Minute)),
	}

	stats := resources.ComputeTickStats("user-1", entries)

	assert.Equal(t, 3, stats.TotalTicks)
	assert.Equal(t, 2, stats.SuccessfulTicks)
	assert.Equal(t, 1, stats.FailedTicks)
	assert.Equal(t, 20, stats.TotalWoodEarned)
	assert.Equal(t, 20, stats.TotalFoodEarned)
	assert.Equal(t, base, *stats.FirstTick)
	assert.Equal(t, base.Add(3*time.Minute), *stats.LastTick)
	assert.Equal(t, "builder", stats.Username)
}

func TestComputeTickStats_Empty(t *testing.T) {
	stats := resources.ComputeTickStats("user-1", nil)

	assert.Equal(t, 0, stats.TotalTicks)
	assert.Nil(t, stats.FirstTick)
	assert.Nil(t, stats.LastTick)
	assert.Equal(t, "Unknown", stats.Username)
}

func TestNewFailedTick_KeepsPreTickTotals(t *testing.T) {
	before := resources.ReconstructBalance("user-1", 40, 50, nil, time.Now())

	entry := resources.NewFailedTick("user-1", "hero2", before, errors.New("boom"), time.Now())

	assert.False(t, entry.Success())
	assert.Equal(t, 0, entry.WoodAdded())
	assert.Equal(t, 0, entry.FoodAdded())
	assert.Equal(t, 40, entry.TotalWoodAfter())
	assert.Equal(t, 50, entry.TotalFoodAfter())
	assert.Equal(t, "boom", entry.ErrorMessage())
}
