package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/test/helpers"
)

func TestPlayerRepository_AddAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db)
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	p, err := player.NewPlayer("builder3", "builder3@game.com", clock)
	require.NoError(t, err)

	// Act
	err = repo.Add(context.Background(), p)

	// Assert
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, "builder3", found.Username())
	assert.Equal(t, "builder3@game.com", found.Email())

	byName, err := repo.FindByUsername(context.Background(), "builder3")
	require.NoError(t, err)
	assert.Equal(t, p.ID(), byName.ID())
}

func TestPlayerRepository_AddCreatesZeroBalance(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db)
	ledger := persistence.NewGormResourceLedger(db, nil)

	p, err := player.NewPlayer("newbie4", "newbie4@game.com", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Add(context.Background(), p))

	balance, err := ledger.GetBalance(context.Background(), p.ID())

	require.NoError(t, err)
	assert.Equal(t, 0, balance.Wood())
	assert.Equal(t, 0, balance.Food())
	assert.Nil(t, balance.LastTickAt())
}

func TestPlayerRepository_AddRejectsDuplicates(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db)

	first, err := player.NewPlayer("hero2", "hero2@game.com", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Add(context.Background(), first))

	sameName, err := player.NewPlayer("hero2", "other@game.com", nil)
	require.NoError(t, err)
	sameEmail, err := player.NewPlayer("other", "hero2@game.com", nil)
	require.NoError(t, err)

	err = repo.Add(context.Background(), sameName)
	var dup *player.ErrDuplicateUser
	assert.ErrorAs(t, err, &dup)

	err = repo.Add(context.Background(), sameEmail)
	assert.ErrorAs(t, err, &dup)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlayerRepository_FindByID_NotFound(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db)

	_, err := repo.FindByID(context.Background(), "missing")

	var notFound *player.ErrUserNotFound
	require.ErrorAs(t, err, &notFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestPlayerRepository_ListTickTargets(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db)

	helpers.CreateUser(t, db, nil, "player1", 0, 0)
	helpers.CreateUser(t, db, nil, "veteran5", 0, 0)

	targets, err := repo.ListTickTargets(context.Background())

	require.NoError(t, err)
	require.Len(t, targets, 2)
	names := []string{targets[0].Username, targets[1].Username}
	assert.ElementsMatch(t, []string{"player1", "veteran5"}, names)
}
