package helpers

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrescamacho/coreloop-go/internal/adapters/persistence"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/database"
)

// NewTestDB opens a private migrated in-memory database that closes with t
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewTestConnection()
	require.NoError(t, err, "failed to open test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// PostgresDSNEnv names the variable holding a Postgres DSN for tests that
// need real connection-level concurrency
const PostgresDSNEnv = "CORELOOP_TEST_POSTGRES_DSN"

// NewPostgresTestDB opens the migrated Postgres database named by
// PostgresDSNEnv, skipping t when it is unset
func NewPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open postgres test database")
	require.NoError(t, database.AutoMigrate(db), "failed to migrate postgres test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// CreateUser registers username with the given starting balance and returns
// the new player
func CreateUser(t *testing.T, db *gorm.DB, clock shared.Clock, username string, wood, food int) *player.Player {
	t.Helper()

	p, err := SeedUser(context.Background(), db, clock, username, wood, food)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return p
}

// SeedUser registers username with the given starting balance
func SeedUser(ctx context.Context, db *gorm.DB, clock shared.Clock, username string, wood, food int) (*player.Player, error) {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	p, err := player.NewPlayer(username, username+"@game.com", clock)
	if err != nil {
		return nil, err
	}
	if err := persistence.NewGormPlayerRepository(db).Add(ctx, p); err != nil {
		return nil, err
	}

	if wood > 0 || food > 0 {
		ledger := persistence.NewGormResourceLedger(db, clock)
		if _, err := ledger.Add(ctx, p.ID(), resources.Cost{Wood: wood, Food: food}); err != nil {
			return nil, err
		}
	}
	return p, nil
}
