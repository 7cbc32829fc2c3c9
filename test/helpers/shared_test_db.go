package helpers

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/infrastructure/database"
)

// SharedTestDB is the singleton database instance used across the BDD suite
var SharedTestDB *gorm.DB

// InitializeSharedTestDB creates and migrates the shared test database.
// Called once before any scenario runs.
func InitializeSharedTestDB() error {
	db, err := database.NewTestConnection()
	if err != nil {
		return fmt.Errorf("failed to open shared test database: %w", err)
	}

	SharedTestDB = db
	return nil
}

// ResetSharedTestDB clears all data and recreates any table a scenario dropped.
// Called before each scenario to ensure test isolation.
func ResetSharedTestDB() error {
	if SharedTestDB == nil {
		return fmt.Errorf("shared test database not initialized")
	}

	if err := database.AutoMigrate(SharedTestDB); err != nil {
		return fmt.Errorf("failed to re-migrate shared test database: %w", err)
	}

	// Children before parents
	tables := []string{
		"queue_messages",
		"construction_tasks",
		"resource_tick_logs",
		"resources",
		"users",
	}

	for _, table := range tables {
		if err := SharedTestDB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	return nil
}

// CloseSharedTestDB closes the shared database after the suite finishes
func CloseSharedTestDB() {
	if SharedTestDB != nil {
		database.Close(SharedTestDB)
		SharedTestDB = nil
	}
}
