package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// maxDeductAttempts bounds retries when a conditional debit misses but the
// re-read balance turns out to cover it (a concurrent credit landed in between)
const maxDeductAttempts = 3

// GormResourceLedger implements resources.Ledger using GORM.
//
// Every mutation is a single conditional UPDATE on the user's row, so the
// database row lock (PostgreSQL) or write lock (SQLite) makes check-and-write
// atomic per user without serializing unrelated users.
type GormResourceLedger struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormResourceLedger creates a new ledger
// If clock is nil, uses RealClock (production behavior)
func NewGormResourceLedger(db *gorm.DB, clock shared.Clock) *GormResourceLedger {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormResourceLedger{db: db, clock: clock}
}

// GetBalance retrieves a user's balance
func (r *GormResourceLedger) GetBalance(ctx context.Context, userID string) (*resources.Balance, error) {
	return findBalance(r.db.WithContext(ctx), userID)
}

// Add credits a user's balance unconditionally
func (r *GormResourceLedger) Add(ctx context.Context, userID string, amount resources.Cost) (*resources.Balance, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	var balance *resources.Balance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ResourceModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"wood":       gorm.Expr("wood + ?", amount.Wood),
				"food":       gorm.Expr("food + ?", amount.Food),
				"updated_at": r.clock.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to add resources: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return &resources.ErrBalanceNotFound{UserID: userID}
		}

		b, err := findBalance(tx, userID)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// Deduct debits a user's balance if it covers amount
func (r *GormResourceLedger) Deduct(ctx context.Context, userID string, amount resources.Cost) (*resources.Balance, error) {
	if err := amount.Validate(); err != nil {
		return nil, err
	}

	var balance *resources.Balance
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 1; attempt <= maxDeductAttempts; attempt++ {
			result := tx.Model(&ResourceModel{}).
				Where("user_id = ? AND wood >= ? AND food >= ?", userID, amount.Wood, amount.Food).
				Updates(map[string]interface{}{
					"wood":       gorm.Expr("wood - ?", amount.Wood),
					"food":       gorm.Expr("food - ?", amount.Food),
					"updated_at": r.clock.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to deduct resources: %w", result.Error)
			}

			current, err := findBalance(tx, userID)
			if err != nil {
				return err
			}

			if result.RowsAffected > 0 {
				balance = current
				return nil
			}

			if err := current.CheckAffordable(amount); err != nil {
				return err
			}
		}
		return fmt.Errorf("failed to deduct resources for user %s: balance kept changing", userID)
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// UpdateLastTick records when the user was last credited by a tick
func (r *GormResourceLedger) UpdateLastTick(ctx context.Context, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ResourceModel{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"last_tick_at": at,
			"updated_at":   r.clock.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update last tick: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return &resources.ErrBalanceNotFound{UserID: userID}
	}
	return nil
}

func findBalance(db *gorm.DB, userID string) (*resources.Balance, error) {
	var model ResourceModel
	result := db.Where("user_id = ?", userID).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &resources.ErrBalanceNotFound{UserID: userID}
		}
		return nil, fmt.Errorf("failed to find resources: %w", result.Error)
	}

	return resources.ReconstructBalance(model.UserID, model.Wood, model.Food, model.LastTickAt, model.UpdatedAt), nil
}
