package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// GormUnitOfWork implements construction.UnitOfWork with a GORM transaction.
// Repositories handed to fn are bound to the transaction; writes made through
// any other handle are not part of it.
type GormUnitOfWork struct {
	db          *gorm.DB
	clock       shared.Clock
	maxAttempts int
}

// NewGormUnitOfWork creates a unit of work over db
func NewGormUnitOfWork(db *gorm.DB, clock shared.Clock, maxAttempts int) *GormUnitOfWork {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormUnitOfWork{db: db, clock: clock, maxAttempts: maxAttempts}
}

// Do runs fn in a transaction, committing only if fn returns nil
func (u *GormUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx construction.Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, construction.Tx{
			Ledger: NewGormResourceLedger(tx, u.clock),
			Tasks:  NewGormConstructionTaskRepository(tx),
			Queue:  NewGormTaskQueue(tx, u.clock, u.maxAttempts),
		})
	})
}
