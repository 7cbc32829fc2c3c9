package resources

import (
	"context"
	"time"
)

// Ledger is the authoritative per-user resource store.
//
// All mutations of one user's balance are linearizable; mutations of
// different users never contend with each other.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (*Balance, error)

	// Add credits the balance unconditionally
	Add(ctx context.Context, userID string, amount Cost) (*Balance, error)

	// Deduct debits the balance if it covers amount, as one atomic step.
	// Returns *ErrInsufficientResources and leaves the balance unchanged otherwise.
	Deduct(ctx context.Context, userID string, amount Cost) (*Balance, error)

	UpdateLastTick(ctx context.Context, userID string, at time.Time) error
}

// TickLogFilter narrows tick log queries
type TickLogFilter struct {
	UserID *string
	Limit  int
}

// Tick log query limits
const (
	DefaultTickLogLimit     = 100
	DefaultUserTickLogLimit = 50
	DefaultRecentTickLimit  = 20
)

// TickLogRepository is the append-only tick audit log
type TickLogRepository interface {
	Append(ctx context.Context, entry *TickLogEntry) error

	// Find returns entries newest first
	Find(ctx context.Context, filter TickLogFilter) ([]*TickLogEntry, error)

	// StatsForUser aggregates every entry recorded for the user
	StatsForUser(ctx context.Context, userID string) (*TickStats, error)
}

// TickTarget is one user in a tick snapshot
type TickTarget struct {
	UserID   string
	Username string
}

// UserDirectory supplies the user set a tick runs over
type UserDirectory interface {
	ListTickTargets(ctx context.Context) ([]TickTarget, error)
}
