package construction

import (
	"context"
	"time"

	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// TaskRepository persists construction tasks
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error

	// SaveTransition writes a status change made on task, guarded by the
	// status the task had before the change. A concurrent change surfaces
	// as *ErrInvalidTaskTransition and nothing is written.
	SaveTransition(ctx context.Context, task *Task, from TaskStatus) error

	FindByID(ctx context.Context, id string) (*Task, error)

	// FindByUser returns the user's tasks newest first; limit <= 0 means all
	FindByUser(ctx context.Context, userID string, limit int) ([]*Task, error)

	// FindPending returns pending tasks oldest first; limit <= 0 means all
	FindPending(ctx context.Context, limit int) ([]*Task, error)

	// FindInProgress returns every in_progress task, earliest due first
	FindInProgress(ctx context.Context) ([]*Task, error)

	// FindOverdue returns in_progress tasks whose due time is at or before now
	FindOverdue(ctx context.Context, now time.Time) ([]*Task, error)
}

// Tx groups the repositories bound to one database transaction
type Tx struct {
	Ledger resources.Ledger
	Tasks  TaskRepository
	Queue  queue.TaskQueue
}

// UnitOfWork runs fn atomically: either every write made through tx
// commits or none does
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
