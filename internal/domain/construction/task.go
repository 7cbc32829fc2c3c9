package construction

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// UpgradeType is the kind of thing being constructed
type UpgradeType string

const (
	UpgradeTypeBuilding UpgradeType = "building"
	UpgradeTypeResearch UpgradeType = "research"
	UpgradeTypeUnit     UpgradeType = "unit"
)

// ParseUpgradeType accepts any letter case
func ParseUpgradeType(s string) (UpgradeType, error) {
	switch t := UpgradeType(strings.ToLower(strings.TrimSpace(s))); t {
	case UpgradeTypeBuilding, UpgradeTypeResearch, UpgradeTypeUnit:
		return t, nil
	}
	return "", shared.NewValidationError("upgradeType", fmt.Sprintf("unknown upgrade type %q (expected building, research or unit)", s))
}

// TaskStatus is the lifecycle state of a construction task
type TaskStatus string

const (
	// TaskStatusPending - resources spent, waiting for a worker
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusInProgress - a worker started construction, completes at dueAt
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusCompleted - construction finished
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusCancelled - withdrawn before construction started
	TaskStatusCancelled TaskStatus = "cancelled"
)

// ParseTaskStatus accepts any letter case
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return st, nil
	}
	return "", shared.NewValidationError("status", fmt.Sprintf("unknown task status %q", s))
}

// DefaultDurationSeconds applies when a request does not name a duration
const DefaultDurationSeconds = 60

// allowedTransitions is the complete edge set of the task state machine
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:    {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusCompleted},
}

// CanTransition reports whether from -> to is an edge of the state machine
func CanTransition(from, to TaskStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// UpgradeSpec describes what a user asks to construct
type UpgradeSpec struct {
	Type            UpgradeType
	Name            string
	Cost            resources.Cost
	DurationSeconds int
}

// Validate applies the duration default and checks every field
func (s *UpgradeSpec) Validate() error {
	if s.DurationSeconds == 0 {
		s.DurationSeconds = DefaultDurationSeconds
	}
	if _, err := ParseUpgradeType(string(s.Type)); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return shared.NewValidationError("upgradeName", "is required")
	}
	if s.Cost.Wood < 0 {
		return shared.NewValidationError("woodCost", "must be >= 0")
	}
	if s.Cost.Food < 0 {
		return shared.NewValidationError("foodCost", "must be >= 0")
	}
	if s.DurationSeconds < 1 {
		return shared.NewValidationError("durationSeconds", "must be >= 1")
	}
	return nil
}

// Task is a construction task owned by a user.
//
// State Machine:
//
//	pending -> in_progress -> completed
//	     \-> cancelled
//
// completedAt is set if and only if the task is completed. dueAt is
// persisted on start so a restarted process can finish overdue tasks.
type Task struct {
	id              string
	userID          string
	upgradeType     UpgradeType
	name            string
	woodCost        int
	foodCost        int
	durationSeconds int
	status          TaskStatus
	createdAt       time.Time
	updatedAt       time.Time
	startedAt       *time.Time
	dueAt           *time.Time
	completedAt     *time.Time
}

// NewTask creates a pending task from a validated spec
func NewTask(userID string, spec UpgradeSpec, now time.Time) (*Task, error) {
	if userID == "" {
		return nil, shared.NewValidationError("userId", "is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return &Task{
		id:              uuid.New().String(),
		userID:          userID,
		upgradeType:     UpgradeType(strings.ToLower(string(spec.Type))),
		name:            strings.TrimSpace(spec.Name),
		woodCost:        spec.Cost.Wood,
		foodCost:        spec.Cost.Food,
		durationSeconds: spec.DurationSeconds,
		status:          TaskStatusPending,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructTask rebuilds a task from storage without validation
func ReconstructTask(
	id, userID string,
	upgradeType UpgradeType,
	name string,
	woodCost, foodCost, durationSeconds int,
	status TaskStatus,
	createdAt, updatedAt time.Time,
	startedAt, dueAt, completedAt *time.Time,
) *Task {
	return &Task{
		id:              id,
		userID:          userID,
		upgradeType:     upgradeType,
		name:            name,
		woodCost:        woodCost,
		foodCost:        foodCost,
		durationSeconds: durationSeconds,
		status:          status,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		startedAt:       startedAt,
		dueAt:           dueAt,
		completedAt:     completedAt,
	}
}

func (t *Task) ID() string                { return t.id }
func (t *Task) UserID() string            { return t.userID }
func (t *Task) UpgradeType() UpgradeType  { return t.upgradeType }
func (t *Task) Name() string              { return t.name }
func (t *Task) WoodCost() int             { return t.woodCost }
func (t *Task) FoodCost() int             { return t.foodCost }
func (t *Task) DurationSeconds() int      { return t.durationSeconds }
func (t *Task) Status() TaskStatus        { return t.status }
func (t *Task) CreatedAt() time.Time      { return t.createdAt }
func (t *Task) UpdatedAt() time.Time      { return t.updatedAt }
func (t *Task) StartedAt() *time.Time     { return t.startedAt }
func (t *Task) DueAt() *time.Time         { return t.dueAt }
func (t *Task) CompletedAt() *time.Time   { return t.completedAt }
func (t *Task) Cost() resources.Cost      { return resources.Cost{Wood: t.woodCost, Food: t.foodCost} }
func (t *Task) Duration() time.Duration   { return time.Duration(t.durationSeconds) * time.Second }
func (t *Task) IsTerminal() bool          { return t.status == TaskStatusCompleted || t.status == TaskStatusCancelled }

// IsOverdue reports whether an in-progress task has passed its due time
func (t *Task) IsOverdue(now time.Time) bool {
	return t.status == TaskStatusInProgress && t.dueAt != nil && !now.Before(*t.dueAt)
}

// Start moves a pending task to in_progress and fixes its due time
func (t *Task) Start(now time.Time) error {
	if t.status != TaskStatusPending {
		return &ErrInvalidTaskTransition{
			TaskID:      t.id,
			From:        t.status,
			To:          TaskStatusInProgress,
			Description: "can only start PENDING tasks",
		}
	}
	due := now.Add(t.Duration())
	t.status = TaskStatusInProgress
	t.startedAt = &now
	t.dueAt = &due
	t.updatedAt = now
	return nil
}

// Complete moves an in_progress task to completed
func (t *Task) Complete(now time.Time) error {
	if t.status != TaskStatusInProgress {
		return &ErrInvalidTaskTransition{
			TaskID:      t.id,
			From:        t.status,
			To:          TaskStatusCompleted,
			Description: "can only complete IN_PROGRESS tasks",
		}
	}
	t.status = TaskStatusCompleted
	t.completedAt = &now
	t.updatedAt = now
	return nil
}

// Cancel withdraws a pending task
func (t *Task) Cancel(now time.Time) error {
	if t.status != TaskStatusPending {
		return &ErrInvalidTaskTransition{
			TaskID:      t.id,
			From:        t.status,
			To:          TaskStatusCancelled,
			Description: "can only cancel PENDING tasks",
		}
	}
	t.status = TaskStatusCancelled
	t.updatedAt = now
	return nil
}

// TransitionTo applies the edge to the requested status.
// On error the task is left unchanged.
func (t *Task) TransitionTo(status TaskStatus, now time.Time) error {
	switch status {
	case TaskStatusInProgress:
		return t.Start(now)
	case TaskStatusCompleted:
		return t.Complete(now)
	case TaskStatusCancelled:
		return t.Cancel(now)
	}
	return &ErrInvalidTaskTransition{
		TaskID: t.id,
		From:   t.status,
		To:     status,
	}
}
