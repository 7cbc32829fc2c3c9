package construction_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTask(t *testing.T, spec construction.UpgradeSpec) *construction.Task {
	t.Helper()
	task, err := construction.NewTask("user-1", spec, epoch)
	require.NoError(t, err)
	return task
}

func sawmill() construction.UpgradeSpec {
	return construction.UpgradeSpec{
		Type:            "Building",
		Name:            "  Sawmill ",
		Cost:            resources.Cost{Wood: 50, Food: 30},
		DurationSeconds: 90,
	}
}

func TestNewTask_NormalizesAndStartsPending(t *testing.T) {
	task := newTask(t, sawmill())

	assert.NotEmpty(t, task.ID())
	assert.Equal(t, construction.UpgradeTypeBuilding, task.UpgradeType())
	assert.Equal(t, "Sawmill", task.Name())
	assert.Equal(t, construction.TaskStatusPending, task.Status())
	assert.Equal(t, resources.Cost{Wood: 50, Food: 30}, task.Cost())
	assert.Equal(t, 90*time.Second, task.Duration())
	assert.Nil(t, task.StartedAt())
	assert.Nil(t, task.DueAt())
	assert.Nil(t, task.CompletedAt())
}

func TestNewTask_DefaultDuration(t *testing.T) {
	spec := sawmill()
	spec.DurationSeconds = 0

	task := newTask(t, spec)

	assert.Equal(t, construction.DefaultDurationSeconds, task.DurationSeconds())
}

func TestNewTask_Validation(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		mutate func(*construction.UpgradeSpec)
		field  string
	}{
		{"missing user", "", func(s *construction.UpgradeSpec) {}, "userId"},
		{"unknown type", "user-1", func(s *construction.UpgradeSpec) { s.Type = "castle" }, "upgradeType"},
		{"blank name", "user-1", func(s *construction.UpgradeSpec) { s.Name = "   " }, "upgradeName"},
		{"negative wood", "user-1", func(s *construction.UpgradeSpec) { s.Cost.Wood = -1 }, "woodCost"},
		{"negative food", "user-1", func(s *construction.UpgradeSpec) { s.Cost.Food = -1 }, "foodCost"},
		{"negative duration", "user-1", func(s *construction.UpgradeSpec) { s.DurationSeconds = -5 }, "durationSeconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := sawmill()
			tt.mutate(&spec)

			_, err := construction.NewTask(tt.userID, spec, epoch)

			var validation *shared.ValidationError
			require.True(t, errors.As(err, &validation), "got %v", err)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestCanTransition(t *testing.T) {
	statuses := []construction.TaskStatus{
		construction.TaskStatusPending,
		construction.TaskStatusInProgress,
		construction.TaskStatusCompleted,
		construction.TaskStatusCancelled,
	}
	allowed := map[[2]construction.TaskStatus]bool{
		{construction.TaskStatusPending, construction.TaskStatusInProgress}:   true,
		{construction.TaskStatusPending, construction.TaskStatusCancelled}:    true,
		{construction.TaskStatusInProgress, construction.TaskStatusCompleted}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]construction.TaskStatus{from, to}], construction.CanTransition(from, to),
				"%s -> %s", from, to)
		}
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := newTask(t, sawmill())
	started := epoch.Add(time.Minute)

	require.NoError(t, task.Start(started))
	require.NotNil(t, task.DueAt())
	assert.Equal(t, started.Add(90*time.Second), *task.DueAt())
	assert.False(t, task.IsOverdue(started.Add(89*time.Second)))
	assert.True(t, task.IsOverdue(started.Add(90*time.Second)))

	finished := started.Add(2 * time.Minute)
	require.NoError(t, task.Complete(finished))
	assert.Equal(t, construction.TaskStatusCompleted, task.Status())
	assert.Equal(t, finished, *task.CompletedAt())
	assert.True(t, task.IsTerminal())
	assert.False(t, task.IsOverdue(finished), "completed tasks are never overdue")
}

func TestTask_RejectedTransitionLeavesTaskUnchanged(t *testing.T) {
	task := newTask(t, sawmill())

	err := task.TransitionTo(construction.TaskStatusCompleted, epoch)

	var invalid *construction.ErrInvalidTaskTransition
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, construction.TaskStatusPending, invalid.From)
	assert.Equal(t, construction.TaskStatusCompleted, invalid.To)
	assert.Equal(t, construction.TaskStatusPending, task.Status())
	assert.Nil(t, task.CompletedAt())
	assert.Equal(t, epoch, task.UpdatedAt())
}

func TestTask_CannotCancelStartedTask(t *testing.T) {
	task := newTask(t, sawmill())
	require.NoError(t, task.Start(epoch))

	err := task.Cancel(epoch)

	var invalid *construction.ErrInvalidTaskTransition
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, construction.TaskStatusInProgress, task.Status())
}

func TestParseTaskStatus(t *testing.T) {
	status, err := construction.ParseTaskStatus(" IN_PROGRESS ")
	require.NoError(t, err)
	assert.Equal(t, construction.TaskStatusInProgress, status)

	_, err = construction.ParseTaskStatus("done")
	assert.True(t, shared.IsValidationError(err))
}
