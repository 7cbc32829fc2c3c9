package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// GormConstructionTaskRepository implements construction.TaskRepository using GORM
type GormConstructionTaskRepository struct {
	db *gorm.DB
}

// NewGormConstructionTaskRepository creates a new GORM construction task repository
func NewGormConstructionTaskRepository(db *gorm.DB) *GormConstructionTaskRepository {
	return &GormConstructionTaskRepository{db: db}
}

// Create persists a new task
func (r *GormConstructionTaskRepository) Create(ctx context.Context, task *construction.Task) error {
	result := r.db.WithContext(ctx).Create(r.taskToModel(task))
	if result.Error != nil {
		return fmt.Errorf("failed to create task: %w", result.Error)
	}
	return nil
}

// SaveTransition writes the task's new status only if the stored status is still from
func (r *GormConstructionTaskRepository) SaveTransition(ctx context.Context, task *construction.Task, from construction.TaskStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ConstructionTaskModel{}).
		Where("id = ? AND status = ?", task.ID(), string(from)).
		Updates(map[string]interface{}{
			"status":       string(task.Status()),
			"updated_at":   task.UpdatedAt(),
			"started_at":   task.StartedAt(),
			"due_at":       task.DueAt(),
			"completed_at": task.CompletedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update task: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, task.ID())
	if err != nil {
		return err
	}
	return &construction.ErrInvalidTaskTransition{
		TaskID:      task.ID(),
		From:        current.Status(),
		To:          task.Status(),
		Description: fmt.Sprintf("expected status %s", from),
	}
}

// FindByID retrieves a task by its ID
func (r *GormConstructionTaskRepository) FindByID(ctx context.Context, id string) (*construction.Task, error) {
	var model ConstructionTaskModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &construction.ErrTaskNotFound{TaskID: id}
		}
		return nil, fmt.Errorf("failed to find task: %w", result.Error)
	}

	return r.modelToTask(&model), nil
}

// FindByUser retrieves a user's tasks, newest first
func (r *GormConstructionTaskRepository) FindByUser(ctx context.Context, userID string, limit int) ([]*construction.Task, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	return r.find(query, "failed to find tasks for user")
}

// FindPending retrieves pending tasks, oldest first
func (r *GormConstructionTaskRepository) FindPending(ctx context.Context, limit int) ([]*construction.Task, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", string(construction.TaskStatusPending)).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	return r.find(query, "failed to find pending tasks")
}

// FindInProgress retrieves every in-progress task, earliest due first
func (r *GormConstructionTaskRepository) FindInProgress(ctx context.Context) ([]*construction.Task, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", string(construction.TaskStatusInProgress)).
		Order("due_at ASC, id ASC")

	return r.find(query, "failed to find in-progress tasks")
}

// FindOverdue retrieves in-progress tasks whose due time has passed
func (r *GormConstructionTaskRepository) FindOverdue(ctx context.Context, now time.Time) ([]*construction.Task, error) {
	query := r.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", string(construction.TaskStatusInProgress), now).
		Order("due_at ASC, id ASC")

	return r.find(query, "failed to find overdue tasks")
}

func (r *GormConstructionTaskRepository) find(query *gorm.DB, errContext string) ([]*construction.Task, error) {
	var models []ConstructionTaskModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", errContext, err)
	}

	tasks := make([]*construction.Task, len(models))
	for i := range models {
		tasks[i] = r.modelToTask(&models[i])
	}
	return tasks, nil
}

func (r *GormConstructionTaskRepository) taskToModel(task *construction.Task) *ConstructionTaskModel {
	return &ConstructionTaskModel{
		ID:              task.ID(),
		UserID:          task.UserID(),
		UpgradeType:     string(task.UpgradeType()),
		UpgradeName:     task.Name(),
		WoodCost:        task.WoodCost(),
		FoodCost:        task.FoodCost(),
		DurationSeconds: task.DurationSeconds(),
		Status:          string(task.Status()),
		CreatedAt:       task.CreatedAt(),
		UpdatedAt:       task.UpdatedAt(),
		StartedAt:       task.StartedAt(),
		DueAt:           task.DueAt(),
		CompletedAt:     task.CompletedAt(),
	}
}

func (r *GormConstructionTaskRepository) modelToTask(model *ConstructionTaskModel) *construction.Task {
	return construction.ReconstructTask(
		model.ID,
		model.UserID,
		construction.UpgradeType(model.UpgradeType),
		model.UpgradeName,
		model.WoodCost,
		model.FoodCost,
		model.DurationSeconds,
		construction.TaskStatus(model.Status),
		model.CreatedAt,
		model.UpdatedAt,
		model.StartedAt,
		model.DueAt,
		model.CompletedAt,
	)
}
