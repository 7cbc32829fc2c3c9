package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GormTickLogRepository implements the append-only tick audit log using GORM
type GormTickLogRepository struct {
	db *gorm.DB
}

// NewGormTickLogRepository creates a new tick log repository
func NewGormTickLogRepository(db *gorm.DB) *GormTickLogRepository {
	return &GormTickLogRepository{db: db}
}

// Append writes one tick outcome
func (r *GormTickLogRepository) Append(ctx context.Context, entry *resources.TickLogEntry) error {
	model := &TickLogModel{
		ID:             entry.ID(),
		UserID:         entry.UserID(),
		Username:       entry.Username(),
		WoodAdded:      entry.WoodAdded(),
		FoodAdded:      entry.FoodAdded(),
		TotalWoodAfter: entry.TotalWoodAfter(),
		TotalFoodAfter: entry.TotalFoodAfter(),
		Success:        entry.Success(),
		TickedAt:       entry.TickedAt(),
	}
	if msg := entry.ErrorMessage(); msg != "" {
		model.ErrorMessage = &msg
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to append tick log: %w", err)
	}
	return nil
}

// Find retrieves tick logs newest first, optionally for a single user
func (r *GormTickLogRepository) Find(ctx context.Context, filter resources.TickLogFilter) ([]*resources.TickLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = resources.DefaultTickLogLimit
	}

	query := r.db.WithContext(ctx).Model(&TickLogModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var models []TickLogModel
	if err := query.Order("ticked_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find tick logs: %w", err)
	}

	entries := make([]*resources.TickLogEntry, len(models))
	for i := range models {
		entries[i] = modelToTickLogEntry(&models[i])
	}
	return entries, nil
}

// StatsForUser aggregates a user's whole tick history
func (r *GormTickLogRepository) StatsForUser(ctx context.Context, userID string) (*resources.TickStats, error) {
	var totals struct {
		TotalTicks      int64
		SuccessfulTicks int64
		TotalWood       int64
		TotalFood       int64
	}

	err := r.db.WithContext(ctx).
		Model(&TickLogModel{}).
		Select(`COUNT(*) AS total_ticks,
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS successful_ticks,
			COALESCE(SUM(wood_added), 0) AS total_wood,
			COALESCE(SUM(food_added), 0) AS total_food`).
		Where("user_id = ?", userID).
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tick logs: %w", err)
	}

	stats := &resources.TickStats{
		UserID:          userID,
		Username:        player.UnknownUsername,
		TotalTicks:      int(totals.TotalTicks),
		SuccessfulTicks: int(totals.SuccessfulTicks),
		FailedTicks:     int(totals.TotalTicks - totals.SuccessfulTicks),
		TotalWoodEarned: int(totals.TotalWood),
		TotalFoodEarned: int(totals.TotalFood),
	}
	if totals.TotalTicks == 0 {
		return stats, nil
	}

	first, err := r.boundaryEntry(ctx, userID, "ticked_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	last, err := r.boundaryEntry(ctx, userID, "ticked_at DESC, id DESC")
	if err != nil {
		return nil, err
	}

	if first != nil {
		at := first.TickedAt
		stats.FirstTick = &at
	}
	if last != nil {
		at := last.TickedAt
		stats.LastTick = &at
		if last.Username != "" {
			stats.Username = last.Username
		}
	}

	return stats, nil
}

func (r *GormTickLogRepository) boundaryEntry(ctx context.Context, userID, order string) (*TickLogModel, error) {
	var model TickLogModel
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Order(order).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find tick log boundary: %w", result.Error)
	}
	return &model, nil
}

func modelToTickLogEntry(model *TickLogModel) *resources.TickLogEntry {
	var errorMessage string
	if model.ErrorMessage != nil {
		errorMessage = *model.ErrorMessage
	}
	return resources.ReconstructTickLogEntry(
		model.ID,
		model.UserID,
		model.Username,
		model.WoodAdded,
		model.FoodAdded,
		model.TotalWoodAfter,
		model.TotalFoodAfter,
		model.Success,
		errorMessage,
		model.TickedAt,
	)
}
