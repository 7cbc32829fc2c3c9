package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GormPlayerRepository implements player.PlayerRepository and
// resources.UserDirectory using GORM
type GormPlayerRepository struct {
	db *gorm.DB
}

// NewGormPlayerRepository creates a new GORM player repository
func NewGormPlayerRepository(db *gorm.DB) *GormPlayerRepository {
	return &GormPlayerRepository{db: db}
}

// Add persists a player and its zeroed resource balance in one transaction
func (r *GormPlayerRepository) Add(ctx context.Context, p *player.Player) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&PlayerModel{}).
			Where("username = ? OR email = ?", p.Username(), p.Email()).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check existing users: %w", err)
		}
		if existing > 0 {
			return &player.ErrDuplicateUser{Username: p.Username(), Email: p.Email()}
		}

		if err := tx.Create(r.playerToModel(p)).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		balance := &ResourceModel{
			UserID:    p.ID(),
			Wood:      0,
			Food:      0,
			UpdatedAt: p.CreatedAt(),
		}
		if err := tx.Create(balance).Error; err != nil {
			return fmt.Errorf("failed to create resources for user: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a player by ID
func (r *GormPlayerRepository) FindByID(ctx context.Context, id string) (*player.Player, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &player.ErrUserNotFound{UserID: id}
		}
		return nil, fmt.Errorf("failed to find user: %w", result.Error)
	}

	return r.modelToPlayer(&model), nil
}

// FindByUsername retrieves a player by username
func (r *GormPlayerRepository) FindByUsername(ctx context.Context, username string) (*player.Player, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("username = ?", username).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &player.ErrUserNotFound{UserID: username}
		}
		return nil, fmt.Errorf("failed to find user: %w", result.Error)
	}

	return r.modelToPlayer(&model), nil
}

// ListAll retrieves all players, oldest registration first
func (r *GormPlayerRepository) ListAll(ctx context.Context) ([]*player.Player, error) {
	var models []PlayerModel
	result := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users: %w", result.Error)
	}

	players := make([]*player.Player, 0, len(models))
	for i := range models {
		players = append(players, r.modelToPlayer(&models[i]))
	}

	return players, nil
}

// ListTickTargets returns the user snapshot a tick runs over
func (r *GormPlayerRepository) ListTickTargets(ctx context.Context) ([]resources.TickTarget, error) {
	var targets []resources.TickTarget
	err := r.db.WithContext(ctx).
		Model(&PlayerModel{}).
		Select("id AS user_id, username").
		Order("created_at ASC, id ASC").
		Scan(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tick targets: %w", err)
	}
	return targets, nil
}

func (r *GormPlayerRepository) modelToPlayer(model *PlayerModel) *player.Player {
	return player.ReconstructPlayer(model.ID, model.Username, model.Email, model.CreatedAt)
}

func (r *GormPlayerRepository) playerToModel(p *player.Player) *PlayerModel {
	return &PlayerModel{
		ID:        p.ID(),
		Username:  p.Username(),
		Email:     p.Email(),
		CreatedAt: p.CreatedAt(),
	}
}
