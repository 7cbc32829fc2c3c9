package api

import (
	"time"

	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// CreateUserRequest is the body of POST /api/v1/users
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
}

// CreateUpgradeRequest is the body of POST /api/v1/upgrades/{userId}.
// A missing durationSeconds means 60.
type CreateUpgradeRequest struct {
	UpgradeType     string `json:"upgradeType" validate:"required"`
	UpgradeName     string `json:"upgradeName" validate:"required"`
	WoodCost        int    `json:"woodCost" validate:"min=0"`
	FoodCost        int    `json:"foodCost" validate:"min=0"`
	DurationSeconds *int   `json:"durationSeconds,omitempty" validate:"omitempty,min=1"`
}

// ResourceDTO is a user's balance
type ResourceDTO struct {
	UserID     string     `json:"userId"`
	Wood       int        `json:"wood"`
	Food       int        `json:"food"`
	LastTickAt *time.Time `json:"lastTickAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// UserDTO is a user with its balance
type UserDTO struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Email     string       `json:"email"`
	CreatedAt time.Time    `json:"createdAt"`
	Resources *ResourceDTO `json:"resources,omitempty"`
}

// UpgradeDTO is a construction task
type UpgradeDTO struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	UpgradeType     string     `json:"upgradeType"`
	UpgradeName     string     `json:"upgradeName"`
	WoodCost        int        `json:"woodCost"`
	FoodCost        int        `json:"foodCost"`
	DurationSeconds int        `json:"durationSeconds"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	StartedAt       *time.Time `json:"startedAt"`
	DueAt           *time.Time `json:"dueAt"`
	CompletedAt     *time.Time `json:"completedAt"`
}

// TickLogDTO is one tick audit entry
type TickLogDTO struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username"`
	WoodAdded      int       `json:"woodAdded"`
	FoodAdded      int       `json:"foodAdded"`
	TotalWoodAfter int       `json:"totalWoodAfter"`
	TotalFoodAfter int       `json:"totalFoodAfter"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"errorMessage"`
	TickedAt       time.Time `json:"tickedAt"`
}

// TickStatsDTO aggregates a user's tick history
type TickStatsDTO struct {
	UserID          string     `json:"userId"`
	Username        string     `json:"username"`
	TotalTicks      int        `json:"totalTicks"`
	SuccessfulTicks int        `json:"successfulTicks"`
	FailedTicks     int        `json:"failedTicks"`
	TotalWoodEarned int        `json:"totalWoodEarned"`
	TotalFoodEarned int        `json:"totalFoodEarned"`
	FirstTick       *time.Time `json:"firstTick,omitempty"`
	LastTick        *time.Time `json:"lastTick,omitempty"`
}

func toResourceDTO(b *resources.Balance) *ResourceDTO {
	if b == nil {
		return nil
	}
	return &ResourceDTO{
		UserID:     b.UserID(),
		Wood:       b.Wood(),
		Food:       b.Food(),
		LastTickAt: b.LastTickAt(),
		UpdatedAt:  b.UpdatedAt(),
	}
}

func toUserDTO(p *player.Player, b *resources.Balance) UserDTO {
	return UserDTO{
		ID:        p.ID(),
		Username:  p.Username(),
		Email:     p.Email(),
		CreatedAt: p.CreatedAt(),
		Resources: toResourceDTO(b),
	}
}

func toUpgradeDTO(t *construction.Task) UpgradeDTO {
	return UpgradeDTO{
		ID:              t.ID(),
		UserID:          t.UserID(),
		UpgradeType:     string(t.UpgradeType()),
		UpgradeName:     t.Name(),
		WoodCost:        t.WoodCost(),
		FoodCost:        t.FoodCost(),
		DurationSeconds: t.DurationSeconds(),
		Status:          string(t.Status()),
		CreatedAt:       t.CreatedAt(),
		UpdatedAt:       t.UpdatedAt(),
		StartedAt:       t.StartedAt(),
		DueAt:           t.DueAt(),
		CompletedAt:     t.CompletedAt(),
	}
}

func toUpgradeDTOs(tasks []*construction.Task) []UpgradeDTO {
	out := make([]UpgradeDTO, len(tasks))
	for i, t := range tasks {
		out[i] = toUpgradeDTO(t)
	}
	return out
}

func toTickLogDTOs(entries []*resources.TickLogEntry) []TickLogDTO {
	out := make([]TickLogDTO, len(entries))
	for i, e := range entries {
		dto := TickLogDTO{
			ID:             e.ID(),
			UserID:         e.UserID(),
			Username:       e.Username(),
			WoodAdded:      e.WoodAdded(),
			FoodAdded:      e.FoodAdded(),
			TotalWoodAfter: e.TotalWoodAfter(),
			TotalFoodAfter: e.TotalFoodAfter(),
			Success:        e.Success(),
			TickedAt:       e.TickedAt(),
		}
		if msg := e.ErrorMessage(); msg != "" {
			dto.ErrorMessage = &msg
		}
		out[i] = dto
	}
	return out
}

func toTickStatsDTO(s *resources.TickStats) TickStatsDTO {
	return TickStatsDTO{
		UserID:          s.UserID,
		Username:        s.Username,
		TotalTicks:      s.TotalTicks,
		SuccessfulTicks: s.SuccessfulTicks,
		FailedTicks:     s.FailedTicks,
		TotalWoodEarned: s.TotalWoodEarned,
		TotalFoodEarned: s.TotalFoodEarned,
		FirstTick:       s.FirstTick,
		LastTick:        s.LastTick,
	}
}
