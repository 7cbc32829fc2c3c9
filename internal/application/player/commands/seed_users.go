package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// SeedUser is one demo account with its starting balance
type SeedUser struct {
	Username string
	Email    string
	Wood     int
	Food     int
}

// DefaultSeedUsers are the demo accounts created by `db seed`
var DefaultSeedUsers = []SeedUser{
	{Username: "player1", Email: "player1@game.com", Wood: 150, Food: 120},
	{Username: "hero2", Email: "hero2@game.com", Wood: 200, Food: 180},
	{Username: "builder3", Email: "builder3@game.com", Wood: 50, Food: 75},
	{Username: "newbie4", Email: "newbie4@game.com", Wood: 20, Food: 30},
	{Username: "veteran5", Email: "veteran5@game.com", Wood: 500, Food: 450},
}

// SeedUsersCommand creates demo users that do not exist yet.
// Users nil means DefaultSeedUsers.
type SeedUsersCommand struct {
	Users []SeedUser
}

// SeedUsersResponse lists what was created and what already existed
type SeedUsersResponse struct {
	Created []*player.Player
	Skipped []string
}

// SeedUsersHandler handles the SeedUsers command
type SeedUsersHandler struct {
	playerRepo player.PlayerRepository
	ledger     resources.Ledger
	clock      shared.Clock
}

// NewSeedUsersHandler creates a new SeedUsersHandler
func NewSeedUsersHandler(playerRepo player.PlayerRepository, ledger resources.Ledger, clock shared.Clock) *SeedUsersHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &SeedUsersHandler{
		playerRepo: playerRepo,
		ledger:     ledger,
		clock:      clock,
	}
}

// Handle executes the SeedUsers command
func (h *SeedUsersHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SeedUsersCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SeedUsersCommand")
	}

	seeds := cmd.Users
	if seeds == nil {
		seeds = DefaultSeedUsers
	}

	resp := &SeedUsersResponse{}
	for _, seed := range seeds {
		_, err := h.playerRepo.FindByUsername(ctx, seed.Username)
		if err == nil {
			resp.Skipped = append(resp.Skipped, seed.Username)
			continue
		}
		var notFound *player.ErrUserNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}

		p, err := player.NewPlayer(seed.Username, seed.Email, h.clock)
		if err != nil {
			return nil, fmt.Errorf("invalid seed user %s: %w", seed.Username, err)
		}
		if err := h.playerRepo.Add(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", seed.Username, err)
		}
		if _, err := h.ledger.Add(ctx, p.ID(), resources.Cost{Wood: seed.Wood, Food: seed.Food}); err != nil {
			return nil, fmt.Errorf("failed to fund seed user %s: %w", seed.Username, err)
		}

		resp.Created = append(resp.Created, p)
	}

	return resp, nil
}
