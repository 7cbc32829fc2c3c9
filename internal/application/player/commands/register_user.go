package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// RegisterUserCommand creates a user with an empty resource balance
type RegisterUserCommand struct {
	Username string
	Email    string
}

// RegisterUserResponse carries the created user
type RegisterUserResponse struct {
	Player *player.Player
}

// RegisterUserHandler handles the RegisterUser command
type RegisterUserHandler struct {
	playerRepo player.PlayerRepository
	clock      shared.Clock
}

// NewRegisterUserHandler creates a new RegisterUserHandler
func NewRegisterUserHandler(playerRepo player.PlayerRepository, clock shared.Clock) *RegisterUserHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RegisterUserHandler{
		playerRepo: playerRepo,
		clock:      clock,
	}
}

// Handle executes the RegisterUser command
func (h *RegisterUserHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RegisterUserCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RegisterUserCommand")
	}

	p, err := player.NewPlayer(cmd.Username, cmd.Email, h.clock)
	if err != nil {
		return nil, err
	}

	if err := h.playerRepo.Add(ctx, p); err != nil {
		return nil, err
	}

	return &RegisterUserResponse{Player: p}, nil
}
