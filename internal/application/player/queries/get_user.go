package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/resources"
)

// GetUserQuery fetches a user by ID or username, with the current balance
type GetUserQuery struct {
	UserID   string // Optional: get by ID
	Username string // Optional: get by username
}

// GetUserResponse carries the user and its balance
type GetUserResponse struct {
	Player  *player.Player
	Balance *resources.Balance
}

// GetUserHandler handles the GetUser query
type GetUserHandler struct {
	playerRepo player.PlayerRepository
	ledger     resources.Ledger
}

// NewGetUserHandler creates a new GetUserHandler
func NewGetUserHandler(playerRepo player.PlayerRepository, ledger resources.Ledger) *GetUserHandler {
	return &GetUserHandler{
		playerRepo: playerRepo,
		ledger:     ledger,
	}
}

// Handle executes the GetUser query
func (h *GetUserHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetUserQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetUserQuery")
	}

	if query.UserID == "" && query.Username == "" {
		return nil, fmt.Errorf("either user_id or username must be provided")
	}

	var (
		p   *player.Player
		err error
	)
	// Priority: UserID > Username
	if query.UserID != "" {
		p, err = h.playerRepo.FindByID(ctx, query.UserID)
	} else {
		p, err = h.playerRepo.FindByUsername(ctx, query.Username)
	}
	if err != nil {
		return nil, err
	}

	balance, err := h.ledger.GetBalance(ctx, p.ID())
	if err != nil {
		return nil, err
	}

	return &GetUserResponse{Player: p, Balance: balance}, nil
}
