package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/coreloop-go/internal/application/mediator"
	"github.com/andrescamacho/coreloop-go/internal/domain/player"
)

// ListUsersQuery lists every registered user
type ListUsersQuery struct{}

// ListUsersResponse carries the users, oldest registration first
type ListUsersResponse struct {
	Players []*player.Player
}

// ListUsersHandler handles the ListUsers query
type ListUsersHandler struct {
	playerRepo player.PlayerRepository
}

// NewListUsersHandler creates a new ListUsersHandler
func NewListUsersHandler(playerRepo player.PlayerRepository) *ListUsersHandler {
	return &ListUsersHandler{playerRepo: playerRepo}
}

// Handle executes the ListUsers query
func (h *ListUsersHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	if _, ok := request.(*ListUsersQuery); !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListUsersQuery")
	}

	players, err := h.playerRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return &ListUsersResponse{Players: players}, nil
}
