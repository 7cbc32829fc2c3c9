package player

import "context"

// PlayerRepository defines player persistence operations
type PlayerRepository interface {
	// Add persists a new player together with its zeroed resource balance
	Add(ctx context.Context, player *Player) error
	FindByID(ctx context.Context, id string) (*Player, error)
	FindByUsername(ctx context.Context, username string) (*Player, error)
	ListAll(ctx context.Context) ([]*Player, error)
}
