package player

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// UnknownUsername is reported when a username cannot be resolved for a user ID
const UnknownUsername = "Unknown"

// Player is a registered game user. Every player owns exactly one resource
// balance, created alongside the player.
type Player struct {
	id        string
	username  string
	email     string
	createdAt time.Time
}

// NewPlayer validates and creates a new player with a fresh ID
func NewPlayer(username, email string, clock shared.Clock) (*Player, error) {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, shared.NewValidationError("username", "is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewValidationError("email", "must be a valid email address")
	}

	return &Player{
		id:        uuid.New().String(),
		username:  username,
		email:     email,
		createdAt: clock.Now(),
	}, nil
}

// ReconstructPlayer rebuilds a player from storage without validation
func ReconstructPlayer(id, username, email string, createdAt time.Time) *Player {
	return &Player{
		id:        id,
		username:  username,
		email:     email,
		createdAt: createdAt,
	}
}

func (p *Player) ID() string           { return p.id }
func (p *Player) Username() string     { return p.username }
func (p *Player) Email() string        { return p.email }
func (p *Player) CreatedAt() time.Time { return p.createdAt }
