package player_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/coreloop-go/internal/domain/player"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

func TestNewPlayer(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	p, err := player.NewPlayer(" player1 ", "player1@game.com", clock)

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID())
	assert.Equal(t, "player1", p.Username())
	assert.Equal(t, "player1@game.com", p.Email())
	assert.Equal(t, clock.Now(), p.CreatedAt())
}

func TestNewPlayer_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"blank username", "  ", "a@b.com"},
		{"missing email", "player1", ""},
		{"email without at", "player1", "player1.game.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := player.NewPlayer(tt.username, tt.email, nil)

			assert.True(t, shared.IsValidationError(err), "got %v", err)
		})
	}
}
