package resources

import (
	"time"
)

// Resource names used in error reporting and metrics labels
const (
	ResourceWood = "wood"
	ResourceFood = "food"
)

// Cost is an amount of wood and food to credit or debit
type Cost struct {
	Wood int
	Food int
}

// Validate rejects negative amounts
func (c Cost) Validate() error {
	if c.Wood < 0 {
		return &ErrNegativeAmount{Resource: ResourceWood, Amount: c.Wood}
	}
	if c.Food < 0 {
		return &ErrNegativeAmount{Resource: ResourceFood, Amount: c.Food}
	}
	return nil
}

// IsZero reports whether the cost moves no resources
func (c Cost) IsZero() bool {
	return c.Wood == 0 && c.Food == 0
}

// Balance is a user's wood and food holdings.
//
// Balances are owned by the Ledger; entities handed out are snapshots and
// mutating them has no effect on storage.
type Balance struct {
	userID     string
	wood       int
	food       int
	lastTickAt *time.Time
	updatedAt  time.Time
}

// NewBalance creates the zeroed balance every new user starts with
func NewBalance(userID string, now time.Time) *Balance {
	return &Balance{
		userID:    userID,
		updatedAt: now,
	}
}

// ReconstructBalance rebuilds a balance from storage
func ReconstructBalance(userID string, wood, food int, lastTickAt *time.Time, updatedAt time.Time) *Balance {
	return &Balance{
		userID:     userID,
		wood:       wood,
		food:       food,
		lastTickAt: lastTickAt,
		updatedAt:  updatedAt,
	}
}

func (b *Balance) UserID() string         { return b.userID }
func (b *Balance) Wood() int              { return b.wood }
func (b *Balance) Food() int              { return b.food }
func (b *Balance) LastTickAt() *time.Time { return b.lastTickAt }
func (b *Balance) UpdatedAt() time.Time   { return b.updatedAt }

// CheckAffordable returns ErrInsufficientResources naming the first resource
// (wood before food) that the balance cannot cover
func (b *Balance) CheckAffordable(cost Cost) error {
	if b.wood < cost.Wood {
		return &ErrInsufficientResources{
			UserID:    b.userID,
			Resource:  ResourceWood,
			Required:  cost.Wood,
			Available: b.wood,
		}
	}
	if b.food < cost.Food {
		return &ErrInsufficientResources{
			UserID:    b.userID,
			Resource:  ResourceFood,
			Required:  cost.Food,
			Available: b.food,
		}
	}
	return nil
}
