package resources

import (
	"time"

	"github.com/google/uuid"
)

// Default accrual applied to every user on each tick
const (
	DefaultWoodPerTick  = 10
	DefaultFoodPerTick  = 10
	DefaultTickInterval = time.Minute
)

// TickLogEntry is the immutable audit record of one user's outcome in one tick.
//
// On success the totals are the post-tick balance; on failure they are the
// pre-tick balance (zero if it could not be read) and nothing counts as added.
type TickLogEntry struct {
	id             string
	userID         string
	username       string
	woodAdded      int
	foodAdded      int
	totalWoodAfter int
	totalFoodAfter int
	success        bool
	errorMessage   string
	tickedAt       time.Time
}

// NewSuccessfulTick records a credited tick with the post-tick balance
func NewSuccessfulTick(username string, added Cost, after *Balance, tickedAt time.Time) *TickLogEntry {
	return &TickLogEntry{
		id:             uuid.New().String(),
		userID:         after.UserID(),
		username:       username,
		woodAdded:      added.Wood,
		foodAdded:      added.Food,
		totalWoodAfter: after.Wood(),
		totalFoodAfter: after.Food(),
		success:        true,
		tickedAt:       tickedAt,
	}
}

// NewFailedTick records a tick that could not be applied.
// before may be nil when the pre-tick balance was unreadable.
func NewFailedTick(userID, username string, before *Balance, cause error, tickedAt time.Time) *TickLogEntry {
	entry := &TickLogEntry{
		id:       uuid.New().String(),
		userID:   userID,
		username: username,
		success:  false,
		tickedAt: tickedAt,
	}
	if before != nil {
		entry.totalWoodAfter = before.Wood()
		entry.totalFoodAfter = before.Food()
	}
	if cause != nil {
		entry.errorMessage = cause.Error()
	}
	return entry
}

// ReconstructTickLogEntry rebuilds an entry from storage
func ReconstructTickLogEntry(
	id, userID, username string,
	woodAdded, foodAdded, totalWoodAfter, totalFoodAfter int,
	success bool,
	errorMessage string,
	tickedAt time.Time,
) *TickLogEntry {
	return &TickLogEntry{
		id:             id,
		userID:         userID,
		username:       username,
		woodAdded:      woodAdded,
		foodAdded:      foodAdded,
		totalWoodAfter: totalWoodAfter,
		totalFoodAfter: totalFoodAfter,
		success:        success,
		errorMessage:   errorMessage,
		tickedAt:       tickedAt,
	}
}

func (e *TickLogEntry) ID() string           { return e.id }
func (e *TickLogEntry) UserID() string       { return e.userID }
func (e *TickLogEntry) Username() string     { return e.username }
func (e *TickLogEntry) WoodAdded() int       { return e.woodAdded }
func (e *TickLogEntry) FoodAdded() int       { return e.foodAdded }
func (e *TickLogEntry) TotalWoodAfter() int  { return e.totalWoodAfter }
func (e *TickLogEntry) TotalFoodAfter() int  { return e.totalFoodAfter }
func (e *TickLogEntry) Success() bool        { return e.success }
func (e *TickLogEntry) ErrorMessage() string { return e.errorMessage }
func (e *TickLogEntry) TickedAt() time.Time  { return e.tickedAt }

// TickStats aggregates a user's tick history
type TickStats struct {
	UserID          string
	Username        string
	TotalTicks      int
	SuccessfulTicks int
	FailedTicks     int
	TotalWoodEarned int
	TotalFoodEarned int
	FirstTick       *time.Time
	LastTick        *time.Time
}

// ComputeTickStats folds entries into TickStats. Entries may be in any order;
// the username is taken from the most recent entry.
func ComputeTickStats(userID string, entries []*TickLogEntry) *TickStats {
	stats := &TickStats{UserID: userID, Username: "Unknown"}

	var latest *TickLogEntry
	for _, e := range entries {
		stats.TotalTicks++
		if e.Success() {
			stats.SuccessfulTicks++
		} else {
			stats.FailedTicks++
		}
		stats.TotalWoodEarned += e.WoodAdded()
		stats.TotalFoodEarned += e.FoodAdded()

		at := e.TickedAt()
		if stats.FirstTick == nil || at.Before(*stats.FirstTick) {
			stats.FirstTick = &at
		}
		if stats.LastTick == nil || at.After(*stats.LastTick) {
			stats.LastTick = &at
			latest = e
		}
	}

	if latest != nil && latest.Username() != "" {
		stats.Username = latest.Username()
	}
	return stats
}

// TickSummary is the batch result of one scheduler firing
type TickSummary struct {
	TickedAt  time.Time
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}
