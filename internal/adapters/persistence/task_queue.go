package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andrescamacho/coreloop-go/internal/domain/queue"
	"github.com/andrescamacho/coreloop-go/internal/domain/shared"
)

// DefaultMaxAttempts is how many deliveries a message gets before it is dead-lettered
const DefaultMaxAttempts = 5

// maxReceiveRaces bounds how often Receive retries after losing a lease race
const maxReceiveRaces = 5

// GormTaskQueue implements queue.TaskQueue on a database table.
//
// A message is leased by writing a fresh lease token under a compare-and-set
// on (id, attempts), so two consumers can never hold the same lease. A lease
// whose expiry has passed is treated as released.
type GormTaskQueue struct {
	db          *gorm.DB
	clock       shared.Clock
	maxAttempts int
}

// NewGormTaskQueue creates a new queue
// If clock is nil, uses RealClock (production behavior)
func NewGormTaskQueue(db *gorm.DB, clock shared.Clock, maxAttempts int) *GormTaskQueue {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &GormTaskQueue{db: db, clock: clock, maxAttempts: maxAttempts}
}

// Enqueue persists msg. Enqueueing the same (queue, job, task) twice fails on
// the unique index, so a task never gets two completion messages.
func (q *GormTaskQueue) Enqueue(ctx context.Context, msg *queue.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := q.clock.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.AvailableAt.IsZero() {
		msg.AvailableAt = now
	}

	model := &QueueMessageModel{
		ID:          msg.ID,
		Queue:       msg.Queue,
		Job:         msg.Job,
		TaskID:      msg.TaskID,
		Payload:     string(msg.Payload),
		AvailableAt: msg.AvailableAt,
		CreatedAt:   msg.CreatedAt,
	}
	if err := q.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to enqueue %s/%s for task %s: %w", msg.Queue, msg.Job, msg.TaskID, err)
	}
	return nil
}

// Receive leases the oldest deliverable message
func (q *GormTaskQueue) Receive(ctx context.Context, queueName string, visibility time.Duration) (*queue.Message, error) {
	for race := 0; race < maxReceiveRaces; race++ {
		now := q.clock.Now()

		var candidate QueueMessageModel
		result := q.db.WithContext(ctx).
			Where("queue = ? AND acked_at IS NULL AND dead_lettered_at IS NULL", queueName).
			Where("available_at <= ?", now).
			Where("lease_expires_at IS NULL OR lease_expires_at <= ?", now).
			Order("available_at ASC, created_at ASC, id ASC").
			First(&candidate)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to poll queue %s: %w", queueName, result.Error)
		}

		// A lease that expired on its final attempt is never redelivered
		if candidate.Attempts >= q.maxAttempts {
			if err := q.deadLetter(ctx, &candidate, now, "visibility timeout expired on final attempt"); err != nil {
				return nil, err
			}
			continue
		}

		token := uuid.New().String()
		expires := now.Add(visibility)
		claim := q.db.WithContext(ctx).
			Model(&QueueMessageModel{}).
			Where("id = ? AND attempts = ? AND acked_at IS NULL AND dead_lettered_at IS NULL", candidate.ID, candidate.Attempts).
			Where("lease_expires_at IS NULL OR lease_expires_at <= ?", now).
			Updates(map[string]interface{}{
				"lease_token":      token,
				"lease_expires_at": expires,
				"attempts":         gorm.Expr("attempts + 1"),
			})
		if claim.Error != nil {
			return nil, fmt.Errorf("failed to lease message %s: %w", candidate.ID, claim.Error)
		}
		if claim.RowsAffected == 0 {
			// Another consumer won this message
			continue
		}

		candidate.LeaseToken = token
		candidate.LeaseExpiresAt = &expires
		candidate.Attempts++
		return modelToMessage(&candidate), nil
	}

	return nil, nil
}

// Ack marks a leased message as done
func (q *GormTaskQueue) Ack(ctx context.Context, msg *queue.Message) error {
	result := q.db.WithContext(ctx).
		Model(&QueueMessageModel{}).
		Where("id = ? AND lease_token = ? AND acked_at IS NULL", msg.ID, msg.LeaseToken).
		Updates(map[string]interface{}{
			"acked_at":         q.clock.Now(),
			"lease_token":      "",
			"lease_expires_at": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to ack message %s: %w", msg.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &queue.ErrLeaseLost{MessageID: msg.ID}
	}
	return nil
}

// Release returns a leased message for redelivery after delay, or
// dead-letters it once its attempts are used up
func (q *GormTaskQueue) Release(ctx context.Context, msg *queue.Message, cause error, delay time.Duration) error {
	now := q.clock.Now()
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	updates := map[string]interface{}{
		"lease_token":      "",
		"lease_expires_at": nil,
		"last_error":       lastError,
	}
	if msg.Attempts >= q.maxAttempts {
		updates["dead_lettered_at"] = now
	} else {
		updates["available_at"] = now.Add(delay)
	}

	result := q.db.WithContext(ctx).
		Model(&QueueMessageModel{}).
		Where("id = ? AND lease_token = ? AND acked_at IS NULL", msg.ID, msg.LeaseToken).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to release message %s: %w", msg.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &queue.ErrLeaseLost{MessageID: msg.ID}
	}

	msg.LeaseToken = ""
	msg.LeaseExpiresAt = nil
	msg.LastError = lastError
	return nil
}

// Depth counts waiting, in-flight and dead-lettered messages
func (q *GormTaskQueue) Depth(ctx context.Context, queueName string) (queue.Depth, error) {
	now := q.clock.Now()
	var depth queue.Depth

	base := func() *gorm.DB {
		return q.db.WithContext(ctx).Model(&QueueMessageModel{}).
			Where("queue = ? AND acked_at IS NULL", queueName)
	}

	if err := base().
		Where("dead_lettered_at IS NULL").
		Where("lease_expires_at IS NULL OR lease_expires_at <= ?", now).
		Count(&depth.Waiting).Error; err != nil {
		return depth, fmt.Errorf("failed to count waiting messages: %w", err)
	}
	if err := base().
		Where("dead_lettered_at IS NULL AND lease_expires_at > ?", now).
		Count(&depth.InFlight).Error; err != nil {
		return depth, fmt.Errorf("failed to count in-flight messages: %w", err)
	}
	if err := base().
		Where("dead_lettered_at IS NOT NULL").
		Count(&depth.DeadLettered).Error; err != nil {
		return depth, fmt.Errorf("failed to count dead-lettered messages: %w", err)
	}

	return depth, nil
}

func (q *GormTaskQueue) deadLetter(ctx context.Context, model *QueueMessageModel, now time.Time, reason string) error {
	result := q.db.WithContext(ctx).
		Model(&QueueMessageModel{}).
		Where("id = ? AND attempts = ? AND acked_at IS NULL AND dead_lettered_at IS NULL", model.ID, model.Attempts).
		Updates(map[string]interface{}{
			"dead_lettered_at": now,
			"lease_token":      "",
			"lease_expires_at": nil,
			"last_error":       reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to dead-letter message %s: %w", model.ID, result.Error)
	}
	return nil
}

func modelToMessage(model *QueueMessageModel) *queue.Message {
	return &queue.Message{
		ID:             model.ID,
		Queue:          model.Queue,
		Job:            model.Job,
		TaskID:         model.TaskID,
		Payload:        []byte(model.Payload),
		Attempts:       model.Attempts,
		LeaseToken:     model.LeaseToken,
		LeaseExpiresAt: model.LeaseExpiresAt,
		AvailableAt:    model.AvailableAt,
		LastError:      model.LastError,
		CreatedAt:      model.CreatedAt,
	}
}
