package queue

import (
	"context"
	"time"
)

// Depth is a point-in-time view of a queue
type Depth struct {
	Waiting      int64
	InFlight     int64
	DeadLettered int64
}

// TaskQueue is a durable, at-least-once delivery channel
type TaskQueue interface {
	Enqueue(ctx context.Context, msg *Message) error

	// Receive leases the oldest deliverable message for visibility.
	// Returns nil, nil when nothing is deliverable.
	Receive(ctx context.Context, queueName string, visibility time.Duration) (*Message, error)

	// Ack removes a leased message from circulation
	Ack(ctx context.Context, msg *Message) error

	// Release gives up a lease so the message is redelivered after delay,
	// or dead-letters it once it has used up its attempts
	Release(ctx context.Context, msg *Message, cause error, delay time.Duration) error

	Depth(ctx context.Context, queueName string) (Depth, error)
}
