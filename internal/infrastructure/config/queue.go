package config

import "time"

// QueueConfig holds construction queue and worker pool configuration
type QueueConfig struct {
	// Number of worker goroutines leasing messages
	Workers int `mapstructure:"workers" validate:"min=1"`

	// How long a leased message stays invisible to other workers
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"required"`

	// Wait between polls when the queue is empty
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required"`

	// Token bucket shared by all workers
	PollRate  float64 `mapstructure:"poll_rate" validate:"gt=0"`
	PollBurst int     `mapstructure:"poll_burst" validate:"min=1"`

	// Deliveries before a message is dead-lettered
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=1"`

	// Redelivery delay after a failed attempt
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// How often overdue in-progress tasks are swept
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"required"`
}
