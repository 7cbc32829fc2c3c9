package config

import "time"

// TickConfig controls passive resource generation
type TickConfig struct {
	// Disable to run the daemon without crediting anyone
	Enabled bool `mapstructure:"enabled"`

	Interval    time.Duration `mapstructure:"interval" validate:"required"`
	WoodPerTick int           `mapstructure:"wood_per_tick" validate:"min=0"`
	FoodPerTick int           `mapstructure:"food_per_tick" validate:"min=0"`
}
