package config

import "time"

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	// Unix socket the gRPC health service listens on
	SocketPath string `mapstructure:"socket_path" validate:"required"`

	// PID file guarding against a second daemon instance
	PIDFile string `mapstructure:"pid_file" validate:"required"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}
