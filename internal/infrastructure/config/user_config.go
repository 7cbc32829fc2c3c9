package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds CLI preferences stored in ~/.coreloop/config.json
type UserConfig struct {
	// User the CLI acts as when --user is not given
	DefaultUserID string `json:"default_user_id,omitempty"`

	// Username of DefaultUserID, for display only
	DefaultUsername string `json:"default_username,omitempty"`
}

// UserConfigHandler manages loading and saving user configuration
type UserConfigHandler struct {
	configPath string
}

// NewUserConfigHandler creates a handler for the file under the home directory
func NewUserConfigHandler() (*UserConfigHandler, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewUserConfigHandlerAt(filepath.Join(homeDir, ".coreloop", "config.json"))
}

// NewUserConfigHandlerAt creates a handler for an explicit file path
func NewUserConfigHandlerAt(configPath string) (*UserConfigHandler, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return &UserConfigHandler{configPath: configPath}, nil
}

// Load reads the user config from disk
func (h *UserConfigHandler) Load() (*UserConfig, error) {
	data, err := os.ReadFile(h.configPath)
	if os.IsNotExist(err) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return &cfg, nil
}

// Save writes the user config to disk
func (h *UserConfigHandler) Save(cfg *UserConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(h.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}

// SetDefaultUser records the user the CLI acts as by default
func (h *UserConfigHandler) SetDefaultUser(userID, username string) error {
	cfg, err := h.Load()
	if err != nil {
		return err
	}

	cfg.DefaultUserID = userID
	cfg.DefaultUsername = username
	return h.Save(cfg)
}

// ClearDefaultUser removes the default user setting
func (h *UserConfigHandler) ClearDefaultUser() error {
	return h.Save(&UserConfig{})
}

// GetConfigPath returns the path to the user config file
func (h *UserConfigHandler) GetConfigPath() string {
	return h.configPath
}
