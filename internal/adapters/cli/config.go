package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	playerQueries "github.com/andrescamacho/coreloop-go/internal/application/player/queries"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage Core Loop configuration settings.

Configuration is loaded from multiple sources with priority:
1. Environment variables (CL_* prefix, DATABASE_URL)
2. Config file (config.yaml)
3. Default values

User preferences (default user) are stored in ~/.coreloop/config.json

Examples:
  coreloop config show
  coreloop config set-user 3f0c...
  coreloop config clear-user`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetUserCommand())
	cmd.AddCommand(newConfigClearUserCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load config: %v\n", err)
				fmt.Fprintln(out, "Using default configuration.")
				cfg = config.DefaultConfig()
			}

			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}
			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Fprintf(out, "Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			fmt.Fprintln(out, "Core Loop Configuration")
			fmt.Fprintln(out, "=======================")

			fmt.Fprintln(out, "User Preferences:")
			fmt.Fprintf(out, "  Config file:      %s\n", userConfigHandler.GetConfigPath())
			if userCfg.DefaultUserID != "" {
				fmt.Fprintf(out, "  Default User:     %s (%s)\n", userCfg.DefaultUsername, userCfg.DefaultUserID)
			} else {
				fmt.Fprintf(out, "  Default User:     (not set)\n")
			}

			fmt.Fprintln(out, "\nDatabase:")
			fmt.Fprintf(out, "  Type:             %s\n", cfg.Database.Type)
			switch {
			case cfg.Database.Type == "sqlite":
				fmt.Fprintf(out, "  Path:             %s\n", cfg.Database.Path)
			case cfg.Database.URL != "":
				fmt.Fprintf(out, "  URL:              %s\n", maskPassword(cfg.Database.URL))
			default:
				fmt.Fprintf(out, "  Host:             %s\n", cfg.Database.Host)
				fmt.Fprintf(out, "  Port:             %d\n", cfg.Database.Port)
				fmt.Fprintf(out, "  Database:         %s\n", cfg.Database.Name)
				fmt.Fprintf(out, "  User:             %s\n", cfg.Database.User)
				fmt.Fprintf(out, "  Max Connections:  %d\n", cfg.Database.Pool.MaxOpen)
			}

			fmt.Fprintln(out, "\nHTTP Server:")
			fmt.Fprintf(out, "  Address:          %s\n", cfg.Server.Address())

			fmt.Fprintln(out, "\nTick:")
			fmt.Fprintf(out, "  Enabled:          %t\n", cfg.Tick.Enabled)
			fmt.Fprintf(out, "  Interval:         %s\n", cfg.Tick.Interval)
			fmt.Fprintf(out, "  Per Tick:         %d wood, %d food\n", cfg.Tick.WoodPerTick, cfg.Tick.FoodPerTick)

			fmt.Fprintln(out, "\nQueue:")
			fmt.Fprintf(out, "  Workers:          %d\n", cfg.Queue.Workers)
			fmt.Fprintf(out, "  Visibility:       %s\n", cfg.Queue.VisibilityTimeout)
			fmt.Fprintf(out, "  Poll Rate:        %.0f/s (burst: %d)\n", cfg.Queue.PollRate, cfg.Queue.PollBurst)
			fmt.Fprintf(out, "  Max Attempts:     %d\n", cfg.Queue.MaxAttempts)
			fmt.Fprintf(out, "  Sweep Interval:   %s\n", cfg.Queue.SweepInterval)

			fmt.Fprintln(out, "\nDaemon:")
			fmt.Fprintf(out, "  Socket Path:      %s\n", cfg.Daemon.SocketPath)
			fmt.Fprintf(out, "  PID File:         %s\n", cfg.Daemon.PIDFile)
			fmt.Fprintf(out, "  Shutdown Timeout: %s\n", cfg.Daemon.ShutdownTimeout)

			fmt.Fprintln(out, "\nMetrics:")
			fmt.Fprintf(out, "  Enabled:          %t\n", cfg.Metrics.Enabled)
			fmt.Fprintf(out, "  Endpoint:         %s%s\n", cfg.Metrics.Address(), cfg.Metrics.Path)

			fmt.Fprintln(out, "\nLogging:")
			fmt.Fprintf(out, "  Level:            %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  Format:           %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "  Output:           %s\n", cfg.Logging.Output)

			return nil
		},
	}
}

func newConfigSetUserCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-user <user-id>",
		Short: "Set the default user",
		Long: `Set the user commands act on when --user is not given.
The user must exist in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &playerQueries.GetUserQuery{UserID: args[0]})
				if err != nil {
					return err
				}
				user := resp.(*playerQueries.GetUserResponse).Player

				if err := userConfigHandler.SetDefaultUser(user.ID(), user.Username()); err != nil {
					return fmt.Errorf("failed to set default user: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "✓ Default user set successfully")
				fmt.Fprintf(out, "  User ID:  %s\n", user.ID())
				fmt.Fprintf(out, "  Username: %s\n", user.Username())
				return nil
			})
		},
	}
}

func newConfigClearUserCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-user",
		Short: "Clear the default user",
		RunE: func(cmd *cobra.Command, args []string) error {
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			if err := userConfigHandler.ClearDefaultUser(); err != nil {
				return fmt.Errorf("failed to clear default user: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Default user cleared")
			return nil
		},
	}
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "****")
	}
	return u.String()
}
