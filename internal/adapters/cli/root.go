package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	socketPath string
	userID     string
	verbose    bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coreloop",
		Short: "Core Loop CLI - manage users, resources and upgrades",
		Long: `Core Loop CLI works directly against the game database.
Ticks and upgrade completion run in the daemon; the CLI can trigger a tick
by hand and inspect everything the daemon writes.

Examples:
  coreloop db migrate
  coreloop db seed
  coreloop user create player1 player1@game.com
  coreloop config set-user <user-id>
  coreloop upgrade create --type building --name "Woodcutter Hut" --wood 50 --food 30
  coreloop tick run
  coreloop tick stats <user-id>
  coreloop health`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", getDefaultSocketPath(),
		"Path to daemon Unix socket")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "",
		"User ID (defaults to the user set with 'config set-user')")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose output")

	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewDBCommand())
	rootCmd.AddCommand(NewUserCommand())
	rootCmd.AddCommand(NewResourcesCommand())
	rootCmd.AddCommand(NewUpgradeCommand())
	rootCmd.AddCommand(NewTickCommand())
	rootCmd.AddCommand(NewHealthCommand())

	return rootCmd
}

// getDefaultSocketPath returns the default socket path
func getDefaultSocketPath() string {
	if path := os.Getenv("CL_DAEMON_SOCKET_PATH"); path != "" {
		return path
	}
	return "/tmp/coreloop-daemon.sock"
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
