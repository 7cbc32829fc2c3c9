package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	playerCommands "github.com/andrescamacho/coreloop-go/internal/application/player/commands"
	"github.com/andrescamacho/coreloop-go/internal/infrastructure/database"
)

// NewDBCommand creates the db command with subcommands
func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema and demo data",
		Long: `Create the schema and load demo users.

Examples:
  coreloop db migrate
  coreloop db seed`,
	}

	cmd.AddCommand(newDBMigrateCommand())
	cmd.AddCommand(newDBSeedCommand())

	return cmd
}

func newDBMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if err := database.AutoMigrate(a.db.WithContext(ctx)); err != nil {
					return fmt.Errorf("failed to migrate database: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Database migrated (%s)\n", a.cfg.Database.Type)
				return nil
			})
		},
	}
}

func newDBSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo users",
		Long: `Create the five demo users with their starting balances.
Users that already exist are left alone, so seeding twice is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &playerCommands.SeedUsersCommand{})
				if err != nil {
					return err
				}
				result := resp.(*playerCommands.SeedUsersResponse)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "✓ Seeded %d user(s)\n", len(result.Created))
				for _, p := range result.Created {
					fmt.Fprintf(out, "  %s  %s\n", p.ID(), p.Username())
				}
				if len(result.Skipped) > 0 {
					fmt.Fprintf(out, "  Already present: %v\n", result.Skipped)
				}
				return nil
			})
		},
	}
}
