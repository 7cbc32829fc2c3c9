package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	resourceCommands "github.com/andrescamacho/coreloop-go/internal/application/resources/commands"
	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
)

// NewTickCommand creates the tick command with subcommands
func NewTickCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run ticks and read the tick audit log",
		Long: `Every tick credits each user with wood and food and records one audit
row per user. The daemon ticks on its own schedule; 'tick run' fires one
immediately.

Examples:
  coreloop tick run
  coreloop tick logs --recent
  coreloop tick logs --user <user-id> --limit 10
  coreloop tick stats <user-id>`,
	}

	cmd.AddCommand(newTickRunCommand())
	cmd.AddCommand(newTickLogsCommand())
	cmd.AddCommand(newTickStatsCommand())

	return cmd
}

func newTickRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Credit every user once, now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &resourceCommands.RunTickCommand{})
				if err != nil {
					return err
				}
				summary := resp.(*resourceCommands.RunTickResponse).Summary

				fmt.Fprintf(cmd.OutOrStdout(), "✓ Tick complete: %d/%d users credited (%d failed) in %s\n",
					summary.Succeeded, summary.Total, summary.Failed, summary.Duration)
				return nil
			})
		},
	}
}

func newTickLogsCommand() *cobra.Command {
	var (
		recent bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show tick audit entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := &resourceQueries.GetTickLogsQuery{Recent: recent, Limit: limit}
			if userID != "" {
				id := userID
				query.UserID = &id
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, query)
				if err != nil {
					return err
				}
				entries := resp.(*resourceQueries.GetTickLogsResponse).Entries

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No tick logs found")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TICKED AT\tUSER\t+WOOD\t+FOOD\tWOOD\tFOOD\tRESULT")
				for _, e := range entries {
					result := "ok"
					if !e.Success() {
						result = "failed: " + e.ErrorMessage()
					}
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
						formatTime(ptr(e.TickedAt())), e.Username(), e.WoodAdded(), e.FoodAdded(),
						e.TotalWoodAfter(), e.TotalFoodAfter(), result)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&recent, "recent", false, "Only the most recent entries (default limit 20)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of entries")

	return cmd
}

func newTickStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [user-id]",
		Short: "Summarise a user's tick history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveUserID(args)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &resourceQueries.GetUserTickStatsQuery{UserID: id})
				if err != nil {
					return err
				}
				s := resp.(*resourceQueries.GetUserTickStatsResponse).Stats

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:        %s (%s)\n", s.Username, s.UserID)
				fmt.Fprintf(out, "Ticks:       %d (%d ok, %d failed)\n", s.TotalTicks, s.SuccessfulTicks, s.FailedTicks)
				fmt.Fprintf(out, "Wood earned: %d\n", s.TotalWoodEarned)
				fmt.Fprintf(out, "Food earned: %d\n", s.TotalFoodEarned)
				fmt.Fprintf(out, "First tick:  %s\n", formatTime(s.FirstTick))
				fmt.Fprintf(out, "Last tick:   %s\n", formatTime(s.LastTick))
				return nil
			})
		},
	}
}
