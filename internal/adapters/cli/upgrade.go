package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	constructionCommands "github.com/andrescamacho/coreloop-go/internal/application/construction/commands"
	constructionQueries "github.com/andrescamacho/coreloop-go/internal/application/construction/queries"
	"github.com/andrescamacho/coreloop-go/internal/domain/construction"
)

// NewUpgradeCommand creates the upgrade command with subcommands
func NewUpgradeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Create and track construction upgrades",
		Long: `Spend resources on buildings, research and units.

A created upgrade is pending until the daemon's worker picks it up; it then
completes after its duration.

Examples:
  coreloop upgrade create --type building --name "Woodcutter Hut" --wood 50 --food 30
  coreloop upgrade create --type research --name Agriculture --wood 20 --food 80 --duration 300
  coreloop upgrade list
  coreloop upgrade pending
  coreloop upgrade get <task-id>
  coreloop upgrade cancel <task-id>`,
	}

	cmd.AddCommand(newUpgradeCreateCommand())
	cmd.AddCommand(newUpgradeGetCommand())
	cmd.AddCommand(newUpgradeListCommand())
	cmd.AddCommand(newUpgradePendingCommand())
	cmd.AddCommand(newUpgradeCancelCommand())

	return cmd
}

func newUpgradeCreateCommand() *cobra.Command {
	var (
		upgradeType string
		name        string
		wood        int
		food        int
		duration    int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Pay for an upgrade and queue it",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveUserID(nil)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &constructionCommands.CreateUpgradeCommand{
					UserID:          id,
					UpgradeType:     upgradeType,
					UpgradeName:     name,
					WoodCost:        wood,
					FoodCost:        food,
					DurationSeconds: duration,
				})
				if err != nil {
					return err
				}
				result := resp.(*constructionCommands.CreateUpgradeResponse)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "✓ Upgrade queued")
				printTask(out, result.Task)
				if result.Balance != nil {
					fmt.Fprintf(out, "Remaining:  %d wood, %d food\n", result.Balance.Wood(), result.Balance.Food())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&upgradeType, "type", "", "Upgrade type: building, research or unit (required)")
	cmd.Flags().StringVar(&name, "name", "", "Upgrade name (required)")
	cmd.Flags().IntVar(&wood, "wood", 0, "Wood cost")
	cmd.Flags().IntVar(&food, "food", 0, "Food cost")
	cmd.Flags().IntVar(&duration, "duration", 0, "Construction time in seconds (default 60)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newUpgradeGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show one upgrade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &constructionQueries.GetTaskQuery{TaskID: args[0]})
				if err != nil {
					return err
				}
				printTask(cmd.OutOrStdout(), resp.(*constructionQueries.GetTaskResponse).Task)
				return nil
			})
		},
	}
}

func newUpgradeListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list [user-id]",
		Short: "List a user's upgrades, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveUserID(args)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &constructionQueries.GetUserTasksQuery{UserID: id, Limit: limit})
				if err != nil {
					return err
				}
				return printTaskTable(cmd.OutOrStdout(), resp.(*constructionQueries.GetUserTasksResponse).Tasks)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of upgrades (0 for all)")

	return cmd
}

func newUpgradePendingCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List upgrades waiting for a worker, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &constructionQueries.GetPendingTasksQuery{Limit: limit})
				if err != nil {
					return err
				}
				return printTaskTable(cmd.OutOrStdout(), resp.(*constructionQueries.GetPendingTasksResponse).Tasks)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of upgrades (0 for all)")

	return cmd
}

func newUpgradeCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Cancel a pending upgrade and refund its cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &constructionCommands.CancelTaskCommand{TaskID: args[0]})
				if err != nil {
					return err
				}
				result := resp.(*constructionCommands.CancelTaskResponse)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "✓ Upgrade cancelled")
				printTask(out, result.Task)
				if result.Balance != nil {
					fmt.Fprintf(out, "Balance:    %d wood, %d food\n", result.Balance.Wood(), result.Balance.Food())
				}
				return nil
			})
		},
	}
}

func printTask(out io.Writer, t *construction.Task) {
	fmt.Fprintf(out, "Task ID:    %s\n", t.ID())
	fmt.Fprintf(out, "User ID:    %s\n", t.UserID())
	fmt.Fprintf(out, "Upgrade:    %s (%s)\n", t.Name(), t.UpgradeType())
	fmt.Fprintf(out, "Cost:       %d wood, %d food\n", t.WoodCost(), t.FoodCost())
	fmt.Fprintf(out, "Duration:   %ds\n", t.DurationSeconds())
	fmt.Fprintf(out, "Status:     %s\n", t.Status())
	fmt.Fprintf(out, "Created:    %s\n", formatTime(ptr(t.CreatedAt())))
	fmt.Fprintf(out, "Started:    %s\n", formatTime(t.StartedAt()))
	fmt.Fprintf(out, "Due:        %s\n", formatTime(t.DueAt()))
	fmt.Fprintf(out, "Completed:  %s\n", formatTime(t.CompletedAt()))
}

func printTaskTable(out io.Writer, tasks []*construction.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No upgrades found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tWOOD\tFOOD\tSTATUS\tCREATED\tDUE")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			t.ID(), t.UpgradeType(), t.Name(), t.WoodCost(), t.FoodCost(), t.Status(),
			formatTime(ptr(t.CreatedAt())), formatTime(t.DueAt()))
	}
	return w.Flush()
}
