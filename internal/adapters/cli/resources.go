package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
)

// NewResourcesCommand creates the resources command with subcommands
func NewResourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Inspect resource balances",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [user-id]",
		Short: "Show a user's wood and food",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveUserID(args)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &resourceQueries.GetBalanceQuery{UserID: id})
				if err != nil {
					return err
				}
				b := resp.(*resourceQueries.GetBalanceResponse).Balance

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User ID:   %s\n", b.UserID())
				fmt.Fprintf(out, "Wood:      %d\n", b.Wood())
				fmt.Fprintf(out, "Food:      %d\n", b.Food())
				fmt.Fprintf(out, "Last Tick: %s\n", formatTime(b.LastTickAt()))
				return nil
			})
		},
	})

	return cmd
}
