package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	playerCommands "github.com/andrescamacho/coreloop-go/internal/application/player/commands"
	playerQueries "github.com/andrescamacho/coreloop-go/internal/application/player/queries"
	resourceQueries "github.com/andrescamacho/coreloop-go/internal/application/resources/queries"
)

// NewUserCommand creates the user command with subcommands
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
		Long: `Register users and look them up.

Examples:
  coreloop user create player1 player1@game.com
  coreloop user list
  coreloop user get <user-id>
  coreloop user get --username player1`,
	}

	cmd.AddCommand(newUserCreateCommand())
	cmd.AddCommand(newUserListCommand())
	cmd.AddCommand(newUserGetCommand())

	return cmd
}

func newUserCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <username> <email>",
		Short: "Register a new user with an empty balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &playerCommands.RegisterUserCommand{
					Username: args[0],
					Email:    args[1],
				})
				if err != nil {
					return fmt.Errorf("failed to register user: %w", err)
				}
				user := resp.(*playerCommands.RegisterUserResponse).Player

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "✓ User registered successfully")
				fmt.Fprintf(out, "  User ID:  %s\n", user.ID())
				fmt.Fprintf(out, "  Username: %s\n", user.Username())
				fmt.Fprintf(out, "  Email:    %s\n", user.Email())
				fmt.Fprintf(out, "\nSet as default user with: coreloop config set-user %s\n", user.ID())
				return nil
			})
		},
	}
}

func newUserListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user with their balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, &playerQueries.ListUsersQuery{})
				if err != nil {
					return err
				}
				players := resp.(*playerQueries.ListUsersResponse).Players

				out := cmd.OutOrStdout()
				if len(players) == 0 {
					fmt.Fprintln(out, "No users found")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tWOOD\tFOOD\tLAST TICK")
				for _, p := range players {
					balResp, err := a.mediator.Send(ctx, &resourceQueries.GetBalanceQuery{UserID: p.ID()})
					if err != nil {
						return err
					}
					b := balResp.(*resourceQueries.GetBalanceResponse).Balance
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
						p.ID(), p.Username(), p.Email(), b.Wood(), b.Food(), formatTime(b.LastTickAt()))
				}
				return w.Flush()
			})
		},
	}
}

func newUserGetCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "get [user-id]",
		Short: "Show a user and their balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := &playerQueries.GetUserQuery{Username: username}
			if username == "" {
				id, err := resolveUserID(args)
				if err != nil {
					return err
				}
				query.UserID = id
			}

			return withApp(func(ctx context.Context, a *app) error {
				resp, err := a.mediator.Send(ctx, query)
				if err != nil {
					return err
				}
				result := resp.(*playerQueries.GetUserResponse)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User ID:    %s\n", result.Player.ID())
				fmt.Fprintf(out, "Username:   %s\n", result.Player.Username())
				fmt.Fprintf(out, "Email:      %s\n", result.Player.Email())
				fmt.Fprintf(out, "Registered: %s\n", formatTime(ptr(result.Player.CreatedAt())))
				if result.Balance != nil {
					fmt.Fprintf(out, "Wood:       %d\n", result.Balance.Wood())
					fmt.Fprintf(out, "Food:       %d\n", result.Balance.Food())
					fmt.Fprintf(out, "Last Tick:  %s\n", formatTime(result.Balance.LastTickAt()))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Look the user up by username instead of ID")

	return cmd
}
