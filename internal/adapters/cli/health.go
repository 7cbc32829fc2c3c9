package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	daemongrpc "github.com/andrescamacho/coreloop-go/internal/adapters/grpc"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check daemon health status",
		Long: `Query the daemon's gRPC health service over its Unix socket and
report the tick scheduler and queue worker separately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := daemongrpc.NewHealthClient(socketPath)
			if err != nil {
				return fmt.Errorf("failed to connect to daemon: %w", err)
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			statuses, err := client.CheckAll(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if statuses[0].Serving() {
				fmt.Fprintln(out, "✓ Daemon is healthy")
			} else {
				fmt.Fprintln(out, "✗ Daemon is not serving")
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATUS")
			for _, st := range statuses[1:] {
				fmt.Fprintf(w, "%s\t%s\n", st.Service, st.Status)
			}
			w.Flush()

			for _, st := range statuses {
				if !st.Serving() {
					return errUnhealthy
				}
			}
			return nil
		},
	}
}

var errUnhealthy = errors.New("daemon reports an unhealthy component")
