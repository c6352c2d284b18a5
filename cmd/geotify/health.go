package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/geotify/internal/client"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the coordinator",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		useGRPC, _ := cmd.Flags().GetBool("grpc")

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		var (
			status string
			want   string
			err    error
		)
		if useGRPC {
			want = "SERVING"
			status, err = grpcHealth(ctx)
		} else {
			want = "ok"
			status, err = geoClient.Health(ctx)
		}
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}

		if status != want {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func grpcHealth(ctx context.Context) (string, error) {
	probe, err := client.NewHealthProbe(grpcAddr, authToken)
	if err != nil {
		return "", err
	}
	defer probe.Close()
	return probe.Check(ctx)
}

func init() {
	healthCmd.Flags().Bool("grpc", false, "check the gRPC health service instead of HTTP")
}
