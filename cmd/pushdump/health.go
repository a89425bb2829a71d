package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/alfredjeanlab/pushdump/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of a running daemon",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("server")
		if addr == "" {
			addr = dialAddr(cfg.GRPCAddr)
		}

		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("failed to connect to server: %w", err)
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cfg.AuthToken != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+cfg.AuthToken)
		}

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		status := resp.GetStatus()

		if jsonOutput {
			printJSON(map[string]string{"status": status.String()})
		} else if status == healthpb.HealthCheckResponse_SERVING {
			fmt.Printf("Health: %s\n", ui.RenderOK(status.String()))
		} else {
			fmt.Printf("Health: %s\n", ui.RenderError(status.String()))
		}

		if status != healthpb.HealthCheckResponse_SERVING {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().String("server", "", "gRPC address of the daemon (default from PUSHDUMP_GRPC_ADDR)")
}

// dialAddr turns a listen address such as ":9090" into one a client can dial.
func dialAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
