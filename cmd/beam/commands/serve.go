package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/SpatiumPortae/beam/internal/logger"
	"github.com/SpatiumPortae/beam/internal/rendezvous"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Serve(version string) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the relay server",
		Long:  "The serve command serves the relay server locally.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{"port": "relay_port"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ver, err := semver.Parse(version)
			if err != nil {
				return fmt.Errorf("server requires version to be set: %w", err)
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			l := logger.New()
			defer l.Sync() //nolint:errcheck
			server := rendezvous.NewServer(viper.GetInt("relay_port"), ver, rendezvous.WithLogger(l))
			return server.Start(ctx)
		},
	}
	serveCmd.Flags().IntP("port", "p", 0, "port to run the beam relay server on")
	return serveCmd
}
