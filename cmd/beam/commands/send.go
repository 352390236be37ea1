package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	sender_ui "github.com/SpatiumPortae/beam/cmd/beam/tui/sender"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/internal/semver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// -------------------------------------------------------- Send -------------------------------------------------------

func Send(version string) *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send file",
		Short: "Send a file",
		Long:  "The send command sends a file to the receiver that enters the printed password.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"relay":      "relay",
				"tui-style":  "tui_style",
				"relay-only": "relay_only",
				"chunk-size": "chunk_size",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return runStyled("send",
				func(cfg config.Config, logger *zap.Logger) error {
					return sendRich(version, path, cfg, logger)
				},
				func(cfg config.Config, logger *zap.Logger) error {
					return sendRaw(cmd.OutOrStdout(), version, path, cfg, logger)
				},
			)
		},
	}
	sendCmd.Flags().StringP("relay", "r", "", relayFlagDesc)
	sendCmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
	sendCmd.Flags().Bool("relay-only", false, relayOnlyFlagDesc)
	sendCmd.Flags().Int("chunk-size", transfer.ChunkSize, "Size in bytes of the chunks the file is sent in")
	return sendCmd
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

func sendRich(version, path string, cfg config.Config, logger *zap.Logger) error {
	opts := []sender_ui.Option{sender_ui.WithLogger(logger)}
	if ver, ok := clientVersion(version); ok {
		opts = append(opts, sender_ui.WithVersion(ver))
	}
	if _, err := sender_ui.New(path, portalConfig(cfg), opts...).Run(); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func sendRaw(out io.Writer, version, path string, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := checkServerVersion(ctx, version, cfg.Relay); err != nil {
		return err
	}

	src, err := file.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	pcfg := portalConfig(cfg)
	pass, done, err := portal.Send(ctx, src, &pcfg,
		portal.WithLogger(logger),
		portal.WithNegotiated(func(t transfer.Type) {
			fmt.Fprintf(out, "using %s transfer\n", t)
		}),
		portal.WithProgress(progressPrinter(out)),
	)
	if err != nil {
		return fmt.Errorf("registering with relay: %w", err)
	}
	fmt.Fprintln(out, sender_ui.ReceiverCommand(pass))
	if err := <-done; err != nil {
		return fmt.Errorf("sending %s: %w", src.Name(), err)
	}
	return nil
}

// checkServerVersion fails when the relay server runs an incompatible version.
// Development builds skip the check.
func checkServerVersion(ctx context.Context, version string, relayAddr string) error {
	client, ok := clientVersion(version)
	if !ok {
		return nil
	}
	server, err := semver.GetRendezvousVersion(ctx, relayAddr)
	if err != nil {
		return fmt.Errorf("fetching version from relay: %w", err)
	}
	if !client.Compatible(server) {
		return fmt.Errorf("beam %s cannot talk to relay running %s", client, server)
	}
	return nil
}
