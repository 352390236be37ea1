package main

import (
	"fmt"
	"os"

	"github.com/SpatiumPortae/beam/cmd/beam/commands"
	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// injected at build time.
var version string

// rootCmd is the top level `beam` command on which the other subcommands are attached to.
var rootCmd = &cobra.Command{
	Use:   "beam",
	Short: "Beam is a quick and easy command-line file transfer utility from any computer to another.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
			return fmt.Errorf("binding verbose flag: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		if err := config.Init(); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	})

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug information to a file on the format `.beam-[command].log` in the current directory")
	rootCmd.AddCommand(commands.Send(version))
	rootCmd.AddCommand(commands.Receive(version))
	rootCmd.AddCommand(commands.Serve(version))
	rootCmd.AddCommand(commands.Config())
	rootCmd.AddCommand(commands.Version(version))
}
