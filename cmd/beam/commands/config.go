package commands

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	"github.com/alecthomas/chroma/quick"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config returns the `config` command and its subcommands.
func Config() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View and configure options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	configCmd.AddCommand(configPathCmd(), configViewCmd(), configEditCmd(), configResetCmd(), configValidateCmd())
	return configCmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Output the path of the config file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), viper.ConfigFileUsed())
		},
	}
}

func configViewCmd() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "View the configured options",
		Long:  "View the config file, or with --effective the options in use after defaults and flags are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var contents []byte
			if effective, _ := cmd.Flags().GetBool("effective"); effective {
				contents = config.FromViper().Yaml()
			} else {
				configPath := viper.ConfigFileUsed()
				b, err := os.ReadFile(configPath)
				if err != nil {
					return fmt.Errorf("config file (%s) could not be read: %w", configPath, err)
				}
				contents = b
			}
			highlightYaml(cmd.OutOrStdout(), string(contents))
			return nil
		},
	}
	viewCmd.Flags().BoolP("effective", "e", false, "Show the options in use instead of the file contents")
	return viewCmd
}

func configEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration file in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := viper.ConfigFileUsed()
			// exec.Command looks up the bare executable, arguments in $EDITOR are dropped.
			editor, _, _ := strings.Cut(os.Getenv("EDITOR"), " ")
			if editor == "" {
				//lint:ignore ST1005 error string is command output
				return fmt.Errorf("Could not find default editor (is the $EDITOR variable set?)\nOptionally you can open the file (%s) manually", configPath)
			}
			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin, editorCmd.Stdout, editorCmd.Stderr = os.Stdin, os.Stdout, os.Stderr
			if err := editorCmd.Run(); err != nil {
				return fmt.Errorf("failed to open file (%s) in editor (%s): %w", configPath, editor, err)
			}
			return nil
		},
	}
}

func configResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset to the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := viper.ConfigFileUsed()
			if err := os.WriteFile(configPath, config.GetDefault().Yaml(), 0o644); err != nil {
				return fmt.Errorf("config file (%s) could not be written to: %w", configPath, err)
			}
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configured options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config is valid")
			return nil
		},
	}
}

// highlightYaml writes the yaml to w, falling back to plain text when it can not be highlighted.
func highlightYaml(w io.Writer, yaml string) {
	if err := quick.Highlight(w, yaml, "yaml", "terminal256", "onedark"); err != nil {
		fmt.Fprintln(w, yaml)
	}
}
