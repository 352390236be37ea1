package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/SpatiumPortae/beam/cmd/beam/config"
	receiver_tui "github.com/SpatiumPortae/beam/cmd/beam/tui/receiver"
	"github.com/SpatiumPortae/beam/internal/file"
	"github.com/SpatiumPortae/beam/internal/password"
	"github.com/SpatiumPortae/beam/internal/portal"
	"github.com/SpatiumPortae/beam/internal/receiver"
	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ------------------------------------------------------ Receive ------------------------------------------------------

func Receive(version string) *cobra.Command {
	receiveCmd := &cobra.Command{
		Use:               "receive password",
		Short:             "Receive a file",
		Long:              "The receive command receives a file from the sender with the matching password.",
		Args:              cobra.MatchAll(cobra.ExactArgs(1), validPassword),
		ValidArgsFunction: passwordCompletion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// --yes answers the overwrite prompt up front, so it turns the prompt off.
			if cmd.Flags().Changed("yes") {
				yes, err := cmd.Flags().GetBool("yes")
				if err != nil {
					return err
				}
				viper.Set("prompt_overwrite_files", !yes)
			}
			return bindFlags(cmd, map[string]string{
				"relay":      "relay",
				"tui-style":  "tui_style",
				"relay-only": "relay_only",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pass := args[0]
			return runStyled("receive",
				func(cfg config.Config, logger *zap.Logger) error {
					return receiveRich(version, pass, cfg, logger)
				},
				func(cfg config.Config, logger *zap.Logger) error {
					return receiveRaw(cmd.OutOrStdout(), cmd.InOrStdin(), version, pass, cfg, logger)
				},
			)
		},
	}
	receiveCmd.Flags().StringP("relay", "r", "", relayFlagDesc)
	receiveCmd.Flags().BoolP("yes", "y", false, "Overwrite existing files without [Y/n] prompts")
	receiveCmd.Flags().StringP("tui-style", "s", "", tuiStyleFlagDesc)
	receiveCmd.Flags().Bool("relay-only", false, relayOnlyFlagDesc)
	return receiveCmd
}

func validPassword(cmd *cobra.Command, args []string) error {
	if _, _, err := password.Parse(args[0]); err != nil {
		return fmt.Errorf("invalid password %q: %w", args[0], err)
	}
	return nil
}

// ------------------------------------------------------ Handlers -----------------------------------------------------

func receiveRich(version, pass string, cfg config.Config, logger *zap.Logger) error {
	opts := []receiver_tui.Option{receiver_tui.WithLogger(logger)}
	if ver, ok := clientVersion(version); ok {
		opts = append(opts, receiver_tui.WithVersion(ver))
	}
	if _, err := receiver_tui.New(pass, portalConfig(cfg), opts...).Run(); err != nil {
		return err
	}
	fmt.Println()
	return nil
}

func receiveRaw(out io.Writer, in io.Reader, version, pass string, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := checkServerVersion(ctx, version, cfg.Relay); err != nil {
		return err
	}

	pcfg := portalConfig(cfg)
	f, err := portal.Receive(ctx, pass, &pcfg,
		portal.WithLogger(logger),
		portal.WithNegotiated(func(t transfer.Type) {
			fmt.Fprintf(out, "using %s transfer\n", t)
		}),
		portal.WithMetadata(func(meta transfer.Metadata) {
			fmt.Fprintf(out, "receiving %s (%d bytes)\n", meta.FileName, meta.FileSize)
		}),
		portal.WithProgress(progressPrinter(out)),
	)
	if err != nil {
		return fmt.Errorf("receiving file: %w", err)
	}

	answers := bufio.NewReader(in)
	path, err := saveFile(".", f, cfg.PromptOverwriteFiles, func(name string) (bool, error) {
		fmt.Fprintf(out, "overwrite %s? [y/n] ", name)
		answer, err := answers.ReadString('\n')
		if err != nil && answer == "" {
			return false, fmt.Errorf("reading answer: %w", err)
		}
		return parseConfirmation(answer)
	})
	switch {
	case err != nil:
		return err
	case path == "":
		fmt.Fprintf(out, "skipped %s\n", f.Name)
	default:
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

// saveFile writes the received file to dir. When prompt is set confirm decides
// whether an existing file is overwritten. An empty path is returned when it is not.
func saveFile(dir string, f *receiver.File, prompt bool, confirm func(name string) (bool, error)) (string, error) {
	path, err := file.Save(dir, f.Name, f.Bytes, !prompt)
	if !errors.Is(err, file.ErrFileExists) {
		return path, err
	}
	overwrite, err := confirm(f.Name)
	if err != nil || !overwrite {
		return "", err
	}
	return file.Save(dir, f.Name, f.Bytes, true)
}

func parseConfirmation(answer string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("answer %q is neither yes nor no", strings.TrimSpace(answer))
	}
}

// progressPrinter returns a progress observer writing a line to w each time the percentage changes.
func progressPrinter(w io.Writer) func(transfer.Progress) {
	last := -1
	return func(p transfer.Progress) {
		if p.Percent == last {
			return
		}
		last = p.Percent
		fmt.Fprintf(w, "%s %d%%\n", p.Role, p.Percent)
	}
}

// ------------------------------------------------ Password Completion ------------------------------------------------

// passwordCompletion completes the id with a dash and then one word at a time,
// never suggesting a word twice.
func passwordCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	const directive = cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
	parts := strings.Split(toComplete, "-")
	if len(parts) > password.Length+1 {
		return nil, directive
	}
	if len(parts) == 1 {
		if _, err := strconv.Atoi(parts[0]); err != nil {
			return nil, directive
		}
		return []string{parts[0] + "-"}, directive
	}

	typed, partial := parts[:len(parts)-1], parts[len(parts)-1]
	candidates := slices.DeleteFunc(password.Words(), func(w string) bool {
		return slices.Contains(typed, w) || !strings.HasPrefix(w, partial)
	})
	prefix := strings.Join(typed, "-") + "-"
	suffix := ""
	if len(parts) <= password.Length {
		suffix = "-"
	}
	suggestions := make([]string, 0, len(candidates))
	for _, w := range candidates {
		suggestions = append(suggestions, prefix+w+suffix)
	}
	return suggestions, directive
}
