package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/updater/internal/update"
)

func newPromoteCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Install this pending updater over the one it replaces",
		Long: `When a manifest ships a new updater it is saved next to the running one
as <name>_new<ext> (for example Updater_new.exe). Run promote from that
pending binary to install it over the original.

The current binary is backed up first and restored if the new one fails to
start with --version.

Examples:
  ./Updater_new.exe promote                      # Replaces ./Updater.exe
  ./Updater_new.exe promote --target /opt/app/Updater.exe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := update.SelfPath()
			if err != nil {
				return err
			}
			return runPromote(cmd, self, target)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "Binary to replace (default: this binary's name without _new)")

	return cmd
}

func runPromote(cmd *cobra.Command, source, target string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if target == "" {
		target, err = update.PromotionTarget(source)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	sink := env.sink(out)
	replacer := update.NewSelfReplacer(target, source, env.fileReplacer(sink, cancel))

	_, _ = fmt.Fprintf(out, "Installing %s to %s...\n", filepath.Base(source), target)
	if err := replacer.Promote(ctx); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}
	env.logger.Info("promoted pending updater", "source", source, "target", target)
	_, _ = fmt.Fprintln(out, "✓ Installation complete")
	return nil
}
