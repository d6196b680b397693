package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/updater/internal/output"
	"github.com/adamancini/updater/internal/update"
)

var (
	// Global flags
	outputFormat   string
	configPath     string
	verbose        bool
	quiet          bool
	logFile        string
	workDir        string
	pollInterval   time.Duration
	maxWait        time.Duration
	nonInteractive bool
	argsMode       bool
	currentVersion string
	historyKeep    int
)

// buildInfo is set during command initialization
var buildInfo = versionInfo{Version: "dev", Commit: "none", Date: "unknown"}

// Execute runs the updater CLI until the command finishes or the process is
// interrupted.
func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(version, commit, date).ExecuteContext(ctx)
}

func newRootCmd(version, commit, date string) *cobra.Command {
	buildInfo = versionInfo{Version: version, Commit: commit, Date: date}

	rootCmd := &cobra.Command{
		Use:   "updater [manifest-url | launch-exe url file [url file]...]",
		Short: "Replace an application's files from an update manifest and restart it",
		Long: `updater downloads the files listed in an update manifest into the
directory it lives in, waiting for programs that still hold those files open,
then starts the application again.

The manifest is a plain text file:

  <version>
  <executable to start afterwards, or an empty line>
  <url-1>
  <file-1>
  ...

A plan can also be passed directly on the command line as
  updater App.exe https://host/App.exe App.exe https://host/data.zip data.zip

Examples:
  updater https://downloads.example.com/app/manifest.txt
  updater plan https://downloads.example.com/app/manifest.txt -o json
  updater --args-mode App.exe https://host/App.exe App.exe`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Host applications may append their own flags; manifest discovery skips them.
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, args)
		},
	}
	rootCmd.SetVersionTemplate("updater version {{.Version}}\n")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to updater config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this rotating file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&workDir, "work-dir", "", "Directory manifest files are relative to (default: the updater's directory)")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 0, "How often to recheck a file that is in use (default 1s)")
	rootCmd.PersistentFlags().DurationVar(&maxWait, "max-wait", 0, "How long a file may stay in use before asking to close it (default 10s)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; only log files that stay in use")
	rootCmd.PersistentFlags().BoolVar(&argsMode, "args-mode", false, "Read the arguments as <launch-exe> <url> <file>... instead of a manifest address")
	rootCmd.PersistentFlags().IntVar(&historyKeep, "history-keep", 0, "Record this run and keep this many runs for 'updater history' (default: history.keep, off)")
	rootCmd.PersistentFlags().StringVar(&currentVersion, "current-version", "", "Installed version, used to log whether the plan upgrades or downgrades")

	// Add subcommands
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newPromoteCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// outcome is what the update worker hands back.
type outcome struct {
	result *update.Result
	err    error
}

// runUpdate performs one update. The pipeline runs on its own worker
// goroutine; this one only waits for it.
func runUpdate(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	src := update.SelectSource(args, argsMode, nil)
	sink := env.sink(cmd.OutOrStdout())
	orch := env.orchestrator(sink, cancel)

	started := time.Now()
	done := make(chan outcome, 1)
	go func() {
		res, err := orch.Run(ctx, src)
		done <- outcome{result: res, err: err}
	}()
	o := <-done
	env.recordRun(o.result, started)

	if o.err != nil {
		if errors.Is(o.err, update.ErrNoManifestSource) {
			return fmt.Errorf("%w: pass a manifest URL or <launch-exe> <url> <file>", o.err)
		}
		return fmt.Errorf("update failed after %d of %d files: %w", o.result.Completed, len(o.result.Entries), o.err)
	}
	env.logger.Info("update finished", "run", o.result.RunID, "files", o.result.Completed)
	return nil
}
