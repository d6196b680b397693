package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamancini/updater/internal/history"
	"github.com/adamancini/updater/internal/update"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past update runs",
		Long: `History lists the update runs recorded on this machine, newest first.

Recording is off by default. Set history.keep in the config file or pass
--history-keep to record runs and keep that many of the most recent ones.
Runs are stored in ~/.cache/updater/history/ unless history.dir is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd)
		},
	}

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryPruneCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Long:  `Show prints every detail of a recorded run. Use 'latest' for the most recent one.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func newHistoryPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old run records",
		Long: `Prune deletes old run records, keeping only the most recent N.

By default, keeps the 30 most recent runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryPrune(cmd, keep)
		},
	}

	cmd.Flags().IntVar(&keep, "keep", history.DefaultKeepCount, "Number of runs to keep")

	return cmd
}

// historyStore opens the run history configured for env.
func (e *environment) historyStore() (*history.Store, error) {
	return history.NewStore(e.cfg.History.Dir, buildInfo.Version)
}

// recordRun stores res and trims the history to the configured size.
// Failures are logged; a run's outcome never depends on its record.
func (e *environment) recordRun(res *update.Result, started time.Time) {
	if e.cfg.History.Keep == 0 || res == nil {
		return
	}
	logger := e.component("history")

	store, err := e.historyStore()
	if err == nil {
		_, err = store.Add(res, started)
	}
	if err != nil {
		logger.Warn("could not record update run", "err", err)
		return
	}
	if _, err := store.Prune(e.cfg.History.Keep); err != nil {
		logger.Warn("could not prune update history", "err", err)
	}
}

// historyList renders run summaries as a table in text mode.
type historyList struct {
	Dir  string               `json:"dir" yaml:"dir"`
	Runs []history.RecordInfo `json:"runs" yaml:"runs"`
}

func (l historyList) RenderText(w io.Writer) error {
	if len(l.Runs) == 0 {
		_, _ = fmt.Fprintln(w, "No update runs recorded.")
		_, _ = fmt.Fprintf(w, "History directory: %s\n", l.Dir)
		return nil
	}

	_, _ = fmt.Fprintf(w, "Runs recorded in %s:\n\n", l.Dir)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tFinished\tVersion\tState\tFiles\tSource")
	for _, r := range l.Runs {
		version := r.TargetVersion
		if version == "" {
			version = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			shortID(r.ID),
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			version,
			r.State,
			r.Completed, r.Total,
			r.Source,
		)
	}
	return tw.Flush()
}

// historyRecord renders one run in text mode.
type historyRecord struct {
	history.Record `yaml:",inline"`
}

func (r historyRecord) RenderText(w io.Writer) error {
	_, _ = fmt.Fprintf(w, "Run:       %s\n", r.ID)
	_, _ = fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Finished:  %s\n", r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "Updater:   %s\n", r.UpdaterVersion)
	_, _ = fmt.Fprintf(w, "Source:    %s\n", r.Source)
	if r.TargetVersion != "" {
		_, _ = fmt.Fprintf(w, "Version:   %s\n", r.TargetVersion)
	}
	_, _ = fmt.Fprintf(w, "State:     %s (%d of %d files)\n", r.State, r.Completed, len(r.Files))
	if r.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:     %s\n", r.Error)
	}
	if r.LaunchExecutable != "" {
		launch := r.LaunchExecutable
		if r.LaunchError != "" {
			launch += " (failed: " + r.LaunchError + ")"
		}
		_, _ = fmt.Fprintf(w, "Launched:  %s\n", launch)
	}
	if len(r.Files) > 0 {
		_, _ = fmt.Fprintln(w, "Files:")
		for i, f := range r.Files {
			mark := " "
			if i < r.Completed {
				mark = "✓"
			}
			_, _ = fmt.Fprintf(w, "  %s %s\n", mark, f)
		}
	}
	return nil
}

// historyPrune renders a prune result in text mode.
type historyPrune struct {
	history.PruneResult `yaml:",inline"`
}

func (p historyPrune) RenderText(w io.Writer) error {
	if len(p.Deleted) == 0 {
		_, err := fmt.Fprintf(w, "No runs to prune. Keeping %d runs.\n", p.Kept)
		return err
	}

	_, _ = fmt.Fprintf(w, "Pruned %d run(s), keeping %d:\n", len(p.Deleted), p.Kept)
	for _, r := range p.Deleted {
		_, _ = fmt.Fprintf(w, "  - %s (%s)\n", shortID(r.ID), r.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runHistoryList(cmd *cobra.Command) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	store, err := env.historyStore()
	if err != nil {
		return err
	}
	runs, err := store.List()
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), historyList{Dir: store.Dir(), Runs: runs})
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	store, err := env.historyStore()
	if err != nil {
		return err
	}
	rec, err := store.Get(resolveRunID(store, id))
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), historyRecord{*rec})
}

func runHistoryPrune(cmd *cobra.Command, keep int) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	store, err := env.historyStore()
	if err != nil {
		return err
	}
	result, err := store.Prune(keep)
	if err != nil {
		return err
	}

	return writeOutput(cmd.OutOrStdout(), historyPrune{*result})
}

// resolveRunID expands the short ID shown by the list to a full run ID.
// Ambiguous or unknown prefixes are returned unchanged.
func resolveRunID(store *history.Store, id string) string {
	if id == "latest" {
		return id
	}
	runs, err := store.List()
	if err != nil {
		return id
	}
	match := ""
	for _, r := range runs {
		if r.ID == id {
			return id
		}
		if strings.HasPrefix(r.ID, id) {
			if match != "" {
				return id
			}
			match = r.ID
		}
	}
	if match == "" {
		return id
	}
	return match
}

// shortID is the first block of a run ID, enough to tell runs apart.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
