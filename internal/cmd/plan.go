package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/updater/internal/update"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [manifest-url | launch-exe url file [url file]...]",
		Short: "Show what an update would do without changing anything",
		Long: `Plan reads the manifest (or command-line plan) and lists every file it
would replace, where that file lands, and what is started afterwards.
Nothing is downloaded or deleted.

Examples:
  updater plan https://downloads.example.com/app/manifest.txt
  updater plan https://downloads.example.com/app/manifest.txt -o yaml
  updater plan --current-version 1.1.0 https://downloads.example.com/app/manifest.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args)
		},
	}
}

// planEntry is one file of a plan, resolved against the work directory.
type planEntry struct {
	URL    string `json:"url" yaml:"url"`
	File   string `json:"file" yaml:"file"`
	Path   string `json:"path" yaml:"path"`
	Exists bool   `json:"exists" yaml:"exists"`
}

// planReport is the output of updater plan.
type planReport struct {
	Source           string      `json:"source" yaml:"source"`
	TargetVersion    string      `json:"target_version,omitempty" yaml:"target_version,omitempty"`
	CurrentVersion   string      `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	Change           string      `json:"change,omitempty" yaml:"change,omitempty"`
	LaunchExecutable string      `json:"launch_executable,omitempty" yaml:"launch_executable,omitempty"`
	WorkDir          string      `json:"work_dir" yaml:"work_dir"`
	PollInterval     string      `json:"poll_interval" yaml:"poll_interval"`
	MaxWait          string      `json:"max_wait" yaml:"max_wait"`
	Entries          []planEntry `json:"entries" yaml:"entries"`
}

// RenderText writes the report as an aligned table.
func (r *planReport) RenderText(w io.Writer) error {
	_, _ = fmt.Fprintf(w, "Source:      %s\n", r.Source)
	if r.TargetVersion != "" {
		line := r.TargetVersion
		if r.Change != "" {
			line = fmt.Sprintf("%s (%s from %s)", r.TargetVersion, r.Change, r.CurrentVersion)
		}
		_, _ = fmt.Fprintf(w, "Version:     %s\n", line)
	}
	launch := r.LaunchExecutable
	if launch == "" {
		launch = "(nothing)"
	}
	_, _ = fmt.Fprintf(w, "Starts:      %s\n", launch)
	_, _ = fmt.Fprintf(w, "Directory:   %s\n", r.WorkDir)
	_, _ = fmt.Fprintf(w, "Lock wait:   poll every %s, prompt after %s\n\n", r.PollInterval, r.MaxWait)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tFILE\tACTION\tURL")
	for i, e := range r.Entries {
		action := "create"
		if e.Exists {
			action = "replace"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, e.File, action, e.URL)
	}
	return tw.Flush()
}

func runPlan(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	src := update.SelectSource(args, argsMode, nil)
	orch := env.orchestrator(update.NopSink{}, func() {})

	plan, entries, err := orch.Plan(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("failed to read plan: %w", err)
	}

	report := buildPlanReport(src.Describe(), env.workDir, plan, entries)
	report.PollInterval = describeDuration(env.cfg.PollIntervalDuration())
	report.MaxWait = describeDuration(env.cfg.MaxWaitDuration())
	if plan.TargetVersion != nil && currentVersion != "" {
		report.CurrentVersion = currentVersion
		report.Change = classifyChange(plan.TargetVersion, currentVersion)
	}

	return writeOutput(cmd.OutOrStdout(), report)
}

func buildPlanReport(source, workDir string, plan *update.Plan, entries []update.Entry) *planReport {
	report := &planReport{
		Source:           source,
		LaunchExecutable: plan.LaunchExecutable,
		WorkDir:          workDir,
		Entries:          make([]planEntry, 0, len(entries)),
	}
	if plan.TargetVersion != nil {
		report.TargetVersion = plan.TargetVersion.String()
	}
	for _, e := range entries {
		path := update.ResolvePath(workDir, e.File)
		_, statErr := os.Stat(path)
		report.Entries = append(report.Entries, planEntry{
			URL:    e.URL,
			File:   e.File,
			Path:   path,
			Exists: statErr == nil,
		})
	}
	return report
}

// classifyChange names the kind of change from current to target. An
// unparsable current version gives an empty string.
func classifyChange(target *update.Version, current string) string {
	cur, err := update.ParseVersion(current)
	if err != nil {
		return ""
	}
	switch c := target.Compare(cur); {
	case c > 0:
		return "upgrade"
	case c == 0:
		return "reinstall"
	default:
		return "downgrade"
	}
}
