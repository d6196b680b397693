package update

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// State is a step of an update run
type State int

const (
	StateInit State = iota
	StateReadingManifest
	StateDownloading
	StateLaunching
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateReadingManifest:
		return "reading-manifest"
	case StateDownloading:
		return "downloading"
	case StateLaunching:
		return "launching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// AppLauncher starts the application once files are in place
type AppLauncher interface {
	Launch(executable string) error
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	State     State
	Source    string
	Plan      *Plan
	Entries   []Entry
	Completed int   // Entries fully replaced and downloaded
	LaunchErr error // Non-fatal launch failure, if any
	Err       error // Fatal error when State is StateFailed
}

// Orchestrator runs an update: read the plan, replace and download every
// entry in order, then hand over to the launch executable.
type Orchestrator struct {
	reader         PlanReader
	replacer       Preparer
	fetcher        Fetcher
	launcher       AppLauncher
	sink           Sink
	workDir        string
	selfName       string
	currentVersion string
	logger         *log.Logger
	onState        func(State)
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithSink sets where progress and log events go.
func WithSink(s Sink) Option {
	return func(o *Orchestrator) {
		o.sink = s
	}
}

// WithWorkDir sets the directory entry files are relative to.
func WithWorkDir(dir string) Option {
	return func(o *Orchestrator) {
		o.workDir = dir
	}
}

// WithSelfName sets the updater's own executable name for the self-update rule.
func WithSelfName(name string) Option {
	return func(o *Orchestrator) {
		o.selfName = name
	}
}

// WithCurrentVersion sets the installed version, used only to log what kind
// of change the plan is.
func WithCurrentVersion(v string) Option {
	return func(o *Orchestrator) {
		o.currentVersion = v
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithStateHook is called on every state transition.
func WithStateHook(fn func(State)) Option {
	return func(o *Orchestrator) {
		o.onState = fn
	}
}

// NewOrchestrator wires the update pipeline together.
func NewOrchestrator(reader PlanReader, replacer Preparer, fetcher Fetcher, launcher AppLauncher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reader:   reader,
		replacer: replacer,
		fetcher:  fetcher,
		launcher: launcher,
		sink:     NopSink{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the per-run state through the pipeline.
type run struct {
	*Result
	logger *log.Logger
}

// Run performs one update from src. A nil src fails with ErrNoManifestSource.
// The returned error is non-nil exactly when the run ends in StateFailed.
// Entry N is fully prepared and downloaded before entry N+1 starts, and files
// already replaced are left in place when a later entry fails.
func (o *Orchestrator) Run(ctx context.Context, src Source) (*Result, error) {
	r := &run{Result: &Result{RunID: uuid.NewString(), State: StateInit}}
	r.logger = o.logger.With("run", r.RunID)

	if src == nil {
		return o.fail(r, ErrNoManifestSource)
	}
	r.Source = src.Describe()

	o.transition(r, StateReadingManifest)
	o.sink.OnLog("Reading update manifest . . .")
	plan, entries, err := src.load(ctx, o)
	if err != nil {
		return o.fail(r, err)
	}
	r.Plan = plan
	r.Entries = entries
	o.logVersionChange(r)

	o.transition(r, StateDownloading)
	for i, e := range entries {
		if err := o.apply(ctx, r, i, e); err != nil {
			return o.fail(r, err)
		}
		r.Completed++
	}
	o.sink.OnLog("Update complete!")

	o.transition(r, StateLaunching)
	r.LaunchErr = o.launch(r, plan.LaunchExecutable)

	o.transition(r, StateDone)
	return r.Result, nil
}

// Plan loads the plan and entries src describes without touching any file.
func (o *Orchestrator) Plan(ctx context.Context, src Source) (*Plan, []Entry, error) {
	if src == nil {
		return nil, nil, ErrNoManifestSource
	}
	return src.load(ctx, o)
}

func (o *Orchestrator) apply(ctx context.Context, r *run, i int, e Entry) error {
	dst := o.resolve(e.File)
	logger := r.logger.With("entry", i+1, "file", e.File)

	if err := o.replacer.Prepare(ctx, dst); err != nil {
		return fmt.Errorf("preparing %s: %w", e.File, err)
	}

	o.sink.OnLog(fmt.Sprintf("Downloading '%s' . . .", e.File))
	logger.Info("downloading", "url", e.URL)
	err := o.fetcher.Fetch(ctx, e.URL, dst, func(p Progress) {
		o.sink.OnProgress(p.BytesReceived, p.TotalBytes, p.Percent(), p.ThroughputKBps())
	})
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			o.sink.OnCancelled()
		}
		return err
	}
	logger.Debug("entry complete")
	return nil
}

func (o *Orchestrator) launch(r *run, executable string) error {
	if strings.TrimSpace(executable) == "" {
		r.logger.Info("no launch executable in plan")
		return nil
	}

	o.sink.OnLog(fmt.Sprintf("Attempting to start %s . . .", executable))
	if err := o.launcher.Launch(executable); err != nil {
		r.logger.Warn("launch failed", "executable", executable, "err", err)
		o.sink.OnLog(fmt.Sprintf("Could not start %s: %v", executable, err))
		return err
	}
	r.logger.Info("launched", "executable", executable)
	return nil
}

func (o *Orchestrator) logVersionChange(r *run) {
	if r.Plan.TargetVersion == nil {
		return
	}
	if o.currentVersion == "" {
		r.logger.Info("update plan", "target", r.Plan.TargetVersion, "entries", len(r.Entries))
		return
	}

	current, err := ParseVersion(o.currentVersion)
	if err != nil {
		r.logger.Warn("ignoring unparsable current version", "current", o.currentVersion, "err", err)
		return
	}
	switch c := r.Plan.TargetVersion.Compare(current); {
	case c > 0:
		r.logger.Info("upgrading", "from", current, "to", r.Plan.TargetVersion)
	case c == 0:
		r.logger.Warn("target version is already installed, reapplying", "version", current)
	default:
		r.logger.Warn("target version is older than installed, downgrading", "from", current, "to", r.Plan.TargetVersion)
	}
}

func (o *Orchestrator) resolve(file string) string {
	return ResolvePath(o.workDir, file)
}

// ResolvePath maps a manifest destination onto the local file system.
// Either slash style is accepted; relative names are joined to workDir.
func ResolvePath(workDir, file string) string {
	file = filepath.FromSlash(strings.ReplaceAll(file, `\`, "/"))
	if filepath.IsAbs(file) || workDir == "" {
		return file
	}
	return filepath.Join(workDir, file)
}

func (o *Orchestrator) transition(r *run, to State) {
	r.logger.Debug("state change", "from", r.State, "to", to)
	r.State = to
	if o.onState != nil {
		o.onState(to)
	}
}

func (o *Orchestrator) fail(r *run, err error) (*Result, error) {
	r.Err = err
	o.transition(r, StateFailed)
	r.logger.Error("update failed", "completed", r.Completed, "err", err)
	o.sink.OnLog(fmt.Sprintf("Update failed: %v", err))
	return r.Result, err
}
