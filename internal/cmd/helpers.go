package cmd

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/adamancini/updater/internal/config"
	"github.com/adamancini/updater/internal/interactive"
	"github.com/adamancini/updater/internal/logging"
	"github.com/adamancini/updater/internal/output"
	"github.com/adamancini/updater/internal/update"
)

// environment is the configuration and logger shared by every command.
type environment struct {
	cfg        *config.Config
	configFile string // Empty when running on defaults
	logger     *logging.Logger
	selfName   string
	workDir    string
	stderr     io.Writer
}

// loadEnvironment resolves config (file, then flags) and builds the logger.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	exeDir := ""
	selfName := ""
	if self, err := update.SelfPath(); err == nil {
		exeDir = filepath.Dir(self)
		selfName = filepath.Base(self)
	}

	cfg, path, err := config.LoadOrDefault(configPath, exeDir)
	if err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cmd.Flags(), cfg); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Verbose:    verbose,
		Quiet:      quiet,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Stderr:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	env := &environment{
		cfg:        cfg,
		configFile: path,
		logger:     logger,
		selfName:   selfName,
		workDir:    exeDir,
		stderr:     cmd.ErrOrStderr(),
	}
	if cfg.SelfName != "" {
		env.selfName = cfg.SelfName
	}
	if cfg.WorkDir != "" {
		env.workDir = cfg.WorkDir
	}

	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	logger.Debug("environment", "self", env.selfName, "work_dir", env.workDir, "platform", update.Detect())
	return env, nil
}

// applyFlagOverrides copies explicitly set flags over file values and
// revalidates the result.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("work-dir") {
		cfg.WorkDir = workDir
	}
	if flags.Changed("poll-interval") {
		cfg.PollInterval = pollInterval.String()
	}
	if flags.Changed("max-wait") {
		cfg.MaxWait = maxWait.String()
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flags.Changed("history-keep") {
		cfg.History.Keep = historyKeep
	}
	if nonInteractive {
		off := false
		cfg.Interactive = &off
	}
	return config.Validate(cfg)
}

// Close releases the log file, if any.
func (e *environment) Close() error {
	return e.logger.Close()
}

func (e *environment) component(name string) *log.Logger {
	return logging.Component(e.logger.Logger, name)
}

func (e *environment) userAgent() string {
	if e.cfg.UserAgent != "" {
		return e.cfg.UserAgent
	}
	return "updater/" + buildInfo.Version
}

// httpClient bounds a whole request, for the small manifest fetch.
func (e *environment) httpClient() *http.Client {
	return &http.Client{Timeout: e.cfg.HTTPTimeoutDuration()}
}

// sink picks where run events go: the console, the log, or both.
func (e *environment) sink(stdout io.Writer) update.Sink {
	logSink := output.NewLogSink(e.component("progress"))
	switch {
	case quiet:
		return logSink
	case e.cfg.Log.File != "":
		return update.MultiSink{output.NewConsoleSink(stdout), logSink}
	default:
		return output.NewConsoleSink(stdout)
	}
}

// escalator prompts on the terminal when someone can answer, and only logs
// otherwise. Quitting the prompt calls cancel.
func (e *environment) escalator(cancel func()) update.Escalator {
	if e.cfg.InteractiveOr(interactive.IsTerminal()) {
		return interactive.NewPrompter(interactive.WithQuit(cancel))
	}
	return interactive.LogEscalator{Logger: e.component("replacer")}
}

func (e *environment) fileReplacer(sink update.Sink, cancel func()) *update.FileReplacer {
	return update.NewFileReplacer(
		update.WithReplacerSink(sink),
		update.WithEscalator(e.escalator(cancel)),
		update.WithPollInterval(e.cfg.PollIntervalDuration()),
		update.WithMaxWait(e.cfg.MaxWaitDuration()),
		update.WithReplacerLogger(e.component("replacer")),
	)
}

func (e *environment) manifestReader() *update.ManifestReader {
	return update.NewManifestReader(e.selfName,
		update.WithManifestClient(e.httpClient()),
		update.WithManifestUserAgent(e.userAgent()),
		update.WithManifestLogger(e.component("manifest")),
	)
}

// orchestrator wires the full update pipeline.
func (e *environment) orchestrator(sink update.Sink, cancel func()) *update.Orchestrator {
	downloader := update.NewHTTPDownloader(
		update.WithHTTPClient(update.NewTransferClient(e.cfg.HTTPTimeoutDuration())),
		update.WithUserAgent(e.userAgent()),
		update.WithDownloaderLogger(e.component("download")),
	)
	launcher := update.NewLauncher(update.DetachedStarter{Dir: e.workDir}, e.workDir, e.component("launcher"))

	return update.NewOrchestrator(e.manifestReader(), e.fileReplacer(sink, cancel), downloader, launcher,
		update.WithSink(sink),
		update.WithWorkDir(e.workDir),
		update.WithSelfName(e.selfName),
		update.WithCurrentVersion(currentVersion),
		update.WithLogger(e.component("orchestrator")),
	)
}

// writeOutput renders v in the --output format.
func writeOutput(w io.Writer, v interface{}) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return output.NewWriter(w, format).Write(v)
}

// describeDuration prints a config duration the way users type it.
func describeDuration(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}
