package update

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// DetachedStarter starts programs in their own session/process group with no
// inherited stdio, then releases them so the updater can exit independently.
type DetachedStarter struct {
	Dir string // Working directory for the new process; empty means inherit
}

// Start launches path with args and returns once the process exists.
func (s DetachedStarter) Start(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	cmd.Dir = s.Dir
	cmd.SysProcAttr = detachedProcAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Launcher starts the application named by a plan once an update is in place
type Launcher struct {
	starter  Starter
	platform Platform
	workDir  string
	logger   *log.Logger
}

// NewLauncher creates a launcher resolving relative names against workDir.
func NewLauncher(starter Starter, workDir string, logger *log.Logger) *Launcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Launcher{
		starter:  starter,
		platform: Detect(),
		workDir:  workDir,
		logger:   logger,
	}
}

// Launch starts executable detached. Names that do not look like a program
// are refused with ErrNotExecutable.
func (l *Launcher) Launch(executable string) error {
	executable = strings.TrimSpace(executable)
	if !l.platform.LooksExecutable(executable) {
		return &LaunchError{Path: executable, Err: ErrNotExecutable}
	}

	path := l.resolve(executable)
	if err := ensureExecutable(path); err != nil {
		l.logger.Debug("could not mark launch target executable", "path", path, "err", err)
	}

	l.logger.Debug("starting process", "path", path)
	if err := l.starter.Start(path); err != nil {
		return &LaunchError{Path: executable, Err: err}
	}
	return nil
}

// resolve prefers a file in the work directory and otherwise leaves the name
// for the OS to look up.
func (l *Launcher) resolve(executable string) string {
	if filepath.IsAbs(executable) || l.workDir == "" {
		return executable
	}
	candidate := filepath.Join(l.workDir, filepath.FromSlash(strings.ReplaceAll(executable, `\`, "/")))
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return executable
}
