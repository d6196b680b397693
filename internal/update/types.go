package update

import "context"

// Plan is everything a manifest says besides its file list.
type Plan struct {
	TargetVersion    *Version `json:"target_version,omitempty" yaml:"target_version,omitempty"` // Informational only
	LaunchExecutable string   `json:"launch_executable,omitempty" yaml:"launch_executable,omitempty"`
}

// Entry is one file of an update: where to fetch it and where it lands.
// File is relative to the work directory.
type Entry struct {
	URL  string `json:"url" yaml:"url"`
	File string `json:"file" yaml:"file"`
}

// Sink receives progress and log events from an update run. Calls are made
// synchronously from the worker running the update; implementations that
// drive a UI must hand events over to their own thread themselves.
type Sink interface {
	OnLog(text string)
	OnProgress(received, total int64, percent int, kbps float64)
	OnWaitingForLock(file string)
	OnCancelled()
}

// PlanReader turns a manifest address into a plan and its entries
type PlanReader interface {
	Read(ctx context.Context, url string) (*Plan, []Entry, error)
}

// Preparer clears a destination path so a new file can be written there
type Preparer interface {
	Prepare(ctx context.Context, path string) error
}

// Fetcher streams one URL into one file
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string, onProgress func(Progress)) error
}

// Starter starts a process that does not depend on the updater's lifetime
type Starter interface {
	Start(path string, args ...string) error
}

// Escalator is consulted when a file stays locked past the maximum wait.
// It may block (for example on a user prompt); polling resumes once it returns.
type Escalator interface {
	Escalate(ctx context.Context, file string) error
}

// EscalatorFunc adapts a function to the Escalator interface
type EscalatorFunc func(ctx context.Context, file string) error

// Escalate calls f.
func (f EscalatorFunc) Escalate(ctx context.Context, file string) error {
	return f(ctx, file)
}
