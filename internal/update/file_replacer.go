package update

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

const (
	// DefaultPollInterval is how often a locked file is probed again.
	DefaultPollInterval = time.Second
	// DefaultMaxWait is how long a file may stay locked before escalation.
	DefaultMaxWait = 10 * time.Second
)

// LockProber reports whether a file is held open by another process.
// A probe error is treated as locked by the caller.
type LockProber interface {
	Locked(path string) (bool, error)
}

// FileReplacer removes destination files before they are downloaded again,
// waiting out processes that still hold them open.
type FileReplacer struct {
	prober       LockProber
	escalator    Escalator
	sink         Sink
	pollInterval time.Duration
	maxWait      time.Duration
	timer        backoff.Timer
	logger       *log.Logger
}

// ReplacerOption configures a FileReplacer
type ReplacerOption func(*FileReplacer)

// WithLockProber replaces the platform lock probe.
func WithLockProber(p LockProber) ReplacerOption {
	return func(r *FileReplacer) {
		r.prober = p
	}
}

// WithEscalator sets what happens when a file stays locked past the maximum wait.
func WithEscalator(e Escalator) ReplacerOption {
	return func(r *FileReplacer) {
		r.escalator = e
	}
}

// WithReplacerSink sets where "waiting for file" notifications go.
func WithReplacerSink(s Sink) ReplacerOption {
	return func(r *FileReplacer) {
		r.sink = s
	}
}

// WithPollInterval sets the delay between lock probes.
func WithPollInterval(d time.Duration) ReplacerOption {
	return func(r *FileReplacer) {
		r.pollInterval = d
	}
}

// WithMaxWait sets how long to poll before escalating.
func WithMaxWait(d time.Duration) ReplacerOption {
	return func(r *FileReplacer) {
		r.maxWait = d
	}
}

// WithTimer replaces the timer driving the poll loop (tests).
func WithTimer(t backoff.Timer) ReplacerOption {
	return func(r *FileReplacer) {
		r.timer = t
	}
}

// WithReplacerLogger sets the logger.
func WithReplacerLogger(l *log.Logger) ReplacerOption {
	return func(r *FileReplacer) {
		r.logger = l
	}
}

// NewFileReplacer creates a FileReplacer using the platform lock probe.
func NewFileReplacer(opts ...ReplacerOption) *FileReplacer {
	r := &FileReplacer{
		prober:       osLockProber{},
		sink:         NopSink{},
		pollInterval: DefaultPollInterval,
		maxWait:      DefaultMaxWait,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.escalator == nil {
		r.escalator = EscalatorFunc(func(_ context.Context, file string) error {
			r.logger.Warn("file is still in use, close the program holding it", "file", file)
			return nil
		})
	}
	return r
}

// errStillLocked drives another poll iteration.
var errStillLocked = errors.New("file is in use")

// Prepare makes sure path does not exist. A missing path succeeds at once.
// A path that cannot be deleted is polled every poll interval, with a
// waiting notification per attempt, until it can be. Each time the locked
// time reaches the maximum wait the escalator is called, then polling goes
// on; Prepare only gives up when ctx is done.
func (r *FileReplacer) Prepare(ctx context.Context, path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	r.logger.Debug("delete failed, waiting for file to close", "file", path, "err", err)

	name := filepath.Base(path)
	var waited time.Duration

	operation := func() error {
		locked, probeErr := r.prober.Locked(path)
		if probeErr != nil {
			// Any probe failure counts as locked.
			r.logger.Debug("lock probe failed", "file", path, "err", probeErr)
			return errStillLocked
		}
		if locked {
			return errStillLocked
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("delete failed after unlock", "file", path, "err", err)
			return errStillLocked
		}
		return nil
	}

	notify := func(_ error, next time.Duration) {
		r.sink.OnWaitingForLock(name)
		if waited >= r.maxWait {
			r.logger.Warn("file still locked", "file", path, "waited", waited, "err", ErrLockTimeout)
			if err := r.escalator.Escalate(ctx, name); err != nil {
				r.logger.Debug("escalation returned an error", "file", path, "err", err)
			}
			waited = 0
		}
		waited += next
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(r.pollInterval), ctx)
	if err := backoff.RetryNotifyWithTimer(operation, b, notify, r.timer); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("waiting for %s to close: %w", name, ctxErr)
		}
		return fmt.Errorf("waiting for %s to close: %w", name, err)
	}
	r.logger.Debug("file released and removed", "file", path)
	return nil
}
