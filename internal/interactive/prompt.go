// Package interactive provides the terminal prompt shown when a file the
// updater must replace stays in use.
package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

// ErrAborted is returned when the user chooses to stop the update.
var ErrAborted = errors.New("update aborted by user")

// ErrNoInput is returned when the input stream has ended.
var ErrNoInput = errors.New("no more input")

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseRetry Response = iota // Check the file again
	ResponseQuit                  // Abort the update
)

// Prompter handles interactive prompts for files held open by other programs.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	onQuit func()

	once  sync.Once
	lines chan string
}

// PrompterOption configures a Prompter
type PrompterOption func(*Prompter)

// WithQuit sets what happens when the user asks to abort, usually a context
// cancel func for the running update.
func WithQuit(fn func()) PrompterOption {
	return func(p *Prompter) {
		p.onQuit = fn
	}
}

// NewPrompter creates a prompter with stdin/stderr.
func NewPrompter(opts ...PrompterOption) *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stderr, opts...)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer, opts ...PrompterOption) *Prompter {
	p := &Prompter{in: in, out: out}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// startReader feeds input lines to p.lines from a single goroutine so a
// prompt abandoned on cancellation does not leave two readers racing.
func (p *Prompter) startReader() {
	p.once.Do(func() {
		p.lines = make(chan string)
		go func() {
			defer close(p.lines)
			scanner := bufio.NewScanner(p.in)
			for scanner.Scan() {
				p.lines <- scanner.Text()
			}
		}()
	})
}

// readLine waits for the next input line or for ctx to end.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.startReader()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", ErrNoInput
		}
		return line, nil
	}
}

// WaitForClose tells the user file is in use and blocks until they press
// Enter to retry or type q to abort.
func (p *Prompter) WaitForClose(ctx context.Context, file string) (Response, error) {
	_, _ = fmt.Fprintf(p.out, "\n%s is in use. Close the application using it and press Enter to retry (q to cancel the update): ", file)

	line, err := p.readLine(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(p.out)
		return ResponseRetry, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit":
		return ResponseQuit, nil
	default:
		return ResponseRetry, nil
	}
}

// Escalate prompts for file and, when the user quits, calls the quit func.
// Polling resumes after it returns either way.
func (p *Prompter) Escalate(ctx context.Context, file string) error {
	resp, err := p.WaitForClose(ctx, file)
	if err != nil {
		return err
	}
	if resp == ResponseQuit {
		_, _ = fmt.Fprintln(p.out, "Aborting update.")
		if p.onQuit != nil {
			p.onQuit()
		}
		return ErrAborted
	}
	return nil
}

// LogEscalator is used when nobody can answer a prompt: it logs a warning
// and lets polling continue.
type LogEscalator struct {
	Logger *log.Logger
}

// Escalate logs that file is still in use.
func (e LogEscalator) Escalate(_ context.Context, file string) error {
	logger := e.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Warn("file is still in use, close the application using it", "file", file)
	return nil
}
