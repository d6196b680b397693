package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const barWidth = 24

// ConsoleSink renders update events for a person watching a console.
// On a terminal the progress of the current file is a single line rewritten
// in place; elsewhere a line is printed every 10%. Safe for concurrent use.
type ConsoleSink struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool

	lineOpen    bool   // A progress or waiting line is on screen without a newline
	lastPercent int    // Last percent printed for the current file
	waitingFor  string // File the last waiting notice was for

	barStyle  lipgloss.Style
	dimStyle  lipgloss.Style
	okStyle   lipgloss.Style
	warnStyle lipgloss.Style
}

// ConsoleOption configures a ConsoleSink
type ConsoleOption func(*ConsoleSink)

// WithStyle forces styled (terminal) rendering on or off.
func WithStyle(styled bool) ConsoleOption {
	return func(s *ConsoleSink) {
		s.styled = styled
	}
}

// NewConsoleSink creates a sink writing to w. Styling is on when w is a terminal.
func NewConsoleSink(w io.Writer, opts ...ConsoleOption) *ConsoleSink {
	s := &ConsoleSink{
		w:           w,
		styled:      isTerminal(w),
		lastPercent: -1,
		barStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		dimStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		okStyle:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warnStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// OnLog prints a status line. It starts a new file as far as progress goes.
func (s *ConsoleSink) OnLog(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLine()
	s.lastPercent = -1
	s.waitingFor = ""

	if s.styled && text == "Update complete!" {
		text = s.okStyle.Render(text)
	}
	_, _ = fmt.Fprintln(s.w, text)
}

// OnProgress shows how far the current download is.
func (s *ConsoleSink) OnProgress(received, total int64, percent int, kbps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waitingFor = ""
	if s.styled {
		_, _ = fmt.Fprintf(s.w, "\r%s %3d%%  %s  %s", s.bar(percent), percent,
			s.dimStyle.Render(sizeText(received, total)), s.dimStyle.Render(fmt.Sprintf("%.1f KB/s", kbps)))
		s.lineOpen = true
		s.lastPercent = percent
		return
	}

	// Plain output: one line per 10% step, and the final sample.
	step := percent / 10
	if s.lastPercent >= 0 && step == s.lastPercent/10 && percent != 100 {
		return
	}
	if percent == 100 && s.lastPercent == 100 {
		return
	}
	s.lastPercent = percent
	_, _ = fmt.Fprintf(s.w, "%3d%%  %s  %.1f KB/s\n", percent, sizeText(received, total), kbps)
}

// OnWaitingForLock tells the user a file is held open. Repeated notices for
// the same file are collapsed into one line.
func (s *ConsoleSink) OnWaitingForLock(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waitingFor == file {
		if s.styled {
			_, _ = fmt.Fprint(s.w, s.dimStyle.Render("."))
		}
		return
	}
	s.closeLine()
	s.waitingFor = file

	msg := fmt.Sprintf("Waiting for %s to close . . .", file)
	if s.styled {
		_, _ = fmt.Fprint(s.w, s.warnStyle.Render(msg))
		s.lineOpen = true
		return
	}
	_, _ = fmt.Fprintln(s.w, msg)
}

// OnCancelled reports that the transfer in flight was cancelled.
func (s *ConsoleSink) OnCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLine()
	msg := "Download has been cancelled."
	if s.styled {
		msg = s.warnStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(s.w, msg)
}

// closeLine ends an in-place line so the next output starts fresh.
func (s *ConsoleSink) closeLine() {
	if s.lineOpen {
		_, _ = fmt.Fprintln(s.w)
		s.lineOpen = false
	}
}

func (s *ConsoleSink) bar(percent int) string {
	filled := percent * barWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + s.barStyle.Render(strings.Repeat("=", filled)) + strings.Repeat(" ", barWidth-filled) + "]"
}

// sizeText renders "received / total", or just received when the total is unknown.
func sizeText(received, total int64) string {
	if total < 0 {
		return HumanBytes(received)
	}
	return HumanBytes(received) + " / " + HumanBytes(total)
}

// HumanBytes formats a byte count with a binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
