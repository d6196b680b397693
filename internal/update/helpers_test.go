package update

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// recordingSink keeps every event it receives, in order.
type recordingSink struct {
	mu        sync.Mutex
	events    []string
	logs      []string
	percents  []int
	waits     []string
	cancelled int
}

func (s *recordingSink) OnLog(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, text)
	s.events = append(s.events, "log:"+text)
}

func (s *recordingSink) OnProgress(received, total int64, percent int, kbps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percents = append(s.percents, percent)
	s.events = append(s.events, fmt.Sprintf("progress:%d/%d", received, total))
}

func (s *recordingSink) OnWaitingForLock(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, file)
	s.events = append(s.events, "wait:"+file)
}

func (s *recordingSink) OnCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	s.events = append(s.events, "cancelled")
}

// instantTimer satisfies backoff.Timer and fires immediately, recording the
// durations the poll loop asked to sleep.
type instantTimer struct {
	c      chan time.Time
	starts []time.Duration
}

func (t *instantTimer) Start(d time.Duration) {
	t.starts = append(t.starts, d)
	t.c = make(chan time.Time, 1)
	t.c <- time.Time{}
}

func (t *instantTimer) Stop() {}

func (t *instantTimer) C() <-chan time.Time {
	return t.c
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}
