package output

import (
	"sync"

	"github.com/charmbracelet/log"
)

// LogSink forwards update events to a logger instead of the console.
// Progress is logged at debug level in 25% steps.
type LogSink struct {
	mu          sync.Mutex
	logger      *log.Logger
	lastPercent int
	waitingFor  string
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger, lastPercent: -1}
}

func (s *LogSink) OnLog(text string) {
	s.mu.Lock()
	s.lastPercent = -1
	s.waitingFor = ""
	s.mu.Unlock()

	s.logger.Info(text)
}

func (s *LogSink) OnProgress(received, total int64, percent int, kbps float64) {
	s.mu.Lock()
	if s.lastPercent >= 0 && percent/25 == s.lastPercent/25 {
		s.mu.Unlock()
		return
	}
	s.lastPercent = percent
	s.mu.Unlock()

	s.logger.Debug("progress", "percent", percent, "received", received, "total", total, "kbps", kbps)
}

func (s *LogSink) OnWaitingForLock(file string) {
	s.mu.Lock()
	repeat := s.waitingFor == file
	s.waitingFor = file
	s.mu.Unlock()

	if repeat {
		return
	}
	s.logger.Info("waiting for file to close", "file", file)
}

func (s *LogSink) OnCancelled() {
	s.logger.Warn("download cancelled")
}
