package update

// NopSink discards every event.
type NopSink struct{}

func (NopSink) OnLog(string)                          {}
func (NopSink) OnProgress(int64, int64, int, float64) {}
func (NopSink) OnWaitingForLock(string)               {}
func (NopSink) OnCancelled()                          {}

// MultiSink fans events out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) OnLog(text string) {
	for _, s := range m {
		s.OnLog(text)
	}
}

func (m MultiSink) OnProgress(received, total int64, percent int, kbps float64) {
	for _, s := range m {
		s.OnProgress(received, total, percent, kbps)
	}
}

func (m MultiSink) OnWaitingForLock(file string) {
	for _, s := range m {
		s.OnWaitingForLock(file)
	}
}

func (m MultiSink) OnCancelled() {
	for _, s := range m {
		s.OnCancelled()
	}
}
