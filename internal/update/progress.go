package update

import "time"

// Progress is one sample of a running transfer. TotalBytes is -1 when the
// server did not declare a length.
type Progress struct {
	BytesReceived int64
	TotalBytes    int64
	Elapsed       time.Duration
}

// Percent returns completion in the range 0-100. It is 0 while the total is
// unknown and 100 for a known-empty payload.
func (p Progress) Percent() int {
	switch {
	case p.TotalBytes < 0:
		return 0
	case p.TotalBytes == 0:
		return 100
	}
	pct := p.BytesReceived * 100 / p.TotalBytes
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// ThroughputKBps is bytes received so far over elapsed time, in KB/s.
func (p Progress) ThroughputKBps() float64 {
	secs := p.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.BytesReceived) / 1024 / secs
}

// progressWriter counts bytes written through it and reports a sample per write.
type progressWriter struct {
	received int64
	total    int64
	started  time.Time
	now      func() time.Time
	report   func(Progress)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += int64(len(p))
	w.emit(w.total)
	return len(p), nil
}

// finish reports the closing 100% sample. When the server sent no length the
// received byte count becomes the total.
func (w *progressWriter) finish() {
	w.emit(w.received)
}

func (w *progressWriter) emit(total int64) {
	if w.report == nil {
		return
	}
	w.report(Progress{
		BytesReceived: w.received,
		TotalBytes:    total,
		Elapsed:       w.now().Sub(w.started),
	})
}
