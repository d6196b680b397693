package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// HTTPDownloader streams files over HTTP straight to disk
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
	logger    *log.Logger
}

// DownloaderOption configures an HTTPDownloader
type DownloaderOption func(*HTTPDownloader)

// WithHTTPClient sets the client used for transfers.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.client = c
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.userAgent = ua
	}
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.now = now
	}
}

// WithDownloaderLogger sets the logger.
func WithDownloaderLogger(l *log.Logger) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.logger = l
	}
}

// NewTransferClient returns a client for file transfers. timeout bounds
// connecting, the TLS handshake and waiting for response headers; reading the
// body has no deadline, so a slow transfer runs as long as bytes arrive.
func NewTransferClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		client: &http.Client{},
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url into dst, reporting progress after every chunk written.
// The elapsed-time clock covers this transfer only, so throughput is per file.
// A partial file is removed on failure. Cancelling ctx yields ErrCancelled.
func (d *HTTPDownloader) Fetch(ctx context.Context, url, dst string, onProgress func(Progress)) error {
	started := d.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &DownloadError{URL: url, Err: err}
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.failure(ctx, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DownloadError{URL: url, StatusCode: resp.StatusCode}
	}

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &DownloadError{URL: url, Err: fmt.Errorf("creating %s: %w", dir, err)}
		}
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &DownloadError{URL: url, Err: fmt.Errorf("creating %s: %w", dst, err)}
	}

	counter := &progressWriter{
		total:   resp.ContentLength,
		started: started,
		now:     d.now,
		report:  onProgress,
	}
	n, copyErr := io.Copy(io.MultiWriter(f, counter), resp.Body)
	closeErr := f.Close()

	if copyErr != nil {
		_ = os.Remove(dst)
		return d.failure(ctx, url, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(dst)
		return &DownloadError{URL: url, Err: fmt.Errorf("writing %s: %w", dst, closeErr)}
	}

	counter.finish()
	d.logger.Debug("download finished", "url", url, "file", dst, "bytes", n, "elapsed", d.now().Sub(started))
	return nil
}

func (d *HTTPDownloader) failure(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %s", ErrCancelled, url)
	}
	return &DownloadError{URL: url, Err: err}
}
