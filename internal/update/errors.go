package update

import (
	"errors"
	"fmt"
)

var (
	// ErrNoManifestSource means no manifest address or command-line plan could be found.
	ErrNoManifestSource = errors.New("no update manifest provided")
	// ErrMalformedVersion means the manifest's first line is not a semantic version.
	ErrMalformedVersion = errors.New("malformed version")
	// ErrUnevenManifest means an entry is missing its URL or its destination file.
	ErrUnevenManifest = errors.New("uneven update manifest")
	// ErrEmptyManifest means the manifest lists no files.
	ErrEmptyManifest = errors.New("no download entries in manifest")
	// ErrCancelled means a download was cancelled while in flight.
	ErrCancelled = errors.New("download cancelled")
	// ErrLockTimeout marks a file that stayed locked past the maximum wait.
	// It triggers escalation and is never fatal on its own.
	ErrLockTimeout = errors.New("timed out waiting for file to close")
	// ErrNotExecutable means the launch target does not look like a program.
	ErrNotExecutable = errors.New("not an executable")
)

// ManifestError describes why a manifest could not be turned into a plan.
// Use errors.Is with the sentinel errors above to classify it.
type ManifestError struct {
	Line int // 1-based manifest line, 0 when not tied to a line
	Err  error
}

func (e *ManifestError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("manifest: %v", e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// DownloadError is a failed transfer. StatusCode is set when the server
// answered with a non-success status, Err when the transport or the local
// write failed.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: server returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("downloading %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// LaunchError is a failure to start the post-update executable. It is
// reported but never fails a run.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
