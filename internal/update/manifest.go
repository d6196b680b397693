package update

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// selfUpdateSuffix is appended to the updater's own file name when a
// manifest ships a new updater, so the running binary is never overwritten.
const selfUpdateSuffix = "_new"

// NewEntry builds an Entry. A destination that is exactly the updater's own
// executable name is redirected to a sibling file ("Updater.exe" becomes
// "Updater_new.exe") for the host application to swap in later.
func NewEntry(url, file, selfName string) Entry {
	return Entry{URL: url, File: SelfUpdatePath(file, selfName)}
}

// SelfUpdatePath returns the destination to use for file. It is file itself
// unless file names the updater's own executable.
func SelfUpdatePath(file, selfName string) string {
	name := strings.TrimPrefix(strings.ReplaceAll(file, `\`, "/"), "./")
	if selfName == "" || name != selfName {
		return file
	}
	ext := ""
	if i := strings.LastIndex(selfName, "."); i > 0 {
		ext = selfName[i:]
	}
	return strings.TrimSuffix(selfName, ext) + selfUpdateSuffix + ext
}

// ParseManifest reads an update manifest line by line:
//
//	<version>
//	<launch-executable-or-empty>
//	<url-1>
//	<destination-file-1>
//	...
//
// The version line is validated before any entry line is read. Blank lines
// are tolerated only at the very end of the stream.
func ParseManifest(r io.Reader, selfName string) (*Plan, []Entry, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		return strings.TrimSpace(line), true
	}

	header, ok := next()
	if !ok {
		if err := scanner.Err(); err != nil {
			return nil, nil, &ManifestError{Err: fmt.Errorf("reading manifest: %w", err)}
		}
		return nil, nil, &ManifestError{Line: 1, Err: fmt.Errorf("%w: manifest is empty", ErrMalformedVersion)}
	}

	version, err := ParseVersion(header)
	if err != nil {
		return nil, nil, &ManifestError{Line: 1, Err: fmt.Errorf("%w: %v", ErrMalformedVersion, err)}
	}

	plan := &Plan{TargetVersion: version}
	if exe, ok := next(); ok {
		plan.LaunchExecutable = exe
	}

	var entries []Entry
	for {
		url, ok := next()
		if !ok {
			break
		}
		if url == "" {
			if rest, found := nextNonBlank(next); found {
				return nil, nil, &ManifestError{
					Line: lineNo,
					Err:  fmt.Errorf("%w: blank line before %q", ErrUnevenManifest, rest),
				}
			}
			break
		}

		urlLine := lineNo
		file, ok := next()
		if !ok || file == "" {
			return nil, nil, &ManifestError{
				Line: urlLine,
				Err:  fmt.Errorf("%w: no destination file for %s", ErrUnevenManifest, url),
			}
		}
		entries = append(entries, NewEntry(url, file, selfName))
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, &ManifestError{Line: lineNo, Err: fmt.Errorf("reading manifest: %w", err)}
	}
	if len(entries) == 0 {
		return nil, nil, &ManifestError{Err: ErrEmptyManifest}
	}

	return plan, entries, nil
}

func nextNonBlank(next func() (string, bool)) (string, bool) {
	for {
		line, ok := next()
		if !ok {
			return "", false
		}
		if line != "" {
			return line, true
		}
	}
}

// ManifestReader fetches update manifests over HTTP
type ManifestReader struct {
	client    *http.Client
	userAgent string
	selfName  string
	logger    *log.Logger
}

// ManifestReaderOption configures a ManifestReader
type ManifestReaderOption func(*ManifestReader)

// WithManifestClient sets the HTTP client used to fetch manifests.
func WithManifestClient(c *http.Client) ManifestReaderOption {
	return func(m *ManifestReader) {
		m.client = c
	}
}

// WithManifestUserAgent sets the User-Agent header sent with manifest requests.
func WithManifestUserAgent(ua string) ManifestReaderOption {
	return func(m *ManifestReader) {
		m.userAgent = ua
	}
}

// WithManifestLogger sets the logger.
func WithManifestLogger(l *log.Logger) ManifestReaderOption {
	return func(m *ManifestReader) {
		m.logger = l
	}
}

// NewManifestReader creates a reader that applies the self-update rule for selfName.
func NewManifestReader(selfName string, opts ...ManifestReaderOption) *ManifestReader {
	m := &ManifestReader{
		client:   &http.Client{Timeout: 30 * time.Second},
		selfName: selfName,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read fetches the manifest at url and parses it while the body streams in.
func (m *ManifestReader) Read(ctx context.Context, url string) (*Plan, []Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, &ManifestError{Err: fmt.Errorf("invalid manifest address %q: %w", url, err)}
	}
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}

	m.logger.Debug("fetching manifest", "url", url)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, nil, &ManifestError{Err: fmt.Errorf("fetching %s: %w", url, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &ManifestError{Err: fmt.Errorf("fetching %s: server returned status %d", url, resp.StatusCode)}
	}

	plan, entries, err := ParseManifest(resp.Body, m.selfName)
	if err != nil {
		return nil, nil, err
	}
	m.logger.Debug("manifest parsed", "version", plan.TargetVersion, "launch", plan.LaunchExecutable, "entries", len(entries))
	return plan, entries, nil
}
