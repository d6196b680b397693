// Package history keeps a record of past update runs.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adamancini/updater/internal/update"
)

// Record describes one finished update run.
type Record struct {
	ID               string    `json:"id" yaml:"id"`
	StartedAt        time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time `json:"finished_at" yaml:"finished_at"`
	UpdaterVersion   string    `json:"updater_version" yaml:"updater_version"`
	Source           string    `json:"source" yaml:"source"`
	TargetVersion    string    `json:"target_version,omitempty" yaml:"target_version,omitempty"`
	LaunchExecutable string    `json:"launch_executable,omitempty" yaml:"launch_executable,omitempty"`
	State            string    `json:"state" yaml:"state"`
	Files            []string  `json:"files" yaml:"files"`
	Completed        int       `json:"completed" yaml:"completed"`
	Error            string    `json:"error,omitempty" yaml:"error,omitempty"`
	LaunchError      string    `json:"launch_error,omitempty" yaml:"launch_error,omitempty"`
}

// RecordInfo provides summary information about a run for listing.
type RecordInfo struct {
	ID            string    `json:"id" yaml:"id"`
	FinishedAt    time.Time `json:"finished_at" yaml:"finished_at"`
	Source        string    `json:"source" yaml:"source"`
	TargetVersion string    `json:"target_version,omitempty" yaml:"target_version,omitempty"`
	State         string    `json:"state" yaml:"state"`
	Completed     int       `json:"completed" yaml:"completed"`
	Total         int       `json:"total" yaml:"total"`
}

// Store keeps run records as JSON files in a directory.
type Store struct {
	dir            string
	updaterVersion string
	now            func() time.Time
}

// NewStore creates a store in dir, or in the default cache directory when
// dir is empty.
func NewStore(dir, version string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = defaultDir()
		if err != nil {
			return nil, err
		}
	}
	return &Store{
		dir:            dir,
		updaterVersion: version,
		now:            time.Now,
	}, nil
}

// defaultDir returns the default history directory path.
func defaultDir() (string, error) {
	// Use XDG_CACHE_HOME or default to ~/.cache
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "updater", "history"), nil
}

// Add stores the outcome of a run that started at started.
func (s *Store) Add(res *update.Result, started time.Time) (*Record, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	rec := &Record{
		ID:             res.RunID,
		StartedAt:      started,
		FinishedAt:     s.now(),
		UpdaterVersion: s.updaterVersion,
		Source:         res.Source,
		State:          res.State.String(),
		Files:          make([]string, 0, len(res.Entries)),
		Completed:      res.Completed,
	}
	if res.Plan != nil {
		rec.LaunchExecutable = res.Plan.LaunchExecutable
		if res.Plan.TargetVersion != nil {
			rec.TargetVersion = res.Plan.TargetVersion.String()
		}
	}
	for _, e := range res.Entries {
		rec.Files = append(rec.Files, e.File)
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if res.LaunchErr != nil {
		rec.LaunchError = res.LaunchErr.Error()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write run record: %w", err)
	}

	return rec, nil
}

// List returns all records sorted by finish time (newest first).
func (s *Store) List() ([]RecordInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RecordInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	records := []RecordInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		rec, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}

		records = append(records, RecordInfo{
			ID:            rec.ID,
			FinishedAt:    rec.FinishedAt,
			Source:        rec.Source,
			TargetVersion: rec.TargetVersion,
			State:         rec.State,
			Completed:     rec.Completed,
			Total:         len(rec.Files),
		})
	}

	// Sort by finish time, newest first
	sort.Slice(records, func(i, j int) bool {
		return records[i].FinishedAt.After(records[j].FinishedAt)
	})

	return records, nil
}

// Get retrieves a record by ID. Use "latest" for the most recent run.
func (s *Store) Get(id string) (*Record, error) {
	if id == "latest" {
		records, err := s.List()
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("no update runs recorded")
		}
		id = records[0].ID
	}

	return s.load(s.path(id))
}

// Delete removes a record by ID.
func (s *Store) Delete(id string) error {
	path := s.path(id)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("run not found: %s", id)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}

	return nil
}

// Dir returns the history directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".json")
}

// load reads and parses a record file.
func (s *Store) load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse run record: %w", err)
	}

	return &rec, nil
}
