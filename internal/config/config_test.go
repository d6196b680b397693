package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// isolate points every search location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("UPDATER_CONFIG", "")
	return xdg
}

func TestFind_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "max_wait: 5s\n")

	got, err := Find(path, "")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != path {
		t.Errorf("Find() = %s, want %s", got, path)
	}
}

func TestFind_ExplicitPathMissing(t *testing.T) {
	isolate(t)
	_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"), "")
	if err == nil {
		t.Fatal("Find() should fail for a missing explicit path")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("a missing explicit path is an error, not a fallback to defaults")
	}
}

func TestFind_Precedence(t *testing.T) {
	xdg := isolate(t)
	exeDir := t.TempDir()

	xdgPath := filepath.Join(xdg, "updater", "updater.toml")
	writeFile(t, xdgPath, "max_wait = \"5s\"\n")

	got, err := Find("", exeDir)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != xdgPath {
		t.Errorf("Find() = %s, want XDG path %s", got, xdgPath)
	}

	exePath := filepath.Join(exeDir, "updater.yaml")
	writeFile(t, exePath, "max_wait: 5s\n")
	got, err = Find("", exeDir)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != exePath {
		t.Errorf("Find() = %s, want executable-dir path %s", got, exePath)
	}

	envPath := filepath.Join(t.TempDir(), "from-env.json")
	writeFile(t, envPath, `{"max_wait": "5s"}`)
	t.Setenv("UPDATER_CONFIG", envPath)
	got, err = Find("", exeDir)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != envPath {
		t.Errorf("Find() = %s, want env path %s", got, envPath)
	}
}

func TestFind_NotFound(t *testing.T) {
	isolate(t)
	_, err := Find("", t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Find() error = %v, want ErrNotFound", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.yaml")
	writeFile(t, path, "poll_interval: 200ms\nmax_wait: 3s\nhttp_timeout: \"0\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.PollIntervalDuration(); got != 200*time.Millisecond {
		t.Errorf("PollIntervalDuration() = %v, want 200ms", got)
	}
	if got := cfg.MaxWaitDuration(); got != 3*time.Second {
		t.Errorf("MaxWaitDuration() = %v, want 3s", got)
	}
	if got := cfg.HTTPTimeoutDuration(); got != 0 {
		t.Errorf("HTTPTimeoutDuration() = %v, want 0", got)
	}
}

func TestLoad_ExtensionlessSniffed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updaterrc")
	writeFile(t, path, "max_wait = \"7s\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxWait != "7s" {
		t.Errorf("MaxWait = %s, want 7s", cfg.MaxWait)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updater.yaml")
	writeFile(t, path, "max_wait: forever\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should reject an invalid duration")
	}
	if !strings.Contains(err.Error(), "max_wait") {
		t.Errorf("error should name the field, got: %v", err)
	}
}

func TestLoad_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updaterrc")
	writeFile(t, path, "nothing recognisable")

	if _, err := Load(path); err == nil {
		t.Fatal("Load() should fail when the format cannot be detected")
	}
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	isolate(t)

	cfg, path, err := LoadOrDefault("", t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("path = %s, want empty", path)
	}
	if cfg.PollIntervalDuration() != time.Second || cfg.MaxWaitDuration() != 10*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.History.Keep != 0 {
		t.Errorf("History.Keep = %d, want 0 (recording off by default)", cfg.History.Keep)
	}
}

func TestInteractiveOr(t *testing.T) {
	cfg := Default()
	if !cfg.InteractiveOr(true) || cfg.InteractiveOr(false) {
		t.Error("unset interactive should follow the fallback")
	}

	off := false
	cfg.Interactive = &off
	if cfg.InteractiveOr(true) {
		t.Error("explicit false should win over the fallback")
	}
}
