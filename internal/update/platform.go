package update

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform describes the current system platform
type Platform struct {
	OS   string // Operating system (windows, darwin, linux)
	Arch string // Architecture (amd64, arm64)
}

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// IsWindows returns true on Windows
func (p Platform) IsWindows() bool {
	return p.OS == "windows"
}

// String returns "os/arch"
func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// LooksExecutable reports whether name resembles a program this platform can
// start. Windows needs a program extension; elsewhere scripts and
// extensionless binaries also qualify.
func (p Platform) LooksExecutable(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) <= 1 {
		return false
	}

	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".exe", ".com", ".bat", ".cmd":
		return true
	}
	if p.IsWindows() {
		return false
	}

	switch ext {
	case "", ".sh", ".appimage", ".bin", ".run":
		return true
	}
	return false
}

// SelfName returns the file name of the running executable, e.g. "Updater.exe".
func SelfName() (string, error) {
	exe, err := SelfPath()
	if err != nil {
		return "", err
	}
	return filepath.Base(exe), nil
}

// SelfPath returns the resolved path of the running executable
func SelfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get current binary path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve binary path: %w", err)
	}
	return resolved, nil
}
