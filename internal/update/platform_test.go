package update

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	p := Detect()

	assert.Equal(t, runtime.GOOS, p.OS)
	assert.Equal(t, runtime.GOARCH, p.Arch)
	assert.Equal(t, runtime.GOOS == "windows", p.IsWindows())
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, p.String())
}

func TestPlatformLooksExecutable(t *testing.T) {
	windows := Platform{OS: "windows", Arch: "amd64"}
	linux := Platform{OS: "linux", Arch: "amd64"}

	tests := []struct {
		name        string
		input       string
		wantWindows bool
		wantLinux   bool
	}{
		{name: "exe", input: "App.exe", wantWindows: true, wantLinux: true},
		{name: "upper case exe", input: "APP.EXE", wantWindows: true, wantLinux: true},
		{name: "batch file", input: "start.bat", wantWindows: true, wantLinux: true},
		{name: "nested path", input: `bin\App.exe`, wantWindows: true, wantLinux: true},
		{name: "extensionless", input: "app", wantWindows: false, wantLinux: true},
		{name: "shell script", input: "run.sh", wantWindows: false, wantLinux: true},
		{name: "archive", input: "a.zip", wantWindows: false, wantLinux: false},
		{name: "text file", input: "readme.txt", wantWindows: false, wantLinux: false},
		{name: "empty", input: "", wantWindows: false, wantLinux: false},
		{name: "single character", input: "a", wantWindows: false, wantLinux: false},
		{name: "whitespace", input: "   ", wantWindows: false, wantLinux: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantWindows, windows.LooksExecutable(tt.input), "windows")
			assert.Equal(t, tt.wantLinux, linux.LooksExecutable(tt.input), "linux")
		})
	}
}

func TestSelfName(t *testing.T) {
	name, err := SelfName()
	require.NoError(t, err)

	path, err := SelfPath()
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(path), name)
	assert.True(t, filepath.IsAbs(path))
}
