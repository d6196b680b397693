//go:build windows

package update

import (
	"errors"

	"golang.org/x/sys/windows"
)

// osLockProber opens the file for read/write with no sharing allowed and
// closes it again. Sharing and lock violations mean another process has it open.
type osLockProber struct{}

func (osLockProber) Locked(path string) (bool, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return true, err
	}

	h, err := windows.CreateFile(p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0)
	if err != nil {
		switch {
		case errors.Is(err, windows.ERROR_SHARING_VIOLATION), errors.Is(err, windows.ERROR_LOCK_VIOLATION):
			return true, nil
		case errors.Is(err, windows.ERROR_FILE_NOT_FOUND), errors.Is(err, windows.ERROR_PATH_NOT_FOUND):
			return false, nil
		}
		return true, err
	}
	_ = windows.CloseHandle(h)
	return false, nil
}
