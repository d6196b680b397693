//go:build !windows

package update

import (
	"errors"

	"golang.org/x/sys/unix"
)

// osLockProber opens the file read/write and asks for an exclusive,
// non-blocking flock, releasing both immediately.
type osLockProber struct{}

func (osLockProber) Locked(path string) (bool, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, nil
		}
		return true, err
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return true, nil
		}
		return true, err
	}
	_ = unix.Flock(fd, unix.LOCK_UN)
	return false, nil
}
