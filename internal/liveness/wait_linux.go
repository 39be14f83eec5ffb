//go:build linux

package liveness

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// WaitWatcher blocks on a pidfd for the parent, which becomes readable when
// the process exits.
type WaitWatcher struct{}

func (WaitWatcher) Name() string {
	return string(StrategyWait)
}

func (WaitWatcher) Watch(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", ErrParentUnobservable, pid)
	}
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return fmt.Errorf("%w: pidfd_open %d: %v", ErrParentUnobservable, pid, err)
	}
	defer unix.Close(fd)

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, -1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: poll pidfd %d: %v", ErrParentUnobservable, pid, err)
		}
		if n > 0 {
			return nil
		}
	}
}

func pidfdSupported() bool {
	fd, err := unix.PidfdOpen(unix.Getpid(), 0)
	if err != nil {
		return false
	}
	_ = unix.Close(fd)
	return true
}
