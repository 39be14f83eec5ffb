//go:build unix

package liveness

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ProbeWatcher polls the parent with a zero signal every Interval.
type ProbeWatcher struct {
	Interval time.Duration
}

func (ProbeWatcher) Name() string {
	return string(StrategyProbe)
}

func (w ProbeWatcher) Watch(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("%w: invalid pid %d", ErrParentUnobservable, pid)
	}
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		time.Sleep(interval)
		err := unix.Kill(pid, 0)
		switch {
		case err == nil, errors.Is(err, unix.EPERM):
			// Still running; EPERM means it exists under another user.
		case errors.Is(err, unix.ESRCH):
			return nil
		default:
			return fmt.Errorf("%w: probe pid %d: %v", ErrParentUnobservable, pid, err)
		}
	}
}
