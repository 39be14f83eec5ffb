//go:build linux

package liveness

import "time"

// Select picks the watcher for strategy. Auto prefers the pidfd wait and
// falls back to probing on kernels without pidfd_open.
func Select(strategy Strategy, interval time.Duration) (Watcher, error) {
	switch strategy {
	case StrategyWait:
		return WaitWatcher{}, nil
	case StrategyProbe:
		return ProbeWatcher{Interval: interval}, nil
	case StrategyAuto, "":
		if pidfdSupported() {
			return WaitWatcher{}, nil
		}
		return ProbeWatcher{Interval: interval}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}
