//go:build unix && !linux

package liveness

import (
	"fmt"
	"time"
)

// Select picks the watcher for strategy. Only probing is available here.
func Select(strategy Strategy, interval time.Duration) (Watcher, error) {
	switch strategy {
	case StrategyWait:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, strategy)
	case StrategyProbe, StrategyAuto, "":
		return ProbeWatcher{Interval: interval}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}
