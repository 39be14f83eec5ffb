package transport

import (
	"math/rand"
	"time"
)

// retrySchedule yields the wait before each connect retry. The base delay
// grows by Multiplier per retry up to MaxDelay; jitter scales the returned
// wait by a factor in [0.5, 1.5) without affecting growth.
type retrySchedule struct {
	cfg  BackoffConfig
	rng  *rand.Rand
	base time.Duration
}

func newRetrySchedule(cfg BackoffConfig, rng *rand.Rand) *retrySchedule {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &retrySchedule{cfg: cfg, rng: rng}
}

// next returns the wait after the latest failed attempt.
func (s *retrySchedule) next() time.Duration {
	if s.cfg.InitialDelay <= 0 {
		return 0
	}
	if s.base == 0 {
		s.base = s.cfg.InitialDelay
	} else if s.cfg.MaxDelay <= 0 || s.base < s.cfg.MaxDelay {
		s.base = time.Duration(float64(s.base) * s.cfg.Multiplier)
	}
	if s.cfg.MaxDelay > 0 && s.base > s.cfg.MaxDelay {
		s.base = s.cfg.MaxDelay
	}
	if !s.cfg.Jitter || s.rng == nil {
		return s.base
	}
	return time.Duration(float64(s.base) * (0.5 + s.rng.Float64()))
}
