package transport

import (
	"time"

	"github.com/danmuck/syntaxworker/internal/protocol/frame"
)

// BackoffConfig defines connect retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines channel dial and framing defaults.
type Config struct {
	ConnectTimeout     time.Duration
	MaxConnectAttempts int
	EventBuffer        int
	Backoff            BackoffConfig
	Limits             frame.Limits
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     2 * time.Second,
		MaxConnectAttempts: 5,
		EventBuffer:        64,
		Backoff: BackoffConfig{
			InitialDelay: 25 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     500 * time.Millisecond,
			Jitter:       true,
		},
		Limits: frame.DefaultLimits(),
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = def.Backoff
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = def.Limits
	}
	return c
}
