package worker

import (
	"time"

	"github.com/danmuck/syntaxworker/internal/tokenize"
	"github.com/danmuck/syntaxworker/internal/transport"
)

type Config struct {
	// TickPeriod is the scheduler period while Armed.
	TickPeriod time.Duration
	// DrainTimeout bounds the final flush of outbound frames before exit.
	DrainTimeout time.Duration
	Tokenize     tokenize.Config
	Transport    transport.Config
}

func DefaultConfig() Config {
	return Config{
		TickPeriod:   2 * time.Millisecond,
		DrainTimeout: time.Second,
		Tokenize:     tokenize.DefaultConfig(),
		Transport:    transport.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return ErrInvalidTickPeriod
	}
	if c.DrainTimeout <= 0 {
		return ErrInvalidDrainTimeout
	}
	if c.Tokenize.ChunkLines <= 0 || c.Tokenize.VisibleChunkLines <= 0 {
		return ErrInvalidChunkLines
	}
	return nil
}
