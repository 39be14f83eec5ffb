// Package config loads the worker's optional TOML configuration file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/syntaxworker/internal/liveness"
	"github.com/danmuck/syntaxworker/internal/worker"
	"github.com/rs/zerolog/log"
)

type fileConfig struct {
	TickPeriod           string `toml:"tick_period"`
	ChunkLines           int    `toml:"chunk_lines"`
	VisibleChunkLines    int    `toml:"visible_chunk_lines"`
	LivenessStrategy     string `toml:"liveness_strategy"`
	LivenessPollInterval string `toml:"liveness_poll_interval"`
	ConnectMaxAttempts   int    `toml:"connect_max_attempts"`
	DrainTimeout         string `toml:"drain_timeout"`
	DiagnosticsAddr      string `toml:"diagnostics_addr"`
	LogLevel             string `toml:"log_level"`
}

// Runtime is everything the worker binary needs beyond its environment.
type Runtime struct {
	Worker           worker.Config
	LivenessStrategy liveness.Strategy
	LivenessInterval time.Duration
	// DiagnosticsAddr enables the /health and /metrics listener when set.
	DiagnosticsAddr string
	LogLevel        string
}

func Default() Runtime {
	return Runtime{
		Worker:           worker.DefaultConfig(),
		LivenessStrategy: liveness.StrategyAuto,
		LivenessInterval: liveness.DefaultPollInterval,
	}
}

// Load applies the file at path over Default. An empty path yields the
// defaults. Keys absent from the file keep their default values.
func Load(path string) (Runtime, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Runtime{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		log.Warn().Str("key", key.String()).Str("path", path).Msg("config.Load unknown key ignored")
	}

	if meta.IsDefined("tick_period") {
		d, err := parseDuration("tick_period", raw.TickPeriod)
		if err != nil {
			return Runtime{}, err
		}
		cfg.Worker.TickPeriod = d
	}

	if meta.IsDefined("chunk_lines") {
		cfg.Worker.Tokenize.ChunkLines = raw.ChunkLines
	}

	if meta.IsDefined("visible_chunk_lines") {
		cfg.Worker.Tokenize.VisibleChunkLines = raw.VisibleChunkLines
	}

	if meta.IsDefined("liveness_strategy") {
		s, err := liveness.ParseStrategy(raw.LivenessStrategy)
		if err != nil {
			return Runtime{}, err
		}
		cfg.LivenessStrategy = s
	}

	if meta.IsDefined("liveness_poll_interval") {
		d, err := parseDuration("liveness_poll_interval", raw.LivenessPollInterval)
		if err != nil {
			return Runtime{}, err
		}
		cfg.LivenessInterval = d
	}

	if meta.IsDefined("connect_max_attempts") {
		cfg.Worker.Transport.MaxConnectAttempts = raw.ConnectMaxAttempts
	}

	if meta.IsDefined("drain_timeout") {
		d, err := parseDuration("drain_timeout", raw.DrainTimeout)
		if err != nil {
			return Runtime{}, err
		}
		cfg.Worker.DrainTimeout = d
	}

	if meta.IsDefined("diagnostics_addr") {
		cfg.DiagnosticsAddr = strings.TrimSpace(raw.DiagnosticsAddr)
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return Runtime{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func (c Runtime) Validate() error {
	if err := c.Worker.Validate(); err != nil {
		return err
	}
	if c.LivenessInterval <= 0 {
		return fmt.Errorf("liveness_poll_interval must be positive, got %v", c.LivenessInterval)
	}
	if c.Worker.Transport.MaxConnectAttempts < 0 {
		return fmt.Errorf("connect_max_attempts must not be negative, got %d", c.Worker.Transport.MaxConnectAttempts)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
