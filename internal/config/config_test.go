package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/syntaxworker/internal/liveness"
	"github.com/danmuck/syntaxworker/internal/testutil/testlog"
	"github.com/danmuck/syntaxworker/internal/worker"
)

func TestLoadDefaults(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Worker.TickPeriod != worker.DefaultConfig().TickPeriod {
		t.Fatalf("unexpected tick period: %v", cfg.Worker.TickPeriod)
	}
	if cfg.LivenessStrategy != liveness.StrategyAuto {
		t.Fatalf("unexpected strategy: %q", cfg.LivenessStrategy)
	}
	if cfg.DiagnosticsAddr != "" {
		t.Fatalf("diagnostics should be off by default")
	}
}

func TestLoadExampleConfig(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join("..", "..", "cmd", "syntaxworker", "ex.config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Worker.TickPeriod != 5*time.Millisecond {
		t.Fatalf("unexpected tick period: %v", cfg.Worker.TickPeriod)
	}
	if cfg.Worker.Tokenize.ChunkLines != 32 || cfg.Worker.Tokenize.VisibleChunkLines != 128 {
		t.Fatalf("unexpected chunking: %+v", cfg.Worker.Tokenize)
	}
	if cfg.LivenessStrategy != liveness.StrategyProbe {
		t.Fatalf("unexpected strategy: %q", cfg.LivenessStrategy)
	}
	if cfg.LivenessInterval != 500*time.Millisecond {
		t.Fatalf("unexpected liveness interval: %v", cfg.LivenessInterval)
	}
	if cfg.Worker.Transport.MaxConnectAttempts != 3 {
		t.Fatalf("unexpected connect attempts: %d", cfg.Worker.Transport.MaxConnectAttempts)
	}
	if cfg.Worker.DrainTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected drain timeout: %v", cfg.Worker.DrainTimeout)
	}
	if cfg.DiagnosticsAddr != "127.0.0.1:7090" {
		t.Fatalf("unexpected diagnostics addr: %q", cfg.DiagnosticsAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPartialOverride(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, "chunk_lines = 8\nsome_future_key = true\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Worker.Tokenize.ChunkLines != 8 {
		t.Fatalf("unexpected chunk lines: %d", cfg.Worker.Tokenize.ChunkLines)
	}
	def := worker.DefaultConfig()
	if cfg.Worker.Tokenize.VisibleChunkLines != def.Tokenize.VisibleChunkLines {
		t.Fatalf("visible chunk lines should keep default, got %d", cfg.Worker.Tokenize.VisibleChunkLines)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad duration":     `tick_period = "abc"`,
		"zero tick":        `tick_period = "0s"`,
		"zero chunk":       `chunk_lines = 0`,
		"unknown strategy": `liveness_strategy = "psychic"`,
		"zero poll":        `liveness_poll_interval = "0s"`,
		"negative connect": `connect_max_attempts = -1`,
		"not toml":         `tick_period = `,
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTemplateLoadsAsDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Worker.TickPeriod != def.Worker.TickPeriod ||
		cfg.Worker.DrainTimeout != def.Worker.DrainTimeout ||
		cfg.Worker.Tokenize != def.Worker.Tokenize ||
		cfg.LivenessStrategy != def.LivenessStrategy ||
		cfg.LivenessInterval != def.LivenessInterval ||
		cfg.Worker.Transport.MaxConnectAttempts != def.Worker.Transport.MaxConnectAttempts {
		t.Fatalf("template does not round trip to defaults: %+v", cfg)
	}
}
