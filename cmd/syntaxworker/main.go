package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/syntaxworker/internal/config"
	"github.com/danmuck/syntaxworker/internal/exitcode"
	"github.com/danmuck/syntaxworker/internal/liveness"
	"github.com/danmuck/syntaxworker/internal/logging"
	"github.com/danmuck/syntaxworker/internal/observability"
	"github.com/danmuck/syntaxworker/internal/tokenize"
	"github.com/danmuck/syntaxworker/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	env, err := readEnvironment(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "syntaxworker: %v\n", err)
		return exitcode.Fatal
	}
	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "syntaxworker: %v\n", err)
		return exitcode.Fatal
	}

	logging.ConfigureRuntime()
	if cfg.LogLevel != "" && !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("syntaxworker unknown log level ignored")
	}

	id := observability.Identity{
		InstanceID: uuid.NewString(),
		ParentPID:  env.ParentPID,
		Started:    time.Now(),
	}
	log.Logger = log.With().Str("instance", id.InstanceID).Logger()

	watcher, err := liveness.Select(cfg.LivenessStrategy, cfg.LivenessInterval)
	if err != nil {
		log.Error().Err(err).Str("strategy", string(cfg.LivenessStrategy)).Msg("syntaxworker liveness unavailable")
		return exitcode.Fatal
	}
	liveness.NewSupervisor(env.ParentPID, watcher, nil).Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.RegisterMetrics()
	if cfg.DiagnosticsAddr != "" {
		go func() {
			if err := observability.Serve(ctx, cfg.DiagnosticsAddr, id); err != nil {
				log.Warn().Err(err).Str("addr", cfg.DiagnosticsAddr).Msg("syntaxworker diagnostics stopped")
			}
		}()
	}

	tok := tokenize.New(cfg.Worker.Tokenize, tokenize.DefaultRegistry())
	srv := worker.NewServer(cfg.Worker, worker.DialUnix(env.Channel, cfg.Worker.Transport), tok, tok.HealthCheck)

	log.Info().
		Int("parent_pid", env.ParentPID).
		Str("channel", env.Channel).
		Str("liveness", watcher.Name()).
		Msg("syntaxworker starting")
	code := srv.Run(ctx)
	log.Info().Int("code", code).Msg("syntaxworker exiting")
	return code
}
