// Package liveness terminates the worker once its parent process is gone.
//
// A Watcher blocks until the parent exits. The Supervisor runs it on a
// dedicated OS thread and calls its exit function with the resulting status;
// it shares no state with the server loop.
package liveness

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/danmuck/syntaxworker/internal/exitcode"
	"github.com/rs/zerolog/log"
)

var (
	ErrParentUnobservable = errors.New("liveness: parent process cannot be observed")
	ErrUnknownStrategy    = errors.New("liveness: unknown strategy")
	ErrUnsupported        = errors.New("liveness: strategy not supported on this platform")
)

type Strategy string

const (
	StrategyAuto  Strategy = "auto"
	StrategyWait  Strategy = "wait"
	StrategyProbe Strategy = "probe"
)

const DefaultPollInterval = 2 * time.Second

func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyWait, StrategyProbe:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, raw)
	}
}

// Watcher blocks until process pid has exited. It returns nil once the exit
// is observed and an error wrapping ErrParentUnobservable if pid cannot be
// watched at all.
type Watcher interface {
	Name() string
	Watch(pid int) error
}

type Supervisor struct {
	pid     int
	watcher Watcher
	exit    func(code int)
	parent  func() int
}

// NewSupervisor watches pid with w. A nil exit terminates the process.
func NewSupervisor(pid int, w Watcher, exit func(code int)) *Supervisor {
	if exit == nil {
		exit = os.Exit
	}
	return &Supervisor{pid: pid, watcher: w, exit: exit, parent: os.Getppid}
}

// Start runs the watcher on its own locked OS thread and returns at once.
func (s *Supervisor) Start() {
	go func() {
		runtime.LockOSThread()
		s.exit(s.run())
	}()
}

func (s *Supervisor) run() int {
	// A reparented worker lost its parent before watching began; its pid may
	// already belong to another process.
	if ppid := s.parent(); ppid != s.pid {
		log.Info().Int("parent_pid", s.pid).Int("ppid", ppid).Msg("liveness.Supervisor parent already gone")
		return exitcode.Success
	}
	log.Info().Int("parent_pid", s.pid).Str("strategy", s.watcher.Name()).Msg("liveness.Supervisor watching")
	if err := s.watcher.Watch(s.pid); err != nil {
		log.Error().Err(err).Int("parent_pid", s.pid).Msg("liveness.Supervisor cannot watch parent")
		return exitcode.Fatal
	}
	log.Info().Int("parent_pid", s.pid).Msg("liveness.Supervisor parent exited")
	return exitcode.Success
}
