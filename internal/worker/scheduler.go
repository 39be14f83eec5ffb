package worker

import (
	"fmt"
	"time"

	"github.com/danmuck/syntaxworker/internal/state"
	"github.com/danmuck/syntaxworker/internal/syntax"
)

type SchedulerState uint8

const (
	Idle SchedulerState = iota
	Armed
)

func (s SchedulerState) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Quantum performs one bounded unit of work for a pending item. It may stage
// token updates and push more work.
type Quantum interface {
	Run(st *state.State, item state.WorkItem) error
}

// TickResult describes one scheduler tick. Flush is set on every tick taken
// while Armed; Batch is the drained token updates and may be empty.
type TickResult struct {
	Ran      bool
	Item     state.WorkItem
	Flush    bool
	Batch    []syntax.BufferTokens
	WentIdle bool
}

// Scheduler is the Idle/Armed state machine that paces incremental work. It
// owns no timer; the server loop keeps a ticker exactly while Armed.
type Scheduler struct {
	state  SchedulerState
	period time.Duration
}

func NewScheduler(period time.Duration) *Scheduler {
	return &Scheduler{period: period}
}

func (s *Scheduler) State() SchedulerState {
	return s.state
}

func (s *Scheduler) Armed() bool {
	return s.state == Armed
}

func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Kick arms the scheduler. It is idempotent and reports whether the call
// moved it from Idle to Armed.
func (s *Scheduler) Kick() bool {
	if s.state == Armed {
		return false
	}
	s.state = Armed
	return true
}

// Tick runs at most one quantum when work is pending, otherwise goes Idle.
// Every tick taken while Armed flushes the staged token updates, including
// the tick that goes Idle. Ticks while Idle do nothing.
func (s *Scheduler) Tick(st *state.State, q Quantum) (TickResult, error) {
	var res TickResult
	if s.state != Armed {
		return res, nil
	}
	if item, ok := st.PopWork(); ok {
		res.Ran = true
		res.Item = item
		if err := q.Run(st, item); err != nil {
			return res, fmt.Errorf("%w: quantum buffer=%d: %w", ErrDispatch, item.Buffer, err)
		}
	} else {
		s.state = Idle
		res.WentIdle = true
	}
	res.Flush = true
	res.Batch = st.TakeTokenUpdates()
	return res, nil
}
