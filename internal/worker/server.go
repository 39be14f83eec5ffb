package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/syntaxworker/internal/exitcode"
	"github.com/danmuck/syntaxworker/internal/observability"
	"github.com/danmuck/syntaxworker/internal/protocol/frame"
	"github.com/danmuck/syntaxworker/internal/protocol/message"
	"github.com/danmuck/syntaxworker/internal/state"
	"github.com/danmuck/syntaxworker/internal/transport"
	"github.com/rs/zerolog/log"
)

// Link is the server's view of a connected parent channel.
type Link interface {
	Events() <-chan transport.Event
	Send(frame.Frame)
	Drain(timeout time.Duration) error
	Close() error
}

// Dialer establishes the parent link.
type Dialer func(ctx context.Context) (Link, error)

// DialUnix dials the parent's unix socket at identity.
func DialUnix(identity string, cfg transport.Config) Dialer {
	return func(ctx context.Context) (Link, error) {
		ch, err := transport.Connect(ctx, identity, cfg)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
}

// Server owns the session state and runs the event loop. All state is
// touched only from the goroutine calling Run.
type Server struct {
	cfg       Config
	st        *state.State
	dispatch  *Dispatcher
	scheduler *Scheduler
	quantum   Quantum
	dial      Dialer

	link   Link
	events <-chan transport.Event
	ticker *time.Ticker
	tick   <-chan time.Time
}

func NewServer(cfg Config, dial Dialer, quantum Quantum, health HealthCheck) *Server {
	return &Server{
		cfg:       cfg,
		st:        state.New(),
		dispatch:  NewDispatcher(health),
		scheduler: NewScheduler(cfg.TickPeriod),
		quantum:   quantum,
		dial:      dial,
	}
}

func (s *Server) State() *state.State {
	return s.st
}

func (s *Server) Scheduler() *Scheduler {
	return s.scheduler
}

// Run connects to the parent and handles events until a Close request, a
// fatal failure or ctx cancellation. It returns the process exit code.
func (s *Server) Run(ctx context.Context) int {
	s.connect(ctx)
	defer s.stopTicker()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker.Server.Run shutdown")
			s.shutdown()
			return exitcode.Success
		case ev, ok := <-s.events:
			if !ok {
				s.events = nil
				continue
			}
			if code, done := s.handleEvent(ev); done {
				return code
			}
		case <-s.tick:
			if code, done := s.Tick(); done {
				return code
			}
		}
	}
}

func (s *Server) connect(ctx context.Context) {
	if s.dial == nil {
		log.Warn().Msg("worker.Server.connect no dialer; sends are dropped")
		return
	}
	link, err := s.dial(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("worker.Server.connect failed; sends are dropped")
		return
	}
	s.attach(link)
}

func (s *Server) attach(link Link) {
	s.link = link
	s.events = link.Events()
}

func (s *Server) handleEvent(ev transport.Event) (int, bool) {
	switch ev.Kind {
	case transport.EventConnected:
		log.Info().Msg("worker.Server connected")
	case transport.EventReceived:
		return s.HandlePacket(ev.Frame)
	case transport.EventDisconnected:
		log.Warn().Err(ev.Err).Msg("worker.Server disconnected; sends are dropped")
		if s.link != nil {
			_ = s.link.Close()
		}
		s.link = nil
		s.events = nil
	}
	return 0, false
}

// HandlePacket decodes and dispatches one inbound packet. done reports that
// the process should exit with code.
func (s *Server) HandlePacket(fr frame.Frame) (code int, done bool) {
	out, err := s.handle(fr)
	if err != nil {
		return s.fatal(err), true
	}
	for _, entry := range out.Logs {
		log.Warn().Msg("worker.Server " + entry)
	}
	for _, reply := range out.Replies {
		if err := s.send(reply); err != nil {
			return s.fatal(err), true
		}
	}
	if out.Close {
		log.Info().Int("pending_work", s.st.PendingWork()).Msg("worker.Server close requested")
		s.shutdown()
		return exitcode.Success, true
	}
	if out.Kick {
		s.kick()
	}
	return 0, false
}

func (s *Server) handle(fr frame.Frame) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrDispatch, r)
		}
	}()
	if fr.Header.Kind != frame.KindMessage {
		return out, fmt.Errorf("%w: packet kind %d", message.ErrDecode, fr.Header.Kind)
	}
	msg, err := message.DecodeClient(fr.Payload)
	if err != nil {
		return out, err
	}
	variant := msg.ClientTag().String()
	observability.RecordMessageReceived(variant)
	log.Debug().Str("variant", variant).Msg("worker.Server.handle")
	return s.dispatch.Dispatch(s.st, msg)
}

// Tick advances the scheduler once, as the loop does when its ticker fires.
func (s *Server) Tick() (code int, done bool) {
	res, err := s.tickOnce()
	if err != nil {
		return s.fatal(err), true
	}
	if res.Ran {
		observability.RecordQuantum()
	}
	if res.Flush {
		lines := 0
		for _, b := range res.Batch {
			lines += len(b.Lines)
		}
		if err := s.send(message.TokenUpdate{Batch: res.Batch}); err != nil {
			return s.fatal(err), true
		}
		observability.RecordFlush(lines)
	}
	if res.WentIdle {
		s.stopTicker()
	}
	return 0, false
}

func (s *Server) tickOnce() (res TickResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in work quantum: %v", ErrDispatch, r)
		}
	}()
	return s.scheduler.Tick(s.st, s.quantum)
}

func (s *Server) kick() {
	if !s.scheduler.Kick() {
		return
	}
	s.ticker = time.NewTicker(s.scheduler.Period())
	s.tick = s.ticker.C
	observability.SetArmed(true)
}

func (s *Server) stopTicker() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	s.tick = nil
	observability.SetArmed(false)
}

func (s *Server) send(m message.Server) error {
	payload, err := message.EncodeServer(m)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrDispatch, m.ServerTag(), err)
	}
	if s.link == nil {
		return nil
	}
	s.link.Send(frame.Message(payload))
	observability.RecordMessageSent(m.ServerTag().String())
	return nil
}

// fatal logs err locally and to the parent, drains and returns the fatal
// exit code.
func (s *Server) fatal(err error) int {
	reason := fatalReason(err)
	log.Error().Err(err).Str("reason", reason).Msg("worker.Server fatal")
	observability.RecordFatal(reason)
	if sendErr := s.send(message.Log{Text: "exception: " + err.Error()}); sendErr != nil {
		log.Error().Err(sendErr).Msg("worker.Server fatal log not sent")
	}
	s.shutdown()
	return exitcode.Fatal
}

func (s *Server) shutdown() {
	s.stopTicker()
	if s.link == nil {
		return
	}
	if err := s.link.Drain(s.cfg.DrainTimeout); err != nil {
		log.Warn().Err(err).Msg("worker.Server drain")
	}
	_ = s.link.Close()
	s.link = nil
	s.events = nil
}

func fatalReason(err error) string {
	switch {
	case errors.Is(err, message.ErrDecode):
		return "decode"
	case errors.Is(err, ErrSimulatedException):
		return "simulated"
	case errors.Is(err, ErrDispatch):
		return "dispatch"
	default:
		return "other"
	}
}
