package worker

import (
	"fmt"

	"github.com/danmuck/syntaxworker/internal/protocol/message"
	"github.com/danmuck/syntaxworker/internal/state"
	"github.com/rs/zerolog/log"
)

// HealthSuccess is the result a HealthCheck returns when healthy.
const HealthSuccess = 0

// HealthCheck is the externally supplied health probe.
type HealthCheck func() int

// Outcome is what handling one message asks of the server loop.
type Outcome struct {
	Replies []message.Server
	// Logs are local log entries; they are not sent to the parent.
	Logs []string
	// Kick arms the scheduler after a transition that may have queued work.
	Kick bool
	// Close ends the process with a success status once Replies are sent.
	Close bool
}

type Dispatcher struct {
	health HealthCheck
}

func NewDispatcher(health HealthCheck) *Dispatcher {
	if health == nil {
		health = func() int { return HealthSuccess }
	}
	return &Dispatcher{health: health}
}

// Dispatch applies msg to st. An error is fatal to the worker.
func (d *Dispatcher) Dispatch(st *state.State, msg message.Client) (Outcome, error) {
	var out Outcome
	switch m := msg.(type) {
	case message.Echo:
		out.Replies = append(out.Replies, message.EchoReply{Text: m.Text})
	case message.Initialize:
		st.Initialize(m.LanguageInfo, m.Setup)
		out.Replies = append(out.Replies, message.Initialized{})
		out.Kick = true
	case message.RunHealthCheck:
		code := d.health()
		log.Debug().Int("code", code).Msg("worker.Dispatch health check")
		out.Replies = append(out.Replies, message.HealthCheckPass{Passed: code == HealthSuccess})
	case message.BufferEnter:
		st.EnterBuffer(m.BufferID, m.Filetype)
		out.Kick = true
	case message.ConfigurationChanged:
		st.SetConfiguration(m.Configuration)
		out.Kick = true
	case message.ThemeChanged:
		st.SetTheme(m.Theme)
		out.Kick = true
	case message.BufferUpdate:
		st.ApplyUpdate(m.Update, m.Lines, m.Scope)
		out.Kick = true
	case message.VisibleRangesChanged:
		st.SetVisibleRanges(m.Ranges)
	case message.Close:
		out.Replies = append(out.Replies, message.Closing{})
		out.Close = true
	case message.SimulateMessageException:
		return out, ErrSimulatedException
	case message.Unknown:
		out.Logs = append(out.Logs, fmt.Sprintf("ignoring unknown message tag=%d version=%d", uint16(m.Tag), m.Version))
	default:
		return out, fmt.Errorf("%w: unhandled message %T", ErrDispatch, msg)
	}
	return out, nil
}
