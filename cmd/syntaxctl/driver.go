package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/syntaxworker/internal/protocol/frame"
	"github.com/danmuck/syntaxworker/internal/protocol/message"
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/danmuck/syntaxworker/internal/transport"
)

var (
	errTimeout      = errors.New("timed out waiting for worker")
	errDisconnected = errors.New("worker disconnected before closing")
)

// job is one file to push through the worker.
type job struct {
	BufferID syntax.BufferID
	Filetype string
	Lines    []string
	Theme    map[string]string
	Timeout  time.Duration
}

// report is what the worker sent back for a job.
type report struct {
	Echo        string
	Initialized bool
	Healthy     bool
	TokenLines  map[uint32][]syntax.Token
	Logs        []string
	Closing     bool
}

// peer is the parent side of the channel.
type peer interface {
	Events() <-chan transport.Event
	Send(frame.Frame)
}

var defaultTheme = map[string]string{
	"comment":              "italic gray",
	"string":               "green",
	"constant.numeric":     "magenta",
	"keyword":              "bold blue",
	"entity.name.function": "yellow",
	"entity.name.type":     "cyan",
}

// drive runs the editor side of a session for j: it sets the worker up,
// loads the buffer, waits until every line has tokens, then closes.
func drive(p peer, j job, out io.Writer) (report, error) {
	rep := report{TokenLines: make(map[uint32][]syntax.Token)}
	send := func(m message.Client) error {
		payload, err := message.EncodeClient(m)
		if err != nil {
			return fmt.Errorf("encode %T: %w", m, err)
		}
		p.Send(frame.Message(payload))
		return nil
	}

	theme := j.Theme
	if theme == nil {
		theme = defaultTheme
	}
	opening := []message.Client{
		message.Initialize{Setup: map[string]string{"client": "syntaxctl"}},
		message.Echo{Text: "syntaxctl"},
		message.RunHealthCheck{},
		message.ThemeChanged{Theme: theme},
		message.BufferEnter{BufferID: j.BufferID, Filetype: j.Filetype},
		message.BufferUpdate{
			Update: syntax.Update{BufferID: j.BufferID, Version: 1, IsFull: true, EndLine: uint32(len(j.Lines))},
			Lines:  j.Lines,
		},
		message.VisibleRangesChanged{Ranges: []syntax.VisibleRange{{
			BufferID: j.BufferID,
			Lines:    syntax.LineRange{Start: 0, End: uint32(min(len(j.Lines), 64))},
		}}},
	}
	for _, m := range opening {
		if err := send(m); err != nil {
			return rep, err
		}
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	closeSent := false
	for {
		select {
		case <-deadline.C:
			return rep, fmt.Errorf("%w after %s", errTimeout, timeout)
		case ev, ok := <-p.Events():
			if !ok {
				return rep, errDisconnected
			}
			switch ev.Kind {
			case transport.EventConnected:
				continue
			case transport.EventDisconnected:
				if rep.Closing {
					return rep, nil
				}
				if ev.Err != nil {
					return rep, fmt.Errorf("%w: %v", errDisconnected, ev.Err)
				}
				return rep, errDisconnected
			}

			msg, err := message.DecodeServer(ev.Frame.Payload)
			if err != nil {
				return rep, fmt.Errorf("decode worker message: %w", err)
			}
			record(&rep, j.BufferID, msg, out)
			if rep.Closing {
				return rep, nil
			}
			if !closeSent && rep.Initialized && rep.Healthy && len(rep.TokenLines) >= len(j.Lines) {
				if err := send(message.Close{}); err != nil {
					return rep, err
				}
				closeSent = true
			}
		}
	}
}

func record(rep *report, id syntax.BufferID, msg message.Server, out io.Writer) {
	switch m := msg.(type) {
	case message.EchoReply:
		rep.Echo = m.Text
		fmt.Fprintf(out, "echo: %s\n", m.Text)
	case message.Initialized:
		rep.Initialized = true
		fmt.Fprintln(out, "initialized")
	case message.HealthCheckPass:
		rep.Healthy = m.Passed
		fmt.Fprintf(out, "health check passed: %t\n", m.Passed)
	case message.TokenUpdate:
		for _, bt := range m.Batch {
			if bt.BufferID != id {
				continue
			}
			for _, lt := range bt.Lines {
				rep.TokenLines[lt.Line] = lt.Tokens
				fmt.Fprintf(out, "buffer %d v%d line %d: %s\n", bt.BufferID, bt.Version, lt.Line, formatTokens(lt.Tokens))
			}
		}
	case message.Log:
		rep.Logs = append(rep.Logs, m.Text)
		fmt.Fprintf(out, "log: %s\n", m.Text)
	case message.Closing:
		rep.Closing = true
		fmt.Fprintln(out, "closing")
	}
}

func formatTokens(tokens []syntax.Token) string {
	if len(tokens) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		s := fmt.Sprintf("[%d,%d)%s", tok.Start, tok.End, tok.Type)
		if tok.Style != "" {
			s += "{" + tok.Style + "}"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// summarize prints how many tokens of each type the job produced.
func summarize(rep report, out io.Writer) {
	counts := make(map[string]int)
	for _, tokens := range rep.TokenLines {
		for _, tok := range tokens {
			counts[tok.Type.String()]++
		}
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(out, "lines tokenized: %d\n", len(rep.TokenLines))
	for _, name := range names {
		fmt.Fprintf(out, "  %-28s %d\n", name, counts[name])
	}
}
