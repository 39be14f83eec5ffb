// Package transport carries framed packets between the worker and its parent
// over a unix domain socket.
//
// A Channel delivers inbound traffic as an ordered stream of events and
// accepts outbound frames without blocking: frames are queued and written by
// a single writer goroutine. A nil *Channel is valid and drops every send.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"os"
	"sync"
	"time"

	"github.com/danmuck/syntaxworker/internal/protocol/frame"
	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnect      = errors.New("transport: connect failed")
	ErrClosed       = errors.New("transport: channel closed")
	ErrDrainTimeout = errors.New("transport: drain timed out")
)

type EventKind uint8

const (
	EventConnected EventKind = iota + 1
	EventReceived
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventReceived:
		return "received"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is one inbound occurrence. Frame is set for EventReceived; Err may be
// set for EventDisconnected and is nil on a clean end of stream.
type Event struct {
	Kind  EventKind
	Frame frame.Frame
	Err   error
}

type Channel struct {
	conn   net.Conn
	cfg    Config
	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	cond     *sync.Cond
	outbound *queue.Queue
	closed   bool

	closeOnce sync.Once
}

// Connect dials the unix socket at identity, retrying with backoff up to
// cfg.MaxConnectAttempts (unbounded when <= 0). Failures wrap ErrConnect.
func Connect(ctx context.Context, identity string, cfg Config) (*Channel, error) {
	cfg = cfg.WithDefaults()
	retry := newRetrySchedule(cfg.Backoff, rand.New(rand.NewSource(time.Now().UnixNano())))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}

	var attempt int
	for {
		attempt++
		conn, err := dialer.DialContext(ctx, "unix", identity)
		if err == nil {
			log.Debug().Str("identity", identity).Int("attempt", attempt).Msg("transport.Connect connected")
			return newChannel(conn, cfg), nil
		}
		log.Warn().Err(err).Str("identity", identity).Int("attempt", attempt).Msg("transport.Connect dial failed")
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConnect, identity, attempt, err)
		}
		timer := time.NewTimer(retry.next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, identity, ctx.Err())
		case <-timer.C:
		}
	}
}

// Listen binds a unix socket at identity, replacing a stale socket file.
func Listen(identity string) (net.Listener, error) {
	if err := os.Remove(identity); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return net.Listen("unix", identity)
}

// Accept waits for one connection on ln and wraps it as a Channel.
func Accept(ln net.Listener, cfg Config) (*Channel, error) {
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	return newChannel(conn, cfg.WithDefaults()), nil
}

func newChannel(conn net.Conn, cfg Config) *Channel {
	c := &Channel{
		conn:     conn,
		cfg:      cfg,
		events:   make(chan Event, cfg.EventBuffer),
		done:     make(chan struct{}),
		outbound: queue.New(),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Events delivers Connected, then Received in arrival order, then one
// Disconnected, after which the channel is closed.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send queues f for writing. It never blocks and is a no-op on a nil or
// closed channel.
func (c *Channel) Send(f frame.Frame) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.outbound.Add(f)
	c.cond.Signal()
}

// Drain blocks until every frame queued before the call has been written or
// timeout elapses.
func (c *Channel) Drain(timeout time.Duration) error {
	if c == nil {
		return nil
	}
	marker := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.outbound.Add(marker)
	c.cond.Signal()
	c.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-marker:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrDrainTimeout, timeout)
	}
}

func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cond.Broadcast()
		c.mu.Unlock()
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) emit(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Channel) readLoop() {
	defer close(c.events)
	if !c.emit(Event{Kind: EventConnected}) {
		return
	}
	reader := bufio.NewReader(c.conn)
	for {
		fr, err := frame.ReadFrame(reader, c.cfg.Limits)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			log.Debug().Err(err).Msg("transport.readLoop disconnected")
			c.emit(Event{Kind: EventDisconnected, Err: err})
			return
		}
		if !c.emit(Event{Kind: EventReceived, Frame: fr}) {
			return
		}
	}
}

func (c *Channel) writeLoop() {
	var writeErr error
	for {
		c.mu.Lock()
		for c.outbound.Length() == 0 && !c.closed {
			c.cond.Wait()
		}
		if c.closed {
			// Release drain waiters; queued frames are dropped.
			for c.outbound.Length() > 0 {
				if marker, ok := c.outbound.Remove().(chan struct{}); ok {
					close(marker)
				}
			}
			c.mu.Unlock()
			return
		}
		item := c.outbound.Remove()
		c.mu.Unlock()

		switch v := item.(type) {
		case chan struct{}:
			close(v)
		case frame.Frame:
			if writeErr != nil {
				continue
			}
			if err := frame.WriteFrame(c.conn, v, c.cfg.Limits); err != nil {
				writeErr = err
				log.Warn().Err(err).Msg("transport.writeLoop write failed; dropping further frames")
			}
		}
	}
}
