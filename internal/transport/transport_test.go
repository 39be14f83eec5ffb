package transport

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/syntaxworker/internal/protocol/frame"
	"github.com/danmuck/syntaxworker/internal/testutil/testlog"
)

func socketPath(t *testing.T) string {
	t.Helper()
	// Socket paths are length limited; t.TempDir() can be too deep.
	dir, err := os.MkdirTemp("", "sw")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "s.sock")
}

func nextEvent(t *testing.T, ch *Channel) Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		if !ok {
			t.Fatalf("events closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func pair(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	path := socketPath(t)
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan *Channel, 1)
	go func() {
		ch, err := Accept(ln, DefaultConfig())
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- ch
	}()
	client, err := Connect(context.Background(), path, DefaultConfig())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	server := <-accepted
	if server == nil {
		t.Fatalf("accept failed")
	}
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestRetryScheduleGrowsAndCaps(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: 300 * time.Millisecond}
	retry := newRetrySchedule(cfg, nil)
	want := []time.Duration{100, 200, 300, 300}
	for i, w := range want {
		if got := retry.next(); got != w*time.Millisecond {
			t.Fatalf("retry %d: got %s want %s", i+1, got, w*time.Millisecond)
		}
	}

	if got := newRetrySchedule(BackoffConfig{Multiplier: 2}, nil).next(); got != 0 {
		t.Fatalf("zero initial delay should not wait, got %s", got)
	}
	flat := newRetrySchedule(BackoffConfig{InitialDelay: 50 * time.Millisecond, Multiplier: 0.5}, nil)
	flat.next()
	if got := flat.next(); got != 50*time.Millisecond {
		t.Fatalf("multiplier below 1 should hold the delay, got %s", got)
	}
}

func TestRetryScheduleJitter(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: 300 * time.Millisecond, Jitter: true}
	retry := newRetrySchedule(cfg, rand.New(rand.NewSource(1)))
	retry.next()
	for i := 0; i < 20; i++ {
		// Base is 200ms on the second retry, then capped at 300ms.
		got := retry.next()
		if got < 100*time.Millisecond || got >= 450*time.Millisecond {
			t.Fatalf("jittered delay out of range: %s", got)
		}
	}
}

func TestChannelRoundTripInOrder(t *testing.T) {
	testlog.Start(t)
	client, server := pair(t)
	if ev := nextEvent(t, client); ev.Kind != EventConnected {
		t.Fatalf("client first event %s", ev.Kind)
	}
	if ev := nextEvent(t, server); ev.Kind != EventConnected {
		t.Fatalf("server first event %s", ev.Kind)
	}

	for i := byte(0); i < 10; i++ {
		client.Send(frame.Message([]byte{i}))
	}
	for i := byte(0); i < 10; i++ {
		ev := nextEvent(t, server)
		if ev.Kind != EventReceived {
			t.Fatalf("event %d kind %s", i, ev.Kind)
		}
		if ev.Frame.Payload[0] != i || ev.Frame.Header.Kind != frame.KindMessage || ev.Frame.Header.PacketID != frame.OutboundID {
			t.Fatalf("unexpected frame %+v", ev.Frame)
		}
	}
}

func TestDisconnectedOnPeerClose(t *testing.T) {
	testlog.Start(t)
	client, server := pair(t)
	nextEvent(t, server)
	nextEvent(t, client)
	client.Send(frame.Message([]byte("bye")))
	if err := client.Drain(time.Second); err != nil {
		t.Fatalf("drain: %v", err)
	}
	_ = client.Close()

	if ev := nextEvent(t, server); ev.Kind != EventReceived {
		t.Fatalf("expected pending frame before disconnect, got %s", ev.Kind)
	}
	ev := nextEvent(t, server)
	if ev.Kind != EventDisconnected || ev.Err != nil {
		t.Fatalf("expected clean disconnect, got %s err=%v", ev.Kind, ev.Err)
	}
	if _, ok := <-server.Events(); ok {
		t.Fatalf("events not closed after disconnect")
	}
}

func TestNilChannelIsNoop(t *testing.T) {
	var ch *Channel
	ch.Send(frame.Message(nil))
	if err := ch.Drain(time.Millisecond); err != nil {
		t.Fatalf("drain on nil: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("close on nil: %v", err)
	}
}

func TestConnectErrorAfterAttempts(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.MaxConnectAttempts = 2
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond}
	_, err := Connect(context.Background(), socketPath(t), cfg)
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
}

func TestConnectRetriesUntilListener(t *testing.T) {
	testlog.Start(t)
	path := socketPath(t)
	go func() {
		time.Sleep(50 * time.Millisecond)
		ln, err := Listen(path)
		if err != nil {
			return
		}
		defer ln.Close()
		conn, err := ln.Accept()
		if err == nil {
			time.Sleep(100 * time.Millisecond)
			conn.Close()
		}
	}()
	cfg := DefaultConfig()
	cfg.MaxConnectAttempts = 50
	cfg.Backoff = BackoffConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 1}
	ch, err := Connect(context.Background(), path, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = ch.Close()
}

func TestSendAfterCloseDropped(t *testing.T) {
	testlog.Start(t)
	client, _ := pair(t)
	_ = client.Close()
	client.Send(frame.Message([]byte("late")))
	if err := client.Drain(10 * time.Millisecond); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := socketPath(t)
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	ln, err := Listen(path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if _, ok := ln.(*net.UnixListener); !ok {
		t.Fatalf("unexpected listener %T", ln)
	}
}
