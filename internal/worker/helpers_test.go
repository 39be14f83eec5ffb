package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/syntaxworker/internal/protocol/frame"
	"github.com/danmuck/syntaxworker/internal/protocol/message"
	"github.com/danmuck/syntaxworker/internal/state"
	"github.com/danmuck/syntaxworker/internal/tokenize"
	"github.com/danmuck/syntaxworker/internal/transport"
)

type fakeLink struct {
	mu      sync.Mutex
	events  chan transport.Event
	sent    []frame.Frame
	drained int
	closed  int
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan transport.Event, 64)}
}

func (f *fakeLink) Events() <-chan transport.Event {
	return f.events
}

func (f *fakeLink) Send(fr frame.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fr)
}

func (f *fakeLink) Drain(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained++
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeLink) messages(t *testing.T) []message.Server {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]message.Server, 0, len(f.sent))
	for _, fr := range f.sent {
		if fr.Header.Kind != frame.KindMessage || fr.Header.PacketID != frame.OutboundID {
			t.Fatalf("unexpected outbound header %+v", fr.Header)
		}
		msg, err := message.DecodeServer(fr.Payload)
		if err != nil {
			t.Fatalf("decode outbound: %v", err)
		}
		out = append(out, msg)
	}
	return out
}

func (f *fakeLink) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

type countingQuantum struct {
	runs int
	err  error
	next func(st *state.State, item state.WorkItem)
}

func (q *countingQuantum) Run(st *state.State, item state.WorkItem) error {
	q.runs++
	if q.next != nil {
		q.next(st, item)
	}
	return q.err
}

func packet(t *testing.T, m message.Client) frame.Frame {
	t.Helper()
	payload, err := message.EncodeClient(m)
	if err != nil {
		t.Fatalf("encode %T: %v", m, err)
	}
	return frame.Message(payload)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickPeriod = time.Millisecond
	cfg.DrainTimeout = 100 * time.Millisecond
	return cfg
}

// newTestServer returns a server attached to a fake link and driven by the
// default tokenizer.
func newTestServer(t *testing.T, health HealthCheck) (*Server, *fakeLink) {
	t.Helper()
	cfg := testConfig()
	srv := NewServer(cfg, nil, tokenize.New(cfg.Tokenize, nil), health)
	link := newFakeLink()
	srv.attach(link)
	return srv, link
}

func mustHandle(t *testing.T, srv *Server, m message.Client) {
	t.Helper()
	if code, done := srv.HandlePacket(packet(t, m)); done {
		t.Fatalf("%T ended the server with code %d", m, code)
	}
}
