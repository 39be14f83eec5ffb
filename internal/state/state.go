// Package state is the worker's session state: the buffers it mirrors, the
// pending work FIFO and the token updates waiting for the next flush.
//
// A State is owned by the server loop goroutine and is not safe for
// concurrent use. Its methods are pure transitions and never perform I/O.
package state

import (
	"maps"
	"slices"

	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"
)

// DefaultFiletype is used for buffers first seen through an update.
const DefaultFiletype = "plaintext"

// WorkItem asks for one tokenization quantum on a buffer.
type WorkItem struct {
	Buffer syntax.BufferID
}

type State struct {
	pendingWork  *queue.Queue
	tokenUpdates map[syntax.BufferID]map[uint32][]syntax.Token
	buffers      map[syntax.BufferID]*Buffer

	configuration map[string]string
	theme         map[string]string
	languageInfo  map[string]string
	setup         map[string]string
	visible       map[syntax.BufferID]syntax.LineRange
}

func New() *State {
	return &State{
		pendingWork:   queue.New(),
		tokenUpdates:  make(map[syntax.BufferID]map[uint32][]syntax.Token),
		buffers:       make(map[syntax.BufferID]*Buffer),
		configuration: map[string]string{},
		theme:         map[string]string{},
		languageInfo:  map[string]string{},
		setup:         map[string]string{},
		visible:       make(map[syntax.BufferID]syntax.LineRange),
	}
}

// Initialize replaces the language info and setup. Scopes are re-resolved,
// so every buffer is re-tokenized.
func (s *State) Initialize(languageInfo, setup map[string]string) bool {
	s.languageInfo = cloneMap(languageInfo)
	s.setup = cloneMap(setup)
	return s.retokenizeAll()
}

// EnterBuffer registers id or updates its filetype. It always queues the
// buffer so a newly entered buffer is tokenized as soon as it has content.
func (s *State) EnterBuffer(id syntax.BufferID, filetype string) bool {
	b, ok := s.buffers[id]
	if !ok {
		b = &Buffer{ID: id}
		s.buffers[id] = b
	}
	if b.Filetype != filetype {
		b.Filetype = filetype
		if ok {
			b.Scope = ""
			b.invalidate()
		}
	}
	log.Debug().Uint64("buffer", uint64(id)).Str("filetype", filetype).Bool("new", !ok).Msg("state.EnterBuffer")
	return s.PushWork(id)
}

func (s *State) SetConfiguration(cfg map[string]string) bool {
	s.configuration = cloneMap(cfg)
	return s.retokenizeAll()
}

func (s *State) SetTheme(theme map[string]string) bool {
	s.theme = cloneMap(theme)
	return s.retokenizeAll()
}

// ApplyUpdate applies an edit. Unknown buffers are registered as plaintext;
// updates older than the buffer's version are ignored.
func (s *State) ApplyUpdate(u syntax.Update, lines []string, scope string) bool {
	b, ok := s.buffers[u.BufferID]
	if !ok {
		b = &Buffer{ID: u.BufferID, Filetype: DefaultFiletype}
		s.buffers[u.BufferID] = b
	}
	if ok && u.Version < b.Version {
		log.Debug().
			Uint64("buffer", uint64(u.BufferID)).
			Uint64("version", u.Version).
			Uint64("current", b.Version).
			Msg("state.ApplyUpdate stale version ignored")
		return false
	}
	b.Version = u.Version
	if scope != "" && scope != b.Scope {
		b.Scope = scope
		b.invalidate()
	}

	lines = slices.Clone(lines)
	if u.IsFull {
		b.Lines = lines
		b.Carry = make([]uint32, len(lines))
		b.invalidate()
		// Staged lines are normally flushed in the same tick that produced
		// them; this only matters for a Quantum that stages outside a tick.
		delete(s.tokenUpdates, b.ID)
	} else {
		n := b.LineCount()
		r := syntax.LineRange{Start: u.StartLine, End: u.EndLine}.Clamp(n)
		delta := b.splice(r.Start, r.End, lines)
		s.shiftPending(b.ID, r.Start, r.End, delta)
	}
	return s.PushWork(b.ID)
}

// shiftPending moves pending token lines past an edit of [start, end) and
// drops those the edit replaced. The scheduler flushes every tick, so staged
// lines exist here only when a Quantum stages tokens outside a tick.
func (s *State) shiftPending(id syntax.BufferID, start, end uint32, delta int) {
	pending := s.tokenUpdates[id]
	if len(pending) == 0 {
		return
	}
	shifted := make(map[uint32][]syntax.Token, len(pending))
	for line, toks := range pending {
		switch {
		case line < start:
			shifted[line] = toks
		case line >= end:
			shifted[uint32(int(line)+delta)] = toks
		}
	}
	s.tokenUpdates[id] = shifted
}

// SetVisibleRanges replaces the visibility hints.
func (s *State) SetVisibleRanges(ranges []syntax.VisibleRange) {
	clear(s.visible)
	for _, r := range ranges {
		s.visible[r.BufferID] = r.Lines
	}
}

func (s *State) Visible(id syntax.BufferID) (syntax.LineRange, bool) {
	r, ok := s.visible[id]
	return r, ok
}

// PushWork queues id unless it is already queued. It reports whether an
// item was added.
func (s *State) PushWork(id syntax.BufferID) bool {
	if b, ok := s.buffers[id]; ok {
		if b.queued {
			return false
		}
		b.queued = true
	}
	s.pendingWork.Add(WorkItem{Buffer: id})
	return true
}

func (s *State) PopWork() (WorkItem, bool) {
	if s.pendingWork.Length() == 0 {
		return WorkItem{}, false
	}
	item := s.pendingWork.Remove().(WorkItem)
	if b, ok := s.buffers[item.Buffer]; ok {
		b.queued = false
	}
	return item, true
}

func (s *State) PendingWork() int {
	return s.pendingWork.Length()
}

// AddTokens stages line tokens for the next flush. A later result for the
// same line replaces an earlier one.
func (s *State) AddTokens(id syntax.BufferID, lines ...syntax.LineTokens) {
	if len(lines) == 0 {
		return
	}
	pending, ok := s.tokenUpdates[id]
	if !ok {
		pending = make(map[uint32][]syntax.Token, len(lines))
		s.tokenUpdates[id] = pending
	}
	for _, l := range lines {
		pending[l.Line] = l.Tokens
	}
}

// PendingTokenLines counts staged lines across all buffers.
func (s *State) PendingTokenLines() int {
	n := 0
	for _, pending := range s.tokenUpdates {
		n += len(pending)
	}
	return n
}

// TakeTokenUpdates returns the staged tokens ordered by buffer and line and
// leaves the staging area empty.
func (s *State) TakeTokenUpdates() []syntax.BufferTokens {
	if len(s.tokenUpdates) == 0 {
		return nil
	}
	ids := slices.Sorted(maps.Keys(s.tokenUpdates))
	batch := make([]syntax.BufferTokens, 0, len(ids))
	for _, id := range ids {
		pending := s.tokenUpdates[id]
		if len(pending) == 0 {
			continue
		}
		entry := syntax.BufferTokens{BufferID: id}
		if b, ok := s.buffers[id]; ok {
			entry.Version = b.Version
		}
		for _, line := range slices.Sorted(maps.Keys(pending)) {
			entry.Lines = append(entry.Lines, syntax.LineTokens{Line: line, Tokens: pending[line]})
		}
		batch = append(batch, entry)
	}
	clear(s.tokenUpdates)
	return batch
}

func (s *State) Buffer(id syntax.BufferID) (*Buffer, bool) {
	b, ok := s.buffers[id]
	return b, ok
}

func (s *State) BufferCount() int {
	return len(s.buffers)
}

func (s *State) Configuration(key string) (string, bool) {
	v, ok := s.configuration[key]
	return v, ok
}

func (s *State) ThemeStyle(scope string) string {
	return s.theme[scope]
}

func (s *State) LanguageScope(filetype string) (string, bool) {
	v, ok := s.languageInfo[filetype]
	return v, ok
}

func (s *State) Setup(key string) (string, bool) {
	v, ok := s.setup[key]
	return v, ok
}

func (s *State) retokenizeAll() bool {
	queued := false
	for _, id := range slices.Sorted(maps.Keys(s.buffers)) {
		s.buffers[id].invalidate()
		if s.PushWork(id) {
			queued = true
		}
	}
	return queued
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}
