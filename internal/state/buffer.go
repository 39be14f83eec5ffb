package state

import (
	"math"

	"github.com/danmuck/syntaxworker/internal/syntax"
)

// CarryUnknown marks a line whose lexer carry has not been computed yet.
const CarryUnknown uint32 = math.MaxUint32

// Buffer is the worker's copy of one editor buffer.
type Buffer struct {
	ID       syntax.BufferID
	Filetype string
	// Scope is the grammar scope sent with the last update; empty means
	// resolve it from the filetype.
	Scope   string
	Version uint64
	Lines   []string
	// Carry[i] is the lexer state at the end of line i.
	Carry []uint32
	// Dirty lines still need tokenizing. Lines before Dirty.Start have a
	// valid carry.
	Dirty syntax.LineRange

	queued bool
}

func (b *Buffer) LineCount() uint32 {
	return uint32(len(b.Lines))
}

// CarryIn returns the lexer state at the start of line.
func (b *Buffer) CarryIn(line uint32) uint32 {
	if line == 0 || int(line) > len(b.Carry) {
		return 0
	}
	c := b.Carry[line-1]
	if c == CarryUnknown {
		return 0
	}
	return c
}

// Commit records the carry produced by tokenizing line and advances the
// dirty range. Re-tokenizing stops once past the edited region and the carry
// matches the cached value; otherwise the next line becomes dirty. Commit
// reports whether dirty lines remain.
func (b *Buffer) Commit(line uint32, carry uint32) bool {
	if int(line) >= len(b.Carry) {
		b.Dirty = syntax.LineRange{}
		return false
	}
	prev := b.Carry[line]
	b.Carry[line] = carry
	next := line + 1
	b.Dirty.Start = next
	if next >= b.Dirty.End {
		if prev == carry {
			b.Dirty.End = next
		} else {
			b.Dirty.End = next + 1
		}
	}
	b.Dirty = b.Dirty.Clamp(b.LineCount())
	return !b.Dirty.Empty()
}

// invalidate marks every line dirty and forgets cached carries.
func (b *Buffer) invalidate() {
	for i := range b.Carry {
		b.Carry[i] = CarryUnknown
	}
	b.Dirty = syntax.LineRange{Start: 0, End: b.LineCount()}
}

// splice replaces lines [start, end) with repl and returns the line delta.
func (b *Buffer) splice(start, end uint32, repl []string) int {
	n := b.LineCount()
	r := syntax.LineRange{Start: start, End: end}.Clamp(n)
	start, end = r.Start, r.End

	lines := make([]string, 0, len(b.Lines)-int(end-start)+len(repl))
	lines = append(lines, b.Lines[:start]...)
	lines = append(lines, repl...)
	lines = append(lines, b.Lines[end:]...)

	carry := make([]uint32, 0, len(lines))
	carry = append(carry, b.Carry[:start]...)
	for range repl {
		carry = append(carry, CarryUnknown)
	}
	if len(repl) > 0 {
		// The last new line inherits the carry the next line was built
		// with, so an edit that leaves it unchanged converges immediately.
		last := len(carry) - 1
		switch {
		case end > 0:
			carry[last] = b.Carry[end-1]
		default:
			carry[last] = 0
		}
	}
	carry = append(carry, b.Carry[end:]...)

	delta := len(repl) - int(end-start)
	replEnd := start + uint32(len(repl))

	touched := syntax.LineRange{Start: start, End: replEnd}
	if touched.Empty() {
		// Pure deletion: the line that slid into start needs a new carry-in.
		touched.End = start + 1
	}
	if !b.Dirty.Empty() {
		old := syntax.LineRange{
			Start: shiftLine(b.Dirty.Start, start, end, replEnd, delta),
			End:   shiftLine(b.Dirty.End, start, end, replEnd, delta),
		}
		touched.Start = min(touched.Start, old.Start)
		touched.End = max(touched.End, old.End)
	}

	b.Lines = lines
	b.Carry = carry
	b.Dirty = touched.Clamp(b.LineCount())
	return delta
}

// shiftLine maps a line number from before a splice of [start, end) to after.
func shiftLine(line, start, end, replEnd uint32, delta int) uint32 {
	switch {
	case line <= start:
		return line
	case line >= end:
		return uint32(int(line) + delta)
	default:
		return replEnd
	}
}
