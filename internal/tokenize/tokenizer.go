// Package tokenize is the default work quantum: it tokenizes a bounded chunk
// of a buffer's dirty lines per call and stages the results in session state.
package tokenize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/syntaxworker/internal/state"
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/rs/zerolog/log"
)

const (
	// ConfigMaxLineLength bounds the lines that are tokenized; longer lines
	// become a single text token.
	ConfigMaxLineLength = "syntax.maxLineLength"

	DefaultMaxLineLength     = 10000
	DefaultChunkLines        = 64
	DefaultVisibleChunkLines = 256
)

var ErrCorruptBuffer = errors.New("tokenize: dirty range outside buffer")

type Config struct {
	ChunkLines        int
	VisibleChunkLines int
}

func DefaultConfig() Config {
	return Config{
		ChunkLines:        DefaultChunkLines,
		VisibleChunkLines: DefaultVisibleChunkLines,
	}
}

type Tokenizer struct {
	cfg      Config
	registry *Registry
}

func New(cfg Config, registry *Registry) *Tokenizer {
	if cfg.ChunkLines <= 0 {
		cfg.ChunkLines = DefaultChunkLines
	}
	if cfg.VisibleChunkLines < cfg.ChunkLines {
		cfg.VisibleChunkLines = cfg.ChunkLines
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Tokenizer{cfg: cfg, registry: registry}
}

// Run performs one quantum for item. Remaining dirty lines re-queue the
// buffer behind any other pending work.
func (t *Tokenizer) Run(st *state.State, item state.WorkItem) error {
	b, ok := st.Buffer(item.Buffer)
	if !ok {
		log.Debug().Uint64("buffer", uint64(item.Buffer)).Msg("tokenize.Run unknown buffer")
		return nil
	}
	if b.Dirty.Empty() {
		return nil
	}

	g := t.grammarFor(st, b)
	maxLen := maxLineLength(st)
	budget := t.cfg.ChunkLines
	if r, ok := st.Visible(b.ID); ok && r.Contains(b.Dirty.Start) {
		budget = t.cfg.VisibleChunkLines
	}

	lines := make([]syntax.LineTokens, 0, min(budget, int(b.Dirty.End-b.Dirty.Start)))
	for n := 0; n < budget && !b.Dirty.Empty(); n++ {
		line := b.Dirty.Start
		if int(line) >= len(b.Lines) {
			return fmt.Errorf("%w: buffer=%d line=%d lines=%d", ErrCorruptBuffer, b.ID, line, len(b.Lines))
		}
		text := b.Lines[line]
		carryIn := b.CarryIn(line)

		var tokens []syntax.Token
		carry := carryIn
		if len(text) > maxLen {
			tokens = []syntax.Token{{Start: 0, End: uint32(len(text)), Type: syntax.TokenText}}
		} else {
			tokens, carry = g.TokenizeLine(text, carryIn)
		}
		for i := range tokens {
			tokens[i].Style = styleFor(st, tokens[i].Type)
		}
		lines = append(lines, syntax.LineTokens{Line: line, Tokens: tokens})
		b.Commit(line, carry)
	}
	st.AddTokens(b.ID, lines...)

	log.Debug().
		Uint64("buffer", uint64(b.ID)).
		Str("scope", g.Scope()).
		Int("lines", len(lines)).
		Bool("remaining", !b.Dirty.Empty()).
		Msg("tokenize.Run")
	if !b.Dirty.Empty() {
		st.PushWork(b.ID)
	}
	return nil
}

func (t *Tokenizer) grammarFor(st *state.State, b *state.Buffer) *Grammar {
	if b.Scope != "" {
		return t.registry.Grammar(b.Scope)
	}
	if scope, ok := st.LanguageScope(b.Filetype); ok {
		return t.registry.Grammar(scope)
	}
	if scope, ok := t.registry.ScopeFor(b.Filetype); ok {
		return t.registry.Grammar(scope)
	}
	return t.registry.Grammar(ScopePlain)
}

func maxLineLength(st *state.State) int {
	raw, ok := st.Configuration(ConfigMaxLineLength)
	if !ok {
		return DefaultMaxLineLength
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		log.Debug().Str("value", raw).Msg("tokenize invalid max line length")
		return DefaultMaxLineLength
	}
	return n
}

// styleFor looks up the theme by scope, then by each parent scope
// ("constant.numeric", then "constant").
func styleFor(st *state.State, typ syntax.TokenType) string {
	scope := typ.Scope()
	for scope != "" {
		if style := st.ThemeStyle(scope); style != "" {
			return style
		}
		i := strings.LastIndexByte(scope, '.')
		if i < 0 {
			break
		}
		scope = scope[:i]
	}
	return ""
}
