package tokenize

import (
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/rs/zerolog/log"
)

var healthSample = []string{
	`package main // sample`,
	`/* block`,
	`   still comment */ x := "s" + 42`,
	`{"key": [1, 2.5e3, true, null]}`,
	`[table]`,
	`name = """multi`,
	`line""" # done`,
	"raw := `open",
	"close`",
	"",
	"ünïcode_ident := 'x'",
}

// HealthCheck runs the sample through every registered grammar and checks
// that tokens are ordered, non-overlapping and inside the line. It returns 0
// on success.
func (t *Tokenizer) HealthCheck() int {
	failures := 0
	for _, scope := range t.registry.Scopes() {
		g := t.registry.Grammar(scope)
		carry := CarryNormal
		for i, line := range healthSample {
			var tokens []syntax.Token
			tokens, carry = g.TokenizeLine(line, carry)
			if !wellFormed(tokens, len(line)) {
				log.Error().Str("scope", scope).Int("line", i).Msg("tokenize.HealthCheck malformed tokens")
				failures++
				break
			}
		}
	}
	if failures > 0 {
		return 1
	}
	return 0
}

func wellFormed(tokens []syntax.Token, lineLen int) bool {
	var prevEnd uint32
	for _, tok := range tokens {
		if tok.End <= tok.Start || tok.Start < prevEnd || int(tok.End) > lineLen {
			return false
		}
		prevEnd = tok.End
	}
	return true
}
