package tokenize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danmuck/syntaxworker/internal/syntax"
)

// CarryNormal is the lexer state outside any multi-line construct.
const CarryNormal uint32 = 0

// Rule assigns Type to every match of Pattern, or to its Group submatch.
type Rule struct {
	Pattern *regexp.Regexp
	Type    syntax.TokenType
	Group   int
}

type multiLine struct {
	start string
	end   string
	typ   syntax.TokenType
	carry uint32
}

// Grammar is a regex and keyword tokenizer for one scope. Multi-line
// constructs carry their state into the next line. Spans (strings and line
// comments) and multi-line openers are claimed in one left-to-right pass
// before the remaining rules run on what is left.
type Grammar struct {
	scope     string
	plain     bool
	spans     []Rule
	rules     []Rule
	keywords  map[string]syntax.TokenType
	multiLine []multiLine
}

func NewGrammar(scope string) *Grammar {
	return &Grammar{
		scope:    scope,
		keywords: make(map[string]syntax.TokenType),
	}
}

// PlainGrammar emits one text token per non-empty line.
func PlainGrammar() *Grammar {
	g := NewGrammar(ScopePlain)
	g.plain = true
	return g
}

func (g *Grammar) Scope() string {
	return g.scope
}

func (g *Grammar) AddRule(pattern string, typ syntax.TokenType) *Grammar {
	return g.AddRuleGroup(pattern, typ, 0)
}

func (g *Grammar) AddRuleGroup(pattern string, typ syntax.TokenType, group int) *Grammar {
	g.rules = append(g.rules, Rule{Pattern: regexp.MustCompile(pattern), Type: typ, Group: group})
	return g
}

// AddSpan registers a single-line construct, such as a string or a line
// comment, whose body hides everything inside it from other rules.
func (g *Grammar) AddSpan(pattern string, typ syntax.TokenType) *Grammar {
	g.spans = append(g.spans, Rule{Pattern: regexp.MustCompile(pattern), Type: typ})
	return g
}

func (g *Grammar) AddKeywords(typ syntax.TokenType, words ...string) *Grammar {
	for _, w := range words {
		g.keywords[w] = typ
	}
	return g
}

// AddMultiLine registers a construct that may span lines. Constructs are
// tried in registration order.
func (g *Grammar) AddMultiLine(start, end string, typ syntax.TokenType) *Grammar {
	g.multiLine = append(g.multiLine, multiLine{
		start: start,
		end:   end,
		typ:   typ,
		carry: uint32(len(g.multiLine) + 1),
	})
	return g
}

// TokenizeLine returns the tokens of line, sorted by start, and the carry
// for the following line.
func (g *Grammar) TokenizeLine(line string, carry uint32) ([]syntax.Token, uint32) {
	if g.plain {
		if line == "" {
			return []syntax.Token{}, CarryNormal
		}
		return []syntax.Token{{Start: 0, End: uint32(len(line)), Type: syntax.TokenText}}, CarryNormal
	}

	if ml, ok := g.construct(carry); ok {
		idx := strings.Index(line, ml.end)
		if idx < 0 {
			if line == "" {
				return []syntax.Token{}, carry
			}
			return []syntax.Token{{Start: 0, End: uint32(len(line)), Type: ml.typ}}, carry
		}
		end := idx + len(ml.end)
		tokens := []syntax.Token{{Start: 0, End: uint32(end), Type: ml.typ}}
		rest, next := g.tokenizeNormal(line[end:])
		for i := range rest {
			rest[i].Start += uint32(end)
			rest[i].End += uint32(end)
		}
		return append(tokens, rest...), next
	}
	return g.tokenizeNormal(line)
}

func (g *Grammar) construct(carry uint32) (multiLine, bool) {
	if carry == CarryNormal || int(carry) > len(g.multiLine) {
		return multiLine{}, false
	}
	return g.multiLine[carry-1], true
}

func (g *Grammar) tokenizeNormal(line string) ([]syntax.Token, uint32) {
	tokens := make([]syntax.Token, 0)
	covered := make([]bool, len(line))
	carry := CarryNormal

	// Earliest start wins; on a tie multi-line constructs go first, then
	// spans in registration order.
	for pos := 0; pos < len(line); {
		start, end, typ, next, ok := g.nextSpan(line, pos)
		if !ok {
			break
		}
		tokens = append(tokens, syntax.Token{Start: uint32(start), End: uint32(end), Type: typ})
		markCovered(covered, start, end)
		if next != CarryNormal {
			carry = next
			break
		}
		pos = end
	}

	for _, rule := range g.rules {
		for _, m := range rule.Pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := m[0], m[1]
			if rule.Group > 0 && len(m) > rule.Group*2+1 {
				start, end = m[rule.Group*2], m[rule.Group*2+1]
			}
			if start < 0 || end <= start || isCovered(covered, start, end) {
				continue
			}
			tokens = append(tokens, syntax.Token{Start: uint32(start), End: uint32(end), Type: rule.Type})
			markCovered(covered, start, end)
		}
	}

	tokens = append(tokens, g.identifiers(line, covered)...)
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Start < tokens[j].Start })
	return tokens, carry
}

// nextSpan finds the first span or multi-line construct starting at or after
// pos. carry is non-zero when a multi-line construct is left open.
func (g *Grammar) nextSpan(line string, pos int) (start, end int, typ syntax.TokenType, carry uint32, ok bool) {
	start = -1
	for _, ml := range g.multiLine {
		idx := strings.Index(line[pos:], ml.start)
		if idx < 0 || (start >= 0 && pos+idx >= start) {
			continue
		}
		start, typ = pos+idx, ml.typ
		body := start + len(ml.start)
		if e := strings.Index(line[body:], ml.end); e >= 0 {
			end, carry = body+e+len(ml.end), CarryNormal
		} else {
			end, carry = len(line), ml.carry
		}
	}
	for _, span := range g.spans {
		m := span.Pattern.FindStringIndex(line[pos:])
		if m == nil || m[1] <= m[0] || (start >= 0 && pos+m[0] >= start) {
			continue
		}
		start, end, typ, carry = pos+m[0], pos+m[1], span.Type, CarryNormal
	}
	return start, end, typ, carry, start >= 0
}

func (g *Grammar) identifiers(line string, covered []bool) []syntax.Token {
	var tokens []syntax.Token
	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if covered[i] || !(unicode.IsLetter(r) || r == '_') {
			i += size
			continue
		}
		start := i
		for i < len(line) {
			r, size = utf8.DecodeRuneInString(line[i:])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			i += size
		}
		if isCovered(covered, start, i) {
			continue
		}
		typ := syntax.TokenIdentifier
		if kw, ok := g.keywords[line[start:i]]; ok {
			typ = kw
		}
		tokens = append(tokens, syntax.Token{Start: uint32(start), End: uint32(i), Type: typ})
		markCovered(covered, start, i)
	}
	return tokens
}

func isCovered(covered []bool, start, end int) bool {
	if start < 0 || start >= len(covered) {
		return false
	}
	for i := start; i < end && i < len(covered); i++ {
		if covered[i] {
			return true
		}
	}
	return false
}

func markCovered(covered []bool, start, end int) {
	for i := max(start, 0); i < end && i < len(covered); i++ {
		covered[i] = true
	}
}
