// Package syntax holds the value types shared by session state, the
// tokenizer and the wire codec.
package syntax

// BufferID identifies an editor buffer.
type BufferID uint64

// TokenType is the semantic class of a token.
type TokenType uint16

const (
	TokenNone TokenType = iota
	TokenText
	TokenComment
	TokenString
	TokenNumber
	TokenKeyword
	TokenOperator
	TokenPunctuation
	TokenIdentifier
	TokenConstant
	TokenFunction
	TokenTypeName
	TokenProperty

	tokenTypeCount
)

// Scope names follow TextMate conventions; themes are keyed by them.
var tokenScopes = [...]string{
	TokenNone:        "",
	TokenText:        "text",
	TokenComment:     "comment",
	TokenString:      "string",
	TokenNumber:      "constant.numeric",
	TokenKeyword:     "keyword",
	TokenOperator:    "keyword.operator",
	TokenPunctuation: "punctuation",
	TokenIdentifier:  "variable",
	TokenConstant:    "constant.language",
	TokenFunction:    "entity.name.function",
	TokenTypeName:    "entity.name.type",
	TokenProperty:    "support.type.property-name",
}

// Scope returns the theme scope name for t.
func (t TokenType) Scope() string {
	if t < tokenTypeCount {
		return tokenScopes[t]
	}
	return ""
}

func (t TokenType) String() string {
	if s := t.Scope(); s != "" {
		return s
	}
	if t == TokenNone {
		return "none"
	}
	return "unknown"
}

// Token is a styled byte range [Start, End) within one line.
type Token struct {
	Start uint32
	End   uint32
	Type  TokenType
	Style string
}

// LineTokens is the complete token list for one line.
type LineTokens struct {
	Line   uint32
	Tokens []Token
}

// BufferTokens is the per-buffer entry of a token update batch.
type BufferTokens struct {
	BufferID BufferID
	Version  uint64
	Lines    []LineTokens
}

// LineRange is the half-open line interval [Start, End).
type LineRange struct {
	Start uint32
	End   uint32
}

func (r LineRange) Empty() bool {
	return r.End <= r.Start
}

func (r LineRange) Contains(line uint32) bool {
	return line >= r.Start && line < r.End
}

// Clamp limits r to [0, n).
func (r LineRange) Clamp(n uint32) LineRange {
	if r.Start > n {
		r.Start = n
	}
	if r.End > n {
		r.End = n
	}
	if r.End < r.Start {
		r.End = r.Start
	}
	return r
}

// Update describes an incremental edit: lines [StartLine, EndLine) of the
// previous content are replaced. IsFull replaces the whole buffer.
type Update struct {
	BufferID  BufferID
	Version   uint64
	StartLine uint32
	EndLine   uint32
	IsFull    bool
}

// VisibleRange is a visibility hint for one buffer.
type VisibleRange struct {
	BufferID BufferID
	Lines    LineRange
}
