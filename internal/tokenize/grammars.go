package tokenize

import "github.com/danmuck/syntaxworker/internal/syntax"

// Built-in scopes.
const (
	ScopePlain = "text.plain"
	ScopeGo    = "source.go"
	ScopeJSON  = "source.json"
	ScopeTOML  = "source.toml"
)

func GoGrammar() *Grammar {
	g := NewGrammar(ScopeGo)

	g.AddMultiLine("/*", "*/", syntax.TokenComment)
	g.AddMultiLine("`", "`", syntax.TokenString)

	g.AddSpan(`//.*$`, syntax.TokenComment)
	g.AddSpan(`"(?:[^"\\]|\\.)*"`, syntax.TokenString)
	g.AddSpan(`'(?:[^'\\]|\\.)'`, syntax.TokenString)
	g.AddRule(`\b0[xX][0-9a-fA-F_]+\b`, syntax.TokenNumber)
	g.AddRule(`\b0[oO][0-7_]+\b`, syntax.TokenNumber)
	g.AddRule(`\b0[bB][01_]+\b`, syntax.TokenNumber)
	g.AddRule(`\b\d+\.?\d*(?:[eE][+-]?\d+)?\b`, syntax.TokenNumber)
	g.AddRuleGroup(`\bfunc\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)`, syntax.TokenFunction, 1)
	g.AddRule(`[-+*/%&|^!<>=:]+`, syntax.TokenOperator)
	g.AddRule(`[{}()\[\];,.]`, syntax.TokenPunctuation)

	g.AddKeywords(syntax.TokenKeyword,
		"break", "case", "chan", "const", "continue", "default", "defer",
		"else", "fallthrough", "for", "func", "go", "goto", "if", "import",
		"interface", "map", "package", "range", "return", "select", "struct",
		"switch", "type", "var")
	g.AddKeywords(syntax.TokenConstant, "true", "false", "nil", "iota")
	g.AddKeywords(syntax.TokenTypeName,
		"int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
		"float32", "float64", "complex64", "complex128",
		"bool", "byte", "rune", "string", "error", "any")
	g.AddKeywords(syntax.TokenFunction,
		"append", "cap", "clear", "close", "complex", "copy", "delete",
		"imag", "len", "make", "max", "min", "new", "panic", "print",
		"println", "real", "recover")
	return g
}

func JSONGrammar() *Grammar {
	g := NewGrammar(ScopeJSON)
	g.AddRuleGroup(`("(?:[^"\\]|\\.)*")\s*:`, syntax.TokenProperty, 1)
	g.AddRule(`"(?:[^"\\]|\\.)*"`, syntax.TokenString)
	g.AddRule(`-?\b\d+(?:\.\d+)?(?:[eE][+-]?\d+)?\b`, syntax.TokenNumber)
	g.AddRule(`[{}\[\],:]`, syntax.TokenPunctuation)
	g.AddKeywords(syntax.TokenConstant, "true", "false", "null")
	return g
}

func TOMLGrammar() *Grammar {
	g := NewGrammar(ScopeTOML)
	g.AddMultiLine(`"""`, `"""`, syntax.TokenString)
	g.AddMultiLine(`'''`, `'''`, syntax.TokenString)

	g.AddSpan(`#.*$`, syntax.TokenComment)
	g.AddSpan(`"(?:[^"\\]|\\.)*"`, syntax.TokenString)
	g.AddSpan(`'[^']*'`, syntax.TokenString)
	g.AddRule(`^\s*\[\[?[^\]]+\]\]?`, syntax.TokenTypeName)
	g.AddRuleGroup(`^\s*([A-Za-z0-9_.-]+)\s*=`, syntax.TokenProperty, 1)
	g.AddRule(`\b\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)?\b`, syntax.TokenConstant)
	g.AddRule(`[+-]?\b\d[\d_]*(?:\.[\d_]+)?(?:[eE][+-]?\d+)?\b`, syntax.TokenNumber)
	g.AddRule(`=`, syntax.TokenOperator)
	g.AddRule(`[{}\[\],.]`, syntax.TokenPunctuation)
	g.AddKeywords(syntax.TokenConstant, "true", "false", "inf", "nan")
	return g
}
