package tokenize

import (
	"maps"
	"slices"
	"strings"
)

// Registry maps scopes to grammars and filetypes to scopes.
type Registry struct {
	grammars  map[string]*Grammar
	filetypes map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		grammars:  make(map[string]*Grammar),
		filetypes: make(map[string]string),
	}
}

// DefaultRegistry holds the built-in grammars.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PlainGrammar(), "plaintext", "text")
	r.Register(GoGrammar(), "go", "golang")
	r.Register(JSONGrammar(), "json", "jsonc")
	r.Register(TOMLGrammar(), "toml")
	return r
}

func (r *Registry) Register(g *Grammar, filetypes ...string) {
	r.grammars[g.Scope()] = g
	for _, ft := range filetypes {
		r.filetypes[strings.ToLower(ft)] = g.Scope()
	}
}

// Grammar returns the grammar for scope, falling back to plain text.
func (r *Registry) Grammar(scope string) *Grammar {
	if g, ok := r.grammars[scope]; ok {
		return g
	}
	if g, ok := r.grammars[ScopePlain]; ok {
		return g
	}
	return PlainGrammar()
}

// ScopeFor resolves a filetype through the built-in table.
func (r *Registry) ScopeFor(filetype string) (string, bool) {
	scope, ok := r.filetypes[strings.ToLower(filetype)]
	return scope, ok
}

func (r *Registry) Scopes() []string {
	return slices.Sorted(maps.Keys(r.grammars))
}
