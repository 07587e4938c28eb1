package value

import (
	"fmt"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"stylec/css"
)

// CyclicVariableError is returned when custom property references form a
// cycle. Cycle lists variables in reference order and ends with the first
// one, e.g. [--a --b --a].
type CyclicVariableError struct {
	Cycle []string
}

func (e *CyclicVariableError) Error() string {
	return "cyclic variable reference: " + strings.Join(e.Cycle, " -> ")
}

// VarEntry is a flattened variable: resolved CSS text, or unresolved marker
// with a reason.
type VarEntry struct {
	Value      string `json:"value,omitempty" yaml:"value,omitempty"`
	Unresolved bool   `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type varDef struct {
	tokens    css.Tokens
	important bool
}

type varResult struct {
	tokens css.Tokens
	reason string // non empty when variable could not be resolved
	err    error
}

// VarTable holds custom properties declared in :root rules of all inputs of
// one compile invocation. Later declarations win, !important ones win over
// normal. Resolution is memoized, table is not safe for concurrent use.
type VarTable struct {
	log  *zap.Logger
	defs map[string]varDef
	memo map[string]varResult
	busy map[string]bool
}

// NewVarTable collects custom properties from :root rules in cascade order.
func NewVarTable(log *zap.Logger, sheets []*css.Stylesheet) *VarTable {
	if log == nil {
		log = zap.NewNop()
	}
	t := &VarTable{
		log:  log.Named("vars"),
		defs: make(map[string]varDef),
		memo: make(map[string]varResult),
		busy: make(map[string]bool),
	}
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, rule := range sheet.RulesOfKind(css.RuleRoot) {
			for _, d := range rule.Declarations {
				if !strings.HasPrefix(d.Property, "--") {
					continue
				}
				t.Define(d.Property, d.Value, d.Important)
			}
		}
	}
	t.log.Debug("Variable table built", zap.Int("variables", len(t.defs)))
	return t
}

// Define adds or replaces a variable definition.
func (t *VarTable) Define(name string, tokens css.Tokens, important bool) {
	if prev, ok := t.defs[name]; ok && prev.important && !important {
		return
	}
	t.defs[name] = varDef{tokens: tokens, important: important}
	clear(t.memo)
}

// Has reports whether variable is defined.
func (t *VarTable) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.defs[name]
	return ok
}

// Names returns defined variable names in natural order.
func (t *VarTable) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.defs))
	for name := range t.defs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return names
}

// Resolve returns typed value of a variable. Missing variables and variables
// referencing missing ones without fallback resolve to Unresolved.
func (t *VarTable) Resolve(name string) (Value, error) {
	res := t.lookup(name, nil)
	if res.err != nil {
		return Unresolved("var("+name+")", res.err.Error()), res.err
	}
	if res.reason != "" {
		return Unresolved("var("+name+")", res.reason), nil
	}
	return NewResolver(t).typed("", res.tokens)
}

// Flatten returns every variable as resolved literal text or unresolved
// marker.
func (t *VarTable) Flatten() map[string]VarEntry {
	out := make(map[string]VarEntry, len(t.defs))
	for _, name := range t.Names() {
		res := t.lookup(name, nil)
		switch {
		case res.err != nil:
			out[name] = VarEntry{Unresolved: true, Reason: res.err.Error()}
		case res.reason != "":
			out[name] = VarEntry{Unresolved: true, Reason: res.reason}
		default:
			out[name] = VarEntry{Value: res.tokens.String()}
		}
	}
	return out
}

// lookup resolves variable to a token list with all var() references
// substituted. Stack holds variables currently being resolved.
func (t *VarTable) lookup(name string, stack []string) varResult {
	if t == nil {
		return varResult{reason: fmt.Sprintf("variable %s is not defined", name)}
	}
	if res, ok := t.memo[name]; ok {
		return res
	}
	if t.busy[name] {
		idx := slices.Index(stack, name)
		cycle := append(slices.Clone(stack[max(idx, 0):]), name)
		return varResult{err: &CyclicVariableError{Cycle: cycle}}
	}
	def, ok := t.defs[name]
	if !ok {
		return varResult{reason: fmt.Sprintf("variable %s is not defined", name)}
	}

	t.busy[name] = true
	defer delete(t.busy, name)

	toks, reason, err := t.substitute(def.tokens, append(stack, name))
	res := varResult{tokens: toks, reason: reason, err: err}
	if len(stack) == 0 || err == nil {
		t.memo[name] = res
	}
	return res
}

// substitute replaces every var() in tokens. Reason is set when a reference
// can not be satisfied, err when a cycle is detected.
func (t *VarTable) substitute(tokens css.Tokens, stack []string) (css.Tokens, string, error) {
	if !hasVar(tokens) {
		return tokens, "", nil
	}
	out := make(css.Tokens, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type != css.FunctionToken || !strings.EqualFold(tok.Data, "var(") {
			out = append(out, tok)
			continue
		}
		end := matchParen(tokens, i)
		if end < 0 {
			return nil, "unbalanced var()", nil
		}
		name, fallback, hasFallback := splitVar(tokens[i+1 : end])
		if name == "" {
			return nil, "malformed var(): " + tokens[i:end+1].String(), nil
		}

		res := t.lookup(name, stack)
		if res.err != nil {
			return nil, "", res.err
		}
		repl := res.tokens
		if res.reason != "" {
			if !hasFallback {
				return nil, res.reason, nil
			}
			toks, reason, err := t.substitute(fallback, stack)
			if err != nil || reason != "" {
				return nil, reason, err
			}
			repl = toks
		}
		out = append(out, repl...)
		i = end
	}
	return out, "", nil
}

func hasVar(tokens css.Tokens) bool {
	for _, tok := range tokens {
		if tok.Type == css.FunctionToken && strings.EqualFold(tok.Data, "var(") {
			return true
		}
	}
	return false
}

// matchParen returns index of ')' closing function or paren at open.
func matchParen(tokens css.Tokens, open int) int {
	depth := 0
	for j := open; j < len(tokens); j++ {
		switch tokens[j].Type {
		case css.FunctionToken, css.LeftParenToken:
			depth++
		case css.RightParenToken:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

// splitVar splits var() arguments into name and fallback tokens.
func splitVar(args css.Tokens) (string, css.Tokens, bool) {
	args = args.Trim()
	if len(args) == 0 || !args[0].IsCustomProperty() {
		return "", nil, false
	}
	name := args[0].Data
	rest := args[1:].Trim()
	if len(rest) == 0 {
		return name, nil, false
	}
	if rest[0].Type != css.CommaToken {
		return "", nil, false
	}
	return name, rest[1:].Trim(), true
}
