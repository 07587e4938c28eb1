package css

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2/css"
)

// Token types re-exported so value level code does not depend on the lexer
// package directly.
type TokenType = css.TokenType

const (
	IdentToken          = css.IdentToken
	FunctionToken       = css.FunctionToken
	HashToken           = css.HashToken
	StringToken         = css.StringToken
	URLToken            = css.URLToken
	DelimToken          = css.DelimToken
	NumberToken         = css.NumberToken
	PercentageToken     = css.PercentageToken
	DimensionToken      = css.DimensionToken
	WhitespaceToken     = css.WhitespaceToken
	ColonToken          = css.ColonToken
	SemicolonToken      = css.SemicolonToken
	CommaToken          = css.CommaToken
	LeftParenToken      = css.LeftParenthesisToken
	RightParenToken     = css.RightParenthesisToken
	LeftBracketToken    = css.LeftBracketToken
	RightBracketToken   = css.RightBracketToken
	LeftBraceToken      = css.LeftBraceToken
	RightBraceToken     = css.RightBraceToken
	CustomPropNameToken = css.CustomPropertyNameToken
)

// Token is a single lexical token of a declaration value. Data is owned by
// the token, it never references lexer buffers.
type Token struct {
	Type TokenType
	Data string
}

func (t Token) String() string { return t.Data }

// IsWhitespace reports whether token is whitespace.
func (t Token) IsWhitespace() bool { return t.Type == WhitespaceToken }

// IsDelim reports whether token is the given delimiter.
func (t Token) IsDelim(d string) bool { return t.Type == DelimToken && t.Data == d }

// IsCustomProperty reports whether token names a custom property (--name).
func (t Token) IsCustomProperty() bool {
	return (t.Type == IdentToken || t.Type == CustomPropNameToken) && strings.HasPrefix(t.Data, "--")
}

// Tokens is a declaration value.
type Tokens []Token

// String renders tokens back to CSS text with whitespace collapsed.
func (ts Tokens) String() string {
	var sb strings.Builder
	for i, t := range ts {
		if t.Type == WhitespaceToken {
			if i > 0 && i < len(ts)-1 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// Trim removes leading and trailing whitespace tokens.
func (ts Tokens) Trim() Tokens {
	start, end := 0, len(ts)
	for start < end && ts[start].Type == WhitespaceToken {
		start++
	}
	for end > start && ts[end-1].Type == WhitespaceToken {
		end--
	}
	return ts[start:end]
}

// Declaration is a single property/value pair.
type Declaration struct {
	Property  string
	Value     Tokens
	Important bool
	Offset    int // byte offset of the property name in the source
}

func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value.String() + " !important"
	}
	return d.Property + ": " + d.Value.String()
}

// RuleKind tells how a rule participates in style resolution.
type RuleKind int

const (
	RuleClass    RuleKind = iota // .name
	RuleCompound                 // .a.b
	RuleRoot                     // :root
	RulePseudo                   // .name::before, .name:first-child
	RuleOther                    // anything else, kept for diagnostics only
)

func (k RuleKind) String() string {
	switch k {
	case RuleClass:
		return "class"
	case RuleCompound:
		return "compound"
	case RuleRoot:
		return "root"
	case RulePseudo:
		return "pseudo"
	default:
		return "other"
	}
}

// Rule is a single CSS rule. (SourceIndex, RuleIndex) gives total cascade
// order across all inputs of one compile invocation.
type Rule struct {
	Kind         RuleKind
	Selector     string   // effective selector text
	Classes      []string // class names without dots for class, compound and pseudo rules
	Pseudo       string   // pseudo part including colons, e.g. "::before"
	Declarations []Declaration
	SourceIndex  int
	RuleIndex    int
	Offset       int
}

// Key returns the style table key for the rule: class names joined by dots
// plus pseudo part.
func (r Rule) Key() string {
	if len(r.Classes) == 0 {
		return r.Selector
	}
	return strings.Join(r.Classes, ".") + r.Pseudo
}

// KeyframeStop is one block of a @keyframes rule, it may apply to several
// offsets ("0%, 100% { ... }").
type KeyframeStop struct {
	Offsets      []float64 // percents, 0..100
	Declarations []Declaration
}

// Keyframes represents @keyframes block.
type Keyframes struct {
	Name        string
	Stops       []KeyframeStop
	SourceIndex int
	RuleIndex   int
}

// MediaBlock is a @media block. Media queries are never evaluated, rules are
// passed through to the output.
type MediaBlock struct {
	Query string
	Rules []Rule
}

// Source is a single style-sheet input.
type Source struct {
	Name string
	Data []byte
}

// Stylesheet is an ordered list of rules from one input source.
type Stylesheet struct {
	Index     int
	Name      string
	Rules     []Rule
	Keyframes []Keyframes
	Media     []MediaBlock
	Warnings  []string
}

// RulesOfKind returns rules of the requested kinds in source order.
func (s *Stylesheet) RulesOfKind(kinds ...RuleKind) []Rule {
	var matches []Rule
	for _, r := range s.Rules {
		for _, k := range kinds {
			if r.Kind == k {
				matches = append(matches, r)
				break
			}
		}
	}
	return matches
}

// WriteTo writes the normalized stylesheet to w, implementing io.WriterTo.
// Declaration order within a rule is preserved since it is significant for
// cascade.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for _, r := range s.Rules {
		writeRule(cw, "", r.Selector, r.Declarations)
	}
	for _, kf := range s.Keyframes {
		cw.printf("@keyframes %s {\n", kf.Name)
		for _, stop := range kf.Stops {
			offs := make([]string, 0, len(stop.Offsets))
			for _, o := range stop.Offsets {
				offs = append(offs, fmt.Sprintf("%g%%", o))
			}
			writeRule(cw, "  ", strings.Join(offs, ", "), stop.Declarations)
		}
		cw.printf("}\n")
	}
	for _, mb := range s.Media {
		cw.printf("@media %s {\n", mb.Query)
		for _, r := range mb.Rules {
			writeRule(cw, "  ", r.Selector, r.Declarations)
		}
		cw.printf("}\n")
	}
	return cw.n, cw.err
}

// String returns the normalized CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(cw *countingWriter, indent, selector string, decls []Declaration) {
	cw.printf("%s%s {\n", indent, selector)
	for _, d := range decls {
		cw.printf("%s  %s;\n", indent, d.String())
	}
	cw.printf("%s}\n", indent)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}
