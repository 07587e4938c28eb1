package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Option configures Parser.
type Option func(*Parser)

// WithNesting enables nested rule blocks.
func WithNesting(enable bool) Option {
	return func(p *Parser) {
		p.nesting = enable
	}
}

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log     *zap.Logger
	nesting bool
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger, opts ...Option) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{log: log.Named("css-parser")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseAll parses every source independently. Result is indexed as sources
// are, a source which failed to parse has nil stylesheet and contributes no
// rules at all. Errors from all sources are combined.
func (p *Parser) ParseAll(sources []Source) ([]*Stylesheet, error) {
	sheets := make([]*Stylesheet, len(sources))
	errs := make([]error, len(sources))

	// sources have no ordering dependency among themselves, cascade order is
	// restored from indexes
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Go(func() {
			sheets[i], errs[i] = p.Parse(i, src.Name, src.Data)
		})
	}
	wg.Wait()

	var err error
	for _, e := range errs {
		err = multierr.Append(err, e)
	}
	return sheets, err
}

// Parse parses CSS text of a single source into a Stylesheet. Index is the
// position of the source in the compile input and becomes the first component
// of cascade order of every rule.
func (p *Parser) Parse(index int, name string, data []byte) (*Stylesheet, error) {
	if name == "" {
		name = fmt.Sprintf("source#%d", index)
	}
	p.log.Debug("Parsing CSS", zap.String("source", name), zap.Int("bytes", len(data)))

	toks, err := tokenize(name, data)
	if err != nil {
		return nil, err
	}

	b := &sheetBuilder{
		p:     p,
		name:  name,
		src:   data,
		toks:  toks,
		sheet: &Stylesheet{Index: index, Name: name},
	}
	if err := b.parseRules(0, len(toks), &b.sheet.Rules, true); err != nil {
		return nil, err
	}
	p.log.Debug("Parsed CSS", zap.String("source", name), zap.Int("rules", len(b.sheet.Rules)),
		zap.Int("keyframes", len(b.sheet.Keyframes)), zap.Int("warnings", len(b.sheet.Warnings)))
	return b.sheet, nil
}

// ParseDeclarations parses a declaration list without selector and braces,
// as found in inline style attributes. Invalid declarations are skipped,
// unterminated strings and unbalanced brackets fail the whole list.
func (p *Parser) ParseDeclarations(name string, data []byte) ([]Declaration, error) {
	if err := checkDeclarationList(name, data); err != nil {
		return nil, err
	}

	gp := css.NewParser(parse.NewInput(bytes.NewReader(data)), true)
	var decls []Declaration
	for {
		start := gp.Offset()
		gt, _, prop := gp.Next()
		switch gt {
		case css.ErrorGrammar:
			if gp.HasParseError() {
				var perr *parse.Error
				if errors.As(gp.Err(), &perr) {
					p.log.Debug("Invalid inline declaration skipped", zap.String("source", name), zap.String("reason", perr.Message))
				}
				continue
			}
			if err := gp.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, newSyntaxError(name, data, start, "%v", err)
			}
			return decls, nil
		case css.DeclarationGrammar:
			d := Declaration{Property: string(prop), Offset: skipSeparators(data, start)}
			vals := gp.Values()
			value := make(Tokens, 0, len(vals))
			for _, v := range vals {
				value = append(value, Token{Type: v.TokenType, Data: string(v.Data)})
			}
			d.Value, d.Important = splitImportant(value.Trim())
			if len(d.Value) == 0 {
				p.log.Debug("Inline declaration with empty value skipped", zap.String("source", name), zap.String("property", d.Property))
				continue
			}
			decls = append(decls, d)
		case css.CustomPropertyGrammar:
			d := Declaration{Property: string(prop), Offset: skipSeparators(data, start)}
			var raw strings.Builder
			for _, v := range gp.Values() {
				raw.Write(v.Data)
			}
			value, err := ParseValue(raw.String())
			if err != nil {
				return nil, newSyntaxError(name, data, d.Offset, "custom property %s: %v", d.Property, err)
			}
			d.Value, d.Important = splitImportant(value)
			decls = append(decls, d)
		default:
			p.log.Debug("Unexpected construct in inline declarations skipped", zap.String("source", name), zap.Stringer("grammar", gt))
		}
	}
}

// checkDeclarationList reports lexical problems css.Parser would silently
// recover from: bad strings, braces and unbalanced parentheses.
func checkDeclarationList(name string, data []byte) error {
	toks, err := tokenize(name, data)
	if err != nil {
		return err
	}
	depth := 0
	for _, t := range toks {
		switch t.Type {
		case LeftParenToken, FunctionToken, LeftBracketToken:
			depth++
		case RightParenToken, RightBracketToken:
			depth--
		case LeftBraceToken, RightBraceToken:
			return newSyntaxError(name, data, t.offset, "unexpected %q in declaration list", t.Data)
		}
		if depth < 0 {
			return newSyntaxError(name, data, t.offset, "unbalanced parenthesis: unexpected %q", t.Data)
		}
	}
	if depth != 0 {
		return newSyntaxError(name, data, len(data), "unbalanced parenthesis: '(' is never closed")
	}
	return nil
}

func skipSeparators(data []byte, i int) int {
	for i < len(data) && (data[i] == ';' || data[i] == ' ' || data[i] == '\t' || data[i] == '\n' || data[i] == '\r' || data[i] == '\f') {
		i++
	}
	return i
}

// splitImportant strips trailing "!important" from a trimmed value.
func splitImportant(value Tokens) (Tokens, bool) {
	n := len(value)
	if n < 2 || value[n-1].Type != IdentToken || !strings.EqualFold(value[n-1].Data, "important") {
		return value, false
	}
	k := n - 2
	for k >= 0 && value[k].Type == WhitespaceToken {
		k--
	}
	if k < 0 || !value[k].IsDelim("!") {
		return value, false
	}
	return value[:k].Trim(), true
}

// ParseValue tokenizes a standalone declaration value.
func ParseValue(text string) (Tokens, error) {
	toks, err := tokenize("value", []byte(text))
	if err != nil {
		return nil, err
	}
	out := make(Tokens, len(toks))
	for i, l := range toks {
		out[i] = l.Token
	}
	return out.Trim(), nil
}

// lexeme is a token with its byte offset in the source.
type lexeme struct {
	Token
	offset int
}

func tokenize(name string, src []byte) ([]lexeme, error) {
	l := css.NewLexer(parse.NewInput(bytes.NewReader(src)))

	var (
		out    []lexeme
		offset int
	)
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, newSyntaxError(name, src, offset, "%v", err)
			}
			return out, nil
		case css.CommentToken, css.CDOToken, css.CDCToken:
			offset += len(data)
			continue
		case css.BadStringToken:
			return nil, newSyntaxError(name, src, offset, "unterminated string")
		case css.BadURLToken:
			return nil, newSyntaxError(name, src, offset, "malformed url")
		case css.StringToken:
			if len(data) < 2 || data[len(data)-1] != data[0] {
				return nil, newSyntaxError(name, src, offset, "unterminated string")
			}
		}
		out = append(out, lexeme{Token: Token{Type: tt, Data: string(data)}, offset: offset})
		offset += len(data)
	}
}

type sheetBuilder struct {
	p     *Parser
	name  string
	src   []byte
	toks  []lexeme
	sheet *Stylesheet
	rules int
}

func (b *sheetBuilder) errorf(offset int, format string, args ...any) error {
	return newSyntaxError(b.name, b.src, offset, format, args...)
}

func (b *sheetBuilder) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	b.sheet.Warnings = append(b.sheet.Warnings, msg)
	b.p.log.Debug("CSS warning", zap.String("source", b.name), zap.String("warning", msg))
}

func (b *sheetBuilder) nextRuleIndex() int {
	idx := b.rules
	b.rules++
	return idx
}

// parseRules parses list of rules in toks[lo:hi] appending them to sink.
func (b *sheetBuilder) parseRules(lo, hi int, sink *[]Rule, topLevel bool) error {
	for i := lo; i < hi; {
		t := b.toks[i]
		switch t.Type {
		case WhitespaceToken, SemicolonToken:
			i++
		case css.AtKeywordToken:
			next, err := b.parseAtRule(i, hi, sink, topLevel)
			if err != nil {
				return err
			}
			i = next
		case RightBraceToken:
			return b.errorf(t.offset, "unbalanced braces: unexpected '}'")
		default:
			open := -1
			for j := i; j < hi && open < 0; j++ {
				switch b.toks[j].Type {
				case LeftBraceToken:
					open = j
				case RightBraceToken:
					return b.errorf(b.toks[j].offset, "unbalanced braces: unexpected '}'")
				}
			}
			if open < 0 {
				return b.errorf(t.offset, "expected '{' after selector %q", lexemes(b.toks[i:hi]).String())
			}
			end, err := b.matchBrace(open, hi)
			if err != nil {
				return err
			}
			selectors := splitSelectors(b.toks[i:open])
			if len(selectors) == 0 {
				b.warn("rule without selector at offset %d skipped", t.offset)
			} else if err := b.parseBlock(selectors, t.offset, open+1, end, sink); err != nil {
				return err
			}
			i = end + 1
		}
	}
	return nil
}

// matchBrace returns index of the '}' closing '{' at open.
func (b *sheetBuilder) matchBrace(open, hi int) (int, error) {
	depth := 0
	for j := open; j < hi; j++ {
		switch b.toks[j].Type {
		case LeftBraceToken:
			depth++
		case RightBraceToken:
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, b.errorf(b.toks[open].offset, "unbalanced braces: '{' is never closed")
}

// parseBlock parses declarations (and, with nesting, nested rules) of a
// qualified rule with given effective selectors.
func (b *sheetBuilder) parseBlock(selectors []string, offset, lo, hi int, sink *[]Rule) error {
	ruleIndex := b.nextRuleIndex()

	var (
		decls  []Declaration
		nested []Rule
		depth  int
		opened = -1
		start  = lo
	)
	for j := lo; j < hi; j++ {
		t := b.toks[j]
		switch t.Type {
		case LeftParenToken, FunctionToken, LeftBracketToken:
			if depth == 0 {
				opened = t.offset
			}
			depth++
		case RightParenToken, RightBracketToken:
			depth--
			if depth < 0 {
				return b.errorf(t.offset, "unbalanced parenthesis: unexpected %q", t.Data)
			}
		case SemicolonToken:
			if depth == 0 {
				if d, ok := b.parseDeclaration(b.toks[start:j]); ok {
					decls = append(decls, d)
				}
				start = j + 1
			}
		case LeftBraceToken:
			if depth != 0 {
				return b.errorf(t.offset, "unexpected '{' inside parenthesis")
			}
			prelude := b.toks[start:j]
			if !b.p.nesting {
				return b.errorf(t.offset, "nested rule %q inside %q requires nesting support", lexemes(prelude).String(), strings.Join(selectors, ", "))
			}
			end, err := b.matchBrace(j, hi)
			if err != nil {
				return err
			}
			at := t.offset
			if p := trimLexemes(prelude); len(p) > 0 {
				at = p[0].offset
			}
			children := nestSelectors(selectors, splitSelectors(prelude))
			if err := b.parseBlock(children, at, j+1, end, &nested); err != nil {
				return err
			}
			j = end
			start = end + 1
		}
	}
	if depth != 0 {
		return b.errorf(opened, "unbalanced parenthesis: '(' is never closed")
	}
	if d, ok := b.parseDeclaration(b.toks[start:hi]); ok {
		decls = append(decls, d)
	}

	if len(decls) > 0 {
		for _, sel := range selectors {
			rule := Rule{
				Selector:     sel,
				Declarations: decls,
				SourceIndex:  b.sheet.Index,
				RuleIndex:    ruleIndex,
				Offset:       offset,
			}
			rule.Kind, rule.Classes, rule.Pseudo = classifySelector(sel)
			if rule.Kind == RuleOther {
				b.warn("unsupported selector %q kept for diagnostics only", sel)
			}
			*sink = append(*sink, rule)
		}
	}
	*sink = append(*sink, nested...)
	return nil
}

// parseDeclaration parses "name: value [!important]". Invalid declarations are
// skipped with a warning as CSS error recovery requires.
func (b *sheetBuilder) parseDeclaration(seg []lexeme) (Declaration, bool) {
	seg = trimLexemes(seg)
	if len(seg) == 0 {
		return Declaration{}, false
	}
	name := seg[0]
	if name.Type != IdentToken && name.Type != CustomPropNameToken {
		b.warn("invalid declaration %q skipped", lexemes(seg).String())
		return Declaration{}, false
	}
	i := 1
	for i < len(seg) && seg[i].Type == WhitespaceToken {
		i++
	}
	if i >= len(seg) || seg[i].Type != ColonToken {
		b.warn("declaration %q has no value", lexemes(seg).String())
		return Declaration{}, false
	}

	value := make(Tokens, 0, len(seg)-i-1)
	for _, l := range seg[i+1:] {
		value = append(value, l.Token)
	}
	value = value.Trim()

	d := Declaration{Property: name.Data, Offset: name.offset}
	custom := name.IsCustomProperty()
	if !custom {
		d.Property = strings.ToLower(d.Property)
	}

	value, d.Important = splitImportant(value)
	if len(value) == 0 && !custom {
		b.warn("declaration %q has empty value", d.Property)
		return Declaration{}, false
	}
	d.Value = value
	return d, true
}

// parseAtRule handles at-rules starting at toks[i], returns index of the
// first token after the rule.
func (b *sheetBuilder) parseAtRule(i, hi int, sink *[]Rule, topLevel bool) (int, error) {
	at := b.toks[i]
	name := strings.ToLower(at.Data)

	j := i + 1
	depth := 0
	for ; j < hi; j++ {
		t := b.toks[j]
		if t.Type == LeftParenToken || t.Type == FunctionToken {
			depth++
		} else if t.Type == RightParenToken {
			depth--
		}
		if depth == 0 && (t.Type == SemicolonToken || t.Type == LeftBraceToken) {
			break
		}
		if t.Type == RightBraceToken {
			return 0, b.errorf(t.offset, "unbalanced braces: unexpected '}' in %s", name)
		}
	}
	prelude := lexemes(b.toks[i+1 : j]).String()
	if j >= hi || b.toks[j].Type == SemicolonToken {
		b.p.log.Debug("Skipping @-rule", zap.String("rule", name), zap.String("prelude", prelude))
		return j + 1, nil
	}

	end, err := b.matchBrace(j, hi)
	if err != nil {
		return 0, err
	}
	switch name {
	case "@keyframes", "@-webkit-keyframes":
		if err := b.parseKeyframes(strings.Trim(prelude, `"'`), j+1, end); err != nil {
			return 0, err
		}
	case "@media":
		if !topLevel {
			b.warn("nested @media %q flattened", prelude)
		}
		mb := MediaBlock{Query: prelude}
		if err := b.parseRules(j+1, end, &mb.Rules, false); err != nil {
			return 0, err
		}
		b.sheet.Media = append(b.sheet.Media, mb)
	default:
		b.warn("unsupported at-rule %s skipped", name)
	}
	return end + 1, nil
}

func (b *sheetBuilder) parseKeyframes(name string, lo, hi int) error {
	if name == "" {
		b.warn("@keyframes without name skipped")
		return nil
	}
	kf := Keyframes{Name: name, SourceIndex: b.sheet.Index, RuleIndex: b.nextRuleIndex()}

	for i := lo; i < hi; {
		if b.toks[i].Type == WhitespaceToken {
			i++
			continue
		}
		open := -1
		for j := i; j < hi; j++ {
			if b.toks[j].Type == LeftBraceToken {
				open = j
				break
			}
		}
		if open < 0 {
			return b.errorf(b.toks[i].offset, "expected '{' after keyframe selector")
		}
		end, err := b.matchBrace(open, hi)
		if err != nil {
			return err
		}

		var stop KeyframeStop
		for _, sel := range strings.Split(lexemes(b.toks[i:open]).String(), ",") {
			sel = strings.ToLower(strings.TrimSpace(sel))
			switch {
			case sel == "from":
				stop.Offsets = append(stop.Offsets, 0)
			case sel == "to":
				stop.Offsets = append(stop.Offsets, 100)
			case strings.HasSuffix(sel, "%"):
				if v, err := strconv.ParseFloat(strings.TrimSuffix(sel, "%"), 64); err == nil && v >= 0 && v <= 100 {
					stop.Offsets = append(stop.Offsets, v)
					continue
				}
				fallthrough
			default:
				b.warn("invalid keyframe selector %q in %s", sel, name)
			}
		}

		start := open + 1
		for j := open + 1; j <= end; j++ {
			if j == end || b.toks[j].Type == SemicolonToken {
				if d, ok := b.parseDeclaration(b.toks[start:j]); ok {
					stop.Declarations = append(stop.Declarations, d)
				}
				start = j + 1
			}
		}
		if len(stop.Offsets) > 0 {
			kf.Stops = append(kf.Stops, stop)
		}
		i = end + 1
	}
	b.sheet.Keyframes = append(b.sheet.Keyframes, kf)
	return nil
}

// splitSelectors splits selector prelude on top level commas.
func splitSelectors(prelude []lexeme) []string {
	var (
		out   []string
		depth int
		start int
	)
	flush := func(end int) {
		if s := lexemes(prelude[start:end]).String(); s != "" {
			out = append(out, s)
		}
	}
	for i, t := range prelude {
		switch t.Type {
		case LeftParenToken, FunctionToken, LeftBracketToken:
			depth++
		case RightParenToken, RightBracketToken:
			depth--
		case CommaToken:
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(prelude))
	return out
}

// nestSelectors computes effective selectors of a nested rule.
func nestSelectors(parents, children []string) []string {
	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
			} else {
				out = append(out, p+" "+c)
			}
		}
	}
	return out
}

var (
	classChainPattern = regexp.MustCompile(`^(\.-?[_a-zA-Z][_a-zA-Z0-9-]*)+$`)
	supportedPseudo   = map[string]bool{
		"::before": true, ":before": true,
		"::after": true, ":after": true,
		":first-child": true, ":last-child": true, ":empty": true,
	}
)

// classifySelector decides how a selector participates in resolution.
func classifySelector(sel string) (RuleKind, []string, string) {
	if sel == ":root" {
		return RuleRoot, nil, ""
	}
	base, pseudo := sel, ""
	if idx := strings.IndexByte(sel, ':'); idx > 0 {
		base, pseudo = sel[:idx], strings.ToLower(sel[idx:])
	}
	if !classChainPattern.MatchString(base) {
		return RuleOther, nil, ""
	}
	var classes []string
	for c := range strings.SplitSeq(base, ".") {
		if c != "" {
			classes = append(classes, c)
		}
	}
	switch {
	case pseudo != "":
		if supportedPseudo[pseudo] || strings.HasPrefix(pseudo, ":nth-child(") {
			return RulePseudo, classes, pseudo
		}
		return RuleOther, nil, ""
	case len(classes) == 1:
		return RuleClass, classes, ""
	default:
		return RuleCompound, classes, ""
	}
}

type lexemes []lexeme

func (ls lexemes) String() string {
	ts := make(Tokens, len(ls))
	for i, l := range ls {
		ts[i] = l.Token
	}
	return ts.String()
}

func trimLexemes(ls []lexeme) []lexeme {
	start, end := 0, len(ls)
	for start < end && ls[start].Type == WhitespaceToken {
		start++
	}
	for end > start && ls[end-1].Type == WhitespaceToken {
		end--
	}
	return ls[start:end]
}
