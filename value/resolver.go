package value

import (
	"math"
	"strconv"
	"strings"

	"stylec/css"
)

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithRootFontSize sets px size of 1rem used when folding calc() expressions.
func WithRootFontSize(px float64) ResolverOption {
	return func(r *Resolver) {
		if px > 0 {
			r.rootFontSize = px
		}
	}
}

// Resolver turns declaration tokens into canonical values. It substitutes
// custom properties from its variable table, which may be nil.
type Resolver struct {
	vars         *VarTable
	rootFontSize float64
}

// DefaultRootFontSize is px size of 1rem and 1em.
const DefaultRootFontSize = 16

func NewResolver(vars *VarTable, opts ...ResolverOption) *Resolver {
	r := &Resolver{vars: vars, rootFontSize: DefaultRootFontSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// properties whose identifiers are names, never color keywords
var nameProperties = map[string]bool{
	"font-family":         true,
	"animation-name":      true,
	"transition-property": true,
	"will-change":         true,
	"content":             true,
	"grid-area":           true,
	"animation":           true,
}

// Resolve types the value of a declaration. Error is returned only for
// variable cycles, every other problem produces Unresolved value carrying
// raw text and a reason.
func (r *Resolver) Resolve(property string, tokens css.Tokens) (Value, error) {
	tokens = tokens.Trim()
	if hasVar(tokens) {
		raw := tokens.String()
		subst, reason, err := r.vars.substitute(tokens, nil)
		if err != nil {
			return Unresolved(raw, err.Error()), err
		}
		if reason != "" {
			return Unresolved(raw, reason), nil
		}
		tokens = subst.Trim()
	}
	return r.typed(property, tokens)
}

func (r *Resolver) typed(property string, tokens css.Tokens) (Value, error) {
	if len(tokens) == 0 {
		return Unresolved("", "empty value"), nil
	}
	groups := splitTopLevel(tokens)
	vals := make([]Value, 0, len(groups))
	for _, g := range groups {
		vals = append(vals, r.group(property, g))
	}
	if len(vals) == 1 {
		return vals[0], nil
	}
	return List(SepComma, vals...), nil
}

// group types space separated components.
func (r *Resolver) group(property string, toks css.Tokens) Value {
	var items []Value
	for i := 0; i < len(toks); {
		if toks[i].IsWhitespace() {
			i++
			continue
		}
		v, next := r.component(property, toks, i)
		items = append(items, v)
		i = next
	}
	switch len(items) {
	case 0:
		return Unresolved("", "empty value")
	case 1:
		return items[0]
	}
	return List(SepSpace, items...)
}

// component types a single component value starting at toks[i] and returns
// index of the next token.
func (r *Resolver) component(property string, toks css.Tokens, i int) (Value, int) {
	t := toks[i]
	switch t.Type {
	case css.NumberToken:
		n, err := strconv.ParseFloat(t.Data, 64)
		if err != nil {
			return Unresolved(t.Data, "invalid number"), i + 1
		}
		return Number(n), i + 1
	case css.PercentageToken:
		n, err := strconv.ParseFloat(strings.TrimSuffix(t.Data, "%"), 64)
		if err != nil {
			return Unresolved(t.Data, "invalid percentage"), i + 1
		}
		return Percent(n), i + 1
	case css.DimensionToken:
		return ParseDimension(t.Data), i + 1
	case css.HashToken:
		if c, ok := ParseHex(t.Data); ok {
			return ColorOf(c), i + 1
		}
		return Unresolved(t.Data, "invalid color"), i + 1
	case css.IdentToken:
		return r.ident(property, t.Data), i + 1
	case css.CustomPropNameToken:
		return Keyword(t.Data), i + 1
	case css.StringToken:
		return String(unquote(t.Data)), i + 1
	case css.URLToken:
		inner := strings.TrimSpace(t.Data[strings.IndexByte(t.Data, '(')+1 : len(t.Data)-1])
		return Func("url", String(unquote(inner))), i + 1
	case css.FunctionToken:
		end := matchParen(toks, i)
		if end < 0 {
			return Unresolved(toks[i:].String(), "unbalanced parenthesis"), len(toks)
		}
		return r.function(property, t.Data, toks[i+1:end], toks[i:end+1].String()), end + 1
	case css.DelimToken:
		if t.Data == "/" {
			return Keyword("/"), i + 1
		}
	}
	return Unresolved(t.Data, "unexpected token"), i + 1
}

func (r *Resolver) ident(property, s string) Value {
	if strings.EqualFold(s, "currentcolor") {
		return Keyword("currentColor")
	}
	if !nameProperties[property] {
		if c, ok := NamedColor(s); ok {
			return ColorOf(c)
		}
	}
	return Keyword(s)
}

// canonical spelling of supported functions
var knownFunctions = map[string]string{
	"translate":   "translate",
	"translatex":  "translateX",
	"translatey":  "translateY",
	"translatez":  "translateZ",
	"translate3d": "translate3d",
	"scale":       "scale",
	"scalex":      "scaleX",
	"scaley":      "scaleY",
	"scalez":      "scaleZ",
	"scale3d":     "scale3d",
	"rotate":      "rotate",
	"rotatex":     "rotateX",
	"rotatey":     "rotateY",
	"rotatez":     "rotateZ",
	"rotate3d":    "rotate3d",
	"skew":        "skew",
	"skewx":       "skewX",
	"skewy":       "skewY",
	"matrix":      "matrix",
	"matrix3d":    "matrix3d",
	"perspective": "perspective",

	"linear-gradient":           "linear-gradient",
	"repeating-linear-gradient": "repeating-linear-gradient",
	"radial-gradient":           "radial-gradient",
	"repeating-radial-gradient": "repeating-radial-gradient",

	"cubic-bezier": "cubic-bezier",
	"steps":        "steps",
}

func (r *Resolver) function(property, token string, inner css.Tokens, raw string) Value {
	name := strings.ToLower(strings.TrimSuffix(token, "("))
	switch name {
	case "calc", "-webkit-calc":
		return r.calc(inner, raw)
	case "rgb", "rgba":
		return r.rgb(inner, raw)
	case "hsl", "hsla":
		return r.hsl(inner, raw)
	case "url":
		if in := inner.Trim(); len(in) == 1 && in[0].Type == css.StringToken {
			return Func("url", String(unquote(in[0].Data)))
		}
		return Func("url", String(inner.String()))
	}
	canonical, ok := knownFunctions[name]
	if !ok {
		return Unresolved(raw, "unsupported function "+name+"()")
	}
	groups := splitTopLevel(inner)
	args := make([]Value, 0, len(groups))
	for _, g := range groups {
		if len(g.Trim()) == 0 {
			continue
		}
		args = append(args, r.group(property, g))
	}
	return Func(canonical, args...)
}

// colorArgs types color function arguments, comma or space separated with
// optional "/ alpha".
func (r *Resolver) colorArgs(inner css.Tokens) []Value {
	var out []Value
	for i := 0; i < len(inner); {
		t := inner[i]
		if t.IsWhitespace() || t.Type == css.CommaToken || t.IsDelim("/") {
			i++
			continue
		}
		v, next := r.component("", inner, i)
		out = append(out, v)
		i = next
	}
	return out
}

func (r *Resolver) rgb(inner css.Tokens, raw string) Value {
	args := r.colorArgs(inner)
	if len(args) != 3 && len(args) != 4 {
		return Unresolved(raw, "rgb() expects 3 or 4 arguments")
	}
	var ch [3]uint8
	for i := range 3 {
		switch args[i].Kind {
		case KindNumber:
			ch[i] = uint8(math.Round(clamp(args[i].Num, 0, 255)))
		case KindPercentage:
			ch[i] = uint8(math.Round(clamp(args[i].Num*2.55, 0, 255)))
		default:
			return Unresolved(raw, "invalid color channel "+args[i].String())
		}
	}
	alpha, ok := alphaOf(args)
	if !ok {
		return Unresolved(raw, "invalid alpha "+args[3].String())
	}
	return ColorOf(Color{R: ch[0], G: ch[1], B: ch[2], A: alpha})
}

func (r *Resolver) hsl(inner css.Tokens, raw string) Value {
	args := r.colorArgs(inner)
	if len(args) != 3 && len(args) != 4 {
		return Unresolved(raw, "hsl() expects 3 or 4 arguments")
	}
	var h float64
	switch {
	case args[0].Kind == KindNumber || args[0].IsAngle():
		h = args[0].Num
	default:
		return Unresolved(raw, "invalid hue "+args[0].String())
	}
	var sl [2]float64
	for i := range 2 {
		a := args[i+1]
		if a.Kind != KindPercentage && a.Kind != KindNumber {
			return Unresolved(raw, "invalid saturation or lightness "+a.String())
		}
		sl[i] = a.Num / 100
	}
	alpha, ok := alphaOf(args)
	if !ok {
		return Unresolved(raw, "invalid alpha "+args[3].String())
	}
	return ColorOf(HSL(h, sl[0], sl[1], alpha))
}

func alphaOf(args []Value) (float64, bool) {
	if len(args) < 4 {
		return 1, true
	}
	switch a := args[3]; a.Kind {
	case KindNumber:
		return clamp(a.Num, 0, 1), true
	case KindPercentage:
		return clamp(a.Num/100, 0, 1), true
	}
	return 0, false
}

// length units convertible to px
var pxFactors = map[string]float64{
	"pt": 4.0 / 3.0,
	"pc": 16,
	"in": 96,
	"cm": 96 / 2.54,
	"mm": 96 / 25.4,
	"q":  96 / 101.6,
}

// ParseDimension types a dimension token such as "10px", ".5rem" or
// "0.25turn". Angles are normalized to degrees. Upper or mixed case "px" is
// kept as unscaled PX.
func ParseDimension(data string) Value {
	num, unit := splitDimension(data)
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || unit == "" {
		return Unresolved(data, "invalid dimension")
	}
	if unit == "px" {
		return Length(n, UnitPx)
	}
	if strings.EqualFold(unit, "px") {
		return Length(n, UnitPX)
	}
	switch lu := strings.ToLower(unit); lu {
	case "rem", "em", "vh", "vw", "vmin", "vmax", "ch", "deg", "s", "ms":
		return Length(n, Unit(lu))
	case "rad":
		return Length(n*180/math.Pi, UnitDeg)
	case "grad":
		return Length(n*0.9, UnitDeg)
	case "turn":
		return Length(n*360, UnitDeg)
	default:
		if f, ok := pxFactors[lu]; ok {
			return Length(n*f, UnitPx)
		}
	}
	return Unresolved(data, "unknown unit "+unit)
}

func splitDimension(s string) (string, string) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
		i++
	}
	// exponent only when followed by a digit, "1em" is not an exponent
	if i+1 < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if s[j] == '+' || s[j] == '-' {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	return s[:i], s[i:]
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// splitTopLevel splits tokens on commas outside of functions.
func splitTopLevel(tokens css.Tokens) []css.Tokens {
	var (
		out   []css.Tokens
		depth int
		start int
	)
	for i, t := range tokens {
		switch t.Type {
		case css.FunctionToken, css.LeftParenToken:
			depth++
		case css.RightParenToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				out = append(out, tokens[start:i].Trim())
				start = i + 1
			}
		}
	}
	return append(out, tokens[start:].Trim())
}

// HasUnresolved reports whether value or any nested value is unresolved.
func (v Value) HasUnresolved() bool {
	if v.Kind == KindUnresolved {
		return true
	}
	for _, a := range v.Args {
		if a.HasUnresolved() {
			return true
		}
	}
	return false
}
