package markup

import (
	"strconv"
	"strings"
	"unicode"
)

// StaticClasses returns class names of a class attribute when they are known
// at compile time: a literal, or an expression which is only a concatenation
// of string literals. Anything else must be resolved by the runtime.
func StaticClasses(v AttrValue) ([]string, bool) {
	if !v.Expr {
		return strings.Fields(v.Text), true
	}
	s, ok := concatLiterals(v.Text)
	if !ok {
		return nil, false
	}
	return strings.Fields(s), true
}

// concatLiterals evaluates 'a' + "b" + `c` expressions.
func concatLiterals(expr string) (string, bool) {
	sc := scanner{src: expr}
	var sb strings.Builder
	for {
		sc.skipSpace()
		lit, ok := sc.stringLiteral()
		if !ok {
			return "", false
		}
		sb.WriteString(lit)
		sc.skipSpace()
		if sc.eof() {
			return sb.String(), true
		}
		if !sc.consume('+') {
			return "", false
		}
	}
}

// InlineCSS returns CSS declaration text of a style attribute: literal CSS
// text, a string literal expression, or an object literal with literal
// values ({height: '20px', flexGrow: 1}). Other expressions are dynamic.
func InlineCSS(v AttrValue) (string, bool) {
	if !v.Expr {
		return v.Text, true
	}
	sc := scanner{src: strings.TrimSpace(v.Text)}
	if lit, ok := sc.stringLiteral(); ok && sc.eof() {
		return lit, true
	}
	sc = scanner{src: strings.TrimSpace(v.Text)}
	return sc.objectLiteral()
}

// CallExpr is a function call with literal arguments inside a style object,
// scalePx2dp(10) for example.
type CallExpr struct {
	Func string
	Args []any
}

// StyleObject reads an object literal built only from literals: strings,
// numbers, booleans, null, nested objects, arrays and calls with literal
// arguments. Keys are kept as written, values are string, float64, bool,
// nil, map[string]any, []any or CallExpr. Styles emitted for a platform
// have this shape.
func StyleObject(v AttrValue) (map[string]any, bool) {
	if !v.Expr {
		return nil, false
	}
	sc := scanner{src: strings.TrimSpace(v.Text)}
	obj, ok := sc.object()
	if !ok || !sc.eof() {
		return nil, false
	}
	return obj, true
}

// style object properties which take plain numbers
var unitless = map[string]bool{
	"opacity":            true,
	"z-index":            true,
	"flex":               true,
	"flex-grow":          true,
	"flex-shrink":        true,
	"font-weight":        true,
	"line-height":        true,
	"order":              true,
	"aspect-ratio":       true,
	"-webkit-line-clamp": true,
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) skipSpace() {
	for !s.eof() && unicode.IsSpace(rune(s.src[s.pos])) {
		s.pos++
	}
}

func (s *scanner) consume(c byte) bool {
	if s.peek() == c {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) stringLiteral() (string, bool) {
	q := s.peek()
	if q != '\'' && q != '"' && q != '`' {
		return "", false
	}
	var sb strings.Builder
	for i := s.pos + 1; i < len(s.src); i++ {
		c := s.src[i]
		switch {
		case c == '\\' && i+1 < len(s.src):
			i++
			sb.WriteByte(s.src[i])
		case c == q:
			s.pos = i + 1
			return sb.String(), true
		case q == '`' && c == '$' && i+1 < len(s.src) && s.src[i+1] == '{':
			// template substitution
			return "", false
		default:
			sb.WriteByte(c)
		}
	}
	return "", false
}

func (s *scanner) identifier() (string, bool) {
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if c == '_' || c == '$' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || s.pos > start && c >= '0' && c <= '9' {
			s.pos++
			continue
		}
		break
	}
	return s.src[start:s.pos], s.pos > start
}

func (s *scanner) number() (string, bool) {
	start := s.pos
	if s.peek() == '-' || s.peek() == '+' {
		s.pos++
	}
	s.digits(true)
	if c := s.peek(); c == 'e' || c == 'E' {
		mark := s.pos
		s.pos++
		if s.peek() == '-' || s.peek() == '+' {
			s.pos++
		}
		if !s.digits(false) {
			s.pos = mark
		}
	}
	text := s.src[start:s.pos]
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		s.pos = start
		return "", false
	}
	return text, true
}

func (s *scanner) digits(dot bool) bool {
	start := s.pos
	for !s.eof() && (s.peek() >= '0' && s.peek() <= '9' || dot && s.peek() == '.') {
		s.pos++
	}
	return s.pos > start
}

func (s *scanner) object() (map[string]any, bool) {
	if !s.consume('{') {
		return nil, false
	}
	obj := make(map[string]any)
	for {
		s.skipSpace()
		if s.consume('}') {
			return obj, true
		}
		key, ok := s.stringLiteral()
		if !ok {
			key, ok = s.identifier()
		}
		if !ok {
			return nil, false
		}
		s.skipSpace()
		if !s.consume(':') {
			return nil, false
		}
		s.skipSpace()
		val, ok := s.literal()
		if !ok {
			return nil, false
		}
		obj[key] = val
		s.skipSpace()
		if !s.consume(',') {
			if !s.consume('}') {
				return nil, false
			}
			return obj, true
		}
	}
}

// list reads comma separated literals up to end, opening bracket is
// already consumed.
func (s *scanner) list(end byte) ([]any, bool) {
	items := []any{}
	for {
		s.skipSpace()
		if s.consume(end) {
			return items, true
		}
		v, ok := s.literal()
		if !ok {
			return nil, false
		}
		items = append(items, v)
		s.skipSpace()
		if !s.consume(',') {
			if !s.consume(end) {
				return nil, false
			}
			return items, true
		}
	}
}

func (s *scanner) literal() (any, bool) {
	switch s.peek() {
	case '{':
		obj, ok := s.object()
		if !ok {
			return nil, false
		}
		return obj, true
	case '[':
		s.pos++
		items, ok := s.list(']')
		if !ok {
			return nil, false
		}
		return items, true
	}
	if lit, ok := s.stringLiteral(); ok {
		return lit, true
	}
	if num, ok := s.number(); ok {
		f, _ := strconv.ParseFloat(num, 64)
		return f, true
	}
	name, ok := s.identifier()
	if !ok {
		return nil, false
	}
	switch name {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	}
	s.skipSpace()
	if !s.consume('(') {
		// reference to a runtime variable
		return nil, false
	}
	args, ok := s.list(')')
	if !ok {
		return nil, false
	}
	return CallExpr{Func: name, Args: args}, true
}

func (s *scanner) objectLiteral() (string, bool) {
	if !s.consume('{') {
		return "", false
	}
	var decls []string
	for {
		s.skipSpace()
		if s.consume('}') {
			break
		}
		key, ok := s.stringLiteral()
		if !ok {
			key, ok = s.identifier()
		}
		if !ok {
			return "", false
		}
		property := Kebab(key)
		s.skipSpace()
		if !s.consume(':') {
			return "", false
		}
		s.skipSpace()
		var val string
		if lit, ok := s.stringLiteral(); ok {
			val = lit
		} else if num, ok := s.number(); ok {
			val = num
			if !unitless[property] && num != "0" {
				val += "px"
			}
		} else {
			return "", false
		}
		decls = append(decls, property+": "+val)
		s.skipSpace()
		if !s.consume(',') {
			s.skipSpace()
			if !s.consume('}') {
				return "", false
			}
			break
		}
	}
	s.skipSpace()
	if !s.eof() {
		return "", false
	}
	return strings.Join(decls, "; "), true
}

// Kebab converts a style object key to CSS property name: backgroundColor
// becomes background-color, WebkitLineClamp becomes -webkit-line-clamp.
func Kebab(key string) string {
	if strings.Contains(key, "-") {
		return strings.ToLower(key)
	}
	var sb strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			sb.WriteByte('-')
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if i == 0 && strings.HasPrefix(key, "ms") && len(key) > 2 && unicode.IsUpper(rune(key[2])) {
			sb.WriteByte('-')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
