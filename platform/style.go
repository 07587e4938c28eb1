package platform

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/maruel/natural"

	"stylec/value"
)

// Style is a platform style object. Values are float64, string, bool, Style
// (nested record), []any (ordered list) or Call.
type Style map[string]any

// Pair is a single mapped property.
type Pair struct {
	Name  string
	Value any
}

// Set applies pairs in order. Nested records are merged field by field,
// anything else is replaced.
func (s Style) Set(pairs ...Pair) {
	for _, p := range pairs {
		s.set(p.Name, p.Value)
	}
}

func (s Style) set(name string, v any) {
	if in, ok := v.(Style); ok {
		if cur, ok := s[name].(Style); ok {
			cur = cur.Clone()
			cur.Merge(in)
			s[name] = cur
			return
		}
		v = in.Clone()
	}
	s[name] = v
}

// Merge applies every property of o over s, o wins.
func (s Style) Merge(o Style) {
	for _, k := range o.Keys() {
		s.set(k, o[k])
	}
}

// Clone returns deep copy of nested records. Lists and calls are shared,
// they are never modified after mapping.
func (s Style) Clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		if in, ok := v.(Style); ok {
			v = in.Clone()
		}
		out[k] = v
	}
	return out
}

// Keys returns property names in natural order.
func (s Style) Keys() []string {
	return naturalKeys(slices.Collect(maps.Keys(s)))
}

// Get returns value at dotted path, "borderWidth.top" looks into nested
// record.
func (s Style) Get(path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := s[head]
	if !ok || !nested {
		return v, ok
	}
	in, ok := v.(Style)
	if !ok {
		return nil, false
	}
	return in.Get(rest)
}

// Plain converts style into generic maps and slices. Calls become their JS
// text. Used by encoders which do not know about Style.
func (s Style) Plain() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case Style:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case Call:
		return t.String()
	}
	return v
}

// Call is an expression evaluated by the target runtime, for example
// scalePx2dp(10) or scaleVu2dp(10, 'vh').
type Call struct {
	Func string
	Args []any
}

func NewCall(fn string, args ...any) Call {
	return Call{Func: fn, Args: args}
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = FormatJS(a)
	}
	return c.Func + "(" + strings.Join(args, ", ") + ")"
}

// MarshalText lets text based encoders emit the call expression as a string.
func (c Call) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// FormatJS renders value as JS literal. Object keys are sorted naturally so
// output is stable.
func FormatJS(v any) string {
	var sb strings.Builder
	writeJS(&sb, v)
	return sb.String()
}

func writeJS(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case Style:
		writeObject(sb, t)
	case map[string]any:
		writeObject(sb, t)
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeJS(sb, e)
		}
		sb.WriteByte(']')
	case Call:
		sb.WriteString(t.String())
	case string:
		sb.WriteString(quoteJS(t))
	case float64:
		sb.WriteString(value.FormatNumber(t))
	case int:
		sb.WriteString(strconv.Itoa(t))
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case fmt.Stringer:
		sb.WriteString(quoteJS(t.String()))
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}

func writeObject(sb *strings.Builder, m map[string]any) {
	if len(m) == 0 {
		sb.WriteString("{}")
		return
	}
	sb.WriteString("{")
	for i, k := range naturalKeys(slices.Collect(maps.Keys(m))) {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(" ")
		if isIdent(k) {
			sb.WriteString(k)
		} else {
			sb.WriteString(quoteJS(k))
		}
		sb.WriteString(": ")
		writeJS(sb, m[k])
	}
	sb.WriteString(" }")
}

func quoteJS(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func naturalKeys(keys []string) []string {
	slices.SortFunc(keys, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return keys
}
