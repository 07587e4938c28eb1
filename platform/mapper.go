package platform

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"stylec/common"
	"stylec/value"
)

// Property is a typed declaration ready for mapping.
type Property struct {
	Name  string
	Value value.Value
}

// Mapper converts typed CSS declarations into platform style properties
// according to its Config.
type Mapper struct {
	cfg        *Config
	log        *zap.Logger
	animations map[string]*Animation
	mapped     map[string][]any // platform keyframes by animation name
}

func NewMapper(cfg *Config, log *zap.Logger) *Mapper {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg == nil {
		cfg = Lookup(common.PlatformReactNative)
	}
	return &Mapper{cfg: cfg, log: log.Named("mapper"), animations: make(map[string]*Animation), mapped: make(map[string][]any)}
}

func (m *Mapper) Config() *Config { return m.cfg }

// Build maps declarations in order into a single style object, later
// properties override earlier ones.
func (m *Mapper) Build(props []Property) (Style, common.Diagnostics) {
	var diags common.Diagnostics
	style := make(Style, len(props))
	for _, p := range props {
		pairs, ds := m.Map(p.Name, p.Value)
		style.Set(pairs...)
		diags = append(diags, ds...)
	}
	return style, diags
}

// Map converts a single declaration. Unknown properties and values which
// cannot be converted are passed through as CSS text with a warning.
func (m *Mapper) Map(property string, v value.Value) ([]Pair, common.Diagnostics) {
	var diags common.Diagnostics
	if strings.HasPrefix(property, "--") {
		return nil, nil
	}
	property = strings.ToLower(property)

	if v.HasUnresolved() {
		reason := v.Reason
		if reason == "" {
			reason = "value could not be resolved"
		}
		diags.Warn(common.KindUnresolvedValue, property, "%s, kept as %q", reason, v.String())
		return []Pair{{Name: m.name(property), Value: v.String()}}, diags
	}
	if v.Kind == value.KindKeyword && globalKeywords[strings.ToLower(v.Str)] && property != "flex" {
		return []Pair{{Name: m.name(property), Value: v.Str}}, nil
	}

	if h, ok := shorthands[property]; ok {
		return h(m, property, v, &diags), diags
	}
	if e, ok := edges[property]; ok {
		return m.edge(property, e, v, &diags), diags
	}
	if k, ok := longhands[property]; ok {
		out, ok := m.longhand(k, v)
		if !ok {
			return m.invalid(property, v, &diags), diags
		}
		return []Pair{m.constrained(property, out)}, diags
	}

	diags.Warn(common.KindUnsupportedProperty, property, "property is not supported by %s, passed through", m.cfg.Platform)
	return []Pair{{Name: m.name(property), Value: cssText(v)}}, diags
}

// values valid for every property, emitted verbatim
var globalKeywords = map[string]bool{
	"inherit": true,
	"initial": true,
	"unset":   true,
}

type valueKind int

const (
	kindLength valueKind = iota
	kindColor
	kindNumber
	kindKeyword
	kindFontWeight
	kindLineHeight
	kindFontFamily
	kindString
	kindAspect
	kindInteger
)

var longhands = map[string]valueKind{
	"width":          kindLength,
	"height":         kindLength,
	"min-width":      kindLength,
	"min-height":     kindLength,
	"max-width":      kindLength,
	"max-height":     kindLength,
	"top":            kindLength,
	"right":          kindLength,
	"bottom":         kindLength,
	"left":           kindLength,
	"margin-top":     kindLength,
	"margin-right":   kindLength,
	"margin-bottom":  kindLength,
	"margin-left":    kindLength,
	"padding-top":    kindLength,
	"padding-right":  kindLength,
	"padding-bottom": kindLength,
	"padding-left":   kindLength,
	"flex-basis":     kindLength,
	"row-gap":        kindLength,
	"column-gap":     kindLength,
	"font-size":      kindLength,
	"letter-spacing": kindLength,
	"text-indent":    kindLength,

	"color":                 kindColor,
	"background-color":      kindColor,
	"text-decoration-color": kindColor,
	"tint-color":            kindColor,

	"opacity":            kindNumber,
	"flex-grow":          kindNumber,
	"flex-shrink":        kindNumber,
	"z-index":            kindInteger,
	"-webkit-line-clamp": kindInteger,
	"aspect-ratio":       kindAspect,

	"display":               kindKeyword,
	"position":              kindKeyword,
	"flex-direction":        kindKeyword,
	"flex-wrap":             kindKeyword,
	"justify-content":       kindKeyword,
	"align-items":           kindKeyword,
	"align-self":            kindKeyword,
	"align-content":         kindKeyword,
	"overflow":              kindKeyword,
	"visibility":            kindKeyword,
	"box-sizing":            kindKeyword,
	"pointer-events":        kindKeyword,
	"backface-visibility":   kindKeyword,
	"direction":             kindKeyword,
	"object-fit":            kindKeyword,
	"text-align":            kindKeyword,
	"vertical-align":        kindKeyword,
	"font-style":            kindKeyword,
	"text-transform":        kindKeyword,
	"text-overflow":         kindKeyword,
	"white-space":           kindKeyword,
	"word-break":            kindKeyword,
	"user-select":           kindKeyword,
	"text-decoration-line":  kindKeyword,
	"text-decoration-style": kindKeyword,

	"font-weight": kindFontWeight,
	"line-height": kindLineHeight,
	"font-family": kindFontFamily,
	"content":     kindString,
}

// constraint sizes nest into a record on platforms which have one
var constraints = map[string]bool{
	"min-width":  true,
	"min-height": true,
	"max-width":  true,
	"max-height": true,
}

type edgeField struct {
	record string
	field  string
	kind   valueKind
}

var edges = map[string]edgeField{
	"border-top-width":    {"borderWidth", "top", kindLength},
	"border-right-width":  {"borderWidth", "right", kindLength},
	"border-bottom-width": {"borderWidth", "bottom", kindLength},
	"border-left-width":   {"borderWidth", "left", kindLength},
	"border-top-color":    {"borderColor", "top", kindColor},
	"border-right-color":  {"borderColor", "right", kindColor},
	"border-bottom-color": {"borderColor", "bottom", kindColor},
	"border-left-color":   {"borderColor", "left", kindColor},
	"border-top-style":    {"borderStyle", "top", kindKeyword},
	"border-right-style":  {"borderStyle", "right", kindKeyword},
	"border-bottom-style": {"borderStyle", "bottom", kindKeyword},
	"border-left-style":   {"borderStyle", "left", kindKeyword},

	"border-top-left-radius":     {"borderRadius", "topLeft", kindLength},
	"border-top-right-radius":    {"borderRadius", "topRight", kindLength},
	"border-bottom-right-radius": {"borderRadius", "bottomRight", kindLength},
	"border-bottom-left-radius":  {"borderRadius", "bottomLeft", kindLength},
}

func (m *Mapper) edge(property string, e edgeField, v value.Value, diags *common.Diagnostics) []Pair {
	out, ok := m.longhand(e.kind, v)
	if !ok {
		return m.invalid(property, v, diags)
	}
	return []Pair{m.edgePair(property, e, out)}
}

func (m *Mapper) edgePair(property string, e edgeField, out any) Pair {
	if m.cfg.Shape == ShapeNested {
		return Pair{Name: e.record, Value: Style{e.field: out}}
	}
	return Pair{Name: m.name(property), Value: out}
}

func (m *Mapper) constrained(property string, out any) Pair {
	if m.cfg.ConstraintSize && constraints[property] {
		return Pair{Name: "constraintSize", Value: Style{camel(property): out}}
	}
	return Pair{Name: m.name(property), Value: out}
}

func (m *Mapper) longhand(k valueKind, v value.Value) (any, bool) {
	switch k {
	case kindLength:
		return m.Length(v)
	case kindColor:
		return m.Color(v)
	case kindNumber:
		if v.Kind == value.KindNumber {
			return v.Num, true
		}
		if v.Kind == value.KindPercentage {
			return v.Num / 100, true
		}
	case kindInteger:
		if v.Kind == value.KindNumber {
			return math.Trunc(v.Num), true
		}
		if v.Kind == value.KindKeyword {
			return v.Str, true
		}
	case kindKeyword:
		if v.Kind == value.KindKeyword {
			return v.Str, true
		}
	case kindFontWeight:
		return m.fontWeight(v)
	case kindLineHeight:
		if v.Kind == value.KindNumber {
			return v.Num, true
		}
		return m.Length(v)
	case kindFontFamily:
		var names []string
		for _, g := range v.Groups() {
			names = append(names, plainText(g))
		}
		return strings.Join(names, ", "), true
	case kindString:
		return plainText(v), true
	case kindAspect:
		return aspect(v)
	}
	return nil, false
}

// Length converts a length, percentage or number according to unit policy
// of the platform.
func (m *Mapper) Length(v value.Value) (any, bool) {
	switch v.Kind {
	case value.KindNumber:
		return v.Num, true
	case value.KindPercentage:
		return value.FormatNumber(v.Num) + "%", true
	case value.KindKeyword:
		return v.Str, true
	case value.KindFunction:
		if v.IsDeferredCalc() {
			return v.String(), true
		}
		return nil, false
	case value.KindLength:
	default:
		return nil, false
	}

	switch u := v.Unit; {
	case u == value.UnitPx || u == value.UnitCh:
		return m.px(v.Num), true
	case u == value.UnitPX:
		if m.cfg.UnscaledSuffix == "" {
			return v.Num, true
		}
		return value.FormatNumber(v.Num) + m.cfg.UnscaledSuffix, true
	case u == value.UnitRem || u == value.UnitEm:
		return m.px(v.Num * m.rootFontSize()), true
	case u.IsViewport():
		return m.viewport(v.Num, u), true
	case u == value.UnitDeg:
		return value.FormatNumber(v.Num) + "deg", true
	case v.IsTime():
		ms, _ := v.Millis()
		return ms, true
	}
	return nil, false
}

func (m *Mapper) rootFontSize() float64 {
	if m.cfg.RootFontSize > 0 {
		return m.cfg.RootFontSize
	}
	return value.DefaultRootFontSize
}

func (m *Mapper) px(n float64) any {
	if m.cfg.PxMode == PxCall && n != 0 {
		return NewCall(m.cfg.PxFunc, n)
	}
	return n
}

func (m *Mapper) viewport(n float64, u value.Unit) any {
	switch m.cfg.ViewportMode {
	case ViewportCall:
		return NewCall(m.cfg.ViewportFunc, n, string(u))
	case ViewportAbsolute:
		w, h := m.cfg.ViewportWidth, m.cfg.ViewportHeight
		var basis float64
		switch u {
		case value.UnitVw:
			basis = w
		case value.UnitVh:
			basis = h
		case value.UnitVmin:
			basis = min(w, h)
		case value.UnitVmax:
			basis = max(w, h)
		}
		return m.px(n * basis / 100)
	}
	return value.FormatNumber(n) + string(u)
}

// Color converts a color value to the platform color format.
func (m *Mapper) Color(v value.Value) (any, bool) {
	switch v.Kind {
	case value.KindColor:
		if m.cfg.ColorFormat == ColorARGB {
			return v.Color.ARGB(), true
		}
		return v.Color.String(), true
	case value.KindKeyword:
		return v.Str, true
	}
	return nil, false
}

var fontWeights = map[string]float64{
	"normal": 400,
	"bold":   700,
}

func (m *Mapper) fontWeight(v value.Value) (any, bool) {
	switch v.Kind {
	case value.KindNumber:
		if m.cfg.NumericWeight {
			return v.Num, true
		}
		return value.FormatNumber(v.Num), true
	case value.KindKeyword:
		if n, ok := fontWeights[strings.ToLower(v.Str)]; ok && m.cfg.NumericWeight {
			return n, true
		}
		return v.Str, true
	}
	return nil, false
}

func aspect(v value.Value) (any, bool) {
	switch v.Kind {
	case value.KindNumber:
		return v.Num, true
	case value.KindList:
		// 16 / 9
		items := v.Items()
		if len(items) == 3 && items[1].IsKeyword("/") && items[0].Kind == value.KindNumber && items[2].Kind == value.KindNumber && items[2].Num != 0 {
			return items[0].Num / items[2].Num, true
		}
	case value.KindKeyword:
		return v.Str, true
	}
	return nil, false
}

func (m *Mapper) invalid(property string, v value.Value, diags *common.Diagnostics) []Pair {
	diags.Warn(common.KindUnresolvedValue, property, "unexpected value %s, passed through", v.String())
	return []Pair{{Name: m.name(property), Value: cssText(v)}}
}

// name returns emitted name of a CSS property.
func (m *Mapper) name(property string) string {
	n := camel(property)
	if o, ok := m.cfg.Names[n]; ok {
		return o
	}
	return n
}

// camel converts CSS property name to camelCase, vendor prefixes keep
// leading capital: -webkit-line-clamp becomes WebkitLineClamp, except -ms-
// which becomes ms.
func camel(property string) string {
	var sb strings.Builder
	upper := false
	for i, r := range property {
		if r == '-' {
			upper = i > 0 || !strings.HasPrefix(property, "-ms-")
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// cssText renders value back into CSS text for pass through.
func cssText(v value.Value) any {
	switch v.Kind {
	case value.KindNumber:
		return v.Num
	case value.KindString:
		return v.Str
	}
	return v.String()
}

// plainText renders keywords and strings without quotes.
func plainText(v value.Value) string {
	switch v.Kind {
	case value.KindString, value.KindKeyword, value.KindUnresolved:
		return v.Str
	case value.KindList:
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			parts[i] = plainText(a)
		}
		return strings.Join(parts, v.Sep.String())
	}
	return v.String()
}
