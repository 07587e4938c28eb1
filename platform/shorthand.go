package platform

import (
	"slices"
	"strings"

	"stylec/common"
	"stylec/value"
)

type shorthandFunc func(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair

// filled in init, handlers may map keyframe declarations through Map
var shorthands map[string]shorthandFunc

func init() {
	shorthands = map[string]shorthandFunc{
		"margin":  boxShorthand("margin-top", "margin-right", "margin-bottom", "margin-left"),
		"padding": boxShorthand("padding-top", "padding-right", "padding-bottom", "padding-left"),
		"inset":   boxShorthand("top", "right", "bottom", "left"),
		"gap":     gapShorthand,

		"flex":      flexShorthand,
		"flex-flow": flexFlowShorthand,

		"border":        borderShorthand,
		"border-top":    borderSideShorthand,
		"border-right":  borderSideShorthand,
		"border-bottom": borderSideShorthand,
		"border-left":   borderSideShorthand,
		"border-width":  borderPartShorthand("width", kindLength),
		"border-style":  borderPartShorthand("style", kindKeyword),
		"border-color":  borderPartShorthand("color", kindColor),
		"border-radius": borderRadiusShorthand,

		"text-decoration": textDecorationShorthand,
		"box-shadow":      shadowShorthand,
		"text-shadow":     shadowShorthand,

		"background":          backgroundShorthand,
		"background-image":    backgroundImage,
		"background-size":     backgroundSize,
		"background-position": backgroundPosition,
		"background-repeat":   backgroundRepeat,

		"transform":        transformProperty,
		"transform-origin": transformOrigin,

		"animation":                 animationShorthand,
		"animation-name":            animationLonghand,
		"animation-duration":        animationLonghand,
		"animation-delay":           animationLonghand,
		"animation-iteration-count": animationLonghand,
		"animation-timing-function": animationLonghand,
	}
}

// expand4 applies CSS 1 to 4 value rule and returns top, right, bottom, left.
func expand4(items []value.Value) ([4]value.Value, bool) {
	var out [4]value.Value
	switch len(items) {
	case 1:
		out = [4]value.Value{items[0], items[0], items[0], items[0]}
	case 2:
		out = [4]value.Value{items[0], items[1], items[0], items[1]}
	case 3:
		out = [4]value.Value{items[0], items[1], items[2], items[1]}
	case 4:
		out = [4]value.Value{items[0], items[1], items[2], items[3]}
	default:
		return out, false
	}
	return out, true
}

func boxShorthand(longhands ...string) shorthandFunc {
	return func(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
		sides, ok := expand4(v.Items())
		if !ok {
			return m.invalid(property, v, diags)
		}
		out := make([]Pair, 0, 4)
		for i, side := range sides {
			n, ok := m.Length(side)
			if !ok {
				return m.invalid(property, v, diags)
			}
			out = append(out, Pair{Name: m.name(longhands[i]), Value: n})
		}
		return out
	}
}

func gapShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	items := v.Items()
	if len(items) > 2 {
		return m.invalid(property, v, diags)
	}
	row, ok := m.Length(items[0])
	if !ok {
		return m.invalid(property, v, diags)
	}
	col := row
	if len(items) == 2 {
		if col, ok = m.Length(items[1]); !ok {
			return m.invalid(property, v, diags)
		}
	}
	return []Pair{{Name: m.name("row-gap"), Value: row}, {Name: m.name("column-gap"), Value: col}}
}

// flex: <grow> <shrink>? <basis>? with shrink 1 and basis 0% when omitted.
func flexShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	items := v.Items()
	var grow, shrink float64 = 1, 1
	basis := value.Percent(0)

	isNum := func(x value.Value) bool { return x.Kind == value.KindNumber }
	isBasis := func(x value.Value) bool {
		return x.Kind == value.KindLength || x.Kind == value.KindPercentage || x.IsKeyword("auto") || x.IsKeyword("content") || x.IsDeferredCalc()
	}

	switch {
	case len(items) == 1 && items[0].IsKeyword("none"):
		grow, shrink, basis = 0, 0, value.Keyword("auto")
	case len(items) == 1 && items[0].IsKeyword("auto"):
		basis = value.Keyword("auto")
	case len(items) == 1 && items[0].IsKeyword("initial"):
		grow, basis = 0, value.Keyword("auto")
	case len(items) == 1 && isNum(items[0]):
		grow = items[0].Num
	case len(items) == 1 && isBasis(items[0]):
		basis = items[0]
	case len(items) == 2 && isNum(items[0]) && isNum(items[1]):
		grow, shrink = items[0].Num, items[1].Num
	case len(items) == 2 && isNum(items[0]) && isBasis(items[1]):
		grow, basis = items[0].Num, items[1]
	case len(items) == 3 && isNum(items[0]) && isNum(items[1]) && isBasis(items[2]):
		grow, shrink, basis = items[0].Num, items[1].Num, items[2]
	default:
		return m.invalid(property, v, diags)
	}
	b, _ := m.Length(basis)
	return []Pair{
		{Name: m.name("flex-grow"), Value: grow},
		{Name: m.name("flex-shrink"), Value: shrink},
		{Name: m.name("flex-basis"), Value: b},
	}
}

var flexDirections = map[string]bool{"row": true, "row-reverse": true, "column": true, "column-reverse": true}
var flexWraps = map[string]bool{"nowrap": true, "wrap": true, "wrap-reverse": true}

func flexFlowShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	var out []Pair
	for _, it := range v.Items() {
		kw := strings.ToLower(it.Str)
		switch {
		case it.Kind == value.KindKeyword && flexDirections[kw]:
			out = append(out, Pair{Name: m.name("flex-direction"), Value: kw})
		case it.Kind == value.KindKeyword && flexWraps[kw]:
			out = append(out, Pair{Name: m.name("flex-wrap"), Value: kw})
		default:
			return m.invalid(property, v, diags)
		}
	}
	return out
}

var borderStyles = map[string]bool{
	"none": true, "hidden": true, "solid": true, "dashed": true, "dotted": true,
	"double": true, "groove": true, "ridge": true, "inset": true, "outset": true,
}

var borderWidths = map[string]float64{"thin": 1, "medium": 3, "thick": 5}

// splitBorder sorts components of border shorthand into width, style and
// color, in any order.
func splitBorder(v value.Value) (width, style, color *value.Value, ok bool) {
	for _, it := range v.Items() {
		switch {
		case it.Kind == value.KindColor || it.IsKeyword("currentColor") || it.IsKeyword("transparent"):
			color = &it
		case it.Kind == value.KindKeyword && borderStyles[strings.ToLower(it.Str)]:
			style = &it
		case it.Kind == value.KindKeyword:
			n, known := borderWidths[strings.ToLower(it.Str)]
			if !known {
				return nil, nil, nil, false
			}
			w := value.Length(n, value.UnitPx)
			width = &w
		case it.IsNumeric() || it.IsDeferredCalc():
			width = &it
		default:
			return nil, nil, nil, false
		}
	}
	return width, style, color, true
}

var sideNames = [4]string{"top", "right", "bottom", "left"}

// sides emits one border part for every side.
func (m *Mapper) sides(part string, vals [4]value.Value) ([]Pair, bool) {
	out := make([]Pair, 0, 4)
	for i, side := range sideNames {
		property := "border-" + side + "-" + part
		e := edges[property]
		n, ok := m.longhand(e.kind, vals[i])
		if !ok {
			return nil, false
		}
		out = append(out, m.edgePair(property, e, n))
	}
	return out, true
}

func same(v value.Value) [4]value.Value { return [4]value.Value{v, v, v, v} }

type borderPart struct {
	part string
	val  *value.Value
}

func borderShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	width, style, color, ok := splitBorder(v)
	if !ok {
		return m.invalid(property, v, diags)
	}
	var out []Pair
	for _, p := range []borderPart{{"width", width}, {"style", style}, {"color", color}} {
		if p.val == nil {
			continue
		}
		pairs, ok := m.sides(p.part, same(*p.val))
		if !ok {
			return m.invalid(property, v, diags)
		}
		out = append(out, pairs...)
	}
	return out
}

func borderSideShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	width, style, color, ok := splitBorder(v)
	if !ok {
		return m.invalid(property, v, diags)
	}
	var out []Pair
	for _, p := range []borderPart{{"width", width}, {"style", style}, {"color", color}} {
		if p.val == nil {
			continue
		}
		longhand := property + "-" + p.part
		e := edges[longhand]
		n, ok := m.longhand(e.kind, *p.val)
		if !ok {
			return m.invalid(property, v, diags)
		}
		out = append(out, m.edgePair(longhand, e, n))
	}
	return out
}

func borderPartShorthand(part string, kind valueKind) shorthandFunc {
	return func(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
		items := slices.Clone(v.Items())
		if kind == kindLength {
			for i, it := range items {
				if n, ok := borderWidths[strings.ToLower(it.Str)]; ok && it.Kind == value.KindKeyword {
					items[i] = value.Length(n, value.UnitPx)
				}
			}
		}
		vals, ok := expand4(items)
		if !ok {
			return m.invalid(property, v, diags)
		}
		out, ok := m.sides(part, vals)
		if !ok {
			return m.invalid(property, v, diags)
		}
		return out
	}
}

var corners = [4]string{
	"border-top-left-radius",
	"border-top-right-radius",
	"border-bottom-right-radius",
	"border-bottom-left-radius",
}

// ExpandBorderRadius returns top-left, top-right, bottom-right and
// bottom-left radii of a 1 to 4 value border-radius.
func ExpandBorderRadius(items []value.Value) ([4]value.Value, bool) {
	// same positional rule as edges: a b c reads as tl=a, tr=bl=b, br=c
	return expand4(items)
}

func borderRadiusShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	items := v.Items()
	for i, it := range items {
		if it.IsKeyword("/") {
			diags.Warn(common.KindUnsupportedProperty, property, "elliptical radii are not supported, %s dropped",
				value.List(value.SepSpace, items[i+1:]...).String())
			items = items[:i]
			break
		}
	}
	radii, ok := ExpandBorderRadius(items)
	if !ok {
		return m.invalid(property, v, diags)
	}
	out := make([]Pair, 0, 4)
	for i, corner := range corners {
		n, ok := m.Length(radii[i])
		if !ok {
			return m.invalid(property, v, diags)
		}
		out = append(out, m.edgePair(corner, edges[corner], n))
	}
	return out
}

// InverseBorderRadius returns the shortest border-radius shorthand for the
// four corners given in top-left, top-right, bottom-right, bottom-left order.
func InverseBorderRadius(tl, tr, br, bl string) string {
	switch {
	case tl == tr && tr == br && br == bl:
		return tl
	case tl == br && tr == bl:
		return tl + " " + tr
	case tr == bl:
		return tl + " " + tr + " " + br
	}
	return tl + " " + tr + " " + br + " " + bl
}

var decorationLines = map[string]bool{"none": true, "underline": true, "overline": true, "line-through": true}
var decorationStyles = map[string]bool{"solid": true, "double": true, "dotted": true, "dashed": true, "wavy": true}

func textDecorationShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	var lines []string
	var style, color any
	for _, it := range v.Items() {
		kw := strings.ToLower(it.Str)
		switch {
		case it.Kind == value.KindKeyword && decorationLines[kw]:
			lines = append(lines, kw)
		case it.Kind == value.KindKeyword && decorationStyles[kw]:
			style = kw
		default:
			c, ok := m.Color(it)
			if !ok {
				return m.invalid(property, v, diags)
			}
			color = c
		}
	}

	if m.cfg.Shape == ShapeNested {
		rec := Style{}
		if len(lines) > 0 {
			rec["type"] = strings.Join(lines, " ")
		}
		if style != nil {
			rec["style"] = style
		}
		if color != nil {
			rec["color"] = color
		}
		return []Pair{{Name: "textDecoration", Value: rec}}
	}

	var out []Pair
	if len(lines) > 0 {
		out = append(out, Pair{Name: m.name("text-decoration-line"), Value: strings.Join(lines, " ")})
	}
	if style != nil {
		out = append(out, Pair{Name: m.name("text-decoration-style"), Value: style})
	}
	if color != nil {
		out = append(out, Pair{Name: m.name("text-decoration-color"), Value: color})
	}
	return out
}

// shadow: <offset-x> <offset-y> <blur>? <spread>? <color>? inset?
func shadowShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	groups := v.Groups()
	if len(groups) > 1 {
		diags.Warn(common.KindUnsupportedProperty, property, "only first of %d shadows is used", len(groups))
	}
	if groups[0].IsKeyword("none") {
		return nil
	}
	var lengths []any
	var color any
	for _, it := range groups[0].Items() {
		switch {
		case it.IsKeyword("inset"):
			diags.Warn(common.KindUnsupportedProperty, property, "inset shadows are not supported, ignored")
			return nil
		case it.IsNumeric() || it.IsDeferredCalc():
			n, _ := m.Length(it)
			lengths = append(lengths, n)
		default:
			c, ok := m.Color(it)
			if !ok {
				return m.invalid(property, v, diags)
			}
			color = c
		}
	}
	if len(lengths) < 2 || len(lengths) > 4 {
		return m.invalid(property, v, diags)
	}
	if len(lengths) == 4 {
		diags.Warn(common.KindUnsupportedProperty, property, "shadow spread is not supported, ignored")
	}
	var radius any = 0.0
	if len(lengths) > 2 {
		radius = lengths[2]
	}

	prefix := "shadow"
	if property == "text-shadow" {
		prefix = "textShadow"
	}
	if m.cfg.Shape == ShapeNested {
		rec := Style{"offsetX": lengths[0], "offsetY": lengths[1], "radius": radius}
		if color != nil {
			rec["color"] = color
		}
		return []Pair{{Name: m.name(property), Value: rec}}
	}
	out := []Pair{
		{Name: prefix + "Offset", Value: Style{"width": lengths[0], "height": lengths[1]}},
		{Name: prefix + "Radius", Value: radius},
	}
	if color != nil {
		out = append(out, Pair{Name: prefix + "Color", Value: color})
	}
	if prefix == "shadow" {
		out = append(out, Pair{Name: "shadowOpacity", Value: 1.0})
	}
	return out
}
