package platform

import (
	"strings"

	"stylec/common"
	"stylec/value"
)

var backgroundRepeats = map[string]bool{
	"repeat": true, "no-repeat": true, "repeat-x": true, "repeat-y": true, "space": true, "round": true,
}

var positionKeywords = map[string]bool{"left": true, "right": true, "top": true, "bottom": true, "center": true}

type background struct {
	color    *value.Value
	image    *value.Value
	repeat   *value.Value
	position []value.Value
	size     []value.Value
}

// splitBackground sorts components of a single background layer:
// <color> || <image> || <repeat> || <position> [ / <size> ]
func splitBackground(v value.Value) (background, bool) {
	var bg background
	afterSlash := false
	for _, it := range v.Items() {
		kw := strings.ToLower(it.Str)
		switch {
		case it.IsKeyword("/"):
			if len(bg.position) == 0 {
				return bg, false
			}
			afterSlash = true
		case afterSlash && (it.IsNumeric() || it.IsKeyword("auto") || it.IsKeyword("cover") || it.IsKeyword("contain")):
			bg.size = append(bg.size, it)
		case it.Kind == value.KindColor || it.IsKeyword("currentColor") || it.IsKeyword("transparent"):
			bg.color = &it
		case it.IsFunc("url") || isGradient(it) || it.IsKeyword("none"):
			bg.image = &it
		case it.Kind == value.KindKeyword && backgroundRepeats[kw]:
			bg.repeat = &it
		case it.IsNumeric() || it.Kind == value.KindKeyword && positionKeywords[kw]:
			bg.position = append(bg.position, it)
		default:
			return bg, false
		}
	}
	return bg, true
}

func isGradient(v value.Value) bool {
	return v.Kind == value.KindFunction && strings.HasSuffix(v.Str, "-gradient")
}

func backgroundShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	groups := v.Groups()
	if len(groups) > 1 {
		diags.Warn(common.KindUnsupportedProperty, property, "only first of %d background layers is used", len(groups))
	}
	bg, ok := splitBackground(groups[0])
	if !ok {
		return m.invalid(property, v, diags)
	}

	var out []Pair
	if bg.color != nil {
		c, _ := m.Color(*bg.color)
		out = append(out, Pair{Name: m.name("background-color"), Value: c})
	}
	if bg.image == nil || bg.image.IsKeyword("none") {
		return out
	}
	if !m.cfg.BackgroundImages {
		diags.Warn(common.KindUnsupportedProperty, property, "background images are not supported by %s, passed through", m.cfg.Platform)
		return append(out, Pair{Name: m.name("background-image"), Value: bg.image.String()})
	}

	out = append(out, m.image(property, *bg.image, diags)...)
	repeat := value.Keyword("no-repeat")
	if bg.repeat != nil {
		repeat = *bg.repeat
	}
	out = append(out, Pair{Name: m.name("background-repeat"), Value: repeat.Str})
	pos := bg.position
	if len(pos) == 0 {
		pos = []value.Value{value.Number(0), value.Number(0)}
	}
	p, ok := m.position(pos)
	if !ok {
		return m.invalid(property, v, diags)
	}
	out = append(out, Pair{Name: m.name("background-position"), Value: p})
	if len(bg.size) > 0 {
		s, ok := m.size(bg.size)
		if !ok {
			return m.invalid(property, v, diags)
		}
		out = append(out, Pair{Name: m.name("background-size"), Value: s})
	}
	return out
}

func (m *Mapper) imagesUnsupported(property string, v value.Value, diags *common.Diagnostics) []Pair {
	diags.Warn(common.KindUnsupportedProperty, property, "background images are not supported by %s, passed through", m.cfg.Platform)
	return []Pair{{Name: m.name(property), Value: cssText(v)}}
}

func backgroundImage(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if v.IsKeyword("none") {
		return []Pair{{Name: m.name(property), Value: "none"}}
	}
	if !m.cfg.BackgroundImages {
		return m.imagesUnsupported(property, v, diags)
	}
	groups := v.Groups()
	if len(groups) > 1 {
		diags.Warn(common.KindUnsupportedProperty, property, "only first of %d background images is used", len(groups))
	}
	if !groups[0].IsFunc("url") && !isGradient(groups[0]) {
		return m.invalid(property, v, diags)
	}
	return m.image(property, groups[0], diags)
}

func backgroundSize(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if !m.cfg.BackgroundImages {
		return m.imagesUnsupported(property, v, diags)
	}
	s, ok := m.size(v.Items())
	if !ok {
		return m.invalid(property, v, diags)
	}
	return []Pair{{Name: m.name(property), Value: s}}
}

func backgroundPosition(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if !m.cfg.BackgroundImages {
		return m.imagesUnsupported(property, v, diags)
	}
	p, ok := m.position(v.Items())
	if !ok {
		return m.invalid(property, v, diags)
	}
	return []Pair{{Name: m.name(property), Value: p}}
}

func backgroundRepeat(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if !m.cfg.BackgroundImages {
		return m.imagesUnsupported(property, v, diags)
	}
	if v.Kind != value.KindKeyword || !backgroundRepeats[strings.ToLower(v.Str)] {
		return m.invalid(property, v, diags)
	}
	return []Pair{{Name: m.name(property), Value: strings.ToLower(v.Str)}}
}

// image maps url() to an image source record and gradients to gradient
// records.
func (m *Mapper) image(property string, v value.Value, diags *common.Diagnostics) []Pair {
	if v.IsFunc("url") {
		src := ""
		if len(v.Args) > 0 {
			src = v.Args[0].Str
		}
		return []Pair{{Name: m.name("background-image"), Value: Style{"src": src}}}
	}
	g, ok := m.gradient(v)
	if !ok {
		return m.invalid(property, v, diags)
	}
	name := "linearGradient"
	if strings.Contains(v.Str, "radial") {
		name = "radialGradient"
	}
	return []Pair{{Name: name, Value: g}}
}

var gradientSides = map[string]float64{
	"to top":          0,
	"to top right":    45,
	"to right top":    45,
	"to right":        90,
	"to bottom right": 135,
	"to right bottom": 135,
	"to bottom":       180,
	"to bottom left":  225,
	"to left bottom":  225,
	"to left":         270,
	"to top left":     315,
	"to left top":     315,
}

func (m *Mapper) gradient(v value.Value) (Style, bool) {
	args := v.Args
	rec := Style{"repeating": strings.HasPrefix(v.Str, "repeating-")}
	linear := strings.HasSuffix(v.Str, "linear-gradient")
	if linear {
		rec["angle"] = 180.0
	}
	if len(args) > 0 {
		switch first := args[0]; {
		case linear && first.IsAngle():
			rec["angle"] = first.Num
			args = args[1:]
		case linear && first.Kind == value.KindList && first.Items()[0].IsKeyword("to"):
			angle, ok := gradientSides[strings.ToLower(plainText(first))]
			if !ok {
				return nil, false
			}
			rec["angle"] = angle
			args = args[1:]
		case !linear && first.Kind != value.KindColor && !(first.Kind == value.KindList && first.Items()[0].Kind == value.KindColor):
			// shape and position of radial gradients
			rec["shape"] = plainText(first)
			args = args[1:]
		}
	}
	if len(args) < 2 {
		return nil, false
	}
	colors := make([]any, 0, len(args))
	for i, stop := range args {
		items := stop.Items()
		c, ok := m.Color(items[0])
		if !ok {
			return nil, false
		}
		at := float64(i) / float64(len(args)-1)
		if len(items) > 1 {
			if items[1].Kind != value.KindPercentage {
				return nil, false
			}
			at = items[1].Num / 100
		}
		colors = append(colors, []any{c, at})
	}
	rec["colors"] = colors
	return rec, true
}

var positionPercents = map[string]float64{"left": 0, "top": 0, "center": 50, "right": 100, "bottom": 100}

func (m *Mapper) position(items []value.Value) (Style, bool) {
	conv := func(it value.Value) (any, bool) {
		if it.Kind == value.KindKeyword {
			p, ok := positionPercents[strings.ToLower(it.Str)]
			if !ok {
				return nil, false
			}
			return m.Length(value.Percent(p))
		}
		return m.Length(it)
	}
	var x, y value.Value
	switch len(items) {
	case 1:
		x, y = items[0], value.Keyword("center")
		if items[0].IsKeyword("top") || items[0].IsKeyword("bottom") {
			x, y = y, x
		}
	case 2:
		x, y = items[0], items[1]
		if x.IsKeyword("top") || x.IsKeyword("bottom") || y.IsKeyword("left") || y.IsKeyword("right") {
			x, y = y, x
		}
	default:
		return nil, false
	}
	px, okx := conv(x)
	py, oky := conv(y)
	if !okx || !oky {
		return nil, false
	}
	return Style{"x": px, "y": py}, true
}

func (m *Mapper) size(items []value.Value) (any, bool) {
	if len(items) == 1 && (items[0].IsKeyword("cover") || items[0].IsKeyword("contain")) {
		return strings.ToLower(items[0].Str), true
	}
	if len(items) == 0 || len(items) > 2 {
		return nil, false
	}
	w, ok := m.Length(items[0])
	if !ok {
		return nil, false
	}
	var h any = "auto"
	if len(items) == 2 {
		if h, ok = m.Length(items[1]); !ok {
			return nil, false
		}
	}
	return Style{"width": w, "height": h}, true
}
