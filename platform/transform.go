package platform

import (
	"strings"

	"stylec/common"
	"stylec/value"
)

func transformProperty(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if v.IsKeyword("none") {
		if m.cfg.TransformShape == TransformCombined {
			return []Pair{{Name: m.name(property), Value: Style{}}}
		}
		return []Pair{{Name: m.name(property), Value: []any{}}}
	}
	for _, fn := range v.Items() {
		if fn.Kind != value.KindFunction {
			return m.invalid(property, v, diags)
		}
	}
	var (
		out any
		ok  bool
	)
	if m.cfg.TransformShape == TransformCombined {
		out, ok = m.combinedTransform(property, v.Items(), diags)
	} else {
		out, ok = m.transformOps(property, v.Items(), diags)
	}
	if !ok {
		return m.invalid(property, v, diags)
	}
	return []Pair{{Name: m.name(property), Value: out}}
}

// degrees accepts angles and unitless zero.
func degrees(v value.Value) (float64, bool) {
	switch {
	case v.IsAngle():
		return v.Num, true
	case v.Kind == value.KindNumber && v.Num == 0:
		return 0, true
	}
	return 0, false
}

func numbers(args []value.Value) ([]any, bool) {
	out := make([]any, len(args))
	for i, a := range args {
		if a.Kind != value.KindNumber {
			return nil, false
		}
		out[i] = a.Num
	}
	return out, true
}

// matrix4 expands 2D matrix(a, b, c, d, e, f) into column major 4x4.
func matrix4(fn value.Value) ([]any, bool) {
	n, ok := numbers(fn.Args)
	if !ok {
		return nil, false
	}
	switch {
	case fn.Str == "matrix" && len(n) == 6:
		return []any{n[0], n[1], 0.0, 0.0, n[2], n[3], 0.0, 0.0, 0.0, 0.0, 1.0, 0.0, n[4], n[5], 0.0, 1.0}, true
	case fn.Str == "matrix3d" && len(n) == 16:
		return n, true
	}
	return nil, false
}

// transformOps builds ordered array of single operation records.
func (m *Mapper) transformOps(property string, fns []value.Value, diags *common.Diagnostics) ([]any, bool) {
	var ops []any
	op := func(name string, v any) { ops = append(ops, Style{name: v}) }
	length := func(name string, a value.Value) bool {
		n, ok := m.Length(a)
		if ok {
			op(name, n)
		}
		return ok
	}
	angle := func(name string, a value.Value) bool {
		d, ok := degrees(a)
		if ok {
			op(name, value.FormatNumber(d)+"deg")
		}
		return ok
	}

	for _, fn := range fns {
		args := fn.Args
		ok := len(args) > 0
		switch fn.Str {
		case "translate", "translate3d":
			ok = ok && length("translateX", args[0])
			if len(args) > 1 {
				ok = ok && length("translateY", args[1])
			}
			if len(args) > 2 {
				diags.Warn(common.KindUnsupportedProperty, property, "translation along z axis is not supported, ignored")
			}
		case "translateX", "translateY":
			ok = ok && length(fn.Str, args[0])
		case "scale", "scale3d":
			switch {
			case len(args) == 1 && args[0].Kind == value.KindNumber:
				op("scale", args[0].Num)
			case len(args) >= 2 && args[0].Kind == value.KindNumber && args[1].Kind == value.KindNumber:
				op("scaleX", args[0].Num)
				op("scaleY", args[1].Num)
			default:
				ok = false
			}
		case "scaleX", "scaleY":
			ok = ok && args[0].Kind == value.KindNumber
			if ok {
				op(fn.Str, args[0].Num)
			}
		case "rotate", "rotateZ":
			ok = ok && angle("rotate", args[0])
		case "rotateX", "rotateY":
			ok = ok && angle(fn.Str, args[0])
		case "skew":
			ok = ok && angle("skewX", args[0])
			if len(args) > 1 {
				ok = ok && angle("skewY", args[1])
			}
		case "skewX", "skewY":
			ok = ok && angle(fn.Str, args[0])
		case "matrix", "matrix3d":
			mx, good := matrix4(fn)
			ok = good
			if ok {
				op("matrix", mx)
			}
		case "perspective":
			ok = ok && length("perspective", args[0])
		default:
			diags.Warn(common.KindUnsupportedProperty, property, "%s() is not supported by %s, ignored", fn.Str, m.cfg.Platform)
			ok = true
		}
		if !ok {
			return nil, false
		}
	}
	if ops == nil {
		ops = []any{}
	}
	return ops, true
}

// combinedTransform folds operations into a single descriptor: translations
// add up, scales multiply, last rotation and matrix win.
func (m *Mapper) combinedTransform(property string, fns []value.Value, diags *common.Diagnostics) (Style, bool) {
	out := Style{}
	translate := Style{}
	scale := Style{}

	addLength := func(axis string, a value.Value) bool {
		n, ok := m.Length(a)
		if !ok {
			return false
		}
		if cur, isNum := translate[axis].(float64); isNum {
			if add, isNum := n.(float64); isNum {
				n = cur + add
			}
		}
		translate[axis] = n
		return true
	}
	mulScale := func(axis string, a value.Value) bool {
		if a.Kind != value.KindNumber {
			return false
		}
		f := a.Num
		if cur, isNum := scale[axis].(float64); isNum {
			f *= cur
		}
		scale[axis] = f
		return true
	}
	rotate := func(x, y, z float64, a value.Value) bool {
		d, ok := degrees(a)
		if ok {
			out["rotate"] = Style{"x": x, "y": y, "z": z, "angle": d}
		}
		return ok
	}

	for _, fn := range fns {
		args := fn.Args
		ok := len(args) > 0
		switch fn.Str {
		case "translate", "translate3d":
			for i, axis := range []string{"x", "y", "z"} {
				if i < len(args) {
					ok = ok && addLength(axis, args[i])
				}
			}
		case "translateX", "translateY", "translateZ":
			ok = ok && addLength(strings.ToLower(fn.Str[len(fn.Str)-1:]), args[0])
		case "scale", "scale3d":
			ok = ok && mulScale("x", args[0])
			switch {
			case len(args) == 1:
				ok = ok && mulScale("y", args[0])
			case len(args) > 1:
				ok = ok && mulScale("y", args[1])
			}
			if len(args) > 2 {
				ok = ok && mulScale("z", args[2])
			}
		case "scaleX", "scaleY", "scaleZ":
			ok = ok && mulScale(strings.ToLower(fn.Str[len(fn.Str)-1:]), args[0])
		case "rotate", "rotateZ":
			ok = ok && rotate(0, 0, 1, args[0])
		case "rotateX":
			ok = ok && rotate(1, 0, 0, args[0])
		case "rotateY":
			ok = ok && rotate(0, 1, 0, args[0])
		case "rotate3d":
			vec, good := numbers(args[:min(3, len(args))])
			ok = good && len(args) == 4 && rotate(vec[0].(float64), vec[1].(float64), vec[2].(float64), args[3])
		case "matrix", "matrix3d":
			mx, good := matrix4(fn)
			ok = good
			if ok {
				out["matrix"] = mx
			}
		default:
			diags.Warn(common.KindUnsupportedProperty, property, "%s() is not supported by %s, ignored", fn.Str, m.cfg.Platform)
			ok = true
		}
		if !ok {
			return nil, false
		}
	}
	if len(translate) > 0 {
		out["translate"] = translate
	}
	if len(scale) > 0 {
		out["scale"] = scale
	}
	return out, true
}

func transformOrigin(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if m.cfg.TransformShape != TransformCombined {
		return []Pair{{Name: m.name(property), Value: plainText(v)}}
	}
	items := v.Items()
	if len(items) == 3 {
		diags.Warn(common.KindUnsupportedProperty, property, "z offset is not supported, ignored")
		items = items[:2]
	}
	p, ok := m.position(items)
	if !ok {
		return m.invalid(property, v, diags)
	}
	return []Pair{{Name: m.name(property), Value: p}}
}
