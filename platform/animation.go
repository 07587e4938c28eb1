package platform

import (
	"cmp"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"stylec/common"
	"stylec/css"
	"stylec/value"
)

// Keyframe is a single stop of an animation, Percent is 0..100.
type Keyframe struct {
	Percent    float64
	Properties []Property
}

// Animation is a typed @keyframes block. Stops are sorted by percent and
// stops with equal offsets are merged, later declarations win.
type Animation struct {
	Name      string
	Keyframes []Keyframe
}

// NewAnimation types declarations of a @keyframes block with resolver r.
// Values which cannot be typed are kept unresolved, error is returned only
// for variable cycles.
func NewAnimation(kf css.Keyframes, r *value.Resolver) (*Animation, error) {
	var (
		err    error
		frames []Keyframe
	)
	at := make(map[float64]int)
	for _, stop := range kf.Stops {
		props := make([]Property, 0, len(stop.Declarations))
		for _, d := range stop.Declarations {
			v, e := r.Resolve(d.Property, d.Value)
			err = multierr.Append(err, e)
			props = append(props, Property{Name: d.Property, Value: v})
		}
		for _, off := range stop.Offsets {
			idx, ok := at[off]
			if !ok {
				at[off] = len(frames)
				frames = append(frames, Keyframe{Percent: off, Properties: slices.Clone(props)})
				continue
			}
			frames[idx].Properties = mergeProperties(frames[idx].Properties, props)
		}
	}
	slices.SortStableFunc(frames, func(a, b Keyframe) int { return cmp.Compare(a.Percent, b.Percent) })
	return &Animation{Name: kf.Name, Keyframes: frames}, err
}

func mergeProperties(dst, src []Property) []Property {
	for _, p := range src {
		i := slices.IndexFunc(dst, func(q Property) bool { return q.Name == p.Name })
		if i < 0 {
			dst = append(dst, p)
			continue
		}
		dst[i] = p
	}
	return dst
}

// AnimationParams are the parameters of a single animation reference.
type AnimationParams struct {
	Name       string
	DurationMs float64
	DelayMs    float64
	Iterations float64 // -1 is infinite
	Timing     string
}

var timingKeywords = map[string]bool{
	"ease": true, "linear": true, "ease-in": true, "ease-out": true, "ease-in-out": true,
	"step-start": true, "step-end": true,
}

// keywords of animation shorthand which are accepted and ignored
var animationIgnored = map[string]bool{
	"normal": true, "reverse": true, "alternate": true, "alternate-reverse": true,
	"none": true, "forwards": true, "backwards": true, "both": true,
	"running": true, "paused": true,
}

// ParseAnimation reads one group of the animation shorthand. First time is
// duration, second is delay.
func ParseAnimation(v value.Value) (AnimationParams, bool) {
	p := AnimationParams{Iterations: 1, Timing: "ease"}
	times := 0
	for _, it := range v.Items() {
		kw := strings.ToLower(it.Str)
		switch {
		case it.IsTime():
			ms, _ := it.Millis()
			if times == 0 {
				p.DurationMs = ms
			} else {
				p.DelayMs = ms
			}
			times++
		case it.Kind == value.KindNumber:
			p.Iterations = it.Num
		case it.IsKeyword("infinite"):
			p.Iterations = -1
		case it.Kind == value.KindKeyword && timingKeywords[kw]:
			p.Timing = kw
		case it.IsFunc("cubic-bezier") || it.IsFunc("steps"):
			p.Timing = it.String()
		case it.Kind == value.KindKeyword && animationIgnored[kw]:
			// direction, fill and play state are not represented
		case it.Kind == value.KindKeyword || it.Kind == value.KindString:
			if p.Name != "" {
				return p, false
			}
			p.Name = it.Str
		default:
			return p, false
		}
	}
	return p, true
}

// SetAnimations registers animations which may be referenced by name.
func (m *Mapper) SetAnimations(anims ...*Animation) {
	for _, a := range anims {
		if a == nil {
			continue
		}
		m.animations[a.Name] = a
		delete(m.mapped, a.Name)
	}
}

// AnimationNames lists registered animations in natural order.
func (m *Mapper) AnimationNames() []string {
	names := make([]string, 0, len(m.animations))
	for n := range m.animations {
		names = append(names, n)
	}
	return naturalKeys(names)
}

// Keyframes returns platform representation of keyframes of a registered
// animation. Every stop is mapped once, diagnostics are reported on first
// use only.
func (m *Mapper) Keyframes(name string) ([]any, common.Diagnostics, bool) {
	if frames, ok := m.mapped[name]; ok {
		return frames, nil, true
	}
	a, ok := m.animations[name]
	if !ok {
		return nil, nil, false
	}
	var diags common.Diagnostics
	// keyframes referencing their own animation see an empty list
	m.mapped[name] = []any{}
	frames := make([]any, 0, len(a.Keyframes))
	for _, kf := range a.Keyframes {
		event, ds := m.Build(kf.Properties)
		diags = append(diags, ds...)
		frames = append(frames, Style{"percentage": kf.Percent / 100, "event": event})
	}
	m.mapped[name] = frames
	return frames, diags, true
}

func (m *Mapper) animationsUnsupported(property string, v value.Value, diags *common.Diagnostics) []Pair {
	diags.Warn(common.KindUnsupportedProperty, property, "animations are not supported by %s, passed through", m.cfg.Platform)
	return []Pair{{Name: m.name(property), Value: cssText(v)}}
}

func (m *Mapper) keyframesPair(property, name string, diags *common.Diagnostics) (Pair, bool) {
	frames, ds, ok := m.Keyframes(name)
	if !ok {
		diags.Warn(common.KindUnresolvedValue, property, "unknown keyframes %q", name)
		return Pair{}, false
	}
	*diags = append(*diags, ds...)
	return Pair{Name: "animation", Value: Style{"keyframes": frames}}, true
}

func animationShorthand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if !m.cfg.Animations {
		return m.animationsUnsupported(property, v, diags)
	}
	if v.IsKeyword("none") {
		return nil
	}
	groups := v.Groups()
	if len(groups) > 1 {
		diags.Warn(common.KindUnsupportedProperty, property, "only first of %d animations is used", len(groups))
	}
	p, ok := ParseAnimation(groups[0])
	if !ok {
		return m.invalid(property, v, diags)
	}
	out := []Pair{{Name: "animation", Value: Style{"params": Style{
		"duration":   p.DurationMs,
		"delay":      p.DelayMs,
		"iterations": p.Iterations,
		"curve":      p.Timing,
	}}}}
	if p.Name == "" {
		return out
	}
	if kf, ok := m.keyframesPair(property, p.Name, diags); ok {
		out = append(out, kf)
	}
	return out
}

func animationLonghand(m *Mapper, property string, v value.Value, diags *common.Diagnostics) []Pair {
	if !m.cfg.Animations {
		return m.animationsUnsupported(property, v, diags)
	}
	if len(v.Groups()) > 1 {
		diags.Warn(common.KindUnsupportedProperty, property, "only first of %d animations is used", len(v.Groups()))
		v = v.Groups()[0]
	}
	param := func(name string, val any) []Pair {
		return []Pair{{Name: "animation", Value: Style{"params": Style{name: val}}}}
	}
	switch property {
	case "animation-name":
		if v.IsKeyword("none") {
			return nil
		}
		if v.Kind != value.KindKeyword && v.Kind != value.KindString {
			break
		}
		if kf, ok := m.keyframesPair(property, v.Str, diags); ok {
			return []Pair{kf}
		}
		return nil
	case "animation-duration", "animation-delay":
		ms, ok := v.Millis()
		if !ok {
			break
		}
		return param(strings.TrimPrefix(property, "animation-"), ms)
	case "animation-iteration-count":
		if v.IsKeyword("infinite") {
			return param("iterations", -1.0)
		}
		if v.Kind == value.KindNumber {
			return param("iterations", v.Num)
		}
	case "animation-timing-function":
		if v.Kind == value.KindKeyword && timingKeywords[strings.ToLower(v.Str)] {
			return param("curve", strings.ToLower(v.Str))
		}
		if v.IsFunc("cubic-bezier") || v.IsFunc("steps") {
			return param("curve", v.String())
		}
	}
	return m.invalid(property, v, diags)
}
