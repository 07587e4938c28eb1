package convert

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"stylec/common"
	"stylec/markup"
	"stylec/platform"
)

// elementState is the progress of a single element visit. Terminal states
// are Inlined, Deferred and Skipped.
type elementState int

const (
	stateUnvisited elementState = iota
	stateClassResolved
	stateStyleMerged
	stateInlined
	stateDeferred
	stateSkipped
)

func (st elementState) String() string {
	switch st {
	case stateUnvisited:
		return "unvisited"
	case stateClassResolved:
		return "class-resolved"
	case stateStyleMerged:
		return "style-merged"
	case stateInlined:
		return "inlined"
	case stateDeferred:
		return "deferred"
	case stateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("state(%d)", int(st))
	}
}

// attributes holding class names, first found is used
var classAttrs = []string{"className", "class"}

const styleAttr = "style"

// integrator builds a new element tree with styles resolved. Input tree is
// never modified.
type integrator struct {
	s      *session
	cfg    *platform.Config
	log    *zap.Logger
	states map[*markup.Node]elementState
	stats  Stats
}

func newIntegrator(s *session) *integrator {
	return &integrator{
		s:      s,
		cfg:    s.cfg,
		log:    s.log.Named("integrator"),
		states: make(map[*markup.Node]elementState),
	}
}

func (ig *integrator) run(ctx context.Context, doc *markup.Document) (*markup.Document, error) {
	out := &markup.Document{Format: doc.Format, Nodes: make([]*markup.Node, 0, len(doc.Nodes))}
	for i, n := range doc.Nodes {
		nn, err := ig.visit(ctx, n, elementPath("", n, i))
		if err != nil {
			return nil, err
		}
		out.Nodes = append(out.Nodes, nn)
	}
	ig.log.Debug("Markup integrated",
		zap.Int("inlined", ig.stats.Inlined), zap.Int("deferred", ig.stats.Deferred),
		zap.Int("skipped", ig.stats.Skipped), zap.Int("wrappers", ig.stats.Wrappers))
	return out, nil
}

func elementPath(parent string, n *markup.Node, index int) string {
	if parent == "" {
		return fmt.Sprintf("%s[%d]", n.Tag, index+1)
	}
	return fmt.Sprintf("%s/%s[%d]", parent, n.Tag, index+1)
}

func (ig *integrator) visit(ctx context.Context, n *markup.Node, path string) (*markup.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !n.IsElement() || ig.states[n] != stateUnvisited {
		// text, or a subtree shared by several parents which was already done
		return n.Clone(), nil
	}

	out := &markup.Node{Tag: n.Tag, Attrs: slices.Clone(n.Attrs)}
	style, state := ig.element(out, path)
	ig.states[n] = state

	out.Children = make([]*markup.Node, 0, len(n.Children))
	for i, c := range n.Children {
		cc, err := ig.visit(ctx, c, elementPath(path, c, i))
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, cc)
	}

	if state == stateInlined && ig.cfg.RestrictedFlex {
		var wrappers int
		out, wrappers = correctFlex(ig.cfg, out, style)
		ig.stats.Wrappers += wrappers
	}
	return out, nil
}

// element resolves style of a single element, rewriting attributes of out.
func (ig *integrator) element(out *markup.Node, path string) (platform.Style, elementState) {
	state := stateUnvisited

	classAttr, cls, hasClass := findClassAttr(out)
	inl, hasStyle := out.Attr(styleAttr)
	if !hasClass && !hasStyle {
		return ig.skip(path, state, "no class or style")
	}
	if _, marked := out.Attr(ig.cfg.StaticMarker); !marked && !ig.cfg.InlineAll {
		return ig.skip(path, state, "not marked for static resolution")
	}
	if !hasClass {
		// literal style object without classes is platform style already,
		// including output of an earlier compilation
		if obj, ok := markup.StyleObject(inl); ok {
			style, _ := nativeValue(obj).(platform.Style)
			ig.stats.Inlined++
			ig.log.Debug("Element style kept", zap.String("element", path), zap.Int("properties", len(style)))
			return style, stateInlined
		}
	}

	var classes []string
	if hasClass {
		var ok bool
		if classes, ok = markup.StaticClasses(cls); !ok {
			return nil, ig.deferToRuntime(out, classAttr, path, "class expression is not static")
		}
	}
	var inlineText string
	if hasStyle {
		var ok bool
		if inlineText, ok = markup.InlineCSS(inl); !ok {
			return nil, ig.deferToRuntime(out, classAttr, path, "style expression is not static")
		}
	}
	state = stateClassResolved

	sheet := ig.s.classStyle(classes)
	var inline platform.Style
	if inlineText != "" {
		st, diags, err := ig.s.inlineStyle(inlineText, path)
		if err != nil {
			d := errorDiagnostic(err)
			d.Element = path
			ig.s.diags.Add(d)
			return nil, ig.deferToRuntime(out, classAttr, path, "inline style could not be parsed")
		}
		ig.s.diags = append(ig.s.diags, diags...)
		inline = st
	}
	if ig.cfg.RestrictedFlex {
		ig.checkDirection(sheet, inline, path)
	}
	merged := sheet.Clone()
	merged.Merge(inline)
	state = stateStyleMerged

	if len(merged) > 0 || hasStyle {
		out.SetAttr(styleAttr, markup.Expression(platform.FormatJS(merged)))
	}
	if hasClass {
		out.RemoveAttr(classAttr)
	}
	ig.stats.Inlined++
	ig.log.Debug("Element resolved", zap.String("element", path), zap.Stringer("from", state), zap.Strings("classes", classes))
	return merged, stateInlined
}

func (ig *integrator) skip(path string, from elementState, reason string) (platform.Style, elementState) {
	ig.stats.Skipped++
	ig.log.Debug("Element skipped", zap.String("element", path), zap.Stringer("from", from), zap.String("reason", reason))
	return nil, stateSkipped
}

// deferToRuntime replaces class and style attributes with a lookup call the
// runtime evaluates against the emitted style table.
func (ig *integrator) deferToRuntime(out *markup.Node, classAttr, path, reason string) elementState {
	classExpr, styleExpr := "undefined", "undefined"
	if v, ok := out.Attr(classAttr); ok && classAttr != "" {
		classExpr = jsExpr(v)
	}
	if v, ok := out.Attr(styleAttr); ok {
		styleExpr = jsExpr(v)
	}
	call := fmt.Sprintf("%s(%s, %s, %s)", ig.cfg.LookupFunc, ig.cfg.SheetIdent, classExpr, styleExpr)
	out.SetAttr(styleAttr, markup.Expression(call))
	if classAttr != "" {
		out.RemoveAttr(classAttr)
	}

	ig.s.diags.Add(common.Diagnostic{
		Kind:     common.KindDeferredToRuntime,
		Severity: common.SeverityInfo,
		Element:  path,
		Message:  reason + ", resolved at runtime",
	})
	ig.stats.Deferred++
	return stateDeferred
}

// checkDirection reports inline flex direction conflicting with the one
// coming from style sheets. Inline value wins by merge order.
func (ig *integrator) checkDirection(sheet, inline platform.Style, path string) {
	fromSheet, ok := sheet[flexDirectionKey]
	if !ok {
		return
	}
	fromInline, ok := inline[flexDirectionKey]
	if !ok || fromInline == fromSheet {
		return
	}
	ig.s.diags.Add(common.Diagnostic{
		Kind:     common.KindStructuralConflict,
		Severity: common.SeverityWarning,
		Element:  path,
		Property: "flex-direction",
		Message:  fmt.Sprintf("inline direction %v overrides %v from style sheets", fromInline, fromSheet),
	})
}

func findClassAttr(n *markup.Node) (string, markup.AttrValue, bool) {
	for _, name := range classAttrs {
		if v, ok := n.Attr(name); ok {
			return name, v, true
		}
	}
	return "", markup.AttrValue{}, false
}

// nativeValue converts literal read from markup into style values.
func nativeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(platform.Style, len(t))
		for k, e := range t {
			out[k] = nativeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = nativeValue(e)
		}
		return out
	case markup.CallExpr:
		args := make([]any, len(t.Args))
		for i, a := range t.Args {
			args[i] = nativeValue(a)
		}
		return platform.NewCall(t.Func, args...)
	}
	return v
}

// jsExpr renders attribute value as JS expression source.
func jsExpr(v markup.AttrValue) string {
	if v.Expr {
		return v.Text
	}
	return platform.FormatJS(v.Text)
}
