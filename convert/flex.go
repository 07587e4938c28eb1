package convert

import (
	"slices"

	"stylec/markup"
	"stylec/platform"
)

const (
	displayKey       = "display"
	flexDirectionKey = "flexDirection"
)

// flexColumn reports whether style makes a flex container laid out in
// column direction, which restricted flex platforms cannot handle with more
// than two children.
func flexColumn(style platform.Style) (string, bool) {
	if style[displayKey] != "flex" {
		return "", false
	}
	dir, _ := style[flexDirectionKey].(string)
	switch dir {
	case "column", "column-reverse":
		return dir, true
	}
	return "", false
}

// container alignment repeated on wrappers
var wrapperKeys = []string{"alignItems", "justifyContent"}

// correctFlex returns a copy of column flex container n with children grouped
// as [c1, W(c2 ... cn)] recursively, W being a wrapper element with the same
// direction and alignment. Children themselves are shared, not copied.
// Containers with two children or less are returned as is, so correcting an
// already corrected tree changes nothing.
func correctFlex(cfg *platform.Config, n *markup.Node, container platform.Style) (*markup.Node, int) {
	dir, ok := flexColumn(container)
	if !ok || len(n.Children) <= 2 {
		return n, 0
	}
	style := platform.Style{displayKey: "flex", flexDirectionKey: dir}
	for _, k := range wrapperKeys {
		if v, ok := container[k]; ok {
			style[k] = v
		}
	}
	out := &markup.Node{Tag: n.Tag, Attrs: slices.Clone(n.Attrs), Text: n.Text}
	var wrappers int
	out.Children = pairChildren(cfg, n.Children, platform.FormatJS(style), &wrappers)
	return out, wrappers
}

func pairChildren(cfg *platform.Config, children []*markup.Node, style string, count *int) []*markup.Node {
	if len(children) <= 2 {
		return slices.Clone(children)
	}
	w := newWrapper(cfg, style)
	*count++
	w.Children = pairChildren(cfg, children[1:], style, count)
	return []*markup.Node{children[0], w}
}

func newWrapper(cfg *platform.Config, style string) *markup.Node {
	w := markup.NewElement(cfg.WrapperTag,
		markup.Attr{Name: cfg.WrapperMarker, Value: markup.Literal("true")},
		markup.Attr{Name: styleAttr, Value: markup.Expression(style)},
	)
	if !cfg.InlineAll && cfg.StaticMarker != "" {
		w.SetAttr(cfg.StaticMarker, markup.Literal("true"))
	}
	return w
}

// IsWrapper reports whether element was created by flex correction.
func IsWrapper(cfg *platform.Config, n *markup.Node) bool {
	_, ok := n.Attr(cfg.WrapperMarker)
	return ok
}
