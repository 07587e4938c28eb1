// Package markup is the element tree boundary of the compiler: a small
// format neutral tree with readers and writers for XML and HTML sources, and
// helpers to interpret class and style attribute expressions.
package markup

import (
	"slices"
	"strconv"
	"strings"

	"github.com/xlab/treeprint"

	"stylec/common"
)

// AttrValue is an attribute value. Expr values were written in braces and
// Text holds the expression source without them.
type AttrValue struct {
	Expr bool
	Text string
}

// Literal makes a plain attribute value.
func Literal(s string) AttrValue { return AttrValue{Text: s} }

// Expression makes an expression attribute value.
func Expression(s string) AttrValue { return AttrValue{Expr: true, Text: s} }

// parseAttrValue recognizes "{expr}" notation.
func parseAttrValue(s string) AttrValue {
	t := strings.TrimSpace(s)
	if len(t) >= 2 && t[0] == '{' && t[len(t)-1] == '}' {
		return Expression(strings.TrimSpace(t[1 : len(t)-1]))
	}
	return Literal(s)
}

func (v AttrValue) String() string {
	if v.Expr {
		return "{" + v.Text + "}"
	}
	return v.Text
}

type Attr struct {
	Name  string
	Value AttrValue
}

// Node is an element, or a text node when Tag is empty.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Tag: tag, Attrs: attrs}
}

func (n *Node) IsElement() bool { return n.Tag != "" }

// Attr returns attribute value, names are compared case insensitively.
func (n *Node) Attr(name string) (AttrValue, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return AttrValue{}, false
}

// SetAttr replaces existing attribute in place or appends a new one.
func (n *Node) SetAttr(name string, v AttrValue) {
	for i, a := range n.Attrs {
		if strings.EqualFold(a.Name, name) {
			n.Attrs[i].Value = v
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: v})
}

func (n *Node) RemoveAttr(name string) {
	n.Attrs = slices.DeleteFunc(n.Attrs, func(a Attr) bool { return strings.EqualFold(a.Name, name) })
}

// Elements returns element children, text nodes are skipped.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// Clone makes a deep copy of the subtree.
func (n *Node) Clone() *Node {
	c := &Node{Tag: n.Tag, Text: n.Text, Attrs: slices.Clone(n.Attrs)}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Walk visits elements of the subtree in document order. Returning false
// from fn skips children of the element.
func (n *Node) Walk(fn func(*Node) bool) {
	if !n.IsElement() {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Document is a parsed markup source. XML documents have a single root, HTML
// fragments may have several.
type Document struct {
	Format common.MarkupFmt
	Nodes  []*Node
}

func (d *Document) Clone() *Document {
	c := &Document{Format: d.Format, Nodes: make([]*Node, len(d.Nodes))}
	for i, n := range d.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}

// Walk visits every element of the document in document order.
func (d *Document) Walk(fn func(*Node) bool) {
	for _, n := range d.Nodes {
		n.Walk(fn)
	}
}

// Dump renders the element tree for debugging.
func (d *Document) Dump() string {
	tree := treeprint.NewWithRoot(d.Format.String())
	for _, n := range d.Nodes {
		dumpNode(tree, n)
	}
	return tree.String()
}

func dumpNode(tree treeprint.Tree, n *Node) {
	if !n.IsElement() {
		if t := strings.TrimSpace(n.Text); t != "" {
			tree.AddNode(strconv.Quote(t))
		}
		return
	}
	var sb strings.Builder
	sb.WriteString("<" + n.Tag)
	for _, a := range n.Attrs {
		sb.WriteString(" " + a.Name + "=" + strconv.Quote(a.Value.String()))
	}
	sb.WriteString(">")
	if len(n.Children) == 0 {
		tree.AddNode(sb.String())
		return
	}
	branch := tree.AddBranch(sb.String())
	for _, c := range n.Children {
		dumpNode(branch, c)
	}
}
