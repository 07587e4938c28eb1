package markup

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"stylec/common"
)

// ParseHTML reads an HTML fragment as it would appear inside body. Tag and
// attribute names are lower cased by the HTML parser.
func ParseHTML(r io.Reader) (*Document, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("unable to read HTML markup: %w", err)
	}
	d := &Document{Format: common.MarkupFmtHtml}
	for _, hn := range nodes {
		if n := fromHTML(hn); n != nil {
			d.Nodes = append(d.Nodes, n)
		}
	}
	return d, nil
}

func fromHTML(hn *html.Node) *Node {
	switch hn.Type {
	case html.TextNode:
		if strings.TrimSpace(hn.Data) == "" {
			return nil
		}
		return &Node{Text: hn.Data}
	case html.ElementNode:
	default:
		return nil
	}
	n := &Node{Tag: hn.Data}
	for _, a := range hn.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		n.Attrs = append(n.Attrs, Attr{Name: name, Value: parseAttrValue(a.Val)})
	}
	for c := range hn.ChildNodes() {
		if cn := fromHTML(c); cn != nil {
			n.Children = append(n.Children, cn)
		}
	}
	return n
}

// WriteHTML writes top level nodes of document, one per line.
func WriteHTML(w io.Writer, d *Document) error {
	for _, n := range d.Nodes {
		if err := html.Render(w, toHTML(n)); err != nil {
			return fmt.Errorf("unable to write HTML markup: %w", err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func toHTML(n *Node) *html.Node {
	if !n.IsElement() {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	hn := &html.Node{Type: html.ElementNode, Data: n.Tag, DataAtom: atom.Lookup([]byte(n.Tag))}
	for _, a := range n.Attrs {
		hn.Attr = append(hn.Attr, html.Attribute{Key: a.Name, Val: a.Value.String()})
	}
	for _, c := range n.Children {
		hn.AppendChild(toHTML(c))
	}
	return hn
}

// HTMLString renders document to string, errors are reported inline.
func HTMLString(d *Document) string {
	var sb strings.Builder
	if err := WriteHTML(&sb, d); err != nil {
		return err.Error()
	}
	return sb.String()
}

// Parse reads markup of the given format.
func Parse(r io.Reader, format common.MarkupFmt) (*Document, error) {
	if format == common.MarkupFmtHtml {
		return ParseHTML(r)
	}
	return ParseXML(r)
}

// Write writes document in its own format.
func Write(w io.Writer, d *Document) error {
	if d.Format == common.MarkupFmtHtml {
		return WriteHTML(w, d)
	}
	return WriteXML(w, d)
}

// String renders document in its own format.
func (d *Document) String() string {
	if d.Format == common.MarkupFmtHtml {
		return HTMLString(d)
	}
	return XMLString(d)
}
