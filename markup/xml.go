package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"stylec/common"
)

// ParseXML reads an XML markup source. Attribute values written as "{expr}"
// become expressions. Whitespace only text is dropped.
func ParseXML(r io.Reader) (*Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read XML markup: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("XML markup has no root element")
	}
	return &Document{Format: common.MarkupFmtXml, Nodes: []*Node{fromElement(root)}}, nil
}

func fromElement(el *etree.Element) *Node {
	n := &Node{Tag: el.FullTag()}
	for _, a := range el.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.FullKey(), Value: parseAttrValue(a.Value)})
	}
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.Children = append(n.Children, fromElement(t))
		case *etree.CharData:
			if !t.IsWhitespace() {
				n.Children = append(n.Children, &Node{Text: t.Data})
			}
		}
	}
	return n
}

// WriteXML writes document as indented XML.
func WriteXML(w io.Writer, d *Document) error {
	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	for _, n := range d.Nodes {
		if n.IsElement() {
			toElement(&doc.Element, n)
		}
	}
	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write XML markup: %w", err)
	}
	return nil
}

func toElement(parent *etree.Element, n *Node) {
	el := parent.CreateElement(n.Tag)
	for _, a := range n.Attrs {
		el.CreateAttr(a.Name, a.Value.String())
	}
	for _, c := range n.Children {
		if c.IsElement() {
			toElement(el, c)
			continue
		}
		el.CreateText(c.Text)
	}
}

// XMLString renders document to string, errors are reported inline.
func XMLString(d *Document) string {
	var sb strings.Builder
	if err := WriteXML(&sb, d); err != nil {
		return err.Error()
	}
	return sb.String()
}
