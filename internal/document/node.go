// Package document assembles the Experiment, Run and Submission documents the
// sequence read archive accepts, validates them and hands them to a sink.
package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Attr is an XML attribute on a Node.
type Attr struct {
	Name  string
	Value string
}

// Node is an element of a document tree. Attribute order is preserved so
// rendered output is stable.
type Node struct {
	Name     string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// El builds an element with children.
func El(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// Leaf builds an element holding text.
func Leaf(name, text string) *Node {
	return &Node{Name: name, Text: text}
}

// With appends an attribute and returns n.
func (n *Node) With(name, value string) *Node {
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
	return n
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the named attribute value.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// FindAll returns the descendants reached by a slash-separated element path
// relative to n, e.g. "EXPERIMENT/DESIGN/LIBRARY_DESCRIPTOR".
func (n *Node) FindAll(path string) []*Node {
	current := []*Node{n}
	for _, seg := range strings.Split(path, "/") {
		var next []*Node
		for _, c := range current {
			for _, child := range c.Children {
				if child.Name == seg {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Find returns the first node at path, or nil.
func (n *Node) Find(path string) *Node {
	if all := n.FindAll(path); len(all) > 0 {
		return all[0]
	}
	return nil
}

// MarshalXML implements xml.Marshaler.
func (n *Node) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// Render serialises the tree with an XML declaration and two-space indent.
func Render(root *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("render %s: %w", root.Name, err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("render %s: %w", root.Name, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
