// Package xmltree holds markup documents as plain element trees and writes
// them back in one canonical layout: one tab per nesting level and every
// attribute on its own line.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Attr is one attribute; order is preserved.
type Attr struct {
	Name  string
	Value string
}

// Element is a node of the tree. Text is the character data before the
// first child and Tail the data after the element's end tag.
type Element struct {
	Name     string
	Attrs    []Attr
	Text     string
	Tail     string
	Children []*Element
}

// Document is a parsed file.
type Document struct {
	// Declaration is the raw `<?xml ...?>` line, if the file had one.
	Declaration string
	Root        *Element
}

// ErrNoRoot is returned for input without an element.
var ErrNoRoot = errors.New("xmltree: document has no root element")

// Get returns an attribute value.
func (e *Element) Get(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}

	return "", false
}

// Set assigns an attribute, keeping its position if it exists.
func (e *Element) Set(name, value string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs[i].Value = value
			return
		}
	}

	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// Del removes an attribute.
func (e *Element) Del(name string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

// ChildrenNamed returns the direct children with the given tag.
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element

	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}

	return out
}

// ChildTags returns the distinct child tags in first-seen order.
func (e *Element) ChildTags() []string {
	var tags []string

	seen := map[string]bool{}

	for _, c := range e.Children {
		if !seen[c.Name] {
			seen[c.Name] = true
			tags = append(tags, c.Name)
		}
	}

	return tags
}

// Remove detaches child c, matched by identity.
func (e *Element) Remove(c *Element) {
	for i, x := range e.Children {
		if x == c {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}

// Clone deep-copies e.
func (e *Element) Clone() *Element {
	out := &Element{
		Name:  e.Name,
		Attrs: append([]Attr(nil), e.Attrs...),
		Text:  e.Text,
		Tail:  e.Tail,
	}

	for _, c := range e.Children {
		out.Children = append(out.Children, c.Clone())
	}

	return out
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}

	return n.Space + ":" + n.Local
}

// Parse reads a document. Comments and directives are dropped; the XML
// declaration is kept verbatim.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	doc := &Document{}

	var stack []*Element

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("xmltree: %w", err)
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" && doc.Root == nil {
				doc.Declaration = "<?xml " + strings.TrimSpace(string(t.Inst)) + "?>"
			}
		case xml.StartElement:
			el := &Element{Name: qualified(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: qualified(a.Name), Value: a.Value})
			}

			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, errors.New("xmltree: more than one root element")
				}

				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}

			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmltree: unexpected end tag %s", qualified(t.Name))
			}

			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}

			cur := stack[len(stack)-1]
			if n := len(cur.Children); n > 0 {
				cur.Children[n-1].Tail += string(t)
			} else {
				cur.Text += string(t)
			}
		}
	}

	if doc.Root == nil {
		return nil, ErrNoRoot
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("xmltree: unclosed element %s", stack[len(stack)-1].Name)
	}

	return doc, nil
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\t", "&#x9;")
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Write renders doc canonically. Whitespace-only text is not written.
func Write(doc *Document) []byte {
	var b bytes.Buffer

	if doc.Declaration != "" {
		b.WriteString(doc.Declaration)
		b.WriteByte('\n')
	}

	if doc.Root != nil {
		writeElement(&b, doc.Root, 0)
	}

	return b.Bytes()
}

func writeElement(b *bytes.Buffer, e *Element, depth int) {
	pad := strings.Repeat("\t", depth)

	b.WriteString(pad + "<" + e.Name)

	for _, a := range e.Attrs {
		b.WriteString("\n" + pad + "\t" + a.Name + `="` + attrEscaper.Replace(a.Value) + `"`)
	}

	hasText := !blank(e.Text)

	switch {
	case len(e.Children) == 0 && !hasText:
		b.WriteString(" />\n")
	case len(e.Children) == 0:
		b.WriteString(">" + textEscaper.Replace(strings.TrimSpace(e.Text)) + "</" + e.Name + ">\n")
	default:
		b.WriteString(">\n")

		if hasText {
			b.WriteString(pad + "\t" + textEscaper.Replace(strings.TrimSpace(e.Text)) + "\n")
		}

		for _, c := range e.Children {
			writeElement(b, c, depth+1)
		}

		b.WriteString(pad + "</" + e.Name + ">\n")
	}

	if !blank(e.Tail) && depth > 0 {
		b.WriteString(pad + textEscaper.Replace(strings.TrimSpace(e.Tail)) + "\n")
	}
}
