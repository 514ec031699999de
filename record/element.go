package record

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Element is a minimal XML element tree: local name, trimmed character data
// and child elements in document order.
type Element struct {
	Name     string
	Space    string
	Text     string
	Children []*Element
}

// NewElement builds a leaf element.
func NewElement(name, text string) *Element {
	return &Element{Name: name, Text: text}
}

// UnmarshalXML implements xml.Unmarshaler.
func (e *Element) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	e.Name = start.Name.Local
	e.Space = start.Name.Space
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Element{}
			if err := child.UnmarshalXML(d, t); err != nil {
				return err
			}
			e.Children = append(e.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			e.Text = strings.TrimSpace(text.String())
			return nil
		}
	}
}

// ParseElement decodes the first element found in r.
func ParseElement(r io.Reader) (*Element, error) {
	d := xml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing XML: no element found")
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			e := &Element{}
			if err := e.UnmarshalXML(d, start); err != nil {
				return nil, fmt.Errorf("parsing XML element %s: %w", start.Name.Local, err)
			}
			return e, nil
		}
	}
}

// Child returns the first child with the given local name.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child with the given local name.
func (e *Element) ChildrenNamed(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every element below e with the given local name, in
// document order.
func (e *Element) Descendants(name string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Name == name {
			out = append(out, c)
			continue
		}
		out = append(out, c.Descendants(name)...)
	}
	return out
}

// String renders the element as XML for log dumps.
func (e *Element) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *Element) write(sb *strings.Builder) {
	sb.WriteString("<" + e.Name + ">")
	if e.Text != "" {
		_ = xml.EscapeText(sb, []byte(e.Text))
	}
	for _, c := range e.Children {
		c.write(sb)
	}
	sb.WriteString("</" + e.Name + ">")
}
