package akn

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// element is an XML element with its children kept in document order.
// Namespace prefixes are dropped: "an:article" and "article" are the same.
type element struct {
	name     string
	attrs    map[string]string
	children []node
}

// node is either a child element or a run of character data.
type node struct {
	elem *element
	text string
}

// parseTree decodes data into an element tree rooted at the document element.
func parseTree(data []byte) (*element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var root *element
	var stack []*element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if root != nil {
				// Keep what was decoded before the malformed tail.
				return root, nil
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root == nil {
					root = el
				}
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node{elem: el})
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node{text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, errors.New("akn: empty document")
	}
	return root, nil
}

// child returns the first direct child element with the given name.
func (e *element) child(name string) *element {
	if e == nil {
		return nil
	}
	for _, c := range e.children {
		if c.elem != nil && c.elem.name == name {
			return c.elem
		}
	}
	return nil
}

// elements returns the direct child elements in order.
func (e *element) elements() []*element {
	if e == nil {
		return nil
	}
	out := make([]*element, 0, len(e.children))
	for _, c := range e.children {
		if c.elem != nil {
			out = append(out, c.elem)
		}
	}
	return out
}

// attr returns the first non-empty attribute among names.
func (e *element) attr(names ...string) string {
	if e == nil {
		return ""
	}
	for _, n := range names {
		if v := e.attrs[n]; v != "" {
			return v
		}
	}
	return ""
}

// text joins every trimmed text run below e with single spaces.
func (e *element) text() string {
	if e == nil {
		return ""
	}
	var parts []string
	e.collectText(&parts)
	return strings.Join(parts, " ")
}

func (e *element) collectText(parts *[]string) {
	for _, c := range e.children {
		if c.elem != nil {
			c.elem.collectText(parts)
			continue
		}
		if t := strings.TrimSpace(c.text); t != "" {
			*parts = append(*parts, t)
		}
	}
}
