package html

import (
	"bytes"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/custodia-labs/lexsync/internal/normalisers/textclean"
)

// paragraph is one <p> element flattened to text.
type paragraph struct {
	classes []string
	text    string
	offset  int
}

// subdivision is an opening <div class="eli-subdivision">.
type subdivision struct {
	id     string
	offset int
}

// document is the flat view of an HTML page the strategies work on.
// Offsets are byte positions of the opening tag in the raw body.
type document struct {
	paragraphs   []paragraph
	subdivisions []subdivision
	size         int
}

// hasClass reports whether p carries name, with or without the "oj-"
// prefix newer Official Journal renderings use.
func (p paragraph) hasClass(names ...string) bool {
	for _, c := range p.classes {
		c = strings.TrimPrefix(c, "oj-")
		for _, n := range names {
			if c == n {
				return true
			}
		}
	}
	return false
}

// skipped holds elements whose text never belongs to an article.
var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
}

// scan tokenizes body into paragraphs and subdivisions. The tokenizer
// accepts any byte sequence, so scan cannot fail.
func scan(body []byte) document {
	doc := document{size: len(body)}
	z := nethtml.NewTokenizer(bytes.NewReader(body))

	var (
		offset   int
		skipping int
		open     *paragraph
		buf      strings.Builder
	)
	closeParagraph := func() {
		if open == nil {
			return
		}
		open.text = textclean.Inline(buf.String())
		if open.text != "" {
			doc.paragraphs = append(doc.paragraphs, *open)
		}
		open = nil
		buf.Reset()
	}

	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case nethtml.StartTagToken, nethtml.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			attrs := readAttrs(z, hasAttr)

			if skipped[tag] {
				if tt == nethtml.StartTagToken {
					skipping++
				}
				continue
			}

			switch tag {
			case "p":
				closeParagraph()
				open = &paragraph{classes: strings.Fields(attrs["class"]), offset: start}
			case "div":
				closeParagraph()
				if containsToken(attrs["class"], "eli-subdivision") {
					doc.subdivisions = append(doc.subdivisions, subdivision{id: attrs["id"], offset: start})
				}
			default:
				// Inline tags separate words.
				buf.WriteByte(' ')
			}
		case nethtml.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skipped[tag] {
				if skipping > 0 {
					skipping--
				}
				continue
			}
			switch tag {
			case "p", "div", "body":
				closeParagraph()
			default:
				buf.WriteByte(' ')
			}
		case nethtml.TextToken:
			if open != nil && skipping == 0 {
				buf.Write(z.Raw())
			}
		}
	}
	closeParagraph()
	return doc
}

func readAttrs(z *nethtml.Tokenizer, more bool) map[string]string {
	attrs := make(map[string]string)
	for more {
		var k, v []byte
		k, v, more = z.TagAttr()
		attrs[string(k)] = string(v)
	}
	return attrs
}

func containsToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if f == token {
			return true
		}
	}
	return false
}
