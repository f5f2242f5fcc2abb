package akn

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/logger"
	"github.com/custodia-labs/lexsync/internal/normalisers/textclean"
)

// minArticleText is the shortest article text kept, in characters.
const minArticleText = 5

// hierarchyLevels are the AKN containers that contribute to the hierarchy map.
var hierarchyLevels = map[string]bool{
	"book":    true,
	"part":    true,
	"title":   true,
	"chapter": true,
	"section": true,
}

// leafElements never contain articles and are not descended into.
var leafElements = map[string]bool{
	"num":     true,
	"heading": true,
	"content": true,
	"meta":    true,
}

// ordinalSuffixes are the Latin multipliers used for inserted articles.
const ordinalSuffixes = `bis|ter|quater|quinquies|sexies|septies|octies|novies|decies`

var (
	articlePrefix   = regexp.MustCompile(`(?i)^art\.?\s*`)
	legislativeMark = regexp.MustCompile(`(?i)^\s*\([LR]\)\s*`)
	docNameNumber   = regexp.MustCompile(`(?i)art\.\s*(\d+(?:\s*(?:` + ordinalSuffixes + `))?)`)
	inlineHeader    = regexp.MustCompile(`(?is)^(?:.*?\s)?Art\.\s*(\d+(?:-(?:` + ordinalSuffixes + `))?)\.?\s*`)
	inlineTitle     = regexp.MustCompile(`^\(([^)]+)\)\s*`)
	leadingPunct    = regexp.MustCompile(`^[.\s]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Parse turns an Akoma Ntoso document into articles.
//
// Two layouts are understood: the standard one, where articles sit in the
// act body inside nested book/part/title/chapter/section containers, and the
// attachment layout of royal decrees, where each article is a separate
// attachment whose number and title are inline in the text. The attachment
// reading wins when it yields more articles than the body.
//
// Parse never fails: malformed input yields whatever was recovered.
func Parse(data []byte, lawSource string) []domain.ParsedArticle {
	root, err := parseTree(data)
	if err != nil {
		logger.Debug("akn: %s: %v", lawSource, err)
		return nil
	}

	act := root
	if root.name == "akomaNtoso" {
		act = firstElement(root)
	}
	if act == nil {
		return nil
	}

	var articles []domain.ParsedArticle
	if body := act.child("body"); body != nil {
		articles = collect(body, nil, lawSource, articles)
	}

	if attachments := act.child("attachments"); attachments != nil {
		fromAttachments := parseAttachments(attachments, lawSource)
		if len(fromAttachments) > len(articles) {
			return fromAttachments
		}
	}

	return articles
}

// firstElement returns the document type element (act, bill, doc, ...).
func firstElement(root *element) *element {
	if act := root.child("act"); act != nil {
		return act
	}
	elems := root.elements()
	if len(elems) == 0 {
		return nil
	}
	return elems[0]
}

// collect walks e in document order. Each container gets its own copy of the
// enclosing hierarchy so labels never leak between sibling branches.
func collect(e *element, h domain.Hierarchy, lawSource string, out []domain.ParsedArticle) []domain.ParsedArticle {
	for _, child := range e.elements() {
		switch {
		case child.name == "article":
			if a, ok := parseArticle(child, h, lawSource); ok {
				out = append(out, a)
			}
		case hierarchyLevels[child.name]:
			scoped := h.Clone()
			if label := containerLabel(child); label != "" {
				scoped = scoped.Set(child.name, label)
			}
			out = collect(child, scoped, lawSource, out)
		case leafElements[child.name]:
		default:
			out = collect(child, h, lawSource, out)
		}
	}
	return out
}

// containerLabel joins a container's number and heading.
func containerLabel(e *element) string {
	var parts []string
	if num := e.child("num").text(); num != "" {
		parts = append(parts, num)
	}
	if heading := e.child("heading").text(); heading != "" {
		parts = append(parts, heading)
	}
	return strings.Join(parts, " — ")
}

func parseArticle(art *element, h domain.Hierarchy, lawSource string) (domain.ParsedArticle, bool) {
	number := cleanNumber(art.child("num").text())
	if number == "" {
		return domain.ParsedArticle{}, false
	}

	title := strings.TrimSpace(legislativeMark.ReplaceAllString(art.child("heading").text(), ""))

	text := textclean.Clean(textclean.StripEditorial(articleText(art)))
	if utf8.RuneCountInString(text) < minArticleText {
		return domain.ParsedArticle{}, false
	}

	a := domain.ParsedArticle{
		Number:    number,
		Title:     title,
		Text:      text,
		Hierarchy: h.Clone(),
		InForce:   !isRepealed(art),
	}
	if eID := art.attr("eId", "id"); eID != "" {
		a.SourceURL = "normattiva:" + lawSource + "#" + eID
	}
	return a, true
}

// articleText joins the content and paragraph children with blank lines,
// falling back to all of the article's text.
func articleText(art *element) string {
	var parts []string
	for _, c := range art.elements() {
		if c.name != "content" && c.name != "paragraph" {
			continue
		}
		if t := c.text(); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return art.text()
	}
	return strings.Join(parts, "\n\n")
}

// cleanNumber turns "Art. 1537." into "1537"; suffixes such as "-bis" stay.
func cleanNumber(raw string) string {
	n := articlePrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	n = strings.TrimSuffix(n, ".")
	return strings.TrimSpace(n)
}

// isRepealed checks the status attribute and the visible text.
func isRepealed(art *element) bool {
	if strings.Contains(strings.ToLower(art.attr("status")), "abrogat") {
		return true
	}
	text := strings.ToLower(art.text())
	return strings.Contains(text, "articolo abrogato") || strings.Contains(text, "comma abrogato")
}

// parseAttachments reads the royal-decree layout:
// attachment > doc[name="Codice Penale-art. 3 bis"] > mainBody.
func parseAttachments(attachments *element, lawSource string) []domain.ParsedArticle {
	var articles []domain.ParsedArticle
	for _, att := range attachments.elements() {
		if att.name != "attachment" {
			continue
		}
		doc := att.child("doc")
		mainBody := doc.child("mainBody")
		if mainBody == nil {
			continue
		}

		raw := mainBody.text()
		if utf8.RuneCountInString(raw) < 10 {
			continue
		}

		number, title, text, ok := parseInline(raw, numberFromDocName(doc.attr("name")))
		if !ok {
			continue
		}

		articles = append(articles, domain.ParsedArticle{
			Number:    number,
			Title:     title,
			Text:      text,
			SourceURL: "normattiva:" + lawSource + "#art_" + number,
			InForce:   !strings.Contains(strings.ToLower(raw), "articolo abrogato"),
		})
	}
	return articles
}

// numberFromDocName extracts "3-bis" from "Codice Penale-art. 3 bis".
func numberFromDocName(name string) string {
	m := docNameNumber.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(m[1]), "-")
}

// parseInline splits "Art. N. (Title) body" into its parts.
func parseInline(raw, fallbackNumber string) (number, title, text string, ok bool) {
	text = strings.TrimSpace(textclean.StripEditorial(raw))

	number = fallbackNumber
	if m := inlineHeader.FindStringSubmatch(text); m != nil {
		number = m[1]
		text = text[len(m[0]):]
	}
	if number == "" {
		return "", "", "", false
	}

	text = leadingPunct.ReplaceAllString(text, "")
	if m := inlineTitle.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
		text = text[len(m[0]):]
	}
	text = textclean.Clean(leadingPunct.ReplaceAllString(text, ""))

	if utf8.RuneCountInString(text) < minArticleText {
		return "", "", "", false
	}
	return number, title, text, true
}
