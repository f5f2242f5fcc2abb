package html

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexsync/internal/core/domain"
	"github.com/custodia-labs/lexsync/internal/logger"
)

// minArticleText is the shortest joined article text kept, in characters.
const minArticleText = 10

var (
	chapterCaption  = regexp.MustCompile(`(?i)^(CAPO|CHAPTER|TITOLO|TITLE|PARTE|PART)\s`)
	articoloPrefix  = regexp.MustCompile(`(?i)^articolo\s*`)
	articoloHeading = regexp.MustCompile(`(?i)^articolo\s+\d`)
	legacyHeader    = regexp.MustCompile(`(?i)^Articolo\s+(\d+)\s*$`)
	leadingDigit    = regexp.MustCompile(`^\d`)
)

// Classes of paragraphs holding article body text.
var bodyClasses = []string{"normal", "ti-grseq-1", "sti-art-sub"}

// Parse extracts articles from an EUR-Lex HTML rendering.
//
// Three strategies run in order and the first that finds anything wins:
// semantic subdivisions (div.eli-subdivision), article header paragraphs
// (p.sti-art), and finally the pre-2010 plain layout where a paragraph
// reading "Articolo N" opens each article. Parse never fails; a page none of
// them understands yields an empty slice.
func Parse(body []byte, lawSource string) []domain.ParsedArticle {
	doc := scan(body)

	if articles := parseSubdivisions(doc, lawSource); len(articles) > 0 {
		return articles
	}
	if articles := parseHeaders(doc, lawSource); len(articles) > 0 {
		logger.Debug("html: %s: parsed by article headers", lawSource)
		return articles
	}
	articles := parseLegacy(doc, lawSource)
	if len(articles) > 0 {
		logger.Debug("html: %s: parsed by legacy layout", lawSource)
	}
	return articles
}

// caption is a chapter or section heading with its position in the body.
type caption struct {
	offset  int
	chapter bool
	text    string
}

// captions collects the ti-section-1 headings in order. A ti-section-2
// paragraph describes the most recent heading before it.
func captions(doc document) []caption {
	var out []caption
	for _, p := range doc.paragraphs {
		switch {
		case p.hasClass("ti-section-1"):
			out = append(out, caption{
				offset:  p.offset,
				chapter: chapterCaption.MatchString(p.text),
				text:    p.text,
			})
		case p.hasClass("ti-section-2"):
			if len(out) > 0 && utf8.RuneCountInString(p.text) >= 3 {
				last := &out[len(out)-1]
				last.text += " — " + p.text
			}
		}
	}
	return out
}

// hierarchyAt returns the chapter and section open at offset. A new
// chapter closes the current section.
func hierarchyAt(caps []caption, offset int) domain.Hierarchy {
	var h domain.Hierarchy
	for _, c := range caps {
		if c.offset > offset {
			break
		}
		if c.chapter {
			h = h.Delete("section").Set("chapter", c.text)
		} else {
			h = h.Set("section", c.text)
		}
	}
	return h
}

// between returns the paragraphs starting in [from, to).
func between(doc document, from, to int) []paragraph {
	var out []paragraph
	for _, p := range doc.paragraphs {
		if p.offset >= from && p.offset < to {
			out = append(out, p)
		}
	}
	return out
}

func parseSubdivisions(doc document, lawSource string) []domain.ParsedArticle {
	caps := captions(doc)

	var articles []domain.ParsedArticle
	for i, sub := range doc.subdivisions {
		if !strings.HasPrefix(sub.id, "art_") {
			continue
		}
		end := doc.size
		if i+1 < len(doc.subdivisions) {
			end = doc.subdivisions[i+1].offset
		}

		a, ok := subdivisionArticle(sub.id, between(doc, sub.offset, end))
		if !ok {
			continue
		}
		a.Hierarchy = hierarchyAt(caps, sub.offset)
		a.SourceURL = "eurlex:" + lawSource + "#" + sub.id
		articles = append(articles, a)
	}
	return articles
}

func subdivisionArticle(id string, block []paragraph) (domain.ParsedArticle, bool) {
	number := strings.TrimPrefix(id, "art_")
	if !leadingDigit.MatchString(number) {
		number = ""
	}
	if number == "" {
		number = headerNumber(block, "ti-art")
	}
	if number == "" {
		number = headerNumber(block, "sti-art")
	}
	if number == "" {
		return domain.ParsedArticle{}, false
	}

	var title string
	if p, ok := first(block, "sti-art"); ok && !articoloHeading.MatchString(p.text) {
		title = p.text
	}
	if title == "" {
		if p, ok := first(block, "stitle-article-norm"); ok {
			title = p.text
		}
	}

	var parts []string
	for _, p := range block {
		if p.hasClass(bodyClasses...) && utf8.RuneCountInString(p.text) > 2 {
			parts = append(parts, p.text)
		}
	}
	if len(parts) == 0 {
		for _, p := range block {
			if utf8.RuneCountInString(p.text) > 5 && !articoloHeading.MatchString(p.text) && p.text != title {
				parts = append(parts, p.text)
			}
		}
	}

	text := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(text) < minArticleText {
		return domain.ParsedArticle{}, false
	}
	return domain.ParsedArticle{Number: number, Title: title, Text: text, InForce: true}, true
}

func parseHeaders(doc document, lawSource string) []domain.ParsedArticle {
	type header struct {
		offset int
		number string
	}
	var headers []header
	for _, p := range doc.paragraphs {
		if !p.hasClass("sti-art") {
			continue
		}
		if n := strings.TrimSpace(articoloPrefix.ReplaceAllString(p.text, "")); n != "" {
			headers = append(headers, header{offset: p.offset, number: n})
		}
	}

	caps := captions(doc)
	var articles []domain.ParsedArticle
	for i, h := range headers {
		end := doc.size
		if i+1 < len(headers) {
			end = headers[i+1].offset
		}
		block := between(doc, h.offset, end)

		var title string
		if p, ok := first(block, "stitle-article-norm"); ok {
			title = p.text
		}

		var parts []string
		for _, p := range block {
			if p.hasClass("normal") && utf8.RuneCountInString(p.text) > 2 {
				parts = append(parts, p.text)
			}
		}
		text := strings.Join(parts, "\n\n")
		if utf8.RuneCountInString(text) < minArticleText {
			continue
		}

		articles = append(articles, domain.ParsedArticle{
			Number:    h.number,
			Title:     title,
			Text:      text,
			Hierarchy: hierarchyAt(caps, h.offset),
			SourceURL: "eurlex:" + lawSource + "#art_" + h.number,
			InForce:   true,
		})
	}
	return articles
}

func parseLegacy(doc document, lawSource string) []domain.ParsedArticle {
	type header struct {
		index  int
		number string
	}
	var headers []header
	for i, p := range doc.paragraphs {
		if m := legacyHeader.FindStringSubmatch(p.text); m != nil {
			headers = append(headers, header{index: i, number: m[1]})
		}
	}

	var articles []domain.ParsedArticle
	for i, h := range headers {
		end := len(doc.paragraphs)
		if i+1 < len(headers) {
			end = headers[i+1].index
		}

		var parts []string
		for _, p := range doc.paragraphs[h.index+1 : end] {
			if utf8.RuneCountInString(p.text) > 5 && !articoloHeading.MatchString(p.text) {
				parts = append(parts, p.text)
			}
		}
		text := strings.Join(parts, "\n\n")
		if utf8.RuneCountInString(text) < minArticleText {
			continue
		}

		articles = append(articles, domain.ParsedArticle{
			Number:    h.number,
			Text:      text,
			SourceURL: "eurlex:" + lawSource + "#art_" + h.number,
			InForce:   true,
		})
	}
	return articles
}

// headerNumber reads "Articolo N" from the first paragraph with class.
func headerNumber(block []paragraph, class string) string {
	p, ok := first(block, class)
	if !ok {
		return ""
	}
	return strings.TrimSpace(articoloPrefix.ReplaceAllString(p.text, ""))
}

func first(block []paragraph, class string) (paragraph, bool) {
	for _, p := range block {
		if p.hasClass(class) {
			return p, true
		}
	}
	return paragraph{}, false
}
