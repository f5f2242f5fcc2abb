// Package textclean is the text cleanup shared by every parser and connector:
// entity decoding and whitespace normalisation.
package textclean

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for cleanup performance.
var (
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	anyWhitespace = regexp.MustCompile(`\s+`)
)

// decode resolves named and numeric entities. Non-breaking spaces become
// plain spaces so that whitespace collapsing treats them alike.
func decode(s string) string {
	s = html.UnescapeString(s)
	return strings.ReplaceAll(s, "\u00a0", " ")
}

// Clean decodes entities, collapses runs of blank lines to one, collapses
// horizontal whitespace and trims. Line structure is kept.
func Clean(s string) string {
	s = decode(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	s = multiSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Inline decodes entities and collapses every whitespace run, newlines
// included, to a single space.
func Inline(s string) string {
	s = decode(s)
	s = anyWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripEditorial removes the "((" and "))" marks that consolidated Italian
// texts use around amended passages.
func StripEditorial(s string) string {
	s = strings.ReplaceAll(s, "((", "")
	return strings.ReplaceAll(s, "))", "")
}

// OneLine folds line breaks into spaces and trims, keeping inner spacing.
func OneLine(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}
