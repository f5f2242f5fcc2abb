package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

// MinArticleTextLength is the shortest article text accepted for storage.
const MinArticleTextLength = 10

// undecodedEntities are HTML entities that should never survive parsing.
var undecodedEntities = []string{
	"&Egrave;", "&egrave;", "&agrave;", "&ograve;",
	"&ugrave;", "&igrave;", "&amp;", "&nbsp;", "&lt;", "&gt;",
}

// uiChrome are fragments of page navigation that leak into scraped text.
// Matched case-insensitively.
var uiChrome = []string{
	"articolo successivo", "nascondi", "esporta",
	"aggiornamenti all", "approfondimenti", "-->",
	"cookie", "javascript",
}

var startsWithDigit = regexp.MustCompile(`^\d`)

// ValidateArticle checks one parsed article. Errors exclude it from storage;
// warnings are advisory.
func ValidateArticle(a domain.ParsedArticle) domain.ValidationResult {
	res := domain.ValidationResult{Number: a.Number}

	if n := utf8.RuneCountInString(a.Text); n < MinArticleTextLength {
		res.Errors = append(res.Errors, fmt.Sprintf("text too short: %d chars", n))
	}

	for _, ent := range undecodedEntities {
		if strings.Contains(a.Text, ent) {
			res.Warnings = append(res.Warnings, "undecoded HTML entity: "+ent)
		}
	}

	lower := strings.ToLower(a.Text)
	for _, term := range uiChrome {
		if strings.Contains(lower, term) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("UI leakage: %q", term))
		}
	}

	if !startsWithDigit.MatchString(strings.TrimSpace(a.Number)) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("unusual article number: %q", a.Number))
	}

	if a.Hierarchy.IsEmpty() {
		res.Warnings = append(res.Warnings, "missing hierarchy")
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// ValidateBatch validates every article and keeps the error-free ones in
// input order. An article with warnings counts as both valid and warned.
func ValidateBatch(articles []domain.ParsedArticle) domain.BatchValidation {
	batch := domain.BatchValidation{
		Details: make([]domain.ValidationResult, 0, len(articles)),
	}
	for _, a := range articles {
		res := ValidateArticle(a)
		batch.Details = append(batch.Details, res)
		if res.Valid {
			batch.ValidCount++
			batch.Valid = append(batch.Valid, a)
		} else {
			batch.ErrorCount++
		}
		if len(res.Warnings) > 0 {
			batch.WarningCount++
		}
	}
	return batch
}
