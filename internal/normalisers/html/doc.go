// Package html extracts articles from EUR-Lex HTML renderings, where the
// structure has to be inferred from CSS classes or from plain paragraph
// conventions. Each layout is handled by its own strategy.
package html
