package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HierarchyLevel is one structural container enclosing an article.
type HierarchyLevel struct {
	Kind  string
	Label string
}

// Hierarchy is an ordered map of container kind to label, outermost first.
type Hierarchy []HierarchyLevel

// Get returns the label for kind.
func (h Hierarchy) Get(kind string) (string, bool) {
	for _, lvl := range h {
		if lvl.Kind == kind {
			return lvl.Label, true
		}
	}
	return "", false
}

// Set replaces the label for kind in place, or appends a new level.
func (h Hierarchy) Set(kind, label string) Hierarchy {
	for i := range h {
		if h[i].Kind == kind {
			h[i].Label = label
			return h
		}
	}
	return append(h, HierarchyLevel{Kind: kind, Label: label})
}

// Delete removes kind if present.
func (h Hierarchy) Delete(kind string) Hierarchy {
	out := make(Hierarchy, 0, len(h))
	for _, lvl := range h {
		if lvl.Kind != kind {
			out = append(out, lvl)
		}
	}
	return out
}

// Clone returns an independent copy.
func (h Hierarchy) Clone() Hierarchy {
	if h == nil {
		return nil
	}
	out := make(Hierarchy, len(h))
	copy(out, h)
	return out
}

// IsEmpty reports whether no container encloses the article.
func (h Hierarchy) IsEmpty() bool {
	return len(h) == 0
}

// MarshalJSON encodes the hierarchy as a JSON object preserving order.
func (h Hierarchy) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, lvl := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(lvl.Kind)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(lvl.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("hierarchy: expected object, got %v", tok)
	}
	var out Hierarchy
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("hierarchy: expected string key, got %v", keyTok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("hierarchy: value for %q: %w", key, err)
		}
		out = append(out, HierarchyLevel{Kind: key, Label: label})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*h = out
	return nil
}

// ParsedArticle is one article recovered from an upstream document.
// It has no identity beyond (source, Number).
type ParsedArticle struct {
	// Number may carry a suffix, e.g. "2645-ter".
	Number    string    `json:"articleNumber"`
	Title     string    `json:"articleTitle,omitempty"`
	Text      string    `json:"articleText"`
	Hierarchy Hierarchy `json:"hierarchy"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	InForce   bool      `json:"isInForce"`
}

// LegalArticle is the storage shape of an article in the corpus.
type LegalArticle struct {
	LawSource         string
	ArticleReference  string
	Title             string
	Text              string
	Hierarchy         Hierarchy
	Keywords          []string
	RelatedInstitutes []string
	SourceURL         string
	InForce           bool
	Embedding         []float32
}

// Key returns the upsert identity of the article.
func (a LegalArticle) Key() string {
	return a.LawSource + " " + a.ArticleReference
}

// EmbeddingText is the text sent to the embedding provider.
func (a LegalArticle) EmbeddingText() string {
	head := a.LawSource + " " + a.ArticleReference
	if a.Title != "" {
		head += " — " + a.Title
	}
	return head + "\n" + a.Text
}

// ContentHash fingerprints the stored content of the article. The embedding
// is derived from the content and not part of it.
func (a LegalArticle) ContentHash() string {
	h := sha256.New()
	hierarchy, _ := a.Hierarchy.MarshalJSON()
	for _, part := range []string{
		a.LawSource,
		a.ArticleReference,
		a.Title,
		a.Text,
		string(hierarchy),
		strings.Join(a.Keywords, "\x1f"),
		strings.Join(a.RelatedInstitutes, "\x1f"),
		a.SourceURL,
		strconv.FormatBool(a.InForce),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
