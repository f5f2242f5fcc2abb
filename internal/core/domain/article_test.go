package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHierarchy_SetAndGet(t *testing.T) {
	var h Hierarchy
	h = h.Set("chapter", "CAPO I")
	h = h.Set("section", "Sezione 1")
	h = h.Set("chapter", "CAPO II")

	label, ok := h.Get("chapter")
	require.True(t, ok)
	assert.Equal(t, "CAPO II", label)
	assert.Len(t, h, 2)
	assert.Equal(t, "chapter", h[0].Kind)

	_, ok = h.Get("book")
	assert.False(t, ok)
}

func TestHierarchy_CloneIsIndependent(t *testing.T) {
	parent := Hierarchy{{Kind: "book", Label: "LIBRO I"}}
	child := parent.Clone().Set("title", "TITOLO I")
	child.Set("book", "LIBRO II")

	assert.Len(t, parent, 1)
	assert.Equal(t, "LIBRO I", parent[0].Label)
}

func TestHierarchy_Delete(t *testing.T) {
	h := Hierarchy{{Kind: "chapter", Label: "CAPO I"}, {Kind: "section", Label: "S1"}}

	out := h.Delete("section")

	assert.Len(t, out, 1)
	assert.Len(t, h, 2)
}

// TestHierarchy_JSONPreservesOrder tests that keys keep insertion order
func TestHierarchy_JSONPreservesOrder(t *testing.T) {
	h := Hierarchy{
		{Kind: "title", Label: "TITOLO II"},
		{Kind: "book", Label: "LIBRO IV"},
	}

	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"TITOLO II","book":"LIBRO IV"}`, string(data))

	var decoded Hierarchy
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, h, decoded)
}

func TestHierarchy_JSONEmpty(t *testing.T) {
	data, err := json.Marshal(Hierarchy(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var decoded Hierarchy
	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.True(t, decoded.IsEmpty())

	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &decoded))
}

func TestLegalArticle_EmbeddingText(t *testing.T) {
	a := LegalArticle{LawSource: "c.c.", ArticleReference: "Art. 1", Title: "Fonti", Text: "Sono fonti del diritto"}
	assert.Equal(t, "c.c. Art. 1 — Fonti\nSono fonti del diritto", a.EmbeddingText())
	assert.Equal(t, "c.c. Art. 1", a.Key())

	a.Title = ""
	assert.Equal(t, "c.c. Art. 1\nSono fonti del diritto", a.EmbeddingText())
}

func TestStoreResult_Add(t *testing.T) {
	r := StoreResult{Inserted: 1}
	r.Add(StoreResult{Inserted: 2, Updated: 1, Errors: 1, ErrorDetails: []ItemError{{Item: "x", Error: "boom"}}})

	assert.Equal(t, 3, r.Inserted)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Errors)
	assert.Len(t, r.ErrorDetails, 1)
}

func TestLegalArticle_ContentHash(t *testing.T) {
	a := LegalArticle{
		LawSource:        "c.c.",
		ArticleReference: "Art. 1",
		Text:             "Sono fonti del diritto",
		Hierarchy:        Hierarchy{{Kind: "book", Label: "Libro I"}},
		InForce:          true,
	}
	b := a
	b.Embedding = []float32{0.1, 0.2}
	b.Keywords = []string{}
	assert.Equal(t, a.ContentHash(), b.ContentHash(), "embedding and nil-vs-empty slices do not count")

	b.Text = "Sono fonti del diritto: le leggi"
	assert.NotEqual(t, a.ContentHash(), b.ContentHash())

	c := a
	c.Hierarchy = Hierarchy{{Kind: "book", Label: "Libro II"}}
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}
