package html

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexsync/internal/core/domain"
)

const subdivisionPage = `<!DOCTYPE html>
<html><head><title>GDPR</title><script>var p = "<p class='oj-normal'>no</p>";</script></head>
<body>
<p class="oj-ti-section-1">CAPO I</p>
<p class="oj-ti-section-2">Disposizioni generali</p>
<div class="eli-subdivision" id="art_1">
  <p class="oj-ti-art">Articolo 1</p>
  <p class="oj-sti-art">Oggetto e finalit&agrave;</p>
  <div id="001.001"><p class="oj-normal">1. Il presente regolamento stabilisce norme relative alla protezione.</p></div>
  <p class="oj-normal">2. Il presente regolamento protegge i diritti &amp; le <span>libert&agrave;</span>.</p>
</div>
<p class="oj-ti-section-1">CAPO II</p>
<p class="oj-ti-section-2">Principi</p>
<p class="oj-ti-section-1">Sezione 1</p>
<div class="eli-subdivision" id="art_5">
  <p class="oj-ti-art">Articolo 5</p>
  <p class="oj-sti-art">Principi applicabili al trattamento</p>
  <p class="oj-normal">I dati personali sono trattati in modo lecito.</p>
</div>
<div class="eli-subdivision" id="art_6">
  <p class="oj-ti-art">Articolo 6</p>
  <p>Testo senza classe semantica del sesto articolo.</p>
</div>
</body></html>`

func TestParse_Subdivisions(t *testing.T) {
	articles := Parse([]byte(subdivisionPage), "gdpr")
	require.Len(t, articles, 3)

	first := articles[0]
	assert.Equal(t, "1", first.Number)
	assert.Equal(t, "Oggetto e finalità", first.Title)
	assert.Equal(t,
		"1. Il presente regolamento stabilisce norme relative alla protezione.\n\n"+
			"2. Il presente regolamento protegge i diritti & le libertà .",
		first.Text)
	assert.Equal(t, "eurlex:gdpr#art_1", first.SourceURL)
	assert.True(t, first.InForce)
	assert.Equal(t, domain.Hierarchy{{Kind: "chapter", Label: "CAPO I — Disposizioni generali"}}, first.Hierarchy)

	fifth := articles[1]
	assert.Equal(t, "5", fifth.Number)
	assert.Equal(t, "Principi applicabili al trattamento", fifth.Title)
	assert.Equal(t, domain.Hierarchy{
		{Kind: "chapter", Label: "CAPO II — Principi"},
		{Kind: "section", Label: "Sezione 1"},
	}, fifth.Hierarchy)

	sixth := articles[2]
	assert.Equal(t, "6", sixth.Number)
	assert.Empty(t, sixth.Title)
	assert.Equal(t, "Testo senza classe semantica del sesto articolo.", sixth.Text)
}

func TestParse_NewChapterClosesSection(t *testing.T) {
	page := `<body>
<p class="ti-section-1">CHAPTER I</p>
<p class="ti-section-1">Section 1</p>
<p class="ti-section-1">CHAPTER II</p>
<div class="eli-subdivision" id="art_9">
  <p class="normal">Text of the ninth article.</p>
</div>
</body>`

	articles := Parse([]byte(page), "x")
	require.Len(t, articles, 1)
	assert.Equal(t, domain.Hierarchy{{Kind: "chapter", Label: "CHAPTER II"}}, articles[0].Hierarchy)
}

func TestParse_ArticleHeaders(t *testing.T) {
	page := `<html><body>
<p class="ti-section-1">TITOLO I</p>
<p class="sti-art">Articolo 1</p>
<p class="stitle-article-norm">Definizioni</p>
<p class="normal">Ai fini della presente direttiva si intende per consumatore.</p>
<p class="normal">Seconda frase.</p>
<p class="sti-art">Articolo 2</p>
<p class="normal">Breve</p>
<p class="sti-art">Articolo 3</p>
<p class="normal">Gli Stati membri provvedono.</p>
</body></html>`

	articles := Parse([]byte(page), "dir-2011-83")
	require.Len(t, articles, 2)

	assert.Equal(t, "1", articles[0].Number)
	assert.Equal(t, "Definizioni", articles[0].Title)
	assert.Equal(t, "Ai fini della presente direttiva si intende per consumatore.\n\nSeconda frase.", articles[0].Text)
	assert.Equal(t, domain.Hierarchy{{Kind: "chapter", Label: "TITOLO I"}}, articles[0].Hierarchy)
	assert.Equal(t, "eurlex:dir-2011-83#art_1", articles[0].SourceURL)

	assert.Equal(t, "3", articles[1].Number)
	assert.Equal(t, "eurlex:dir-2011-83#art_3", articles[1].SourceURL)
}

func TestParse_LegacyLayout(t *testing.T) {
	page := `<html><body>
<p>Direttiva 93/13/CEE del Consiglio</p>
<p>Articolo 1</p>
<p>1. La presente direttiva &egrave; volta a ravvicinare le disposizioni.</p>
<p>2. Ok</p>
<p>Articolo 2</p>
<p>Ai fini della presente direttiva si intende per clausola abusiva.</p>
<p>Articolo 3 bis</p>
</body></html>`

	articles := Parse([]byte(page), "dir-93-13")
	require.Len(t, articles, 2)

	assert.Equal(t, "1", articles[0].Number)
	assert.Equal(t, "1. La presente direttiva è volta a ravvicinare le disposizioni.", articles[0].Text)
	assert.Empty(t, articles[0].Title)
	assert.True(t, articles[0].Hierarchy.IsEmpty())
	assert.Equal(t, "eurlex:dir-93-13#art_1", articles[0].SourceURL)

	assert.Equal(t, "2", articles[1].Number)
	assert.Equal(t, "Ai fini della presente direttiva si intende per clausola abusiva.", articles[1].Text)
}

func TestParse_NothingRecognised(t *testing.T) {
	inputs := map[string]string{
		"empty":     "",
		"garbage":   "<<<>>> \x00 not html </p></div>",
		"no layout": "<html><body><p>Solo un paragrafo.</p></body></html>",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Parse([]byte(in), "x"))
		})
	}
}

func TestScan_OffsetsPointAtOpeningTags(t *testing.T) {
	body := []byte(subdivisionPage)
	doc := scan(body)

	require.NotEmpty(t, doc.paragraphs)
	for _, p := range doc.paragraphs {
		assert.True(t, strings.HasPrefix(string(body[p.offset:]), "<p"), "paragraph %q", p.text)
	}
	require.Len(t, doc.subdivisions, 3)
	for _, s := range doc.subdivisions {
		assert.True(t, strings.HasPrefix(string(body[s.offset:]), `<div class="eli-subdivision"`))
	}
}

func TestScan_SkipsScriptText(t *testing.T) {
	doc := scan([]byte(subdivisionPage))
	for _, p := range doc.paragraphs {
		assert.NotEqual(t, "no", p.text)
	}
}
