package extractor_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uselens/pagelens/extractor"
)

func run(t *testing.T, markup string, structured bool) *extractor.Extraction {
	t.Helper()
	ext, err := extractor.New().Run([]byte(markup), structured)
	require.NoError(t, err)
	return ext
}

func TestRun_StripsNonContentElements(t *testing.T) {
	t.Parallel()

	markup := `<html><head>
		<title>Clean</title>
		<style>body { color: SECRETSTYLE; }</style>
		<script>var SECRETSCRIPT = 1;</script>
	</head><body>
		<noscript>SECRETNOSCRIPT</noscript>
		<iframe src="x">SECRETIFRAME</iframe>
		<p>visible paragraph</p>
		<h2>visible <script>SECRETINLINE</script>heading</h2>
	</body></html>`

	ext := run(t, markup, false)

	for _, secret := range []string{"SECRETSTYLE", "SECRETSCRIPT", "SECRETNOSCRIPT", "SECRETIFRAME", "SECRETINLINE"} {
		assert.NotContains(t, ext.BodyText, secret)
		for _, p := range ext.Paragraphs {
			assert.NotContains(t, p, secret)
		}
		for _, h := range ext.Headings {
			assert.NotContains(t, h, secret)
		}
	}
	assert.Contains(t, ext.BodyText, "visible paragraph")
	assert.Equal(t, []string{"visible heading"}, ext.Headings)
}

func TestRun_TitleFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{"title element", `<title>Hi</title><body><h1>Other</h1></body>`, "Hi"},
		{"h1 fallback", `<body><h1>Heading Title</h1></body>`, "Heading Title"},
		{"empty title falls to h1", `<title>  </title><body><h1>H1</h1></body>`, "H1"},
		{"no title at all", `<body><p>text</p></body>`, "No title found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, run(t, tt.markup, false).Title)
		})
	}
}

func TestRun_DescriptionFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			"meta description",
			`<head><meta name="description" content="A page."></head>`,
			"A page.",
		},
		{
			"og fallback",
			`<head><meta property="og:description" content="OG text."></head>`,
			"OG text.",
		},
		{
			"meta wins over og",
			`<head><meta name="description" content="Meta."><meta property="og:description" content="OG."></head>`,
			"Meta.",
		},
		{
			"empty content falls through",
			`<head><meta name="description" content=""><meta property="og:description" content="OG."></head>`,
			"OG.",
		},
		{
			"nothing",
			`<body><p>x</p></body>`,
			"No description available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, run(t, tt.markup, false).Description)
		})
	}
}

func TestRun_BodyTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	ext := run(t, "<body><p>  one \n\t two  </p><p>three</p></body>", false)
	assert.Equal(t, "one two three", ext.BodyText)
	assert.Equal(t, 3, ext.WordCount())
}

func TestRun_CountsAndParagraphs(t *testing.T) {
	t.Parallel()

	markup := `<title>Hi</title><body>
		<p>a</p><p>b</p>
		<a href="/1">one</a><a href="/2">two</a><a>three</a>
		<img src="x.png" alt="x"><img src="y.png">
	</body>`

	ext := run(t, markup, false)
	assert.Equal(t, []string{"a", "b"}, ext.Paragraphs)
	assert.Equal(t, 3, ext.LinkCount)
	assert.Equal(t, 2, ext.ImageCount)
	assert.Nil(t, ext.Structured)
}

func TestRun_EmptyBodyHasZeroWords(t *testing.T) {
	t.Parallel()

	ext := run(t, "<html><head><title>t</title></head><body></body></html>", false)
	assert.Equal(t, "", ext.BodyText)
	assert.Equal(t, 0, ext.WordCount())
}

func TestRun_StructuredCaps(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<body>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, "<h2>heading %d</h2>", i)
	}
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, `<a href="/l%d">link %d</a>`, i, i)
	}
	for i := 0; i < 35; i++ {
		fmt.Fprintf(&sb, `<img src="/i%d.png" alt="img %d">`, i, i)
	}
	sb.WriteString("</body>")

	ext := run(t, sb.String(), true)
	require.NotNil(t, ext.Structured)

	require.Len(t, ext.Structured.Headings, 20)
	assert.Equal(t, "heading 0", ext.Structured.Headings[0])
	assert.Equal(t, "heading 19", ext.Structured.Headings[19])

	require.Len(t, ext.Structured.Links, 50)
	assert.Equal(t, "link 0", ext.Structured.Links[0].Text)
	assert.Equal(t, "/l49", ext.Structured.Links[49].Href)

	require.Len(t, ext.Structured.Images, 30)
	assert.Equal(t, "/i0.png", ext.Structured.Images[0].Src)
	assert.Equal(t, "img 29", ext.Structured.Images[29].Alt)

	// Full counts are not capped.
	assert.Equal(t, 25, len(ext.Headings))
	assert.Equal(t, 60, ext.LinkCount)
	assert.Equal(t, 35, ext.ImageCount)
}

func TestRun_TruncationIsIdempotent(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("<body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "<h3>h%d</h3>", i)
	}
	sb.WriteString("</body>")
	markup := sb.String()

	first := run(t, markup, true)
	second := run(t, markup, true)
	assert.Equal(t, first.Structured, second.Structured)
}

func TestRun_MalformedMarkupDoesNotFail(t *testing.T) {
	t.Parallel()

	ext := run(t, `<title>Broken</title><body><p>unclosed<div><h1>head`, false)
	assert.Contains(t, ext.BodyText, "unclosed")
	assert.Contains(t, ext.Headings, "head")
}
