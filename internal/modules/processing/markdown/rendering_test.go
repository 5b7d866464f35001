package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownContentEmpty(t *testing.T) {
	assert.Empty(t, RenderMarkdownContent(""))
	assert.Empty(t, RenderMarkdownContent("   \n\t  "))
}

func TestRenderMarkdownContentBasics(t *testing.T) {
	html := RenderMarkdownContent("# Photosynthesis\n\nPlants make food from light.")
	assert.Contains(t, html, "<h1>Photosynthesis</h1>")
	assert.Contains(t, html, "<p>Plants make food from light.</p>")
}

func TestRenderMarkdownContentGFM(t *testing.T) {
	html := RenderMarkdownContent("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~struck~~")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<del>struck</del>")
}

func TestRenderMarkdownContentInlineMath(t *testing.T) {
	html := RenderMarkdownContent("Energy: $E=mc^2$ famously.")
	assert.Contains(t, html, `<span class="katex-render">E=mc^2</span>`)
}

func TestRenderMarkdownContentMermaid(t *testing.T) {
	html := RenderMarkdownContent("```mermaid\ngraph TD;\nA-->B;\n```")
	assert.Contains(t, html, `<pre class="mermaid">`)
	assert.NotContains(t, html, "language-mermaid")
}

func TestRenderMarkdownContentImages(t *testing.T) {
	html := RenderMarkdownContent("![diagram](https://img.test/cell.png)")
	assert.Contains(t, html, `<img src="https://img.test/cell.png"/>`)

	// Alt text starting with "!" becomes a figure caption.
	html = RenderMarkdownContent("![!The cell wall](https://img.test/cell.png)")
	assert.Contains(t, html, "<figure>")
	assert.Contains(t, html, "<figcaption>The cell wall</figcaption>")
}

func TestBuildRenderedMarkdownHTMLStructure(t *testing.T) {
	s := BuildRenderedMarkdownHTMLStructure("<p>x</p>", "Cells & You", "")
	if assert.Len(t, s.Body, 1) {
		assert.True(t, strings.HasPrefix(s.Body[0], "<article><h1>Cells &amp; You</h1>"))
		assert.Contains(t, s.Body[0], "<p>x</p>")
	}
	if assert.Len(t, s.Style, 2) {
		assert.Equal(t, readerThemePaper, s.Style[1])
	}

	s = BuildRenderedMarkdownHTMLStructure("", "t", "sepia")
	assert.Equal(t, readerThemeSepia, s.Style[1])
	s = BuildRenderedMarkdownHTMLStructure("", "t", "DARK")
	assert.Equal(t, readerThemeDark, s.Style[1])
	s = BuildRenderedMarkdownHTMLStructure("", "t", "unknown-theme")
	assert.Equal(t, readerThemePaper, s.Style[1])
}

func TestRenderMarkdownHTMLDocument(t *testing.T) {
	structure := BuildRenderedMarkdownHTMLStructure("<p>body</p>", "A Title", "")

	doc := RenderMarkdownHTMLDocument(structure, RenderDocumentOptions{
		Title:  "A Title",
		Info:   "Author / 6th Grade",
		Footer: "the end",
	})
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, "<title>A Title</title>")
	assert.Contains(t, doc, "Author / 6th Grade")
	assert.Contains(t, doc, "the end")
	assert.Contains(t, doc, "<p>body</p>")

	// A blank title falls back to the generic reader title, and the optional
	// info/footer blocks disappear.
	doc = RenderMarkdownHTMLDocument(structure, RenderDocumentOptions{})
	assert.Contains(t, doc, "<title>Reader</title>")
	assert.NotContains(t, doc, "reading-info")
	assert.NotContains(t, doc, "<footer")
}
