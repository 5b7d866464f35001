// Package markdown turns book content into HTML for the in-app reader.
// Plain prose comes out paragraph-wrapped; GFM constructs, inline $math$,
// and mermaid code fences get their reader treatment.
package markdown

import (
	"bytes"
	_ "embed"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

//go:embed assets/reader.css
var readerBaseStyle string

//go:embed assets/theme/paper.css
var readerThemePaper string

//go:embed assets/theme/sepia.css
var readerThemeSepia string

//go:embed assets/theme/dark.css
var readerThemeDark string

// RenderedHTMLStructure carries the pieces of a standalone reader page.
type RenderedHTMLStructure struct {
	Body         []string `json:"body"`
	ExtraScripts []string `json:"extraScripts"`
	Script       []string `json:"script"`
	Link         []string `json:"link"`
	Style        []string `json:"style"`
}

type RenderDocumentOptions struct {
	Title  string
	Info   string
	Footer string
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
		// Inline KaTeX spans are injected before conversion and must survive it.
		htmlrenderer.WithUnsafe(),
	),
)

var (
	inlineKatexPattern   = regexp.MustCompile(`\$([^\$\n]+?)\$`)
	mermaidCodeRegex     = regexp.MustCompile(`(?is)<pre><code class="language-mermaid">([\s\S]*?)</code></pre>`)
	imageTagRegex        = regexp.MustCompile(`(?is)<img\s+[^>]*>`)
	imageAttrRegex       = regexp.MustCompile(`([a-zA-Z:_-]+)\s*=\s*"([^"]*)"`)
	figureParagraphRegex = regexp.MustCompile(`(?is)<p>\s*(<figure>[\s\S]*?</figure>)\s*</p>`)
)

// RenderMarkdownContent converts book text to reader HTML. Textbooks lean on
// tables, inline math, and diagrams, so those survive the conversion; on a
// goldmark failure the raw text is escaped instead of dropped.
func RenderMarkdownContent(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		return ""
	}

	text = replaceInlineKatex(text)

	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return template.HTMLEscapeString(text)
	}

	html := out.String()
	html = rewriteMermaidBlocks(html)
	html = rewriteImages(html)
	return html
}

func BuildRenderedMarkdownHTMLStructure(html, title, theme string) RenderedHTMLStructure {
	return RenderedHTMLStructure{
		Body: []string{
			"<article><h1>" + template.HTMLEscapeString(title) + "</h1>" + html + "</article>",
		},
		ExtraScripts: []string{
			`<script src="https://cdn.jsdelivr.net/npm/mermaid@9.4.3/dist/mermaid.min.js"></script>`,
			`<script src="https://cdn.jsdelivr.net/npm/prismjs@1.29.0/components/prism-core.min.js"></script>`,
			`<script src="https://cdn.jsdelivr.net/npm/prismjs@1.29.0/plugins/autoloader/prism-autoloader.min.js"></script>`,
			`<script src="https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.js" async defer></script>`,
		},
		Script: []string{
			`window.mermaid.initialize({theme: 'neutral', startOnLoad: false})`,
			`window.mermaid.init(undefined, '.mermaid')`,
			`window.onload = () => { document.querySelectorAll('.katex-render').forEach(el => { window.katex.render(el.innerHTML, el, { throwOnError: false }) }) }`,
		},
		Link: []string{
			`<link href="https://cdn.jsdelivr.net/npm/prismjs@1.29.0/themes/prism.min.css" rel="stylesheet" />`,
			`<link href="https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.css" rel="stylesheet" />`,
		},
		Style: []string{
			readerBaseStyle,
			resolveThemeStyle(theme),
		},
	}
}

func RenderMarkdownHTMLDocument(structure RenderedHTMLStructure, options RenderDocumentOptions) string {
	var b strings.Builder
	b.Grow(4096)

	title := template.HTMLEscapeString(strings.TrimSpace(options.Title))
	if title == "" {
		title = "Reader"
	}

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n")
	b.WriteString("  <head>\n")
	b.WriteString("    <meta charset=\"UTF-8\" />\n")
	b.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\" />\n")
	b.WriteString("    <meta name=\"referrer\" content=\"no-referrer\" />\n")
	b.WriteString("    <style>\n")
	b.WriteString(strings.Join(structure.Style, "\n"))
	b.WriteString("\n    </style>\n")
	b.WriteString("    ")
	b.WriteString(strings.Join(structure.Link, "\n    "))
	b.WriteString("\n")
	b.WriteString("    <title>")
	b.WriteString(title)
	b.WriteString("</title>\n")
	b.WriteString("  </head>\n\n")
	b.WriteString("  <body class=\"markdown-body\" id=\"reader\">\n")

	if info := strings.TrimSpace(options.Info); info != "" {
		b.WriteString("    <p class=\"reading-info\" style=\"text-align: center; margin: 20px auto;\">\n")
		b.WriteString("      ")
		b.WriteString(info)
		b.WriteString("\n")
		b.WriteString("    </p>\n")
	}

	b.WriteString("    ")
	b.WriteString(strings.Join(structure.Body, "\n    "))
	b.WriteString("\n")
	b.WriteString("  </body>\n\n")

	if footer := strings.TrimSpace(options.Footer); footer != "" {
		b.WriteString("  <footer style=\"text-align: center; padding: 2em 0; font-size: 0.8em; opacity: 0.7;\">\n")
		b.WriteString("    ")
		b.WriteString(footer)
		b.WriteString("\n")
		b.WriteString("  </footer>\n")
	}

	b.WriteString("  ")
	b.WriteString(strings.Join(structure.ExtraScripts, "\n  "))
	b.WriteString("\n")
	b.WriteString("  <script>\n")
	b.WriteString("    ")
	b.WriteString(strings.Join(structure.Script, "\n    "))
	b.WriteString("\n")
	b.WriteString("  </script>\n")
	b.WriteString("</html>")

	return b.String()
}

func resolveThemeStyle(theme string) string {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "sepia":
		return readerThemeSepia
	case "dark":
		return readerThemeDark
	default:
		return readerThemePaper
	}
}

// replaceInlineKatex wraps $...$ spans so the client-side KaTeX pass can
// find them after goldmark has run.
func replaceInlineKatex(text string) string {
	return inlineKatexPattern.ReplaceAllStringFunc(text, func(raw string) string {
		match := inlineKatexPattern.FindStringSubmatch(raw)
		if len(match) < 2 {
			return raw
		}
		content := template.HTMLEscapeString(strings.TrimSpace(match[1]))
		return `<span class="katex-render">` + content + `</span>`
	})
}

func rewriteMermaidBlocks(html string) string {
	return mermaidCodeRegex.ReplaceAllString(html, `<pre class="mermaid">$1</pre>`)
}

// rewriteImages normalizes img tags; an alt text starting with "!" becomes a
// figure caption.
func rewriteImages(html string) string {
	processed := imageTagRegex.ReplaceAllStringFunc(html, func(tag string) string {
		attrs := parseImageAttrs(tag)
		src := strings.TrimSpace(attrs["src"])
		if src == "" {
			return tag
		}

		alt := strings.TrimSpace(attrs["alt"])
		title := strings.TrimSpace(attrs["title"])
		escapedSrc := template.HTMLEscapeString(src)

		if strings.HasPrefix(alt, "!") {
			caption := strings.TrimSpace(strings.TrimPrefix(alt, "!"))
			if caption == "" {
				caption = title
			}
			caption = template.HTMLEscapeString(caption)
			return `<figure><img src="` + escapedSrc + `"/><figcaption>` + caption + `</figcaption></figure>`
		}

		return `<img src="` + escapedSrc + `"/>`
	})
	return figureParagraphRegex.ReplaceAllString(processed, "$1")
}

func parseImageAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	matches := imageAttrRegex.FindAllStringSubmatch(tag, -1)
	for _, item := range matches {
		if len(item) < 3 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(item[1]))
		if key == "" {
			continue
		}
		attrs[key] = item[2]
	}
	return attrs
}
