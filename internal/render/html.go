package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/docpress/internal/doctree"
)

func htmlConverter(legacy bool) goldmark.Markdown {
	// Figures, quote attributions and CO2 subscripts are raw html.
	opts := []renderer.Option{gmhtml.WithUnsafe()}
	if legacy {
		opts = append(opts, gmhtml.WithXHTML())
	}
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Footnote),
		goldmark.WithRendererOptions(opts...),
	)
}

// HTML renders doc as an HTML fragment. Citations become footnote links and
// the reference list becomes the footnote section.
func HTML(doc *doctree.Document, opts Options) ([]byte, error) {
	src := body(doc, opts, flavorHTML)

	var buf bytes.Buffer
	if err := htmlConverter(opts.LegacyHTML).Convert([]byte(src), &buf); err != nil {
		return nil, fmt.Errorf("render html %s: %w", doc.Slug, err)
	}
	return buf.Bytes(), nil
}
