// Package render turns finished documents into publication formats. Every
// renderer reads the document and never modifies it.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docpress/internal/doctree"
)

// ErrUnknownFormat is returned for an output format with no renderer.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is a per-document output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// Ext returns the file extension of the format, with the dot.
func (f Format) Ext() string { return "." + string(f) }

// ParseFormats validates a list of format names.
func ParseFormats(names []string) ([]Format, error) {
	var out []Format
	seen := map[Format]bool{}
	for _, n := range names {
		f := Format(strings.ToLower(strings.TrimSpace(n)))
		switch f {
		case FormatMarkdown, FormatHTML, FormatPDF:
		case "markdown":
			f = FormatMarkdown
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, n)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Options are shared by the renderers. Each renderer reads the fields that
// apply to it.
type Options struct {
	// AssetPrefix is prepended to image paths in text output. Defaults to "./".
	AssetPrefix string
	// AssetRoot is the directory image paths are relative to, for renderers
	// that embed image bytes.
	AssetRoot string

	// Frontmatter adds the YAML header to markdown output.
	Frontmatter bool
	// PDFBadge links markdown output to the document's PDF.
	PDFBadge bool

	// LegacyHTML emits div/small figures and XHTML void tags instead of
	// figure/figcaption.
	LegacyHTML bool

	// ForBook renders PDFs for book assembly: no running header or footer,
	// padded to an even page count.
	ForBook bool
	// RunningTitle is printed on every PDF page next to the document title.
	RunningTitle string
}

func (o Options) assetPrefix() string {
	if o.AssetPrefix == "" {
		return "./"
	}
	return o.AssetPrefix
}

// Render dispatches to the renderer for f.
func Render(doc *doctree.Document, f Format, opts Options) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return Markdown(doc, opts)
	case FormatHTML:
		return HTML(doc, opts)
	case FormatPDF:
		return PDF(doc, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
