package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docpress/internal/doctree"
)

// flavor selects how elements without a plain markdown form are written.
type flavor int

const (
	flavorMarkdown flavor = iota // site markdown with containers and raw html
	flavorHTML                   // input for the html renderer
	flavorPDF                    // input for the pdf renderer, no raw html
)

type bodyWriter struct {
	doc    *doctree.Document
	opts   Options
	flavor flavor
	b      strings.Builder
}

// Markdown renders doc as markdown with footnote references.
func Markdown(doc *doctree.Document, opts Options) ([]byte, error) {
	var out bytes.Buffer
	if opts.Frontmatter {
		fm, err := frontMatter(doc)
		if err != nil {
			return nil, err
		}
		out.WriteString("---\n")
		out.Write(fm)
		out.WriteString("---\n\n\n")
	}
	if opts.PDFBadge {
		fmt.Fprintf(&out, "<a href='./pdf/%s.pdf' target='_blank'><badge type='danger' text='PDF' /></a>\n\n", doc.Slug)
	}
	out.WriteString(body(doc, opts, flavorMarkdown))
	return out.Bytes(), nil
}

// body renders the elements, author bios and reference block of doc.
func body(doc *doctree.Document, opts Options, f flavor) string {
	w := &bodyWriter{doc: doc, opts: opts, flavor: f}
	for _, el := range doc.Elements {
		w.element(el)
	}
	for _, a := range doc.Authors {
		if a.Bio != "" {
			w.element(doctree.AuthorBio{Text: a.Bio})
		}
	}

	text := w.b.String()
	if f == flavorPDF {
		return text + w.plainReferences()
	}
	return Footnotes(text, doc.References) + w.footnoteDefinitions()
}

func (w *bodyWriter) text(s string) string {
	if w.flavor == flavorPDF {
		return s
	}
	return subscriptCO2(s)
}

func (w *bodyWriter) block(s string) {
	w.b.WriteString(s)
	w.b.WriteString("\n\n")
}

func (w *bodyWriter) element(el doctree.Element) {
	switch e := el.(type) {
	case doctree.Header:
		w.block(strings.Repeat("#", e.Level) + " " + e.Text)

	case doctree.Paragraph:
		w.block(w.text(e.Text))

	case doctree.BulletList:
		lines := make([]string, len(e.Items))
		for i, it := range e.Items {
			lines[i] = "- " + indentContinuation(w.text(it), "  ")
		}
		w.block(strings.Join(lines, "\n"))

	case doctree.OrderedList:
		lines := make([]string, len(e.Items))
		for i, it := range e.Items {
			marker := fmt.Sprintf("%d. ", i+1)
			lines[i] = marker + indentContinuation(w.text(it), strings.Repeat(" ", len(marker)))
		}
		w.block(strings.Join(lines, "\n"))

	case doctree.Quote:
		w.quote(e)

	case doctree.Image:
		w.image(e)

	case doctree.Table:
		w.block(markdownTable(e))

	case doctree.AuthorBio:
		switch w.flavor {
		case flavorMarkdown:
			w.block("::: info\n\n" + w.text(e.Text) + "\n\n:::")
		case flavorHTML:
			w.block("<div class='info'>\n\n" + w.text(e.Text) + "\n\n</div>")
		default:
			w.block("_" + e.Text + "_")
		}
	}
}

func (w *bodyWriter) quote(q doctree.Quote) {
	quoted := "> " + strings.ReplaceAll(w.text(q.Text), "\n", "\n> ")
	if q.Attribution == "" {
		w.block(quoted)
		return
	}
	if w.flavor == flavorPDF {
		w.block(quoted + "\n>\n> _" + q.Attribution + "_")
		return
	}
	w.block(quoted + "\n\n<small>" + w.text(q.Attribution) + "</small>")
}

func (w *bodyWriter) image(img doctree.Image) {
	src := w.opts.assetPrefix() + img.Path
	switch w.flavor {
	case flavorMarkdown:
		md := "![](" + src + ")"
		if img.Caption != "" {
			md += "  \n*" + w.text(img.Caption) + "*"
		}
		w.block(md)

	case flavorHTML:
		figure, caption := "figure", "figcaption"
		if w.opts.LegacyHTML {
			figure, caption = "div", "small"
		}
		h := fmt.Sprintf("<%s class='figure image-block'><img src='%s' alt='' />", figure, src)
		if img.Caption != "" {
			h += fmt.Sprintf("<%s class='figcaption'>%s</%s>", caption, w.text(img.Caption), caption)
		}
		w.block(h + "</" + figure + ">")

	default:
		w.block("![" + img.Caption + "](" + img.Path + ")")
	}
}

func (w *bodyWriter) footnoteDefinitions() string {
	if len(w.doc.References) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## References\n\n")
	for _, r := range w.doc.References {
		fmt.Fprintf(&b, "[^%s]: %s\n", footnoteLabel(r.Code), w.text(r.Text))
	}
	b.WriteString("\n")
	return b.String()
}

func (w *bodyWriter) plainReferences() string {
	if len(w.doc.References) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## References\n\n")
	for _, r := range w.doc.References {
		fmt.Fprintf(&b, "[%s] %s\n\n", r.Code, r.Text)
	}
	return b.String()
}

// indentContinuation indents every line after the first so wrapped list
// items stay inside their item.
func indentContinuation(s, indent string) string {
	return strings.ReplaceAll(s, "\n", "\n"+indent)
}

func markdownTable(t doctree.Table) string {
	cols := len(t.Headers)
	for _, r := range t.Rows {
		if len(r) > cols {
			cols = len(r)
		}
	}
	if cols == 0 {
		return ""
	}
	row := func(cells []string) string {
		padded := make([]string, cols)
		for i := range padded {
			if i < len(cells) {
				padded[i] = strings.ReplaceAll(strings.ReplaceAll(cells[i], "|", `\|`), "\n", " ")
			}
		}
		return "| " + strings.Join(padded, " | ") + " |"
	}
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}

	lines := []string{row(t.Headers), "| " + strings.Join(sep, " | ") + " |"}
	for _, r := range t.Rows {
		lines = append(lines, row(r))
	}
	return strings.Join(lines, "\n")
}

// frontmatter builds the YAML header. Missing neighbours are written as false
// so the site theme hides the link.
func frontMatter(doc *doctree.Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, scalar(key, 0), value)
	}

	if doc.Title != "" {
		add("title", scalar(doc.Title, yaml.FoldedStyle))
	}
	if doc.Description != "" {
		add("description", scalar(doc.Description, yaml.FoldedStyle))
	}
	if len(doc.Authors) > 0 {
		names := make([]string, len(doc.Authors))
		for i, a := range doc.Authors {
			names[i] = a.Name
		}
		add("authors", scalar(strings.Join(names, ", "), 0))
	}
	if len(doc.Keywords) > 0 {
		add("keywords", scalar(strings.Join(doc.Keywords, ", "), 0))
	}
	if !doc.UpdatedAt.IsZero() {
		add("lastUpdated", scalar(doc.UpdatedAt.Format(time.RFC3339), 0))
	}
	add("prev", navNode(doc.Prev))
	add("next", navNode(doc.Next))

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	return buf.Bytes(), nil
}

func scalar(value string, style yaml.Style) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: style}
}

func navNode(n *doctree.NavItem) *yaml.Node {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"}
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		scalar("text", 0), scalar(n.Text, yaml.FoldedStyle),
		scalar("link", 0), scalar(n.Link, 0),
	}}
}
