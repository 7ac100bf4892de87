package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. A YAML frontmatter
// block, when present, supplies the document metadata.
type MarkdownParser struct{}

type markdownFrontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Author      string   `yaml:"author"`
	Authors     []string `yaml:"authors"`
	Keywords    []string `yaml:"keywords"`
	Tags        []string `yaml:"tags"`
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Source, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var fm markdownFrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(body))

	w := &mdWalker{src: body, dir: filepath.Dir(filename)}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, 0)
	}

	return &Source{Meta: fm.metadata(), Paragraphs: w.out}, nil
}

func (fm markdownFrontMatter) metadata() Metadata {
	meta := Metadata{
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		Authors:     fm.Authors,
		Keywords:    fm.Keywords,
	}
	if len(meta.Authors) == 0 {
		meta.Authors = SplitList(fm.Author)
	}
	if len(meta.Keywords) == 0 && len(fm.Tags) > 0 {
		meta.Keywords = fm.Tags
	}
	return meta
}

type mdWalker struct {
	src   []byte
	dir   string
	out   []Paragraph
	lists int
}

func (w *mdWalker) block(n ast.Node, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		w.out = append(w.out, Paragraph{
			Style: fmt.Sprintf("Heading%d", node.Level),
			Runs:  w.inlines(node, false, false),
		})

	case *ast.Paragraph, *ast.TextBlock:
		if runs := w.inlines(node, false, false); len(runs) > 0 {
			w.out = append(w.out, Paragraph{Runs: runs})
		}

	case *ast.Blockquote:
		// The first block is the quote; anything after it is emitted as a
		// plain paragraph and becomes the attribution.
		first := true
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			runs := w.inlines(c, false, false)
			if len(runs) == 0 {
				continue
			}
			para := Paragraph{Runs: runs}
			if first {
				para.Style = "Quote"
				first = false
			}
			w.out = append(w.out, para)
		}

	case *ast.List:
		w.lists++
		format := "bullet"
		if node.IsOrdered() {
			format = "decimal"
		}
		num := Numbering{ListID: fmt.Sprintf("md-%d", w.lists), Level: depth, Format: format}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			w.listItem(item, num, depth)
		}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var buf strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(w.src))
		}
		if t := strings.TrimSpace(buf.String()); t != "" {
			w.out = append(w.out, Paragraph{Runs: []Run{{Text: t}}})
		}

	case *extast.Table:
		var rows [][]string
		for row := node.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, plainText(w.inlines(cell, false, false)))
			}
			rows = append(rows, cells)
		}
		if len(rows) > 0 {
			w.out = append(w.out, Paragraph{Table: &Table{Rows: rows}})
		}
	}
}

func (w *mdWalker) listItem(item ast.Node, num Numbering, depth int) {
	first := true
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.List); ok {
			w.block(c, depth+1)
			continue
		}
		runs := w.inlines(c, false, false)
		if len(runs) == 0 {
			continue
		}
		para := Paragraph{Style: "ListParagraph", Runs: runs}
		if first {
			n := num
			para.Numbering = &n
			first = false
		} else {
			para.Indented = true
		}
		w.out = append(w.out, para)
	}
}

// inlines flattens the inline children of n into runs, tracking emphasis.
func (w *mdWalker) inlines(n ast.Node, bold, italic bool) []Run {
	var runs []Run
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			t := string(node.Segment.Value(w.src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				t += " "
			}
			runs = appendRun(runs, Run{Text: t, Bold: bold, Italic: italic})
		case *ast.String:
			runs = appendRun(runs, Run{Text: string(node.Value), Bold: bold, Italic: italic})
		case *ast.Emphasis:
			if node.Level >= 2 {
				runs = append(runs, w.inlines(node, true, italic)...)
			} else {
				runs = append(runs, w.inlines(node, bold, true)...)
			}
		case *ast.Image:
			runs = append(runs, Run{Image: w.image(string(node.Destination))})
		case *ast.AutoLink:
			runs = appendRun(runs, Run{Text: string(node.URL(w.src)), Bold: bold, Italic: italic})
		default:
			runs = append(runs, w.inlines(node, bold, italic)...)
		}
	}
	return runs
}

func (w *mdWalker) image(dest string) *ImageRef {
	ref := &ImageRef{Name: filepath.Base(dest)}
	if strings.Contains(dest, "://") {
		return ref
	}
	if data, err := os.ReadFile(filepath.Join(w.dir, filepath.FromSlash(dest))); err == nil {
		ref.Data = data
	}
	return ref
}

// appendRun merges r into the previous run when the formatting matches.
func appendRun(runs []Run, r Run) []Run {
	if n := len(runs); n > 0 {
		last := &runs[n-1]
		if last.Image == nil && last.Bold == r.Bold && last.Italic == r.Italic {
			last.Text += r.Text
			return runs
		}
	}
	return append(runs, r)
}

func plainText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}
