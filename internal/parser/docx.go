package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser handles .docx files. Body content comes from go-docx; numbering
// definitions and core properties are read from the package parts directly.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	pkg, err := openPackage(data)
	if err != nil {
		return nil, err
	}
	pkg.doc = doc

	src := &Source{Meta: pkg.metadata()}

	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			para := Paragraph{
				Style: docxStyle(it),
				Runs:  pkg.docxRuns(it),
			}
			if props := it.Properties; props != nil {
				para.Indented = props.Ind != nil
				para.Numbering = pkg.numbering(props.NumProperties)
			}
			src.Paragraphs = append(src.Paragraphs, para)
		case *docx.Table:
			if t := docxTable(it); t != nil {
				src.Paragraphs = append(src.Paragraphs, Paragraph{Table: t})
			}
		}
	}

	return src, nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func (pkg *docxPackage) docxRuns(para *docx.Paragraph) []Run {
	var runs []Run
	for _, child := range para.Children {
		switch c := child.(type) {
		case *docx.Run:
			runs = append(runs, pkg.docxRun(c)...)
		case *docx.Hyperlink:
			runs = append(runs, pkg.docxRun(&c.Run)...)
		}
	}
	return runs
}

// docxRun splits a run into text and image runs, keeping source order.
func (pkg *docxPackage) docxRun(run *docx.Run) []Run {
	bold, italic := false, false
	if rp := run.RunProperties; rp != nil {
		bold = rp.Bold != nil
		italic = rp.Italic != nil
	}

	var out []Run
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, Run{Text: buf.String(), Bold: bold, Italic: italic})
			buf.Reset()
		}
	}

	for _, rc := range run.Children {
		switch c := rc.(type) {
		case *docx.Text:
			buf.WriteString(c.Text)
		case *docx.Tab:
			buf.WriteString(" ")
		case *docx.Drawing:
			if id := drawingEmbed(c); id != "" {
				flush()
				out = append(out, Run{Image: pkg.image(id)})
			}
		}
	}
	flush()
	return out
}

func drawingEmbed(d *docx.Drawing) string {
	var g *docx.AGraphic
	switch {
	case d.Inline != nil:
		g = d.Inline.Graphic
	case d.Anchor != nil:
		g = d.Anchor.Graphic
	}
	if g == nil || g.GraphicData == nil || g.GraphicData.Pic == nil || g.GraphicData.Pic.BlipFill == nil {
		return ""
	}
	return g.GraphicData.Pic.BlipFill.Blip.Embed
}

func docxTable(t *docx.Table) *Table {
	var rows [][]string
	for _, row := range t.TableRows {
		var cells []string
		for _, cell := range row.TableCells {
			var parts []string
			for _, para := range cell.Paragraphs {
				if txt := docxPlainText(para); txt != "" {
					parts = append(parts, txt)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}
	return &Table{Rows: rows}
}

func docxPlainText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
