package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docpress/internal/doctree"
)

const (
	pdfFont      = "Helvetica"
	pdfFontSize  = 10.0
	pdfLineH     = 5.0
	pdfMarginX   = 25.0
	pdfMarginTop = 20.0
	pdfMarginBot = 20.0
)

// quoteColor is the accent used for pull quotes.
var quoteColor = [3]int{0, 94, 184}

// PDF renders doc as a paginated A4 document. Pages carry a running header
// with the document title and a page number footer unless opts.ForBook is
// set, in which case the output is left bare and padded to an even number of
// pages so every document of the book starts on a right-hand page.
func PDF(doc *doctree.Document, opts Options) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Sorted catalog keeps the bytes stable between builds.
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pdfMarginX, pdfMarginTop, pdfMarginX)
	pdf.SetAutoPageBreak(true, pdfMarginBot)
	pdf.SetTitle(doc.Title, true)
	if len(doc.Authors) > 0 {
		pdf.SetAuthor(doc.Authors[0].Name, true)
	}
	if !doc.UpdatedAt.IsZero() {
		pdf.SetCreationDate(doc.UpdatedAt)
		pdf.SetModificationDate(doc.UpdatedAt)
	}

	r := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), assetRoot: opts.AssetRoot}
	if !opts.ForBook {
		r.runningHeaders(doc.Title, opts.RunningTitle)
	}

	pdf.AddPage()
	r.font()

	src := []byte(body(doc, opts, flavorPDF))
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))
	r.source = src
	if err := ast.Walk(root, r.walk); err != nil {
		return nil, fmt.Errorf("render pdf %s: %w", doc.Slug, err)
	}

	if opts.ForBook && pdf.PageNo()%2 == 1 {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf %s: %w", doc.Slug, err)
	}
	return buf.Bytes(), nil
}

type pdfList struct {
	ordered bool
	n       int
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	tr        func(string) string
	source    []byte
	assetRoot string

	bold, italic bool
	size         float64
	lists        []pdfList
	imageSeq     int
}

func (r *pdfWriter) runningHeaders(title, running string) {
	r.pdf.SetHeaderFuncMode(func() {
		r.pdf.SetFont(pdfFont, "", 7)
		r.pdf.SetTextColor(120, 120, 120)
		r.pdf.SetY(10)
		if running != "" {
			r.pdf.CellFormat(0, 4, r.tr(running), "", 0, "L", false, 0, "")
			r.pdf.SetX(pdfMarginX)
		}
		r.pdf.CellFormat(0, 4, r.tr(title), "", 1, "R", false, 0, "")
		r.pdf.SetY(pdfMarginTop)
		r.pdf.SetTextColor(0, 0, 0)
		r.font()
	}, true)
	r.pdf.SetFooterFunc(func() {
		r.pdf.SetY(-15)
		r.pdf.SetFont(pdfFont, "", 8)
		r.pdf.SetTextColor(120, 120, 120)
		r.pdf.CellFormat(0, 10, fmt.Sprintf("%d", r.pdf.PageNo()), "", 0, "C", false, 0, "")
		r.pdf.SetTextColor(0, 0, 0)
	})
}

// font applies the current emphasis and size.
func (r *pdfWriter) font() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	size := r.size
	if size == 0 {
		size = pdfFontSize
	}
	r.pdf.SetFont(pdfFont, style, size)
}

func (r *pdfWriter) contentWidth() float64 {
	w, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	return w - left - right
}

func (r *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(4)
			r.size = headingSize(node.Level)
			r.bold = true
		} else {
			r.pdf.Ln(r.size * 0.6)
			r.pdf.Ln(2)
			r.size, r.bold = 0, false
		}
		r.font()

	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(pdfLineH)
			r.pdf.Ln(2)
		}

	case *ast.TextBlock:
		// Tight list item content; the item ends the line.

	case *ast.Text:
		if entering {
			r.pdf.Write(pdfLineH, r.tr(string(node.Segment.Value(r.source))))
			if node.HardLineBreak() {
				r.pdf.Ln(pdfLineH)
			} else if node.SoftLineBreak() {
				r.pdf.Write(pdfLineH, " ")
			}
		}

	case *ast.String:
		if entering {
			r.pdf.Write(pdfLineH, r.tr(string(node.Value)))
		}

	case *ast.Emphasis:
		if node.Level >= 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.font()

	case *ast.RawHTML, *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			r.pdf.SetTextColor(quoteColor[0], quoteColor[1], quoteColor[2])
			r.pdf.SetLeftMargin(pdfMarginX + 8)
			r.pdf.SetX(pdfMarginX + 8)
		} else {
			r.pdf.SetTextColor(0, 0, 0)
			r.pdf.SetLeftMargin(pdfMarginX)
			r.pdf.SetX(pdfMarginX)
		}

	case *ast.List:
		if entering {
			r.lists = append(r.lists, pdfList{ordered: node.IsOrdered(), n: node.Start})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			r.pdf.Ln(2)
		}

	case *ast.ListItem:
		r.listItem(entering)

	case *ast.Image:
		if entering {
			r.image(node)
		}
		return ast.WalkSkipChildren, nil

	case *extast.Table:
		if entering {
			r.table(tableRows(node, r.source))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return 18
	case 2:
		return 14
	case 3:
		return 12
	}
	return 11
}

func (r *pdfWriter) listItem(entering bool) {
	depth := len(r.lists)
	if depth == 0 {
		return
	}
	indent := pdfMarginX + float64(depth)*5
	if !entering {
		r.pdf.Ln(pdfLineH)
		r.pdf.SetLeftMargin(pdfMarginX + float64(depth-1)*5)
		return
	}

	l := &r.lists[depth-1]
	marker := "-"
	if l.ordered {
		marker = fmt.Sprintf("%d.", l.n)
		l.n++
	}
	r.pdf.SetX(indent)
	r.pdf.Write(pdfLineH, marker+" ")
	r.pdf.SetLeftMargin(indent + 5)
}

// image embeds a local raster image scaled to the content width, followed by
// its caption. Images that cannot be decoded are skipped.
func (r *pdfWriter) image(n *ast.Image) {
	caption := plainText(n, r.source)
	path := filepath.Join(r.assetRoot, filepath.FromSlash(string(n.Destination)))

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return
	}
	if format == "jpeg" {
		format = "jpg"
	}

	r.imageSeq++
	name := fmt.Sprintf("img%d", r.imageSeq)
	opts := fpdf.ImageOptions{ImageType: format, ReadDpi: true}
	info := r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil || r.pdf.Err() {
		return
	}

	w := info.Width()
	if maxW := r.contentWidth(); w > maxW || w <= 0 {
		w = maxW
	}
	r.pdf.Ln(2)
	left, _, _, _ := r.pdf.GetMargins()
	r.pdf.ImageOptions(name, left, r.pdf.GetY(), w, 0, true, opts, 0, "")

	if caption != "" {
		r.pdf.SetFont(pdfFont, "I", 8)
		r.pdf.MultiCell(0, 4, r.tr(caption), "", "C", false)
		r.font()
	}
	r.pdf.Ln(2)
}

func (r *pdfWriter) table(rows [][]string) {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}

	const lineH = 4.0
	_, pageH := r.pdf.GetPageSize()
	colW := r.contentWidth() / float64(cols)
	r.pdf.Ln(2)

	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.pdf.SetFont(pdfFont, style, 8)

		lines := 1
		for _, cell := range row {
			if n := len(r.pdf.SplitLines([]byte(r.tr(cell)), colW-2)); n > lines {
				lines = n
			}
		}
		h := float64(lines)*lineH + 2
		if r.pdf.GetY()+h > pageH-pdfMarginBot {
			r.pdf.AddPage()
		}

		x0, y0 := pdfMarginX, r.pdf.GetY()
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			x := x0 + float64(j)*colW
			r.pdf.Rect(x, y0, colW, h, "D")
			r.pdf.SetXY(x+1, y0+1)
			r.pdf.MultiCell(colW-2, lineH, r.tr(cell), "", "L", false)
		}
		r.pdf.SetXY(x0, y0+h)
	}

	r.pdf.Ln(3)
	r.font()
}

// tableRows flattens a table node; the header cells form the first row.
func tableRows(t *extast.Table, src []byte) [][]string {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, plainText(cell, src))
		}
		rows = append(rows, cells)
	}
	return rows
}

// plainText concatenates the inline text below n.
func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
