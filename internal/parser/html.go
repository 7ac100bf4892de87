package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Metadata comes from <title> and the
// description, author and keywords <meta> tags.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &htmlWalker{dir: filepath.Dir(filename)}
	src := &Source{Meta: htmlMetadata(doc)}

	// Find <body> or use whole document.
	if body := findElement(doc, "body"); body != nil {
		w.walk(body)
	} else {
		w.walk(doc)
	}
	src.Paragraphs = w.out
	return src, nil
}

type htmlWalker struct {
	dir   string
	out   []Paragraph
	lists int
	depth int
}

func (w *htmlWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			w.emit(Paragraph{Style: fmt.Sprintf("Heading%d", level), Runs: w.runs(n, false, false)})
			return
		}

		switch n.Data {
		case "script", "style", "nav", "footer", "header":
			return
		case "p":
			w.emit(Paragraph{Runs: w.runs(n, false, false)})
			return
		case "blockquote":
			w.quote(n)
			return
		case "figcaption":
			w.emit(Paragraph{Style: "Caption", Runs: w.runs(n, false, false)})
			return
		case "img":
			w.emit(Paragraph{Runs: []Run{{Image: w.image(attr(n, "src"))}}})
			return
		case "ul", "ol":
			w.list(n)
			return
		case "table":
			if t := htmlTable(n); t != nil {
				w.out = append(w.out, Paragraph{Table: t})
			}
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *htmlWalker) emit(p Paragraph) {
	if len(p.Runs) == 0 {
		return
	}
	w.out = append(w.out, p)
}

// quote emits the quote text with the Quote style, followed by the
// attribution (a <footer> or <cite> inside the blockquote) as a plain
// paragraph.
func (w *htmlWalker) quote(n *html.Node) {
	var attribution *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "footer" || c.Data == "cite") {
			attribution = c
		}
	}

	var body []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c != attribution {
			body = append(body, c)
		}
	}
	w.emit(Paragraph{Style: "Quote", Runs: w.nodeRuns(body, false, false)})
	if attribution != nil {
		w.emit(Paragraph{Runs: w.runs(attribution, false, false)})
	}
}

func (w *htmlWalker) list(n *html.Node) {
	w.lists++
	format := "bullet"
	if n.Data == "ol" {
		format = "decimal"
	}
	num := Numbering{ListID: fmt.Sprintf("html-%d", w.lists), Level: w.depth, Format: format}

	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		var nested, inline []*html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				nested = append(nested, c)
				continue
			}
			inline = append(inline, c)
		}
		item := num
		w.emit(Paragraph{Style: "ListParagraph", Runs: w.nodeRuns(inline, false, false), Numbering: &item})

		w.depth++
		for _, sub := range nested {
			w.list(sub)
		}
		w.depth--
	}
}

// runs flattens the inline content of n.
func (w *htmlWalker) runs(n *html.Node, bold, italic bool) []Run {
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	return w.nodeRuns(children, bold, italic)
}

// nodeRuns flattens the given nodes, themselves included, into runs.
func (w *htmlWalker) nodeRuns(nodes []*html.Node, bold, italic bool) []Run {
	var out []Run
	var visit func(c *html.Node, bold, italic bool)
	visit = func(c *html.Node, bold, italic bool) {
		switch c.Type {
		case html.TextNode:
			out = appendRun(out, Run{Text: collapseSpace(c.Data), Bold: bold, Italic: italic})
			return
		case html.ElementNode:
			switch c.Data {
			case "strong", "b":
				bold = true
			case "em", "i":
				italic = true
			case "br":
				out = appendRun(out, Run{Text: " ", Bold: bold, Italic: italic})
				return
			case "img":
				out = append(out, Run{Image: w.image(attr(c, "src"))})
				return
			case "script", "style":
				return
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			visit(cc, bold, italic)
		}
	}
	for _, n := range nodes {
		visit(n, bold, italic)
	}

	if plainText(out) == "" && !hasImage(out) {
		return nil
	}
	return out
}

func (w *htmlWalker) image(src string) *ImageRef {
	ref := &ImageRef{Name: filepath.Base(src)}
	if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return ref
	}
	if data, err := os.ReadFile(filepath.Join(w.dir, filepath.FromSlash(src))); err == nil {
		ref.Data = data
	}
	return ref
}

func hasImage(runs []Run) bool {
	for _, r := range runs {
		if r.Image != nil {
			return true
		}
	}
	return false
}

func htmlTable(n *html.Node) *Table {
	var rows [][]string
	var visit func(*html.Node)
	visit = func(c *html.Node) {
		if c.Type == html.ElementNode && c.Data == "tr" {
			var cells []string
			for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					cells = append(cells, textContent(cell))
				}
			}
			rows = append(rows, cells)
			return
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			visit(cc)
		}
	}
	visit(n)
	if len(rows) == 0 {
		return nil
	}
	return &Table{Rows: rows}
}

func htmlMetadata(doc *html.Node) Metadata {
	var meta Metadata
	if t := findElement(doc, "title"); t != nil {
		meta.Title = textContent(t)
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			content := attr(n, "content")
			switch strings.ToLower(attr(n, "name")) {
			case "description":
				meta.Description = strings.TrimSpace(content)
			case "author":
				meta.Authors = SplitList(content)
			case "keywords":
				meta.Keywords = SplitList(content)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return meta
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(collapseSpace(buf.String()))
}

func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\t' || r == '\r'
	}), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findElement(c, tag); b != nil {
			return b
		}
	}
	return nil
}
