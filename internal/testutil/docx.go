// Package testutil builds source fixtures for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// DOCX describes a minimal word-processing package.
type DOCX struct {
	Title       string
	Creator     string
	Keywords    string
	Description string
	NoCore      bool // omit docProps/core.xml entirely

	Body      []string          // body-level XML fragments, see P and friends
	Numbering string            // inner XML of w:numbering
	Media     map[string][]byte // word/media/<name> -> bytes
	MediaIDs  map[string]string // relationship id (rIdN) -> media name
}

// Build renders the package to bytes.
func Build(tb testing.TB, d DOCX) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	put := func(name, body string) {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			tb.Fatalf("write %s: %v", name, err)
		}
	}

	put("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`)

	put("word/document.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="%s" xmlns:r="%s" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture">
<w:body>%s</w:body>
</w:document>`, nsW, nsR, strings.Join(d.Body, "\n")))

	var rels strings.Builder
	for id, name := range d.MediaIDs {
		fmt.Fprintf(&rels, `<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/%s"/>`, id, name)
	}
	put("word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`+rels.String()+`</Relationships>`)

	for name, data := range d.Media {
		w, err := zw.Create("word/media/" + name)
		if err != nil {
			tb.Fatalf("create media %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			tb.Fatalf("write media %s: %v", name, err)
		}
	}

	if d.Numbering != "" {
		put("word/numbering.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<w:numbering xmlns:w="%s">%s</w:numbering>`, nsW, d.Numbering))
	}

	if !d.NoCore {
		var core strings.Builder
		if d.Title != "" {
			fmt.Fprintf(&core, "<dc:title>%s</dc:title>", d.Title)
		}
		if d.Creator != "" {
			fmt.Fprintf(&core, "<dc:creator>%s</dc:creator>", d.Creator)
		}
		if d.Keywords != "" {
			fmt.Fprintf(&core, "<cp:keywords>%s</cp:keywords>", d.Keywords)
		}
		if d.Description != "" {
			fmt.Fprintf(&core, "<dc:description>%s</dc:description>", d.Description)
		}
		put("docProps/core.xml", `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">`+core.String()+`</cp:coreProperties>`)
	}

	if err := zw.Close(); err != nil {
		tb.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteDOCX builds the package and writes it to path, creating parent
// directories.
func WriteDOCX(tb testing.TB, path string, d DOCX) {
	tb.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, Build(tb, d), 0o644); err != nil {
		tb.Fatalf("write docx: %v", err)
	}
}

// P is a paragraph with an optional style and the given runs.
func P(style string, runs ...string) string {
	return `<w:p>` + pPr(style, "") + strings.Join(runs, "") + `</w:p>`
}

// NumP is a paragraph carrying list numbering.
func NumP(style, numID string, ilvl int, runs ...string) string {
	num := fmt.Sprintf(`<w:numPr><w:ilvl w:val="%d"/><w:numId w:val="%s"/></w:numPr>`, ilvl, numID)
	return `<w:p>` + pPr(style, num) + strings.Join(runs, "") + `</w:p>`
}

// IndentP is a paragraph with an indentation marker.
func IndentP(style string, runs ...string) string {
	return `<w:p>` + pPr(style, `<w:ind w:left="720"/>`) + strings.Join(runs, "") + `</w:p>`
}

func pPr(style, extra string) string {
	if style == "" && extra == "" {
		return ""
	}
	s := ""
	if style != "" {
		s = fmt.Sprintf(`<w:pStyle w:val="%s"/>`, style)
	}
	return `<w:pPr>` + s + extra + `</w:pPr>`
}

// R is a plain text run.
func R(text string) string { return run("", text) }

// B is a bold run.
func B(text string) string { return run(`<w:b/>`, text) }

// I is an italic run.
func I(text string) string { return run(`<w:i/>`, text) }

// BI is a bold italic run.
func BI(text string) string { return run(`<w:b/><w:i/>`, text) }

func run(props, text string) string {
	rpr := ""
	if props != "" {
		rpr = `<w:rPr>` + props + `</w:rPr>`
	}
	return `<w:r>` + rpr + `<w:t xml:space="preserve">` + xmlEscape(text) + `</w:t></w:r>`
}

// Img is a run holding an inline picture that embeds relID.
func Img(relID string) string {
	return `<w:r><w:drawing><wp:inline distT="0" distB="0" distL="0" distR="0">` +
		`<wp:extent cx="100" cy="100"/><wp:docPr id="1" name="Picture 1"/>` +
		`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
		`<pic:pic><pic:nvPicPr><pic:cNvPr id="1" name="img"/><pic:cNvPicPr/></pic:nvPicPr>` +
		`<pic:blipFill><a:blip r:embed="` + relID + `"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
		`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`
}

// Tbl is a table whose cells each hold one plain paragraph.
func Tbl(rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl>`)
	for _, row := range rows {
		b.WriteString(`<w:tr>`)
		for _, cell := range row {
			b.WriteString(`<w:tc><w:p>` + R(cell) + `</w:p></w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
	return b.String()
}

// AbstractNum declares numbering numID backed by an abstract definition with
// one format per level.
func AbstractNum(numID string, formats ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<w:abstractNum w:abstractNumId="%s">`, numID)
	for i, f := range formats {
		fmt.Fprintf(&b, `<w:lvl w:ilvl="%d"><w:numFmt w:val="%s"/></w:lvl>`, i, f)
	}
	b.WriteString(`</w:abstractNum>`)
	fmt.Fprintf(&b, `<w:num w:numId="%s"><w:abstractNumId w:val="%s"/></w:num>`, numID, numID)
	return b.String()
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
