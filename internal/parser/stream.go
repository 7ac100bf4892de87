package parser

import "strings"

// Source is the container-independent view of one source document: its
// metadata plus the ordered paragraph stream.
type Source struct {
	Meta       Metadata
	Paragraphs []Paragraph
}

// Metadata holds document properties found in the container. A nil Authors or
// Keywords slice means the property was absent.
type Metadata struct {
	Title       string
	Description string
	Authors     []string
	Keywords    []string
}

// Paragraph is one block of the source stream. Table is set for table blocks,
// in which case the remaining fields are empty.
type Paragraph struct {
	Style     string
	Runs      []Run
	Numbering *Numbering
	Indented  bool
	Table     *Table
}

// Run is a span of uniformly formatted text, or an embedded image.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Image  *ImageRef
}

// ImageRef is an embedded image. Data is nil when the bytes could not be
// located in the container.
type ImageRef struct {
	Name string
	Data []byte
}

// Numbering is list metadata attached to a paragraph.
type Numbering struct {
	ListID string
	Level  int
	Format string // decimal, lowerRoman, upperLetter, bullet, ...
}

// Table is a grid of cell texts; the first row is the header.
type Table struct {
	Rows [][]string
}

// Text returns the concatenated run text, trimmed.
func (p Paragraph) Text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		b.WriteString(r.Text)
	}
	return strings.TrimSpace(b.String())
}

// HasImage reports whether any run embeds an image.
func (p Paragraph) HasImage() bool {
	for _, r := range p.Runs {
		if r.Image != nil {
			return true
		}
	}
	return false
}

// SplitList splits a comma separated property value, trimming entries and
// dropping empty ones. It returns nil when value is blank.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
