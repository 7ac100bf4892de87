package doctree

import "strings"

// Element is one typed unit of document content. The set of implementations
// is closed: Header, Paragraph, BulletList, OrderedList, Quote, Image, Table
// and AuthorBio.
type Element interface {
	element()
}

// Header is a heading of the given level (1 is the top level).
type Header struct {
	Level int
	Text  string
}

// Paragraph is a run of formatted body text.
type Paragraph struct {
	Text string
}

// BulletList is an unordered list. Continuation lines of an item are joined
// with "\n".
type BulletList struct {
	Items []string
}

// OrderedList is a numbered list.
type OrderedList struct {
	Items []string
}

// Quote is a pull quote with the attribution taken from the paragraph after it.
type Quote struct {
	Text        string
	Attribution string
}

// Image is an extracted image. Path is relative to the output root.
type Image struct {
	Path    string
	Caption string
}

// Table is a header row plus body rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AuthorBio is a biography paragraph that could not be bound to a listed author.
type AuthorBio struct {
	Text string
}

func (Header) element()      {}
func (Paragraph) element()   {}
func (BulletList) element()  {}
func (OrderedList) element() {}
func (Quote) element()       {}
func (Image) element()       {}
func (Table) element()       {}
func (AuthorBio) element()   {}

// TextOf returns the text content an element carries, joining list items with
// newlines. Images return their caption.
func TextOf(el Element) string {
	switch e := el.(type) {
	case Header:
		return e.Text
	case Paragraph:
		return e.Text
	case BulletList:
		return strings.Join(e.Items, "\n")
	case OrderedList:
		return strings.Join(e.Items, "\n")
	case Quote:
		if e.Attribution == "" {
			return e.Text
		}
		return e.Text + "\n" + e.Attribution
	case Image:
		return e.Caption
	case Table:
		lines := []string{strings.Join(e.Headers, " ")}
		for _, r := range e.Rows {
			lines = append(lines, strings.Join(r, " "))
		}
		return strings.Join(lines, "\n")
	case AuthorBio:
		return e.Text
	}
	return ""
}
