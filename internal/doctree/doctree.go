package doctree

import (
	"sort"
	"strings"
	"time"
)

// Document is one source file's extracted content plus metadata.
type Document struct {
	Slug        string
	Title       string
	Description string
	Authors     []Author
	Keywords    []string
	Elements    []Element
	References  []Reference
	UpdatedAt   time.Time

	Prev *NavItem
	Next *NavItem

	// Errors holds non-fatal anomalies recorded while building the document.
	Errors []string
}

// Author is a document author with an optional biography.
type Author struct {
	Name string
	Bio  string
}

// Reference is a code-addressable citation entry.
type Reference struct {
	Code string
	Text string
}

// NavItem is the prev/next navigation payload.
type NavItem struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// Section is an ordered top-level grouping of documents.
type Section struct {
	Title     string
	Collapsed bool
	Items     []*Item
}

// Item binds a source file to the document extracted from it. Document is nil
// when the source could not be read.
type Item struct {
	SourcePath string // absolute path to the source file
	RelPath    string // path relative to the source root
	Name       string // filename without extension
	Document   *Document
}

// Tree is the ordered forest of sections.
type Tree struct {
	Sections []*Section
}

// Documents returns every successfully extracted document in visitation order:
// section order, then document order within the section.
func (t *Tree) Documents() []*Document {
	var docs []*Document
	for _, s := range t.Sections {
		for _, it := range s.Items {
			if it.Document != nil {
				docs = append(docs, it.Document)
			}
		}
	}
	return docs
}

// Section returns the section with the given title, or nil.
func (t *Tree) Section(title string) *Section {
	for _, s := range t.Sections {
		if s.Title == title {
			return s
		}
	}
	return nil
}

// AddError records a non-fatal anomaly on the document.
func (d *Document) AddError(msg string) {
	d.Errors = append(d.Errors, msg)
}

// AppendElements appends elements at the end of the document.
func (d *Document) AppendElements(els ...Element) {
	d.Elements = append(d.Elements, els...)
}

// AppendReferences appends references and restores the code ordering.
func (d *Document) AppendReferences(refs ...Reference) {
	d.References = append(d.References, refs...)
	SortReferences(d.References)
}

// ReferenceByCode looks a reference up by code, case-insensitively.
func (d *Document) ReferenceByCode(code string) (Reference, bool) {
	for _, r := range d.References {
		if strings.EqualFold(r.Code, code) {
			return r, true
		}
	}
	return Reference{}, false
}

// LongTitle returns the text of the first level-1 header, if any.
func (d *Document) LongTitle() string {
	for _, el := range d.Elements {
		if h, ok := el.(Header); ok && h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// ResolveTitle applies the title fallback chain: explicit metadata title, then
// the first level-1 header, then the source filename.
func ResolveTitle(metaTitle string, elements []Element, filename string) string {
	if t := strings.TrimSpace(metaTitle); t != "" {
		return t
	}
	d := Document{Elements: elements}
	if t := d.LongTitle(); t != "" {
		return t
	}
	return filename
}

// FirstQuote returns the text of the first Quote element, if any.
func FirstQuote(elements []Element) string {
	for _, el := range elements {
		if q, ok := el.(Quote); ok {
			return q.Text
		}
	}
	return ""
}

// SortReferences orders references by code, case-insensitively.
func SortReferences(refs []Reference) {
	sort.SliceStable(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].Code) < strings.ToLower(refs[j].Code)
	})
}
