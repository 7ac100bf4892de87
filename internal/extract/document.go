package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/parser"
	"github.com/dgallion1/docpress/internal/slug"
)

// Override is the JSON metadata file that may sit next to a source. Present
// keys replace the container's properties.
type Override struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Authors     []string `json:"authors"`
	Keywords    []string `json:"keywords"`
}

// LoadOverride reads a metadata override file. A missing file is not an
// error and yields nil.
func LoadOverride(path string) (*Override, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata override: %w", err)
	}
	var o Override
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse metadata override %s: %w", path, err)
	}
	return &o, nil
}

// Apply merges the override over meta.
func (o *Override) Apply(meta parser.Metadata) parser.Metadata {
	if o == nil {
		return meta
	}
	if o.Title != nil {
		meta.Title = strings.TrimSpace(*o.Title)
	}
	if o.Description != nil {
		meta.Description = strings.TrimSpace(*o.Description)
	}
	if o.Authors != nil {
		meta.Authors = trimAll(o.Authors)
	}
	if o.Keywords != nil {
		meta.Keywords = trimAll(o.Keywords)
	}
	return meta
}

// Input describes one source document to assemble.
type Input struct {
	Name         string // filename without extension
	Section      string // display name of the owning section
	Meta         parser.Metadata
	ModTime      time.Time
	AllowUnicode bool
}

// Assemble builds the document from classifier output and metadata. It
// resolves the title through the fallback chain, derives the slug, binds
// author bios and records metadata warnings alongside the classifier's.
func Assemble(in Input, res Result) *doctree.Document {
	doc := &doctree.Document{
		Elements:   res.Elements,
		References: res.References,
		Keywords:   trimAll(in.Meta.Keywords),
		UpdatedAt:  in.ModTime,
	}

	if strings.TrimSpace(in.Meta.Title) == "" {
		doc.AddError("metadata: no title found")
	}
	doc.Title = doctree.ResolveTitle(in.Meta.Title, res.Elements, in.Name)
	doc.Slug = slug.Join(in.Section, doc.Title, in.AllowUnicode)

	doc.Description = strings.TrimSpace(in.Meta.Description)
	if doc.Description == "" {
		doc.Description = doctree.FirstQuote(res.Elements)
	}

	doc.Authors = dedupeAuthors(in.Meta.Authors)
	if len(doc.Authors) == 0 {
		doc.AddError("metadata: no authors found")
	}
	if len(doc.Keywords) == 0 {
		doc.AddError("metadata: no keywords found")
	}

	for _, bio := range res.Bios {
		if !bindBio(doc.Authors, bio) {
			doc.AppendElements(doctree.AuthorBio{Text: bio})
		}
	}

	for _, e := range res.Errors {
		doc.AddError(e)
	}
	return doc
}

// bindBio attaches bio to the first author without one whose name starts it.
func bindBio(authors []doctree.Author, bio string) bool {
	lower := strings.ToLower(bio)
	for i := range authors {
		if authors[i].Bio != "" {
			continue
		}
		if strings.HasPrefix(lower, strings.ToLower(authors[i].Name)) {
			authors[i].Bio = bio
			return true
		}
	}
	return false
}

func dedupeAuthors(names []string) []doctree.Author {
	seen := map[string]bool{}
	var out []doctree.Author
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, doctree.Author{Name: n})
	}
	return out
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
