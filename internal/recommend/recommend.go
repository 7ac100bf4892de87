// Package recommend gathers the recommendation excerpts of a source section
// into one target document.
//
// It runs in two passes over a finished tree: Collect reads every source
// document and returns an Accumulator without touching any document, then
// Apply appends the accumulated content to the single target.
package recommend

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/docpress/internal/doctree"
)

// Options names the sections and the target document.
type Options struct {
	SourceSection string
	TargetSection string
	TargetTitle   string
}

// DefaultOptions matches the conventional book layout.
func DefaultOptions() Options {
	return Options{
		SourceSection: "Chapters",
		TargetSection: "Introduction",
		TargetTitle:   "Recommendations",
	}
}

// excerptLevel is the header level that delimits an excerpt.
const excerptLevel = 2

// Contribution is the excerpt taken from one source document.
type Contribution struct {
	Source     *doctree.Document
	Elements   []doctree.Element
	References []doctree.Reference
}

// Accumulator is the result of the collection pass.
type Accumulator struct {
	Contributions []Contribution
	// Missing lists source documents without an excerpt.
	Missing []*doctree.Document
}

// Elements returns every contributed element in source order.
func (a *Accumulator) Elements() []doctree.Element {
	var out []doctree.Element
	for _, c := range a.Contributions {
		out = append(out, c.Elements...)
	}
	return out
}

// Collect scans the source section. Each document contributes a header with
// its title followed by the elements between its first level-2 header and the
// next one, plus the references those elements cite.
func Collect(tree *doctree.Tree, opts Options) *Accumulator {
	acc := &Accumulator{}
	sec := tree.Section(opts.SourceSection)
	if sec == nil {
		return acc
	}
	for _, it := range sec.Items {
		d := it.Document
		if d == nil {
			continue
		}
		excerpt, ok := Excerpt(d.Elements)
		if !ok {
			acc.Missing = append(acc.Missing, d)
			continue
		}
		c := Contribution{
			Source:     d,
			Elements:   append([]doctree.Element{doctree.Header{Level: excerptLevel, Text: d.Title}}, excerpt...),
			References: cited(d, excerpt),
		}
		acc.Contributions = append(acc.Contributions, c)
	}
	return acc
}

// Excerpt returns the elements after the first level-2 header, up to the next
// level-2 header or the end. ok is false when there is no level-2 header.
func Excerpt(elements []doctree.Element) (excerpt []doctree.Element, ok bool) {
	start := -1
	for i, el := range elements {
		h, isHeader := el.(doctree.Header)
		if !isHeader || h.Level != excerptLevel {
			continue
		}
		if start >= 0 {
			return elements[start:i], true
		}
		start = i + 1
	}
	if start < 0 {
		return nil, false
	}
	return elements[start:], true
}

// cited returns the references of d cited by elements, each once, in first
// citation order.
func cited(d *doctree.Document, elements []doctree.Element) []doctree.Reference {
	seen := map[string]bool{}
	var out []doctree.Reference
	for _, el := range elements {
		for _, c := range doctree.Citations(doctree.TextOf(el)) {
			for _, code := range c.Codes {
				ref, ok := d.ReferenceByCode(code)
				key := strings.ToLower(ref.Code)
				if !ok || seen[key] {
					continue
				}
				seen[key] = true
				out = append(out, ref)
			}
		}
	}
	return out
}

// Target returns the target document, or nil.
func Target(tree *doctree.Tree, opts Options) *doctree.Document {
	sec := tree.Section(opts.TargetSection)
	if sec == nil {
		return nil
	}
	for _, it := range sec.Items {
		if it.Document != nil && it.Document.Title == opts.TargetTitle {
			return it.Document
		}
	}
	return nil
}

// Apply appends the accumulated elements and references to target and records
// missing excerpts on their sources. A cited code already present on the
// target with different text is not added and is recorded on both the
// source and the target.
func (a *Accumulator) Apply(target *doctree.Document) {
	for _, d := range a.Missing {
		d.AddError("recommendation: no recommendation excerpt found (no level-2 header)")
	}
	if target == nil {
		return
	}

	target.AppendElements(a.Elements()...)

	var refs []doctree.Reference
	for _, c := range a.Contributions {
		for _, ref := range c.References {
			existing, ok := target.ReferenceByCode(ref.Code)
			if !ok {
				existing, ok = findRef(refs, ref.Code)
			}
			switch {
			case !ok:
				refs = append(refs, ref)
			case existing.Text != ref.Text:
				c.Source.AddError(fmt.Sprintf("recommendation: reference %q conflicts with an existing reference in %q and was dropped", ref.Code, target.Title))
				target.AddError(fmt.Sprintf("recommendation: reference %q cited by %q conflicts with an existing reference; its excerpt cites the existing text", ref.Code, c.Source.Title))
			}
		}
	}
	target.AppendReferences(refs...)
}

func findRef(refs []doctree.Reference, code string) (doctree.Reference, bool) {
	for _, r := range refs {
		if strings.EqualFold(r.Code, code) {
			return r, true
		}
	}
	return doctree.Reference{}, false
}

// Run performs both passes. It returns false when sources contributed but no
// target document exists.
func Run(tree *doctree.Tree, opts Options, log *slog.Logger) bool {
	acc := Collect(tree, opts)
	target := Target(tree, opts)
	acc.Apply(target)

	for _, d := range acc.Missing {
		log.Warn("recommendation excerpt not found", "doc", d.Title)
	}
	if target == nil && len(acc.Contributions) > 0 {
		log.Warn("recommendation target not found",
			"section", opts.TargetSection, "title", opts.TargetTitle,
			"contributions", len(acc.Contributions))
		return false
	}
	if target != nil {
		log.Info("recommendations aggregated",
			"target", target.Slug, "contributions", len(acc.Contributions),
			"missing", len(acc.Missing))
	}
	return true
}
