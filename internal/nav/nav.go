// Package nav links documents across the tree and builds the sidebar.
package nav

import (
	"encoding/json"
	"fmt"

	"github.com/dgallion1/docpress/internal/doctree"
)

// Link sets Prev and Next on every document in visitation order. Items whose
// source could not be read are skipped, so their neighbours link past them.
// It must run after every document has been built, since it reads final
// titles and slugs.
func Link(tree *doctree.Tree) {
	docs := tree.Documents()
	for i, d := range docs {
		d.Prev, d.Next = nil, nil
		if i > 0 {
			d.Prev = itemFor(docs[i-1])
		}
		if i < len(docs)-1 {
			d.Next = itemFor(docs[i+1])
		}
	}
}

func itemFor(d *doctree.Document) *doctree.NavItem {
	return &doctree.NavItem{Text: d.Title, Link: "/" + d.Slug}
}

// SidebarSection is one entry of the sidebar artifact.
type SidebarSection struct {
	Text      string        `json:"text"`
	Collapsed bool          `json:"collapsed"`
	Items     []SidebarItem `json:"items"`
}

// SidebarItem links one document from the sidebar.
type SidebarItem struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// Sidebar returns the navigation sidebar for tree.
func Sidebar(tree *doctree.Tree) []SidebarSection {
	out := make([]SidebarSection, 0, len(tree.Sections))
	for _, s := range tree.Sections {
		sec := SidebarSection{Text: s.Title, Collapsed: s.Collapsed, Items: []SidebarItem{}}
		for _, it := range s.Items {
			if it.Document == nil {
				continue
			}
			sec.Items = append(sec.Items, SidebarItem{Text: it.Document.Title, Link: it.Document.Slug})
		}
		out = append(out, sec)
	}
	return out
}

// SidebarJSON encodes the sidebar artifact.
func SidebarJSON(tree *doctree.Tree) ([]byte, error) {
	data, err := json.MarshalIndent(Sidebar(tree), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sidebar: %w", err)
	}
	return data, nil
}
