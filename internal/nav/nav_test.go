package nav

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpress/internal/doctree"
)

func doc(title string) *doctree.Document {
	return &doctree.Document{Title: title, Slug: "s--" + title}
}

func testTree() (*doctree.Tree, []*doctree.Document) {
	d1, d2, d3 := doc("d1"), doc("d2"), doc("d3")
	tree := &doctree.Tree{Sections: []*doctree.Section{
		{Title: "A", Items: []*doctree.Item{{Document: d1}, {Document: d2}}},
		{Title: "B", Collapsed: true, Items: []*doctree.Item{{Document: d3}}},
	}}
	return tree, []*doctree.Document{d1, d2, d3}
}

func TestLink(t *testing.T) {
	tree, docs := testTree()
	d1, d2, d3 := docs[0], docs[1], docs[2]

	Link(tree)

	assert.Nil(t, d1.Prev)
	assert.Equal(t, &doctree.NavItem{Text: "d2", Link: "/s--d2"}, d1.Next)
	assert.Equal(t, &doctree.NavItem{Text: "d1", Link: "/s--d1"}, d2.Prev)
	assert.Equal(t, &doctree.NavItem{Text: "d3", Link: "/s--d3"}, d2.Next)
	assert.Equal(t, "d2", d3.Prev.Text)
	assert.Nil(t, d3.Next)
}

func TestLink_SkipsFailedItems(t *testing.T) {
	tree, docs := testTree()
	tree.Sections[0].Items = append(tree.Sections[0].Items, &doctree.Item{Name: "broken"})

	Link(tree)
	assert.Equal(t, "d3", docs[1].Next.Text)
	assert.Equal(t, "d2", docs[2].Prev.Text)
}

func TestLink_SingleDocument(t *testing.T) {
	d := doc("only")
	d.Prev = &doctree.NavItem{Text: "stale"}
	Link(&doctree.Tree{Sections: []*doctree.Section{{Items: []*doctree.Item{{Document: d}}}}})
	assert.Nil(t, d.Prev)
	assert.Nil(t, d.Next)
}

func TestSidebarJSON(t *testing.T) {
	tree, _ := testTree()
	tree.Sections = append(tree.Sections, &doctree.Section{Title: "Empty", Items: []*doctree.Item{{Name: "broken"}}})

	data, err := SidebarJSON(tree)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0]["text"])
	assert.Equal(t, false, got[0]["collapsed"])
	assert.Equal(t, []any{
		map[string]any{"text": "d1", "link": "s--d1"},
		map[string]any{"text": "d2", "link": "s--d2"},
	}, got[0]["items"])
	assert.Equal(t, true, got[1]["collapsed"])
	assert.Equal(t, []any{}, got[2]["items"])
}
