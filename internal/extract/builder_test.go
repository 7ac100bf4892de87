package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/parser"
)

type memAssets struct {
	written map[string][]byte
	fail    bool
}

func (m *memAssets) WriteImage(name string, data []byte) (string, error) {
	if m.fail {
		return "", errors.New("disk full")
	}
	if m.written == nil {
		m.written = map[string][]byte{}
	}
	m.written[name] = data
	return "images/test/" + name, nil
}

func para(style, text string) parser.Paragraph {
	return parser.Paragraph{Style: style, Runs: []parser.Run{{Text: text}}}
}

func numbered(format, listID, text string) parser.Paragraph {
	p := para("ListParagraph", text)
	p.Numbering = &parser.Numbering{ListID: listID, Format: format}
	return p
}

func imagePara(name string) parser.Paragraph {
	return parser.Paragraph{Runs: []parser.Run{{Image: &parser.ImageRef{Name: name, Data: []byte("img")}}}}
}

func build(t *testing.T, assets AssetWriter, paras ...parser.Paragraph) Result {
	t.Helper()
	b := NewBuilder(DefaultStyles(), nil)
	return b.Build(&parser.Source{Paragraphs: paras}, assets)
}

func TestBuild_ListFlush(t *testing.T) {
	res := build(t, nil,
		numbered("decimal", "1", "one"),
		numbered("decimal", "1", "two"),
		numbered("lowerRoman", "1", "three"),
		para("", "after"),
	)

	require.Len(t, res.Elements, 2)
	assert.Equal(t, doctree.OrderedList{Items: []string{"one", "two", "three"}}, res.Elements[0])
	assert.Equal(t, doctree.Paragraph{Text: "after"}, res.Elements[1])
}

func TestBuild_ListKindChangeSplits(t *testing.T) {
	res := build(t, nil,
		numbered("bullet", "1", "a"),
		numbered("decimal", "2", "b"),
		numbered("decimal", "2", "c"),
		numbered("bullet", "1", "d"),
	)

	assert.Equal(t, []doctree.Element{
		doctree.BulletList{Items: []string{"a"}},
		doctree.OrderedList{Items: []string{"b", "c"}},
		doctree.BulletList{Items: []string{"d"}},
	}, res.Elements)
}

func TestBuild_StyleOnlyListContinuation(t *testing.T) {
	cont := para("ListParagraph", "wrapped line")
	cont.Indented = true

	res := build(t, nil,
		para("ListParagraph", "first"),
		cont,
		para("ListParagraph", "second"),
		para("NumberedListParagraph", "numbered"),
	)

	assert.Equal(t, []doctree.Element{
		doctree.BulletList{Items: []string{"first\nwrapped line", "second"}},
		doctree.OrderedList{Items: []string{"numbered"}},
	}, res.Elements)
}

func TestBuild_Headings(t *testing.T) {
	res := build(t, nil,
		para("Heading1", "Top"),
		para("Heading 3", "Deep"),
		para("HeadingTitle", "Odd"),
		para("Heading2", "   "),
	)

	assert.Equal(t, []doctree.Element{
		doctree.Header{Level: 1, Text: "Top"},
		doctree.Header{Level: 3, Text: "Deep"},
		doctree.Header{Level: 1, Text: "Odd"},
	}, res.Elements)
}

func TestBuild_QuoteConsumesAttribution(t *testing.T) {
	res := build(t, nil,
		para("Quote", "Simplicity is prerequisite for reliability."),
		para("", "Edsger Dijkstra"),
		para("", "Body"),
	)

	assert.Equal(t, []doctree.Element{
		doctree.Quote{Text: "Simplicity is prerequisite for reliability.", Attribution: "Edsger Dijkstra"},
		doctree.Paragraph{Text: "Body"},
	}, res.Elements)
}

func TestBuild_QuoteAtEnd(t *testing.T) {
	res := build(t, nil, para("Quote", "Last word"))
	assert.Equal(t, []doctree.Element{doctree.Quote{Text: "Last word"}}, res.Elements)
}

func TestBuild_QuoteLeavesTableAndImage(t *testing.T) {
	table := parser.Paragraph{Table: &parser.Table{Rows: [][]string{{"h1", "h2"}, {"a", "b"}}}}
	res := build(t, &memAssets{},
		para("Quote", "Be brief."),
		table,
		para("Quote", "Show it."),
		imagePara("chart.png"),
		para("", "After."),
	)

	assert.Equal(t, []doctree.Element{
		doctree.Quote{Text: "Be brief."},
		doctree.Table{Headers: []string{"h1", "h2"}, Rows: [][]string{{"a", "b"}}},
		doctree.Quote{Text: "Show it."},
		doctree.Image{Path: "images/test/chart.png"},
		doctree.Paragraph{Text: "After."},
	}, res.Elements)
	assert.Empty(t, res.Errors)
}

func TestBuild_CaptionAttachment(t *testing.T) {
	assets := &memAssets{}
	res := build(t, assets,
		imagePara("chart.png"),
		para("Caption", "Figure 1: growth"),
		para("", "Body"),
	)

	require.Len(t, res.Elements, 2)
	assert.Equal(t, doctree.Image{Path: "images/test/chart.png", Caption: "Figure 1: growth"}, res.Elements[0])
	assert.Equal(t, doctree.Paragraph{Text: "Body"}, res.Elements[1])
	for _, el := range res.Elements {
		if p, ok := el.(doctree.Paragraph); ok {
			assert.NotEqual(t, "Figure 1: growth", p.Text)
		}
	}
	assert.Equal(t, []byte("img"), assets.written["chart.png"])
}

func TestBuild_CaptionWithoutImageIsParagraph(t *testing.T) {
	res := build(t, nil, para("", "Body"), para("Caption", "Stray caption"))
	assert.Equal(t, []doctree.Element{
		doctree.Paragraph{Text: "Body"},
		doctree.Paragraph{Text: "Stray caption"},
	}, res.Elements)
}

func TestBuild_CaptionOnlyFollowsItsImage(t *testing.T) {
	tests := []struct {
		name    string
		between parser.Paragraph
	}{
		{"skipped image", imagePara("b.emf")},
		{"empty paragraph", para("", "")},
		{"author bio", para("Author", "Ada Lovelace wrote the first program.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := build(t, &memAssets{},
				imagePara("a.png"),
				tt.between,
				para("Caption", "Figure 2: the other diagram"),
			)
			assert.Equal(t, []doctree.Element{
				doctree.Image{Path: "images/test/a.png"},
				doctree.Paragraph{Text: "Figure 2: the other diagram"},
			}, res.Elements)
		})
	}
}

func TestBuild_ImageSplitsParagraph(t *testing.T) {
	p := parser.Paragraph{Runs: []parser.Run{
		{Text: "Before "},
		{Text: "bold", Bold: true},
		{Image: &parser.ImageRef{Name: "a.png", Data: []byte("x")}},
		{Text: "After"},
	}}

	res := build(t, &memAssets{}, p)
	assert.Equal(t, []doctree.Element{
		doctree.Paragraph{Text: "Before **bold**"},
		doctree.Image{Path: "images/test/a.png"},
		doctree.Paragraph{Text: "After"},
	}, res.Elements)
}

func TestBuild_UnsupportedImage(t *testing.T) {
	res := build(t, &memAssets{}, imagePara("diagram.emf"), para("", "Body"))
	assert.Equal(t, []doctree.Element{doctree.Paragraph{Text: "Body"}}, res.Elements)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "image: .emf image format not supported")
}

func TestBuild_ImageWriteFailure(t *testing.T) {
	res := build(t, &memAssets{fail: true}, imagePara("a.png"))
	assert.Empty(t, res.Elements)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "failed to save image a.png")
}

func TestBuild_ReferencesSentinel(t *testing.T) {
	res := build(t, nil,
		para("", "See [b2] and [A1]."),
		para("Heading1", "References"),
		para("", "[b2] Second"),
		para("", "Some text without brackets"),
		para("", "[A1] First"),
		para("Heading2", "[c3] Still a reference"),
	)

	assert.Equal(t, []doctree.Element{doctree.Paragraph{Text: "See [b2] and [A1]."}}, res.Elements)
	assert.Equal(t, []doctree.Reference{
		{Code: "A1", Text: "First"},
		{Code: "b2", Text: "Second"},
		{Code: "c3", Text: "Still a reference"},
	}, res.References)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Some text without brackets")
}

func TestBuild_ReferenceStyle(t *testing.T) {
	first := numbered("decimal", "7", "First source")
	first.Style = "Bibliography"
	second := numbered("decimal", "7", "[2] Second source")
	second.Style = "Bibliography"

	res := build(t, nil, para("", "Body"), first, second, para("Author", "Ada Lovelace is a mathematician."))

	assert.Equal(t, []doctree.Reference{
		{Code: "1", Text: "First source"},
		{Code: "2", Text: "Second source"},
	}, res.References)
	assert.Equal(t, []string{"Ada Lovelace is a mathematician."}, res.Bios)
	assert.Empty(t, res.Errors)
}

func TestBuild_DuplicateReferenceCode(t *testing.T) {
	res := build(t, nil,
		para("", "references"),
		para("", "[1] One"),
		para("", "[1] Again"),
	)
	assert.Equal(t, []doctree.Reference{{Code: "1", Text: "One"}}, res.References)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "duplicate reference code")
}

func TestBuild_AuthorBiosStayOutOfElements(t *testing.T) {
	res := build(t, nil,
		para("Author", "Alan Turing was a computer scientist."),
		para("", "Body"),
	)
	assert.Equal(t, []doctree.Element{doctree.Paragraph{Text: "Body"}}, res.Elements)
	assert.Equal(t, []string{"Alan Turing was a computer scientist."}, res.Bios)
}

func TestBuild_Table(t *testing.T) {
	res := build(t, nil,
		numbered("bullet", "1", "item"),
		parser.Paragraph{Table: &parser.Table{Rows: [][]string{{"H1", "H2"}, {"a", "b"}}}},
	)
	assert.Equal(t, []doctree.Element{
		doctree.BulletList{Items: []string{"item"}},
		doctree.Table{Headers: []string{"H1", "H2"}, Rows: [][]string{{"a", "b"}}},
	}, res.Elements)
}

func TestBuild_TableInReferencesIsRecorded(t *testing.T) {
	res := build(t, nil,
		para("", "Body"),
		para("", "References"),
		parser.Paragraph{Table: &parser.Table{Rows: [][]string{{"x"}}}},
		para("", "[1] One"),
	)
	assert.Equal(t, []doctree.Element{doctree.Paragraph{Text: "Body"}}, res.Elements)
	assert.Equal(t, []doctree.Reference{{Code: "1", Text: "One"}}, res.References)
	assert.Equal(t, []string{"reference: table in references section dropped"}, res.Errors)
}

func TestBuild_InlineFormatting(t *testing.T) {
	p := parser.Paragraph{Runs: []parser.Run{
		{Text: "Key", Bold: true},
		{Text: " point ", Bold: true},
		{Text: "and "},
		{Text: "aside", Italic: true},
		{Text: " ", Italic: true},
		{Text: "both", Bold: true, Italic: true},
	}}
	res := build(t, nil, p)
	assert.Equal(t, []doctree.Element{doctree.Paragraph{Text: "**Key point**and _aside_ **_both_**"}}, res.Elements)
}

func TestBuild_EmptyParagraphsDropped(t *testing.T) {
	res := build(t, nil, para("", ""), para("", "   "), para("Quote", ""))
	assert.Empty(t, res.Elements)
}
