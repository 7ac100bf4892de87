package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMarkdownParser_Headings(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1
`
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []struct{ style, text string }{
		{"Heading1", "Title"},
		{"", "Intro text."},
		{"Heading2", "Section A"},
		{"", "Section A content."},
		{"Heading3", "Subsection A1"},
	}
	if len(src.Paragraphs) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d", len(want), len(src.Paragraphs))
	}
	for i, w := range want {
		got := src.Paragraphs[i]
		if got.Style != w.style || got.Text() != w.text {
			t.Errorf("paragraph[%d]: expected (%q, %q), got (%q, %q)", i, w.style, w.text, got.Style, got.Text())
		}
	}
}

func TestMarkdownParser_Frontmatter(t *testing.T) {
	input := `---
title: Edge Computing
description: Where the cloud meets the device.
authors: [Ada Lovelace, Alan Turing]
keywords: [edge, iot]
---
Body text.
`
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "edge.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Meta.Title != "Edge Computing" {
		t.Errorf("expected title %q, got %q", "Edge Computing", src.Meta.Title)
	}
	if src.Meta.Description != "Where the cloud meets the device." {
		t.Errorf("unexpected description %q", src.Meta.Description)
	}
	if len(src.Meta.Authors) != 2 || src.Meta.Authors[1] != "Alan Turing" {
		t.Errorf("unexpected authors %v", src.Meta.Authors)
	}
	if len(src.Meta.Keywords) != 2 {
		t.Errorf("unexpected keywords %v", src.Meta.Keywords)
	}
	if len(src.Paragraphs) != 1 || src.Paragraphs[0].Text() != "Body text." {
		t.Errorf("unexpected body %+v", src.Paragraphs)
	}
}

func TestMarkdownParser_Emphasis(t *testing.T) {
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader("plain **bold** and *italic*"), "e.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(src.Paragraphs))
	}
	runs := src.Paragraphs[0].Runs
	var bold, italic string
	for _, r := range runs {
		if r.Bold {
			bold += r.Text
		}
		if r.Italic {
			italic += r.Text
		}
	}
	if bold != "bold" {
		t.Errorf("expected bold run %q, got %q", "bold", bold)
	}
	if italic != "italic" {
		t.Errorf("expected italic run %q, got %q", "italic", italic)
	}
}

func TestMarkdownParser_ListsAndQuotes(t *testing.T) {
	input := "- one\n- two\n\n1. first\n2. second\n\n> Stay hungry.\n>\n> Steve Jobs\n"
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), "l.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Paragraphs) != 6 {
		t.Fatalf("expected 6 paragraphs, got %d", len(src.Paragraphs))
	}
	if n := src.Paragraphs[0].Numbering; n == nil || n.Format != "bullet" {
		t.Errorf("expected bullet numbering, got %+v", n)
	}
	if n := src.Paragraphs[2].Numbering; n == nil || n.Format != "decimal" {
		t.Errorf("expected decimal numbering, got %+v", n)
	}
	if src.Paragraphs[0].Numbering.ListID == src.Paragraphs[2].Numbering.ListID {
		t.Errorf("expected distinct list ids")
	}
	if src.Paragraphs[4].Style != "Quote" || src.Paragraphs[4].Text() != "Stay hungry." {
		t.Errorf("unexpected quote %+v", src.Paragraphs[4])
	}
	if src.Paragraphs[5].Style != "" || src.Paragraphs[5].Text() != "Steve Jobs" {
		t.Errorf("unexpected attribution %+v", src.Paragraphs[5])
	}
}

func TestMarkdownParser_ImageAndTable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chart.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	input := "![chart](chart.png)\n\n| A | B |\n|---|---|\n| 1 | 2 |\n"
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(input), filepath.Join(dir, "doc.md"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(src.Paragraphs))
	}
	img := src.Paragraphs[0]
	if !img.HasImage() || string(img.Runs[0].Image.Data) != "png" {
		t.Errorf("expected image with bytes, got %+v", img)
	}
	tbl := src.Paragraphs[1].Table
	if tbl == nil || len(tbl.Rows) != 2 || tbl.Rows[1][1] != "2" {
		t.Errorf("unexpected table %+v", tbl)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	src, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.Paragraphs) != 0 {
		t.Errorf("expected 0 paragraphs for empty input, got %d", len(src.Paragraphs))
	}
}
