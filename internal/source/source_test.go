package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestRead(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "01 Chapters", "b.docx"))
	touch(t, filepath.Join(root, "01 Chapters", "a.docx"))
	touch(t, filepath.Join(root, "01 Chapters", "~$a.docx"))
	touch(t, filepath.Join(root, "01 Chapters", "a.json"))
	touch(t, filepath.Join(root, "01 Chapters", "sub", "c.md"))
	touch(t, filepath.Join(root, "00_Introduction", "intro.docx"))
	touch(t, filepath.Join(root, "tmp-drafts", "draft.docx"))
	touch(t, filepath.Join(root, ".git", "x.md"))
	touch(t, filepath.Join(root, "loose.docx"))

	tree, err := Read(root, Options{})
	require.NoError(t, err)
	require.Len(t, tree.Sections, 2)

	intro := tree.Sections[0]
	assert.Equal(t, "Introduction", intro.Title)
	assert.False(t, intro.Collapsed)
	require.Len(t, intro.Items, 1)
	assert.Equal(t, "intro", intro.Items[0].Name)
	assert.Equal(t, "00_Introduction/intro.docx", intro.Items[0].RelPath)

	chapters := tree.Sections[1]
	assert.Equal(t, "Chapters", chapters.Title)
	assert.True(t, chapters.Collapsed)
	var names []string
	for _, it := range chapters.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, filepath.Join(root, "01 Chapters", "sub", "c.md"), chapters.Items[2].SourcePath)
}

func TestRead_CustomExcludes(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "01 A", "keep.md"))
	touch(t, filepath.Join(root, "01 A", "errors.txt"))
	touch(t, filepath.Join(root, "02 Archive", "old.md"))

	tree, err := Read(root, Options{Excludes: []string{"*Archive", "errors.txt"}})
	require.NoError(t, err)
	require.Len(t, tree.Sections, 1)
	require.Len(t, tree.Sections[0].Items, 1)
	assert.Equal(t, "keep", tree.Sections[0].Items[0].Name)
}

func TestRead_NoSections(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "file.docx"))

	_, err := Read(root, Options{})
	assert.ErrorIs(t, err, ErrNoSections)

	_, err = Read(filepath.Join(root, "missing"), Options{})
	assert.Error(t, err)
}

func TestSectionTitle(t *testing.T) {
	tests := map[string]string{
		"01 Chapters":  "Chapters",
		"00_Intro":     "Intro",
		"3-Appendix":   "Appendix",
		"10. Research": "Research",
		"Plain":        "Plain",
		"2024":         "2024",
	}
	for in, want := range tests {
		assert.Equal(t, want, SectionTitle(in), in)
	}
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns(DefaultExcludes))
	assert.Error(t, ValidatePatterns([]string{"[unclosed"}))
}
