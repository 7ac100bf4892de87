// Package source reads the ordered source directory into sections and
// document items.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/parser"
)

// ErrNoSections is returned when the root holds no usable section folder.
var ErrNoSections = errors.New("no sections found")

// DefaultExcludes skip temporary folders, editor lock files and hidden entries.
var DefaultExcludes = []string{"tmp*", "~*", ".*"}

var orderPrefix = regexp.MustCompile(`^\d+[\s._-]*`)

// Options controls which entries are read.
type Options struct {
	// Excludes are glob patterns matched against entry base names. Nil means
	// DefaultExcludes.
	Excludes []string
}

func (o Options) excludes() []string {
	if o.Excludes == nil {
		return DefaultExcludes
	}
	return o.Excludes
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func (o Options) excluded(name string) bool {
	for _, p := range o.excludes() {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// SectionTitle strips the ordering prefix from a section folder name.
func SectionTitle(folder string) string {
	if t := orderPrefix.ReplaceAllString(folder, ""); t != "" {
		return t
	}
	return folder
}

// Read walks root. Every top-level folder, in name order, becomes a section;
// supported files below it, in path order, become its items.
func Read(root string, opts Options) (*doctree.Tree, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read source root: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	tree := &doctree.Tree{}
	for _, e := range entries {
		if !e.IsDir() || opts.excluded(e.Name()) {
			continue
		}
		sec := &doctree.Section{
			Title:     SectionTitle(e.Name()),
			Collapsed: !strings.HasPrefix(e.Name(), "00"),
		}
		items, err := readItems(root, filepath.Join(root, e.Name()), opts)
		if err != nil {
			return nil, err
		}
		sec.Items = items
		tree.Sections = append(tree.Sections, sec)
	}

	if len(tree.Sections) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSections, root)
	}
	return tree, nil
}

func readItems(root, dir string, opts Options) ([]*doctree.Item, error) {
	var items []*doctree.Item
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		if opts.excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !parser.IsSupportedExtension(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		items = append(items, &doctree.Item{
			SourcePath: path,
			RelPath:    filepath.ToSlash(rel),
			Name:       strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk section %s: %w", dir, err)
	}
	return items, nil
}
