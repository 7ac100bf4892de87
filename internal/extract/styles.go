package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the structural role a paragraph style maps to.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindQuote
	KindCaption
	KindReferences
	KindBulletList
	KindOrderedList
	KindAuthorBio
)

var kindNames = map[string]Kind{
	"paragraph":    KindParagraph,
	"heading":      KindHeading,
	"quote":        KindQuote,
	"caption":      KindCaption,
	"references":   KindReferences,
	"bullet_list":  KindBulletList,
	"ordered_list": KindOrderedList,
	"author_bio":   KindAuthorBio,
}

func (k Kind) String() string {
	for name, v := range kindNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// ParseKind resolves a kind from its configuration name.
func ParseKind(name string) (Kind, error) {
	k, ok := kindNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return KindParagraph, fmt.Errorf("unknown style kind %q", name)
	}
	return k, nil
}

// StyleTable maps source paragraph style names to kinds. Style names are
// compared with spaces removed, so "Heading 2" and "Heading2" are the same
// style. Any style starting with HeadingPrefix is a heading whose level is
// the numeric suffix (1 when the suffix is not a number).
type StyleTable struct {
	HeadingPrefix string
	Styles        map[string]Kind
}

// DefaultStyles returns the style conventions of the source corpus.
func DefaultStyles() StyleTable {
	return StyleTable{
		HeadingPrefix: "Heading",
		Styles: map[string]Kind{
			"Quote":                 KindQuote,
			"IntenseQuote":          KindQuote,
			"Caption":               KindCaption,
			"Bibliography":          KindReferences,
			"Reference":             KindReferences,
			"ListParagraph":         KindBulletList,
			"ListBullet":            KindBulletList,
			"NumberedListParagraph": KindOrderedList,
			"ListNumber":            KindOrderedList,
			"Author":                KindAuthorBio,
		},
	}
}

// WithOverrides returns a copy of the table with the given style -> kind name
// entries added or replaced.
func (t StyleTable) WithOverrides(overrides map[string]string) (StyleTable, error) {
	out := StyleTable{HeadingPrefix: t.HeadingPrefix, Styles: make(map[string]Kind, len(t.Styles)+len(overrides))}
	for k, v := range t.Styles {
		out.Styles[k] = v
	}
	for style, name := range overrides {
		k, err := ParseKind(name)
		if err != nil {
			return t, fmt.Errorf("style %q: %w", style, err)
		}
		out.Styles[normalizeStyle(style)] = k
	}
	return out, nil
}

// Resolve returns the kind of a style and, for headings, its level.
func (t StyleTable) Resolve(style string) (Kind, int) {
	s := normalizeStyle(style)
	if s == "" {
		return KindParagraph, 0
	}
	if k, ok := t.Styles[s]; ok {
		return k, 0
	}
	if t.HeadingPrefix != "" && strings.HasPrefix(s, t.HeadingPrefix) {
		level, err := strconv.Atoi(strings.TrimPrefix(s, t.HeadingPrefix))
		if err != nil || level < 1 {
			level = 1
		}
		return KindHeading, level
	}
	return KindParagraph, 0
}

func normalizeStyle(style string) string {
	return strings.ReplaceAll(strings.TrimSpace(style), " ", "")
}

// orderedFormats are numbering formats rendered as ordered lists; everything
// else is a bullet.
var orderedFormats = map[string]bool{
	"decimal":     true,
	"upperRoman":  true,
	"lowerRoman":  true,
	"upperLetter": true,
	"lowerLetter": true,
}
