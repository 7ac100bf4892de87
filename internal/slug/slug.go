// Package slug derives URL-safe identifiers from section and document titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var dashes = regexp.MustCompile(`[-\s]+`)

// Make converts value to a slug. By default the value is decomposed (NFKD) and
// reduced to ASCII; with allowUnicode the value is composed (NFKC) and
// non-ASCII letters are kept. Characters other than letters, digits,
// underscores, whitespace and hyphens are removed, runs of whitespace and
// hyphens collapse to a single hyphen, and leading/trailing hyphens and
// underscores are trimmed.
func Make(value string, allowUnicode bool) string {
	if allowUnicode {
		value = norm.NFKC.String(value)
	} else {
		value = toASCII(norm.NFKD.String(value))
	}

	value = strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, strings.ToLower(value))

	return strings.Trim(dashes.ReplaceAllString(value, "-"), "-_")
}

// Join builds a document slug from its section name and title.
func Join(section, title string, allowUnicode bool) string {
	s := Make(section, allowUnicode)
	if s == "" {
		s = "n"
	}
	return s + "--" + Make(title, allowUnicode)
}

func toASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}
