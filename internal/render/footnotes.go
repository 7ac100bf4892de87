package render

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docpress/internal/doctree"
)

var (
	co2e       = regexp.MustCompile(`\bCO2e\b`)
	co2        = regexp.MustCompile(`\bCO2\b`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Footnotes rewrites citations into footnote markers: "[a]" becomes "[^a]"
// and "[a, b]" becomes "[^a][^b]". A token is only rewritten when every code
// in it names one of refs, so prose in brackets is left alone.
func Footnotes(text string, refs []doctree.Reference) string {
	if len(refs) == 0 {
		return text
	}
	known := make(map[string]string, len(refs))
	for _, r := range refs {
		known[strings.ToLower(r.Code)] = r.Code
	}
	return doctree.ReplaceCitations(text, func(codes []string) (string, bool) {
		var b strings.Builder
		for _, c := range codes {
			code, ok := known[strings.ToLower(c)]
			if !ok {
				return "", false
			}
			b.WriteString("[^" + footnoteLabel(code) + "]")
		}
		return b.String(), true
	})
}

// footnoteLabel makes a reference code usable as a footnote label.
func footnoteLabel(code string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(code), "-")
}

// subscriptCO2 typesets CO2 and CO2e with a subscript two.
func subscriptCO2(text string) string {
	text = co2e.ReplaceAllString(text, "CO<sub>2</sub>e")
	return co2.ReplaceAllString(text, "CO<sub>2</sub>")
}
