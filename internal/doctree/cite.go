package doctree

import (
	"regexp"
	"strings"
)

// citation matches a bracket token together with a leading image marker and
// a trailing link target opener, so both can be told apart from citations.
var citation = regexp.MustCompile(`(!?)\[([^\[\]]+)\](\(?)`)

// Citation is a bracket token that cites one or more reference codes.
type Citation struct {
	Start, End int // byte offsets of the bracket token in the text
	Codes      []string
}

// Citations returns the citation tokens in text: "[code]" or a comma list
// "[a, b]". Markdown links, images and footnote markers are not citations.
func Citations(text string) []Citation {
	var out []Citation
	for _, m := range citation.FindAllStringSubmatchIndex(text, -1) {
		if m[3] > m[2] || m[7] > m[6] {
			continue
		}
		inner := text[m[4]:m[5]]
		if strings.HasPrefix(inner, "^") {
			continue
		}
		var codes []string
		for _, c := range strings.Split(inner, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
		if len(codes) == 0 {
			continue
		}
		end := m[5] + 1
		out = append(out, Citation{Start: m[4] - 1, End: end, Codes: codes})
	}
	return out
}

// ReplaceCitations rewrites every citation for which repl reports true.
func ReplaceCitations(text string, repl func(codes []string) (string, bool)) string {
	cites := Citations(text)
	if len(cites) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, c := range cites {
		s, ok := repl(c.Codes)
		if !ok {
			continue
		}
		b.WriteString(text[last:c.Start])
		b.WriteString(s)
		last = c.End
	}
	b.WriteString(text[last:])
	return b.String()
}
