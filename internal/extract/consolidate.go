package extract

import "regexp"

var (
	adjacentBoldItalic = regexp.MustCompile(`\*\*_([^*_]+)_\*\*\*\*_([^*_]+)_\*\*`)
	adjacentBold       = regexp.MustCompile(`\*\*([^*]+)\*\*\*\*([^*]+)\*\*`)
	adjacentItalic     = regexp.MustCompile(`_([^_]+)__([^_]+)_`)
	paddedBold         = regexp.MustCompile(`\*\*\s*([^*]+?)\s*\*\*`)
	paddedItalic       = regexp.MustCompile(`_\s*([^_]+?)\s*_`)
)

// Consolidate merges adjacent emphasis marker pairs produced by run-by-run
// formatting ("**A****B**" becomes "**AB**") and trims whitespace just inside
// each pair. Passes repeat until the text stops changing, so
// Consolidate(Consolidate(x)) == Consolidate(x).
//
// Every rewrite removes characters, which bounds the number of passes by the
// input length.
func Consolidate(text string) string {
	for {
		next := consolidatePass(text)
		if next == text {
			return text
		}
		text = next
	}
}

func consolidatePass(text string) string {
	text = adjacentBoldItalic.ReplaceAllString(text, "**_${1}${2}_**")
	text = adjacentBold.ReplaceAllString(text, "**${1}${2}**")
	text = adjacentItalic.ReplaceAllString(text, "_${1}${2}_")
	text = paddedBold.ReplaceAllString(text, "**${1}**")
	text = paddedItalic.ReplaceAllString(text, "_${1}_")
	return text
}
