package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docpress/internal/doctree"
)

// ErrMalformedReference is returned by ParseReference for lines that do not
// follow the "[code] text" form.
var ErrMalformedReference = errors.New("malformed reference")

// referencesSentinel is the paragraph text that opens the references section.
const referencesSentinel = "references"

func isReferencesSentinel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), referencesSentinel)
}

// ParseReference splits "[code] text" at the first closing bracket.
func ParseReference(line string) (doctree.Reference, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return doctree.Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, line)
	}
	end := strings.Index(line, "]")
	if end < 0 {
		return doctree.Reference{}, fmt.Errorf("%w: %q", ErrMalformedReference, line)
	}
	code := strings.TrimSpace(line[1:end])
	if code == "" {
		return doctree.Reference{}, fmt.Errorf("%w: empty code in %q", ErrMalformedReference, line)
	}
	return doctree.Reference{Code: code, Text: strings.TrimSpace(line[end+1:])}, nil
}

// numberedReference builds a reference from an auto-numbered paragraph. The
// container's numbering supplies the code; a visible "[n]" prefix that
// repeats that number is dropped from the text.
func numberedReference(n int, line string) doctree.Reference {
	code := fmt.Sprint(n)
	text := strings.TrimSpace(line)
	if prefix := "[" + code + "]"; strings.HasPrefix(text, prefix) {
		text = strings.TrimSpace(text[len(prefix):])
	}
	return doctree.Reference{Code: code, Text: text}
}
