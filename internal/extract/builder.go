package extract

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docpress/internal/doctree"
	"github.com/dgallion1/docpress/internal/parser"
)

// Result is the output of classifying one paragraph stream.
type Result struct {
	Elements   []doctree.Element
	References []doctree.Reference
	// Bios are author-bio paragraphs in source order, kept out of Elements.
	Bios   []string
	Errors []string
}

// Builder classifies paragraph streams into document elements.
type Builder struct {
	styles StyleTable
	log    *slog.Logger
}

func NewBuilder(styles StyleTable, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{styles: styles, log: log}
}

type mode int

const (
	modeNormal mode = iota
	modeReferences
)

type listKind int

const (
	listBullet listKind = iota
	listOrdered
)

// pendingList is the list being accumulated. A nil *pendingList means no
// list is open.
type pendingList struct {
	kind  listKind
	items []string
}

// foldState is everything the classifier carries from one paragraph to the
// next. Lookahead is explicit: step receives the following paragraph and
// reports whether it consumed it.
type foldState struct {
	styles StyleTable
	assets AssetWriter

	out  []doctree.Element
	list *pendingList
	mode mode

	// openImage indexes the last emitted Image while it is still the most
	// recent element and has no caption; -1 otherwise. It is only open for
	// the paragraph directly after the image's own (imageAt).
	openImage int
	imageAt   int
	pos       int

	refs     []doctree.Reference
	refCodes map[string]bool
	refSeq   map[string]int // list id -> running number, for auto-numbered references
	bios     []string
	errs     []string
}

// Build runs the classifier over src. Images are stored through assets; a nil
// assets skips every image with an error.
func (b *Builder) Build(src *parser.Source, assets AssetWriter) Result {
	st := &foldState{
		styles:    b.styles,
		assets:    assets,
		openImage: -1,
		refCodes:  map[string]bool{},
		refSeq:    map[string]int{},
	}

	paras := src.Paragraphs
	for i := 0; i < len(paras); {
		var next *parser.Paragraph
		if i+1 < len(paras) {
			next = &paras[i+1]
		}
		st.pos = i
		if st.step(&paras[i], next) {
			i += 2
		} else {
			i++
		}
	}
	st.flushList()

	doctree.SortReferences(st.refs)
	for _, e := range st.errs {
		b.log.Debug("classifier anomaly", "error", e)
	}
	return Result{Elements: st.out, References: st.refs, Bios: st.bios, Errors: st.errs}
}

func (s *foldState) errorf(format string, args ...any) {
	s.errs = append(s.errs, fmt.Sprintf(format, args...))
}

func (s *foldState) emit(el doctree.Element) {
	s.out = append(s.out, el)
	if _, ok := el.(doctree.Image); ok {
		s.openImage = len(s.out) - 1
		s.imageAt = s.pos
	} else {
		s.openImage = -1
	}
}

// step classifies p and reports whether next was consumed as lookahead.
func (s *foldState) step(p, next *parser.Paragraph) bool {
	if s.openImage >= 0 && s.pos != s.imageAt+1 {
		s.openImage = -1
	}

	if p.Table != nil {
		if s.mode == modeReferences {
			s.errorf("reference: table in references section dropped")
			return false
		}
		s.flushList()
		s.table(p.Table)
		return false
	}

	kind, level := s.styles.Resolve(p.Style)
	text := p.Text()

	if kind == KindAuthorBio {
		if text != "" {
			s.bios = append(s.bios, text)
		}
		return false
	}

	if isReferencesSentinel(text) {
		s.flushList()
		s.mode = modeReferences
		return false
	}
	if kind == KindReferences && s.mode == modeNormal {
		s.flushList()
		s.mode = modeReferences
	}
	if s.mode == modeReferences {
		s.reference(p, text)
		return false
	}

	if lk, ok := s.listKindOf(p, kind); ok {
		s.listItem(p, lk)
		return false
	}
	s.flushList()

	switch kind {
	case KindHeading:
		if text != "" {
			s.emit(doctree.Header{Level: level, Text: text})
		}
		return false

	case KindQuote:
		if text == "" {
			return false
		}
		q := doctree.Quote{Text: text}
		consumed := false
		if next != nil && next.Table == nil && !next.HasImage() {
			q.Attribution = next.Text()
			consumed = true
		}
		s.emit(q)
		return consumed

	case KindCaption:
		if s.openImage >= 0 && !p.HasImage() {
			img := s.out[s.openImage].(doctree.Image)
			img.Caption = text
			s.out[s.openImage] = img
			s.openImage = -1
			return false
		}
	}

	return s.paragraph(p, next)
}

// paragraph emits body text, splitting it around embedded images.
func (s *foldState) paragraph(p, next *parser.Paragraph) bool {
	var buf strings.Builder
	consumed := false

	flush := func() {
		if t := strings.TrimSpace(buf.String()); t != "" {
			s.emit(doctree.Paragraph{Text: Consolidate(t)})
		}
		buf.Reset()
	}

	for _, r := range p.Runs {
		if r.Image == nil {
			buf.WriteString(formatRun(r))
			continue
		}
		flush()
		img, ok := s.image(r.Image)
		if !ok {
			continue
		}
		if !consumed && next != nil && next.Table == nil && !next.HasImage() {
			if k, _ := s.styles.Resolve(next.Style); k == KindCaption {
				img.Caption = next.Text()
				consumed = true
			}
		}
		s.emit(img)
		if img.Caption != "" {
			s.openImage = -1
		}
	}
	flush()
	return consumed
}

func (s *foldState) image(ref *parser.ImageRef) (doctree.Image, bool) {
	ext := strings.ToLower(filepath.Ext(ref.Name))
	if unsupportedImageExts[ext] {
		s.errorf("image: %s image format not supported: %s", ext, ref.Name)
		return doctree.Image{}, false
	}
	if len(ref.Data) == 0 {
		s.errorf("image: no image data found for %s", ref.Name)
		return doctree.Image{}, false
	}
	if s.assets == nil {
		s.errorf("image: failed to save image %s: no asset writer", ref.Name)
		return doctree.Image{}, false
	}
	path, err := s.assets.WriteImage(ref.Name, ref.Data)
	if err != nil {
		s.errorf("image: failed to save image %s: %v", ref.Name, err)
		return doctree.Image{}, false
	}
	return doctree.Image{Path: path}, true
}

// listKindOf decides whether p belongs to a list. Numbering metadata wins over
// the paragraph style.
func (s *foldState) listKindOf(p *parser.Paragraph, kind Kind) (listKind, bool) {
	if n := p.Numbering; n != nil {
		if orderedFormats[n.Format] {
			return listOrdered, true
		}
		return listBullet, true
	}
	switch kind {
	case KindBulletList:
		return listBullet, true
	case KindOrderedList:
		return listOrdered, true
	}
	return listBullet, false
}

func (s *foldState) listItem(p *parser.Paragraph, lk listKind) {
	text := Consolidate(strings.TrimSpace(formatRuns(p.Runs)))
	if text == "" {
		return
	}
	if s.list != nil && s.list.kind != lk {
		s.flushList()
	}
	if s.list == nil {
		s.list = &pendingList{kind: lk}
	}

	// A style-only list paragraph with an indent marker continues the
	// current item; numbered paragraphs always start one.
	if p.Numbering == nil && p.Indented && len(s.list.items) > 0 {
		last := len(s.list.items) - 1
		s.list.items[last] += "\n" + text
		return
	}
	s.list.items = append(s.list.items, text)
}

func (s *foldState) flushList() {
	if s.list == nil {
		return
	}
	items := s.list.items
	kind := s.list.kind
	s.list = nil
	if len(items) == 0 {
		return
	}
	if kind == listOrdered {
		s.emit(doctree.OrderedList{Items: items})
	} else {
		s.emit(doctree.BulletList{Items: items})
	}
}

func (s *foldState) table(t *parser.Table) {
	if len(t.Rows) == 0 {
		return
	}
	s.emit(doctree.Table{Headers: t.Rows[0], Rows: t.Rows[1:]})
}

func (s *foldState) reference(p *parser.Paragraph, text string) {
	if text == "" {
		return
	}

	var ref doctree.Reference
	if n := p.Numbering; n != nil && orderedFormats[n.Format] {
		s.refSeq[n.ListID]++
		num := s.refSeq[n.ListID]
		ref = numberedReference(num, text)
		// An explicit bracket code that differs from the visible number wins.
		if parsed, err := ParseReference(text); err == nil && parsed.Code != ref.Code {
			ref = parsed
		}
	} else {
		parsed, err := ParseReference(text)
		if err != nil {
			s.errorf("reference: failed to parse reference: %s", text)
			return
		}
		ref = parsed
	}

	key := strings.ToLower(ref.Code)
	if s.refCodes[key] {
		s.errorf("reference: duplicate reference code %q dropped: %s", ref.Code, text)
		return
	}
	s.refCodes[key] = true
	s.refs = append(s.refs, ref)
}

// formatRun wraps a run's text in emphasis markers. Whitespace-only runs are
// left bare so markers never enclose nothing.
func formatRun(r parser.Run) string {
	if strings.TrimSpace(r.Text) == "" {
		return r.Text
	}
	switch {
	case r.Bold && r.Italic:
		return "**_" + r.Text + "_**"
	case r.Bold:
		return "**" + r.Text + "**"
	case r.Italic:
		return "_" + r.Text + "_"
	}
	return r.Text
}

func formatRuns(runs []parser.Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Image == nil {
			b.WriteString(formatRun(r))
		}
	}
	return b.String()
}
