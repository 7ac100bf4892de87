package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrEmptyBook is returned when a book has no chapters.
var ErrEmptyBook = errors.New("book has no chapters")

// pageNumberStamp places the running page number at the bottom centre.
const pageNumberStamp = "fontname:Helvetica, points:8, position:bc, offset:0 12, scalefactor:1 abs, rotation:0, fillcolor:#787878"

// Book concatenates per-document PDFs, rendered with ForBook, in the given
// order and stamps continuous page numbers across the result.
func Book(chapters [][]byte) ([]byte, error) {
	if len(chapters) == 0 {
		return nil, ErrEmptyBook
	}
	conf := model.NewDefaultConfiguration()

	rs := make([]io.ReadSeeker, len(chapters))
	for i, c := range chapters {
		rs[i] = bytes.NewReader(c)
	}
	var merged bytes.Buffer
	if err := api.MergeRaw(rs, &merged, false, conf); err != nil {
		return nil, fmt.Errorf("merge book: %w", err)
	}

	wm, err := api.TextWatermark("%p", pageNumberStamp, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("page number stamp: %w", err)
	}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(merged.Bytes()), &out, nil, wm, conf); err != nil {
		return nil, fmt.Errorf("stamp page numbers: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages of a PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
