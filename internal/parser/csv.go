package parser

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVParser handles CSV files. The whole file becomes a single table block
// whose first record is the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Source, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	src := &Source{}
	if len(records) > 0 {
		src.Paragraphs = []Paragraph{{Table: &Table{Rows: records}}}
	}
	return src, nil
}
