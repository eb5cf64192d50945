package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilnhq/kiln/internal/model"
)

// ---------------------------------------------------------------------------
// CSV Parser
// ---------------------------------------------------------------------------

// CSVParser handles comma-separated uploads. The header row declares column
// names; model, category and success are required, language and temperature
// are recognized, and every other column is kept as a free-form field.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Parse(data []byte, source string) (*model.Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, &ParseError{Format: FormatCSV, Reason: "empty input"}
	}
	if err != nil {
		return nil, csvError(err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"model", "category", "success"} {
		if _, ok := cols[required]; !ok {
			return nil, &ParseError{
				Format: FormatCSV,
				Reason: fmt.Sprintf("missing required column %q", required),
				Line:   1,
			}
		}
	}

	var records []model.Record
	line := 1 // the header row
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line++

		rec, perr := csvRecord(header, cols, row, line)
		if perr != nil {
			return nil, perr
		}
		rec.Seq = len(records)
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, &ParseError{Format: FormatCSV, Reason: "no data rows"}
	}
	return newTable(source, FormatCSV, records), nil
}

// csvRecord maps one data row to a Record.
func csvRecord(header []string, cols map[string]int, row []string, line int) (model.Record, *ParseError) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec model.Record

	rec.Model = field("model")
	if rec.Model == "" {
		return rec, &ParseError{Format: FormatCSV, Reason: "missing model value", Line: line}
	}
	rec.Category = field("category")
	if rec.Category == "" {
		return rec, &ParseError{Format: FormatCSV, Reason: "missing category value", Line: line}
	}

	success, present := parseSuccess(field("success"))
	if !present {
		return rec, &ParseError{Format: FormatCSV, Reason: "missing success value", Line: line}
	}
	rec.Success = success

	rec.Language = field("language")
	if v := field("temperature"); v != "" {
		// Unparsable temperatures are dropped, not fatal.
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rec.Temperature = &f
		}
	}

	// Remaining columns become free-form fields.
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "model", "category", "success", "language", "temperature":
			continue
		}
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[key] = v
		}
	}

	return rec, nil
}

// csvError converts an encoding/csv error into a ParseError, keeping the
// line position when the reader reports one.
func csvError(err error) *ParseError {
	var cerr *csv.ParseError
	if errors.As(err, &cerr) {
		return &ParseError{Format: FormatCSV, Reason: cerr.Err.Error(), Line: cerr.Line}
	}
	return &ParseError{Format: FormatCSV, Reason: err.Error()}
}
