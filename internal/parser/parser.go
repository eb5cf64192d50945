// Package parser converts uploaded log files (CSV, JSON or line-oriented
// TXT) into a uniform in-memory Table of records. Parsing is a pure
// transformation: no side effects, all-or-nothing per file.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilnhq/kiln/internal/model"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// Parser converts raw file bytes into a Table of records.
type Parser interface {
	Parse(data []byte, source string) (*model.Table, error)
}

// ParseError reports malformed or empty input. It carries the declared
// format and, where known, the 1-based line or element position.
type ParseError struct {
	Format Format
	Reason string
	Line   int // 0 when position is unknown
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: %s (line %d)", e.Format, e.Reason, e.Line)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Reason)
}

// Parse converts raw file bytes in the declared format into a Table.
func Parse(data []byte, format Format, source string) (*model.Table, error) {
	switch format {
	case FormatCSV:
		return NewCSVParser().Parse(data, source)
	case FormatJSON:
		return NewJSONParser().Parse(data, source)
	case FormatTXT:
		return NewTXTParser().Parse(data, source)
	default:
		return nil, &ParseError{Format: format, Reason: "unsupported format"}
	}
}

// ParseFormat maps a format tag ("csv", ".JSON", ...) to a Format.
func ParseFormat(tag string) (Format, error) {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "."))
	switch Format(t) {
	case FormatCSV, FormatJSON, FormatTXT:
		return Format(t), nil
	}
	return "", &ParseError{Format: Format(t), Reason: "unsupported format"}
}

// DetectFormat maps an uploaded file name to a Format by extension.
func DetectFormat(filename string) (Format, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", &ParseError{Reason: fmt.Sprintf("cannot detect format of %q: no extension", filename)}
	}
	return ParseFormat(ext)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTable wraps parsed records with source metadata.
func newTable(source string, format Format, records []model.Record) *model.Table {
	return &model.Table{
		Source:   source,
		Format:   string(format),
		ParsedAt: time.Now(),
		Records:  records,
	}
}

// parseSuccess maps a success token to a boolean. The recognized truthy set
// is true/1/yes/success (case-insensitive); every other non-empty token is
// false. The empty string means the field is missing.
func parseSuccess(s string) (value bool, present bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false, false
	}
	switch s {
	case "true", "1", "yes", "success":
		return true, true
	}
	return false, true
}
