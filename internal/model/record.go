package model

import "time"

// Record represents a single normalized test-log entry.
type Record struct {
	Model       string            `json:"model"`                 // model under test
	Category    string            `json:"category"`              // test category
	Success     bool              `json:"success"`               // test outcome
	Language    string            `json:"language,omitempty"`    // optional language tag
	Temperature *float64          `json:"temperature,omitempty"` // optional sampling temperature
	Extra       map[string]string `json:"extra,omitempty"`       // free-form fields from the source
	Seq         int               `json:"seq"`                   // 0-based position in the source file
}

// Table is the ordered collection of records parsed from one uploaded file.
// Record order matches file order. A Table is created fresh per upload and
// never shared between uploads.
type Table struct {
	Source   string    `json:"source"`  // originating file name
	Format   string    `json:"format"`  // csv, json or txt
	ParsedAt time.Time `json:"parsed_at"`
	Records  []Record  `json:"records"`
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}
