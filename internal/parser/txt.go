package parser

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/kilnhq/kiln/internal/model"
)

// ---------------------------------------------------------------------------
// TXT Parser
// ---------------------------------------------------------------------------

// TXTParser handles line-oriented text logs. Fields are introduced by
// literal prefixes (Model:, Category:, Success:, plus optional Language: and
// Temperature:), matched case-insensitively at the start of a line. A record
// is complete once all three required prefixes have been seen since the last
// completed record; a duplicate prefix before completion overwrites the
// pending value (last wins). Lines matching no prefix are ignored, and a
// partial record at end of input is discarded.
type TXTParser struct{}

func NewTXTParser() *TXTParser { return &TXTParser{} }

func (p *TXTParser) Parse(data []byte, source string) (*model.Table, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		records []model.Record
		pending txtRecord
	)
	for sc.Scan() {
		key, val, ok := splitPrefix(strings.TrimSpace(sc.Text()))
		if !ok {
			continue
		}
		pending.set(key, val)
		if pending.complete() {
			rec := pending.record()
			rec.Seq = len(records)
			records = append(records, rec)
			pending = txtRecord{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{Format: FormatTXT, Reason: err.Error()}
	}

	if len(records) == 0 {
		return nil, &ParseError{
			Format: FormatTXT,
			Reason: "no complete records (each record needs Model:, Category: and Success:)",
		}
	}
	return newTable(source, FormatTXT, records), nil
}

// txtPrefixes are the recognized field prefixes, matched without the colon.
var txtPrefixes = []string{"model", "category", "success", "language", "temperature"}

// splitPrefix matches a field prefix at the start of a line and returns the
// field key and trimmed value.
func splitPrefix(line string) (key, value string, ok bool) {
	lower := strings.ToLower(line)
	for _, p := range txtPrefixes {
		if strings.HasPrefix(lower, p+":") {
			return p, strings.TrimSpace(line[len(p)+1:]), true
		}
	}
	return "", "", false
}

// txtRecord tracks the three-field state machine for one pending record.
type txtRecord struct {
	model       string
	category    string
	language    string
	temperature *float64
	success     bool

	hasModel    bool
	hasCategory bool
	hasSuccess  bool
}

// set applies one prefixed line to the pending record. Empty values do not
// count as seen: they cannot satisfy the non-empty field invariant.
func (r *txtRecord) set(key, val string) {
	switch key {
	case "model":
		if val != "" {
			r.model, r.hasModel = val, true
		}
	case "category":
		if val != "" {
			r.category, r.hasCategory = val, true
		}
	case "success":
		if v, present := parseSuccess(val); present {
			r.success, r.hasSuccess = v, true
		}
	case "language":
		if val != "" {
			r.language = val
		}
	case "temperature":
		// Unparsable temperatures are dropped, not fatal.
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			r.temperature = &f
		}
	}
}

func (r *txtRecord) complete() bool {
	return r.hasModel && r.hasCategory && r.hasSuccess
}

func (r *txtRecord) record() model.Record {
	return model.Record{
		Model:       r.model,
		Category:    r.category,
		Success:     r.success,
		Language:    r.language,
		Temperature: r.temperature,
	}
}
