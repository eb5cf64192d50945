package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/kilnhq/kiln/internal/aggregator"
)

var tableHeader = []string{"model", "category", "total", "successes", "failures", "rate"}

// renderSummaryTable writes one CSV row per (model, category) group, in
// the order the groups first appeared in the upload.
func renderSummaryTable(s *aggregator.Summary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(tableHeader); err != nil {
		return nil, err
	}
	for _, g := range s.Groups {
		row := []string{
			g.Model,
			g.Category,
			strconv.Itoa(g.Total),
			strconv.Itoa(g.Successes),
			strconv.Itoa(g.Failures),
			strconv.FormatFloat(g.Rate, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
