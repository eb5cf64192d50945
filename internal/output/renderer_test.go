package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilnhq/kiln/internal/aggregator"
	"github.com/kilnhq/kiln/internal/model"
)

func summary() *aggregator.Summary {
	return aggregator.Aggregate(&model.Table{
		Source: "run.csv",
		Format: "csv",
		Records: []model.Record{
			{Model: "gpt-x", Category: "math", Success: true, Seq: 1},
			{Model: "gpt-x", Category: "math", Success: false, Seq: 2},
			{Model: "haiku", Category: "logic", Success: true, Seq: 3},
		},
	})
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	renderer := &TextRenderer{w: &buf}

	if err := renderer.Render(summary()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{"run.csv", "gpt-x", "haiku", "math", "logic", "50.0%", "100.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "3 records, 2 passed, 1 failed,") {
		t.Errorf("totals line missing:\n%s", out)
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	renderer := &JSONRenderer{enc: enc}

	if err := renderer.Render(summary()); err != nil {
		t.Fatal(err)
	}

	var got aggregator.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\nraw: %s", err, buf.String())
	}

	if got.Source != "run.csv" {
		t.Errorf("source = %q, want run.csv", got.Source)
	}
	if got.TotalRecords != 3 || got.TotalSuccesses != 2 {
		t.Errorf("totals = %d/%d, want 3/2", got.TotalRecords, got.TotalSuccesses)
	}
	if len(got.Groups) != 2 {
		t.Errorf("groups = %d, want 2", len(got.Groups))
	}
}
