package aggregator

import (
	"reflect"
	"testing"

	"github.com/kilnhq/kiln/internal/model"
)

func table(records ...model.Record) *model.Table {
	for i := range records {
		records[i].Seq = i
	}
	return &model.Table{Source: "test.txt", Format: "txt", Records: records}
}

func TestAggregateGrouping(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "gpt-x", Category: "reasoning", Success: true},
		model.Record{Model: "gpt-x", Category: "reasoning", Success: false},
	))

	if len(s.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(s.Groups))
	}
	g := s.Groups[0]
	if g.Model != "gpt-x" || g.Category != "reasoning" {
		t.Errorf("unexpected group key: %s/%s", g.Model, g.Category)
	}
	if g.Total != 2 || g.Successes != 1 || g.Failures != 1 {
		t.Errorf("expected total=2 successes=1 failures=1, got %d/%d/%d",
			g.Total, g.Successes, g.Failures)
	}
	if g.Rate != 0.5 {
		t.Errorf("expected rate 0.5, got %f", g.Rate)
	}
}

func TestAggregateCountInvariant(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "a", Category: "x", Success: true},
		model.Record{Model: "a", Category: "y", Success: false},
		model.Record{Model: "b", Category: "x", Success: true},
		model.Record{Model: "b", Category: "x", Success: true},
		model.Record{Model: "b", Category: "y", Success: false},
	))

	for _, g := range s.Groups {
		if g.Successes+g.Failures != g.Total {
			t.Errorf("group %s/%s: successes+failures != total", g.Model, g.Category)
		}
		if g.Rate < 0 || g.Rate > 1 {
			t.Errorf("group %s/%s: rate %f out of [0,1]", g.Model, g.Category, g.Rate)
		}
	}
	if s.TotalSuccesses+s.TotalFailures != s.TotalRecords {
		t.Error("overall successes+failures != total records")
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "b", Category: "y", Success: true},
		model.Record{Model: "a", Category: "x", Success: true},
		model.Record{Model: "b", Category: "y", Success: false},
		model.Record{Model: "a", Category: "z", Success: true},
	))

	wantGroups := []GroupKey{
		{Model: "b", Category: "y"},
		{Model: "a", Category: "x"},
		{Model: "a", Category: "z"},
	}
	if len(s.Groups) != len(wantGroups) {
		t.Fatalf("expected %d groups, got %d", len(wantGroups), len(s.Groups))
	}
	for i, w := range wantGroups {
		if s.Groups[i].Model != w.Model || s.Groups[i].Category != w.Category {
			t.Errorf("group %d: expected %s/%s, got %s/%s",
				i, w.Model, w.Category, s.Groups[i].Model, s.Groups[i].Category)
		}
	}

	if s.Models[0].Name != "b" || s.Models[1].Name != "a" {
		t.Errorf("expected models in first-seen order, got %v", s.Models)
	}
	if s.Categories[0].Name != "y" || s.Categories[1].Name != "x" || s.Categories[2].Name != "z" {
		t.Errorf("expected categories in first-seen order, got %v", s.Categories)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	in := table(
		model.Record{Model: "gpt-x", Category: "reasoning", Success: true},
		model.Record{Model: "gpt-x", Category: "coding", Success: false},
		model.Record{Model: "claude-z", Category: "reasoning", Success: true},
	)

	first := Aggregate(in)
	second := Aggregate(in)

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical summaries for identical tables")
	}
}

func TestAggregateGroupLookup(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "gpt-x", Category: "reasoning", Success: true},
	))

	g, ok := s.Group("gpt-x", "reasoning")
	if !ok {
		t.Fatal("expected group lookup to succeed")
	}
	if g.Total != 1 {
		t.Errorf("expected total 1, got %d", g.Total)
	}

	if _, ok := s.Group("gpt-x", "missing"); ok {
		t.Error("expected lookup miss for unknown category")
	}
}

func TestAggregateProgression(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "m", Category: "c", Success: true},
		model.Record{Model: "m", Category: "c", Success: false},
		model.Record{Model: "m", Category: "c", Success: false},
		model.Record{Model: "m", Category: "c", Success: true},
	))

	want := []float64{1.0, 0.5, 1.0 / 3.0, 0.5}
	if len(s.Progression) != len(want) {
		t.Fatalf("expected %d progression points, got %d", len(want), len(s.Progression))
	}
	for i, w := range want {
		p := s.Progression[i]
		if p.Seq != i+1 {
			t.Errorf("point %d: expected seq %d, got %d", i, i+1, p.Seq)
		}
		if p.Rate != w {
			t.Errorf("point %d: expected rate %f, got %f", i, w, p.Rate)
		}
	}
}

func TestAggregateOptionalDimensions(t *testing.T) {
	temp := func(v float64) *float64 { return &v }

	s := Aggregate(table(
		model.Record{Model: "m1", Category: "c", Success: true, Language: "python", Temperature: temp(0.7)},
		model.Record{Model: "m1", Category: "c", Success: false, Language: "python", Temperature: temp(0.2)},
		model.Record{Model: "m2", Category: "c", Success: true, Language: "go", Temperature: temp(0.7)},
	))

	if len(s.Languages) != 2 {
		t.Fatalf("expected 2 (model, language) pairs, got %d", len(s.Languages))
	}
	if s.Languages[0].Model != "m1" || s.Languages[0].Language != "python" {
		t.Errorf("unexpected first language group: %+v", s.Languages[0])
	}
	if s.Languages[0].Total != 2 || s.Languages[0].Successes != 1 {
		t.Errorf("expected python group total=2 successes=1, got %+v", s.Languages[0])
	}

	if len(s.Temperatures) != 2 {
		t.Fatalf("expected 2 temperature buckets, got %d", len(s.Temperatures))
	}
	// Temperatures are sorted ascending regardless of input order.
	if s.Temperatures[0].Temperature != 0.2 || s.Temperatures[1].Temperature != 0.7 {
		t.Errorf("expected temperatures [0.2 0.7], got %+v", s.Temperatures)
	}
	if s.Temperatures[1].Total != 2 || s.Temperatures[1].Successes != 2 {
		t.Errorf("expected 0.7 bucket total=2 successes=2, got %+v", s.Temperatures[1])
	}
}

func TestAggregateWithoutOptionalFields(t *testing.T) {
	s := Aggregate(table(
		model.Record{Model: "m", Category: "c", Success: true},
	))

	if len(s.Languages) != 0 {
		t.Errorf("expected no language stats, got %d", len(s.Languages))
	}
	if len(s.Temperatures) != 0 {
		t.Errorf("expected no temperature stats, got %d", len(s.Temperatures))
	}
}

func TestAggregateEmptyTable(t *testing.T) {
	s := Aggregate(&model.Table{Source: "empty.csv", Format: "csv"})

	if !s.Empty() {
		t.Error("expected empty summary for empty table")
	}
	if s.TotalRecords != 0 {
		t.Errorf("expected 0 records, got %d", s.TotalRecords)
	}
}
