package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kilnhq/kiln/internal/aggregator"
	"github.com/kilnhq/kiln/internal/model"
)

func temp(v float64) *float64 { return &v }

func sampleTable() *model.Table {
	return &model.Table{
		Source: "run.csv",
		Format: "csv",
		Records: []model.Record{
			{Model: "alpha", Category: "math", Success: true, Language: "go", Temperature: temp(0.2), Seq: 1},
			{Model: "alpha", Category: "math", Success: false, Language: "go", Temperature: temp(0.7), Seq: 2},
			{Model: "beta", Category: "logic", Success: true, Language: "python", Temperature: temp(0.2), Seq: 3},
			{Model: "beta", Category: "math", Success: true, Seq: 4},
		},
	}
}

func bareTable() *model.Table {
	return &model.Table{
		Source: "run.txt",
		Format: "txt",
		Records: []model.Record{
			{Model: "alpha", Category: "math", Success: true, Seq: 1},
			{Model: "beta", Category: "math", Success: false, Seq: 2},
		},
	}
}

func TestBuildProducesAllArtifacts(t *testing.T) {
	r, err := Build(aggregator.Aggregate(sampleTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{
		ArtifactSuccessByCategory,
		ArtifactSuccessByModel,
		ArtifactCategoryShare,
		ArtifactRateHeatmap,
		ArtifactLinearProgression,
		ArtifactTemperatureAnalysis,
		ArtifactModelLanguageHeatmap,
		ArtifactChartData,
		ArtifactSummaryTable,
		ArtifactIndex,
	}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("got %d artifacts %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("artifact[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for _, a := range r.Artifacts {
		if len(a.Bytes) == 0 {
			t.Errorf("artifact %s is empty", a.Name)
		}
	}
}

func TestBuildSkipsOptionalCharts(t *testing.T) {
	r, err := Build(aggregator.Aggregate(bareTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := r.Get(ArtifactTemperatureAnalysis); ok {
		t.Errorf("temperature chart rendered without temperature data")
	}
	if _, ok := r.Get(ArtifactModelLanguageHeatmap); ok {
		t.Errorf("language heatmap rendered without language data")
	}
	if _, ok := r.Get(ArtifactLinearProgression); !ok {
		t.Errorf("progression chart missing")
	}
	if _, ok := r.Get(ArtifactIndex); !ok {
		t.Errorf("index page missing")
	}
}

func TestBuildEmptySummary(t *testing.T) {
	_, err := Build(aggregator.Aggregate(&model.Table{Source: "x", Format: "csv"}))
	if err == nil {
		t.Fatal("Build accepted an empty summary")
	}
	var rerr *ReportError
	if !errors.As(err, &rerr) {
		t.Fatalf("error %v is not a ReportError", err)
	}
}

func TestBuildContentTypes(t *testing.T) {
	r, err := Build(aggregator.Aggregate(sampleTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, a := range r.Artifacts {
		var want string
		switch {
		case strings.HasSuffix(a.Name, ".html"):
			want = "text/html; charset=utf-8"
		case strings.HasSuffix(a.Name, ".json"):
			want = "application/json"
		case strings.HasSuffix(a.Name, ".csv"):
			want = "text/csv; charset=utf-8"
		}
		if a.ContentType != want {
			t.Errorf("%s content type = %q, want %q", a.Name, a.ContentType, want)
		}
	}
}

func TestSummaryTableRows(t *testing.T) {
	r, err := Build(aggregator.Aggregate(sampleTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, ok := r.Get(ArtifactSummaryTable)
	if !ok {
		t.Fatal("summary table missing")
	}

	rows, err := csv.NewReader(bytes.NewReader(a.Bytes)).ReadAll()
	if err != nil {
		t.Fatalf("parsing summary table: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want header plus 3 groups", len(rows))
	}
	header := strings.Join(rows[0], ",")
	if header != "model,category,total,successes,failures,rate" {
		t.Errorf("header = %q", header)
	}
	first := rows[1]
	if first[0] != "alpha" || first[1] != "math" {
		t.Errorf("first group = %s/%s, want alpha/math", first[0], first[1])
	}
	if first[2] != "2" || first[3] != "1" || first[4] != "1" || first[5] != "0.5000" {
		t.Errorf("alpha/math row = %v", first)
	}
}

func TestChartDataDatasets(t *testing.T) {
	r, err := Build(aggregator.Aggregate(sampleTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, ok := r.Get(ArtifactChartData)
	if !ok {
		t.Fatal("chart data missing")
	}

	var file struct {
		Source   string      `json:"source"`
		Datasets []ChartData `json:"datasets"`
	}
	if err := json.Unmarshal(a.Bytes, &file); err != nil {
		t.Fatalf("parsing chart data: %v", err)
	}
	if file.Source != "run.csv" {
		t.Errorf("source = %q, want run.csv", file.Source)
	}

	byName := make(map[string]ChartData)
	for _, d := range file.Datasets {
		byName[d.Name] = d
	}
	for _, name := range []string{"groups", "models", "categories", "progression", "temperatures", "languages"} {
		d, ok := byName[name]
		if !ok {
			t.Errorf("dataset %s missing", name)
			continue
		}
		if len(d.Rows) < 2 {
			t.Errorf("dataset %s has no data rows", name)
		}
	}

	groups := byName["groups"]
	if got := len(groups.Rows); got != 4 {
		t.Errorf("groups rows = %d, want label row plus 3 groups", got)
	}
	if groups.Rows[0][0] != "model" || groups.Rows[0][1] != "category" {
		t.Errorf("groups label row = %v", groups.Rows[0])
	}
}

func TestIndexLinksProducedCharts(t *testing.T) {
	r, err := Build(aggregator.Aggregate(bareTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, ok := r.Get(ArtifactIndex)
	if !ok {
		t.Fatal("index page missing")
	}
	page := string(a.Bytes)

	for _, want := range []string{ArtifactSuccessByCategory, ArtifactLinearProgression, ArtifactSummaryTable, "run.txt"} {
		if !strings.Contains(page, want) {
			t.Errorf("index page does not mention %s", want)
		}
	}
	for _, skip := range []string{ArtifactTemperatureAnalysis, ArtifactModelLanguageHeatmap} {
		if strings.Contains(page, skip) {
			t.Errorf("index page links skipped chart %s", skip)
		}
	}
}

func TestIndexEscapesSource(t *testing.T) {
	tbl := bareTable()
	tbl.Source = `<script>alert("x")</script>.txt`
	r, err := Build(aggregator.Aggregate(tbl))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, _ := r.Get(ArtifactIndex)
	if strings.Contains(string(a.Bytes), "<script>alert") {
		t.Error("source name not escaped in index page")
	}
}

func TestChartPagesEmbedECharts(t *testing.T) {
	r, err := Build(aggregator.Aggregate(sampleTable()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, a := range r.Artifacts {
		if !strings.HasSuffix(a.Name, ".html") || a.Name == ArtifactIndex {
			continue
		}
		if !bytes.Contains(a.Bytes, []byte("echarts")) {
			t.Errorf("chart page %s does not reference echarts", a.Name)
		}
	}
}

func TestReportGetUnknown(t *testing.T) {
	r := &Report{}
	if _, ok := r.Get("nope.html"); ok {
		t.Error("Get returned an artifact for an unknown name")
	}
}
