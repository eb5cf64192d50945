// Package report turns a Summary into a bundle of named artifacts: chart
// pages, the raw chart data, a CSV summary table and an HTML index. Artifact
// names are stable identifiers and the bundle is deterministic for a given
// Summary.
package report

import (
	"fmt"

	"github.com/kilnhq/kiln/internal/aggregator"
)

// Content types used by the artifact bundle.
const (
	ctHTML = "text/html; charset=utf-8"
	ctJSON = "application/json"
	ctCSV  = "text/csv; charset=utf-8"
)

// Well-known artifact names.
const (
	ArtifactSuccessByCategory    = "success_by_category.html"
	ArtifactSuccessByModel       = "success_by_model.html"
	ArtifactCategoryShare        = "category_share.html"
	ArtifactRateHeatmap          = "rate_heatmap.html"
	ArtifactLinearProgression    = "linear_progression.html"
	ArtifactTemperatureAnalysis  = "temperature_analysis.html"
	ArtifactModelLanguageHeatmap = "model_language_heatmap.html"
	ArtifactChartData            = "chart_data.json"
	ArtifactSummaryTable         = "summary_table.csv"
	ArtifactIndex                = "report.html"
)

// Artifact is one named report output held in memory; the hosting layer
// decides where the bytes land.
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Bytes       []byte `json:"-"`
}

// Report is the ordered artifact bundle generated from one Summary.
type Report struct {
	Artifacts []Artifact `json:"artifacts"`
}

// Get returns the artifact with the given name.
func (r *Report) Get(name string) (Artifact, bool) {
	for _, a := range r.Artifacts {
		if a.Name == name {
			return a, true
		}
	}
	return Artifact{}, false
}

// Names returns artifact names in bundle order.
func (r *Report) Names() []string {
	names := make([]string, len(r.Artifacts))
	for i, a := range r.Artifacts {
		names[i] = a.Name
	}
	return names
}

// ReportError reports a summary that cannot be rendered.
type ReportError struct {
	Reason string
}

func (e *ReportError) Error() string {
	return "report: " + e.Reason
}

// Build generates the artifact bundle for a Summary. It fails with a
// ReportError when the summary holds no groups; chart artifacts that depend
// on optional dimensions (temperature, language) are produced only when the
// summary carries them.
func Build(s *aggregator.Summary) (*Report, error) {
	if s.Empty() {
		return nil, &ReportError{Reason: "empty summary: no groups to report"}
	}

	r := &Report{}

	charts := []struct {
		name   string
		render func(*aggregator.Summary) ([]byte, error)
		skip   bool
	}{
		{name: ArtifactSuccessByCategory, render: renderCategoryBars},
		{name: ArtifactSuccessByModel, render: renderModelBars},
		{name: ArtifactCategoryShare, render: renderCategoryShare},
		{name: ArtifactRateHeatmap, render: renderRateHeatmap},
		{name: ArtifactLinearProgression, render: renderProgression, skip: len(s.Progression) == 0},
		{name: ArtifactTemperatureAnalysis, render: renderTemperatures, skip: len(s.Temperatures) == 0},
		{name: ArtifactModelLanguageHeatmap, render: renderLanguageHeatmap, skip: len(s.Languages) == 0},
	}
	for _, c := range charts {
		if c.skip {
			continue
		}
		b, err := c.render(s)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", c.name, err)
		}
		r.Artifacts = append(r.Artifacts, Artifact{Name: c.name, ContentType: ctHTML, Bytes: b})
	}

	data, err := renderChartData(s)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", ArtifactChartData, err)
	}
	r.Artifacts = append(r.Artifacts, Artifact{Name: ArtifactChartData, ContentType: ctJSON, Bytes: data})

	csvTable, err := renderSummaryTable(s)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", ArtifactSummaryTable, err)
	}
	r.Artifacts = append(r.Artifacts, Artifact{Name: ArtifactSummaryTable, ContentType: ctCSV, Bytes: csvTable})

	index, err := renderIndex(s, r)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", ArtifactIndex, err)
	}
	r.Artifacts = append(r.Artifacts, Artifact{Name: ArtifactIndex, ContentType: ctHTML, Bytes: index})

	return r, nil
}
