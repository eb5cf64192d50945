package report

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/kilnhq/kiln/internal/aggregator"
)

// chartTitles pairs each chart artifact with its link text, in the
// order the index page lists them.
var chartTitles = []struct{ name, title string }{
	{ArtifactSuccessByCategory, "Success rate by category"},
	{ArtifactSuccessByModel, "Success rate by model"},
	{ArtifactCategoryShare, "Records per category"},
	{ArtifactRateHeatmap, "Model and category heatmap"},
	{ArtifactLinearProgression, "Cumulative success rate"},
	{ArtifactTemperatureAnalysis, "Success rate by temperature"},
	{ArtifactModelLanguageHeatmap, "Model and language heatmap"},
}

type indexGroup struct {
	Model     string
	Category  string
	Total     int
	Successes int
	Failures  int
	Rate      string
	RateClass string
}

type indexChart struct {
	Href  string
	Title string
}

type indexData struct {
	Source    string
	Format    string
	Total     int
	Successes int
	Failures  int
	Rate      string
	RateClass string
	Groups    []indexGroup
	Charts    []indexChart
}

// renderIndex builds the report landing page. It links only the chart
// artifacts that were actually rendered for this summary.
func renderIndex(s *aggregator.Summary, r *Report) ([]byte, error) {
	data := indexData{
		Source:    s.Source,
		Format:    s.Format,
		Total:     s.TotalRecords,
		Successes: s.TotalSuccesses,
		Failures:  s.TotalFailures,
		Rate:      percent(s.OverallRate),
		RateClass: rateClass(s.OverallRate),
	}
	for _, g := range s.Groups {
		data.Groups = append(data.Groups, indexGroup{
			Model:     g.Model,
			Category:  g.Category,
			Total:     g.Total,
			Successes: g.Successes,
			Failures:  g.Failures,
			Rate:      percent(g.Rate),
			RateClass: rateClass(g.Rate),
		})
	}
	for _, c := range chartTitles {
		if _, ok := r.Get(c.name); ok {
			data.Charts = append(data.Charts, indexChart{Href: c.name, Title: c.title})
		}
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func percent(rate float64) string {
	return strconv.FormatFloat(rate*100, 'f', 1, 64) + "%"
}

func rateClass(rate float64) string {
	switch {
	case rate >= 0.8:
		return "good"
	case rate >= 0.5:
		return "warn"
	default:
		return "bad"
	}
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Kiln report: {{.Source}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2430; }
  h1 { font-size: 1.5rem; }
  h2 { font-size: 1.1rem; margin-top: 2rem; }
  .meta { color: #5f6672; margin-bottom: 1.5rem; }
  .cards { display: flex; gap: 1rem; flex-wrap: wrap; }
  .card { border: 1px solid #d8dce3; border-radius: 6px; padding: 0.75rem 1.25rem; min-width: 8rem; }
  .card .label { font-size: 0.75rem; text-transform: uppercase; color: #5f6672; }
  .card .value { font-size: 1.4rem; font-weight: 600; }
  table { border-collapse: collapse; width: 100%; margin-top: 0.5rem; }
  th, td { text-align: left; padding: 0.4rem 0.75rem; border-bottom: 1px solid #e3e6eb; }
  th { font-size: 0.75rem; text-transform: uppercase; color: #5f6672; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  .good { color: #1a7f37; }
  .warn { color: #9a6700; }
  .bad { color: #cf222e; }
  ul.charts { list-style: none; padding: 0; }
  ul.charts li { margin: 0.3rem 0; }
</style>
</head>
<body>
<h1>Kiln report</h1>
<p class="meta">{{.Source}} &middot; {{.Format}}</p>

<div class="cards">
  <div class="card"><div class="label">Records</div><div class="value">{{.Total}}</div></div>
  <div class="card"><div class="label">Successes</div><div class="value">{{.Successes}}</div></div>
  <div class="card"><div class="label">Failures</div><div class="value">{{.Failures}}</div></div>
  <div class="card"><div class="label">Success rate</div><div class="value {{.RateClass}}">{{.Rate}}</div></div>
</div>

<h2>Groups</h2>
<table>
  <thead>
    <tr><th>Model</th><th>Category</th><th>Total</th><th>Successes</th><th>Failures</th><th>Rate</th></tr>
  </thead>
  <tbody>
  {{- range .Groups}}
    <tr>
      <td>{{.Model}}</td>
      <td>{{.Category}}</td>
      <td class="num">{{.Total}}</td>
      <td class="num">{{.Successes}}</td>
      <td class="num">{{.Failures}}</td>
      <td class="num {{.RateClass}}">{{.Rate}}</td>
    </tr>
  {{- end}}
  </tbody>
</table>

{{- if .Charts}}
<h2>Charts</h2>
<ul class="charts">
  {{- range .Charts}}
  <li><a href="{{.Href}}">{{.Title}}</a></li>
  {{- end}}
</ul>
{{- end}}

<h2>Data</h2>
<ul class="charts">
  <li><a href="summary_table.csv">Summary table (CSV)</a></li>
  <li><a href="chart_data.json">Chart data (JSON)</a></li>
</ul>
</body>
</html>
`
