package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilnhq/kiln/internal/aggregator"
)

const (
	chartWidth  = "900px"
	chartHeight = "520px"
)

// heatmapColors runs from failing (red) through middling (yellow) to
// passing (green).
var heatmapColors = []string{"#d94e5d", "#eac736", "#50a35c"}

type renderable interface {
	Render(w io.Writer) error
}

// renderChart renders any go-echarts chart into a standalone HTML page.
func renderChart(c renderable) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func subtitle(s *aggregator.Summary) string {
	return fmt.Sprintf("%s (%d records)", s.Source, s.TotalRecords)
}

// ---------------------------------------------------------------------------
// Bar charts
// ---------------------------------------------------------------------------

func renderCategoryBars(s *aggregator.Summary) ([]byte, error) {
	return rateBars("Success rate by category", s, s.Categories)
}

func renderModelBars(s *aggregator.Summary) ([]byte, error) {
	return rateBars("Success rate by model", s, s.Models)
}

func rateBars(title string, s *aggregator.Summary, stats []aggregator.NameStat) ([]byte, error) {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(s)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Max: 1}),
	)

	names := make([]string, len(stats))
	values := make([]opts.BarData, len(stats))
	for i, st := range stats {
		names[i] = st.Name
		values[i] = opts.BarData{Value: round4(st.Rate)}
	}
	bar.SetXAxis(names).AddSeries("success rate", values)

	return renderChart(bar)
}

// ---------------------------------------------------------------------------
// Pie chart
// ---------------------------------------------------------------------------

func renderCategoryShare(s *aggregator.Summary) ([]byte, error) {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Records per category",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Records per category", Subtitle: subtitle(s)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	items := make([]opts.PieData, len(s.Categories))
	for i, c := range s.Categories {
		items[i] = opts.PieData{Name: c.Name, Value: c.Total}
	}
	pie.AddSeries("records", items).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	return renderChart(pie)
}

// ---------------------------------------------------------------------------
// Heatmaps
// ---------------------------------------------------------------------------

func renderRateHeatmap(s *aggregator.Summary) ([]byte, error) {
	models := make([]string, len(s.Models))
	for i, m := range s.Models {
		models[i] = m.Name
	}
	categories := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		categories[i] = c.Name
	}

	var data []opts.HeatMapData
	for x, m := range models {
		for y, c := range categories {
			if g, ok := s.Group(m, c); ok {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{x, y, round4(g.Rate)}})
			}
		}
	}

	return heatmap("Success rate by model and category", s, models, categories, data)
}

func renderLanguageHeatmap(s *aggregator.Summary) ([]byte, error) {
	models := make([]string, len(s.Models))
	modelIdx := make(map[string]int, len(s.Models))
	for i, m := range s.Models {
		models[i] = m.Name
		modelIdx[m.Name] = i
	}

	// Distinct languages in first-seen order.
	var languages []string
	languageIdx := make(map[string]int)
	for _, l := range s.Languages {
		if _, ok := languageIdx[l.Language]; !ok {
			languageIdx[l.Language] = len(languages)
			languages = append(languages, l.Language)
		}
	}

	var data []opts.HeatMapData
	for _, l := range s.Languages {
		x := modelIdx[l.Model]
		y := languageIdx[l.Language]
		data = append(data, opts.HeatMapData{Value: [3]interface{}{x, y, round4(l.Rate)}})
	}

	return heatmap("Success rate by model and language", s, models, languages, data)
}

func heatmap(title string, s *aggregator.Summary, x, y []string, data []opts.HeatMapData) ([]byte, error) {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(s)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: y}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: heatmapColors},
		}),
	)
	hm.SetXAxis(x).AddSeries("success rate", data)

	return renderChart(hm)
}

// ---------------------------------------------------------------------------
// Line charts
// ---------------------------------------------------------------------------

func renderProgression(s *aggregator.Summary) ([]byte, error) {
	xs := make([]string, len(s.Progression))
	values := make([]opts.LineData, len(s.Progression))
	for i, p := range s.Progression {
		xs[i] = strconv.Itoa(p.Seq)
		values[i] = opts.LineData{Value: round4(p.Rate)}
	}
	return rateLine("Cumulative success rate", "records seen", s, xs, values)
}

func renderTemperatures(s *aggregator.Summary) ([]byte, error) {
	xs := make([]string, len(s.Temperatures))
	values := make([]opts.LineData, len(s.Temperatures))
	for i, t := range s.Temperatures {
		xs[i] = strconv.FormatFloat(t.Temperature, 'g', -1, 64)
		values[i] = opts.LineData{Value: round4(t.Rate)}
	}
	return rateLine("Success rate by temperature", "temperature", s, xs, values)
}

func rateLine(title, xName string, s *aggregator.Summary, xs []string, values []opts.LineData) ([]byte, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(s)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Max: 1}),
	)
	line.SetXAxis(xs).AddSeries("success rate", values).SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
	)

	return renderChart(line)
}

// round4 trims a rate to four decimals for display.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
