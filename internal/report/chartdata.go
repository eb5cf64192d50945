package report

import (
	"encoding/json"

	"github.com/kilnhq/kiln/internal/aggregator"
)

// ChartData is a plot-ready dataset. The first row holds column labels,
// every following row holds one data point.
type ChartData struct {
	Name string          `json:"name"`
	Rows [][]interface{} `json:"rows"`
}

type chartFile struct {
	Source   string      `json:"source"`
	Format   string      `json:"format"`
	Datasets []ChartData `json:"datasets"`
}

// renderChartData emits every aggregate dimension as raw rows so a
// frontend can redraw the charts without reparsing the upload.
func renderChartData(s *aggregator.Summary) ([]byte, error) {
	file := chartFile{
		Source: s.Source,
		Format: s.Format,
	}

	groups := ChartData{
		Name: "groups",
		Rows: [][]interface{}{{"model", "category", "total", "successes", "failures", "rate"}},
	}
	for _, g := range s.Groups {
		groups.Rows = append(groups.Rows, []interface{}{
			g.Model, g.Category, g.Total, g.Successes, g.Failures, round4(g.Rate),
		})
	}
	file.Datasets = append(file.Datasets, groups)

	file.Datasets = append(file.Datasets,
		nameRows("models", "model", s.Models),
		nameRows("categories", "category", s.Categories),
	)

	if len(s.Progression) > 0 {
		prog := ChartData{
			Name: "progression",
			Rows: [][]interface{}{{"seq", "rate"}},
		}
		for _, p := range s.Progression {
			prog.Rows = append(prog.Rows, []interface{}{p.Seq, round4(p.Rate)})
		}
		file.Datasets = append(file.Datasets, prog)
	}

	if len(s.Temperatures) > 0 {
		temps := ChartData{
			Name: "temperatures",
			Rows: [][]interface{}{{"temperature", "total", "successes", "rate"}},
		}
		for _, t := range s.Temperatures {
			temps.Rows = append(temps.Rows, []interface{}{
				t.Temperature, t.Total, t.Successes, round4(t.Rate),
			})
		}
		file.Datasets = append(file.Datasets, temps)
	}

	if len(s.Languages) > 0 {
		langs := ChartData{
			Name: "languages",
			Rows: [][]interface{}{{"model", "language", "total", "successes", "rate"}},
		}
		for _, l := range s.Languages {
			langs.Rows = append(langs.Rows, []interface{}{
				l.Model, l.Language, l.Total, l.Successes, round4(l.Rate),
			})
		}
		file.Datasets = append(file.Datasets, langs)
	}

	return json.MarshalIndent(file, "", "  ")
}

func nameRows(name, label string, stats []aggregator.NameStat) ChartData {
	cd := ChartData{
		Name: name,
		Rows: [][]interface{}{{label, "total", "successes", "failures", "rate"}},
	}
	for _, st := range stats {
		cd.Rows = append(cd.Rows, []interface{}{
			st.Name, st.Total, st.Successes, st.Failures, round4(st.Rate),
		})
	}
	return cd
}
