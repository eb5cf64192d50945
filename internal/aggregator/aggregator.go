// Package aggregator computes summary statistics from a parsed Table:
// success counts grouped by (model, category), per-dimension rollups and a
// cumulative success-rate progression. Aggregation is deterministic (group
// order follows first-seen order) and a Summary is immutable once built.
package aggregator

import (
	"sort"

	"github.com/kilnhq/kiln/internal/model"
)

// GroupKey identifies one (model, category) aggregation group.
type GroupKey struct {
	Model    string `json:"model"`
	Category string `json:"category"`
}

// GroupStat holds the aggregate counts for one (model, category) group.
type GroupStat struct {
	Model     string  `json:"model"`
	Category  string  `json:"category"`
	Total     int     `json:"total"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	Rate      float64 `json:"rate"` // successes / total, in [0, 1]
}

// NameStat holds the aggregate counts for one value of a single dimension
// (a model or a category).
type NameStat struct {
	Name      string  `json:"name"`
	Total     int     `json:"total"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	Rate      float64 `json:"rate"`
}

// LanguageStat holds the aggregate counts for one (model, language) pair.
// Only populated when the input carried language fields.
type LanguageStat struct {
	Model     string  `json:"model"`
	Language  string  `json:"language"`
	Total     int     `json:"total"`
	Successes int     `json:"successes"`
	Failures  int     `json:"failures"`
	Rate      float64 `json:"rate"`
}

// TemperatureStat holds the aggregate counts for one sampling temperature.
// Only populated when the input carried temperature fields.
type TemperatureStat struct {
	Temperature float64 `json:"temperature"`
	Total       int     `json:"total"`
	Successes   int     `json:"successes"`
	Failures    int     `json:"failures"`
	Rate        float64 `json:"rate"`
}

// ProgressionPoint is the cumulative success rate after the Nth record, in
// file order.
type ProgressionPoint struct {
	Seq  int     `json:"seq"`  // number of records seen, 1-based
	Rate float64 `json:"rate"` // cumulative successes / records seen
}

// Summary is the aggregation of one Table. Groups, Models, Categories and
// Languages follow first-seen order; Temperatures are sorted ascending.
type Summary struct {
	Source         string             `json:"source"`
	Format         string             `json:"format"`
	TotalRecords   int                `json:"total_records"`
	TotalSuccesses int                `json:"total_successes"`
	TotalFailures  int                `json:"total_failures"`
	OverallRate    float64            `json:"overall_rate"`
	Groups         []GroupStat        `json:"groups"`
	Models         []NameStat         `json:"models"`
	Categories     []NameStat         `json:"categories"`
	Languages      []LanguageStat     `json:"languages,omitempty"`
	Temperatures   []TemperatureStat  `json:"temperatures,omitempty"`
	Progression    []ProgressionPoint `json:"progression"`

	index map[GroupKey]int
}

// Group returns the stats for a (model, category) pair.
func (s *Summary) Group(model, category string) (GroupStat, bool) {
	i, ok := s.index[GroupKey{Model: model, Category: category}]
	if !ok {
		return GroupStat{}, false
	}
	return s.Groups[i], true
}

// Empty reports whether the summary has no groups.
func (s *Summary) Empty() bool {
	return s == nil || len(s.Groups) == 0
}

type langKey struct {
	model    string
	language string
}

// Aggregate builds a Summary from a Table. Identical tables always yield
// identical summaries.
func Aggregate(t *model.Table) *Summary {
	s := &Summary{
		index: make(map[GroupKey]int),
	}
	if t != nil {
		s.Source = t.Source
		s.Format = t.Format
	}
	if t.Len() == 0 {
		return s
	}

	modelIdx := make(map[string]int)
	categoryIdx := make(map[string]int)
	languageIdx := make(map[langKey]int)
	temperatureIdx := make(map[float64]int)

	s.Progression = make([]ProgressionPoint, 0, t.Len())

	for _, rec := range t.Records {
		s.TotalRecords++
		if rec.Success {
			s.TotalSuccesses++
		} else {
			s.TotalFailures++
		}
		s.Progression = append(s.Progression, ProgressionPoint{
			Seq:  s.TotalRecords,
			Rate: float64(s.TotalSuccesses) / float64(s.TotalRecords),
		})

		key := GroupKey{Model: rec.Model, Category: rec.Category}
		i, ok := s.index[key]
		if !ok {
			i = len(s.Groups)
			s.index[key] = i
			s.Groups = append(s.Groups, GroupStat{Model: rec.Model, Category: rec.Category})
		}
		bump(&s.Groups[i].Total, &s.Groups[i].Successes, &s.Groups[i].Failures, rec.Success)

		mi, ok := modelIdx[rec.Model]
		if !ok {
			mi = len(s.Models)
			modelIdx[rec.Model] = mi
			s.Models = append(s.Models, NameStat{Name: rec.Model})
		}
		bump(&s.Models[mi].Total, &s.Models[mi].Successes, &s.Models[mi].Failures, rec.Success)

		ci, ok := categoryIdx[rec.Category]
		if !ok {
			ci = len(s.Categories)
			categoryIdx[rec.Category] = ci
			s.Categories = append(s.Categories, NameStat{Name: rec.Category})
		}
		bump(&s.Categories[ci].Total, &s.Categories[ci].Successes, &s.Categories[ci].Failures, rec.Success)

		if rec.Language != "" {
			lk := langKey{model: rec.Model, language: rec.Language}
			li, ok := languageIdx[lk]
			if !ok {
				li = len(s.Languages)
				languageIdx[lk] = li
				s.Languages = append(s.Languages, LanguageStat{Model: rec.Model, Language: rec.Language})
			}
			bump(&s.Languages[li].Total, &s.Languages[li].Successes, &s.Languages[li].Failures, rec.Success)
		}

		if rec.Temperature != nil {
			ti, ok := temperatureIdx[*rec.Temperature]
			if !ok {
				ti = len(s.Temperatures)
				temperatureIdx[*rec.Temperature] = ti
				s.Temperatures = append(s.Temperatures, TemperatureStat{Temperature: *rec.Temperature})
			}
			bump(&s.Temperatures[ti].Total, &s.Temperatures[ti].Successes, &s.Temperatures[ti].Failures, rec.Success)
		}
	}

	s.OverallRate = float64(s.TotalSuccesses) / float64(s.TotalRecords)
	for i := range s.Groups {
		s.Groups[i].Rate = rate(s.Groups[i].Successes, s.Groups[i].Total)
	}
	for i := range s.Models {
		s.Models[i].Rate = rate(s.Models[i].Successes, s.Models[i].Total)
	}
	for i := range s.Categories {
		s.Categories[i].Rate = rate(s.Categories[i].Successes, s.Categories[i].Total)
	}
	for i := range s.Languages {
		s.Languages[i].Rate = rate(s.Languages[i].Successes, s.Languages[i].Total)
	}
	for i := range s.Temperatures {
		s.Temperatures[i].Rate = rate(s.Temperatures[i].Successes, s.Temperatures[i].Total)
	}

	sort.Slice(s.Temperatures, func(i, j int) bool {
		return s.Temperatures[i].Temperature < s.Temperatures[j].Temperature
	})

	return s
}

// bump increments one group's counters.
func bump(total, successes, failures *int, success bool) {
	*total++
	if success {
		*successes++
	} else {
		*failures++
	}
}

// rate guards the successes/total division; groups are only created from
// existing records, so total is never zero in practice.
func rate(successes, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successes) / float64(total)
}
