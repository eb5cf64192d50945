package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kilnhq/kiln/internal/aggregator"
)

// Renderer writes an aggregated summary to an output stream.
type Renderer interface {
	Render(s *aggregator.Summary) error
}

// ---------------------------------------------------------------------------
// Text Renderer (colorized terminal output)
// ---------------------------------------------------------------------------

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true) // cyan
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))            // gray
	styleGood   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))             // green
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))            // yellow
	styleBad    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true) // red bold
)

// TextRenderer prints the summary table with rate-based colors.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes colorized text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(s *aggregator.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n",
		styleSource.Render(s.Source),
		styleDim.Render("["+s.Format+"]"))

	modelW, categoryW := len("MODEL"), len("CATEGORY")
	for _, g := range s.Groups {
		if len(g.Model) > modelW {
			modelW = len(g.Model)
		}
		if len(g.Category) > categoryW {
			categoryW = len(g.Category)
		}
	}

	header := fmt.Sprintf("%-*s  %-*s  %5s  %5s  %5s  %6s",
		modelW, "MODEL", categoryW, "CATEGORY", "TOTAL", "PASS", "FAIL", "RATE")
	fmt.Fprintln(&b, styleHeader.Render(header))

	for _, g := range s.Groups {
		fmt.Fprintf(&b, "%-*s  %-*s  %5d  %5d  %5d  %s\n",
			modelW, g.Model,
			categoryW, g.Category,
			g.Total, g.Successes, g.Failures,
			styleRate(g.Rate))
	}

	fmt.Fprintf(&b, "%s %s\n",
		styleDim.Render(fmt.Sprintf("%d records, %d passed, %d failed,",
			s.TotalRecords, s.TotalSuccesses, s.TotalFailures)),
		styleRate(s.OverallRate))

	_, err := io.WriteString(r.w, b.String())
	return err
}

// styleRate colors a success rate: green from 0.8, yellow from 0.5, red
// below that.
func styleRate(rate float64) string {
	text := fmt.Sprintf("%5.1f%%", rate*100)
	switch {
	case rate >= 0.8:
		return styleGood.Render(text)
	case rate >= 0.5:
		return styleWarn.Render(text)
	default:
		return styleBad.Render(text)
	}
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints the whole summary as one JSON document.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON to stdout.
func NewJSONRenderer() *JSONRenderer {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return &JSONRenderer{enc: enc}
}

func (r *JSONRenderer) Render(s *aggregator.Summary) error {
	return r.enc.Encode(s)
}
