// Package pipeline runs an upload through parsing, aggregation and report
// rendering as a single unit. The first failing stage aborts the run, so
// callers never see a partial result.
package pipeline

import (
	"context"

	"github.com/kilnhq/kiln/internal/aggregator"
	"github.com/kilnhq/kiln/internal/model"
	"github.com/kilnhq/kiln/internal/parser"
	"github.com/kilnhq/kiln/internal/report"
	"github.com/kilnhq/kiln/internal/session"
)

// Stage progress checkpoints, in percent of the whole run.
const (
	percentParsing     = 25
	percentAggregating = 55
	percentRendering   = 80
)

// Input describes one upload to process.
type Input struct {
	Source string
	Format parser.Format
	Data   []byte
}

// Progress is one stage notification emitted while a run moves along.
type Progress struct {
	State   session.State
	Stage   string
	Percent int
}

// Result carries the outputs of a successful run.
type Result struct {
	Table   *model.Table
	Summary *aggregator.Summary
	Report  *report.Report
}

// Run parses the input, aggregates the records and builds the report.
// notify, when non-nil, is called at the start of each stage. Errors keep
// their concrete types, so callers can pick apart parser.ParseError and
// report.ReportError with errors.As.
func Run(ctx context.Context, in Input, notify func(Progress)) (*Result, error) {
	emit := func(state session.State, stage string, percent int) {
		if notify != nil {
			notify(Progress{State: state, Stage: stage, Percent: percent})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emit(session.StateParsing, "parsing upload", percentParsing)
	tbl, err := parser.Parse(in.Data, in.Format, in.Source)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emit(session.StateAggregating, "aggregating records", percentAggregating)
	sum := aggregator.Aggregate(tbl)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emit(session.StateRendering, "rendering report", percentRendering)
	rep, err := report.Build(sum)
	if err != nil {
		return nil, err
	}

	return &Result{Table: tbl, Summary: sum, Report: rep}, nil
}
