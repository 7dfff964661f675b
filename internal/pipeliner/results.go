package pipeliner

import (
	"fmt"
	"math"

	"mlpipeline/internal/table"
)

// MetricResult holds one metric's outcome for one plan row. Grid fields
// are NaN (and BestParams empty) when the row's terminal option has no
// parameter grid.
type MetricResult struct {
	GridMean      float64
	GridStd       float64
	BestParams    map[string]any
	BestParamsStr string
	EvalMean      float64
	EvalStd       float64
	EvalScores    []float64
}

// RowResult is one completed plan row with its per-metric results.
type RowResult struct {
	Choices []string
	Metrics map[string]MetricResult
}

// Results is the evaluation outcome: one row per plan row, in plan order.
// It is not mutated after being returned.
type Results struct {
	StepNames []string
	Scoring   []string
	Rows      []RowResult
}

// Table renders the results with the plan columns followed, per metric, by
// grid mean/std/best-params and eval mean/std/scores columns.
func (r *Results) Table() *table.Table {
	columns := append([]string{}, r.StepNames...)
	for _, metric := range r.Scoring {
		columns = append(columns,
			fmt.Sprintf("grid_%s_mean", metric),
			fmt.Sprintf("grid_%s_std", metric),
			fmt.Sprintf("grid_%s_best_params", metric),
			fmt.Sprintf("eval_%s_mean", metric),
			fmt.Sprintf("eval_%s_std", metric),
			fmt.Sprintf("eval_%s_scores", metric),
		)
	}

	t := table.New(columns...)

	for _, row := range r.Rows {
		cells := append([]string{}, row.Choices...)
		for _, metric := range r.Scoring {
			m := row.Metrics[metric]
			cells = append(cells,
				formatScore(m.GridMean),
				formatScore(m.GridStd),
				m.BestParamsStr,
				formatScore(m.EvalMean),
				formatScore(m.EvalStd),
				fmt.Sprintf("%v", m.EvalScores),
			)
		}
		t.Append(cells)
	}

	return t
}

// Best returns the row with the highest outer evaluation mean for a
// metric. Ties keep the earlier row.
func (r *Results) Best(metric string) (RowResult, bool) {
	best := RowResult{}
	bestMean := math.Inf(-1)
	found := false

	for _, row := range r.Rows {
		m, ok := row.Metrics[metric]
		if !ok || math.IsNaN(m.EvalMean) {
			continue
		}
		if m.EvalMean > bestMean {
			bestMean = m.EvalMean
			best = row
			found = true
		}
	}

	return best, found
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}
