// Package report renders evaluation results as charts.
package report

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"mlpipeline/internal/pipeliner"
)

// SaveBarChart writes a bar chart of the outer evaluation means for one
// metric, one bar per plan row, labeled by the row's option choices.
func SaveBarChart(results *pipeliner.Results, metric, filename string) error {
	if len(results.Rows) == 0 {
		return fmt.Errorf("no rows to plot")
	}

	values := make(plotter.Values, 0, len(results.Rows))
	labels := make([]string, 0, len(results.Rows))

	for _, row := range results.Rows {
		m, ok := row.Metrics[metric]
		if !ok {
			return fmt.Errorf("metric %q not evaluated", metric)
		}
		if math.IsNaN(m.EvalMean) {
			return fmt.Errorf("metric %q has no evaluation score for %s", metric, strings.Join(row.Choices, "/"))
		}
		values = append(values, m.EvalMean)
		labels = append(labels, strings.Join(row.Choices, "\n"))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pipeline comparison (%s)", metric)
	p.Y.Label.Text = metric
	p.Y.Min = 0
	p.Y.Max = 1

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(labels...)

	width := vg.Inch * vg.Length(1+len(values))
	if err := p.Save(width, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}

	return nil
}

// SaveScorePlot writes a scatter of the per-repetition (or per-fold)
// evaluation scores of every plan row for one metric.
func SaveScorePlot(results *pipeliner.Results, metric, filename string) error {
	if len(results.Rows) == 0 {
		return fmt.Errorf("no rows to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Evaluation scores (%s)", metric)
	p.Y.Label.Text = metric
	p.Y.Min = 0
	p.Y.Max = 1

	labels := make([]string, 0, len(results.Rows))

	for i, row := range results.Rows {
		m, ok := row.Metrics[metric]
		if !ok {
			return fmt.Errorf("metric %q not evaluated", metric)
		}

		pts := make(plotter.XYs, len(m.EvalScores))
		for j, score := range m.EvalScores {
			pts[j].X = float64(i)
			pts[j].Y = score
		}

		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.Radius = vg.Points(3)
		p.Add(s)

		labels = append(labels, strings.Join(row.Choices, "\n"))
	}

	p.NominalX(labels...)

	width := vg.Inch * vg.Length(1+len(results.Rows))
	if err := p.Save(width, 4*vg.Inch, filename); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}

	return nil
}
