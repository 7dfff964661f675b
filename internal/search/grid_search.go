// Package search implements exhaustive hyperparameter search over an
// ordered parameter grid with nested cross-validation.
package search

import (
	"fmt"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
	"mlpipeline/internal/evaluation"
)

// Candidate is one evaluated parameter combination.
type Candidate struct {
	Params map[string]any
	Scores []float64
	Mean   float64
	Std    float64
}

// Result holds the outcome of a grid search. Ties on mean score resolve to
// the first candidate in grid enumeration order.
type Result struct {
	BestParams map[string]any
	BestMean   float64
	BestStd    float64
	Candidates []Candidate
}

// GridSearch tunes a classifier over a parameter grid, scoring every
// candidate by cross-validation.
type GridSearch struct {
	Grid   ParamGrid
	CV     *evaluation.CrossValidator
	Scorer *evaluation.Scorer
}

func NewGridSearch(grid ParamGrid, cv *evaluation.CrossValidator, scorer *evaluation.Scorer) (*GridSearch, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if cv == nil {
		return nil, fmt.Errorf("grid search needs a cross-validator")
	}
	if scorer == nil {
		return nil, fmt.Errorf("grid search needs a scorer")
	}

	return &GridSearch{Grid: grid, CV: cv, Scorer: scorer}, nil
}

// Fit evaluates every parameter combination on a fresh clone of the
// classifier and returns the best one. The classifier passed in is never
// fitted or mutated.
func (gs *GridSearch) Fit(clf estimator.Classifier, X *data.Collection, y []int) (*Result, error) {
	combos := gs.Grid.Combinations()
	if len(combos) == 0 {
		return nil, fmt.Errorf("empty parameter grid")
	}

	result := &Result{
		Candidates: make([]Candidate, 0, len(combos)),
	}

	for _, params := range combos {
		candidate, ok := clf.Clone().(estimator.Classifier)
		if !ok {
			return nil, fmt.Errorf("clone of %s is not a classifier", clf.GetName())
		}

		if err := candidate.SetParams(params); err != nil {
			return nil, fmt.Errorf("candidate %s: %w", gs.Grid.Format(params), err)
		}

		scores, err := evaluation.CrossValScore(candidate, X, y, gs.Scorer, gs.CV)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", gs.Grid.Format(params), err)
		}

		mean, std := evaluation.MeanStd(scores)
		result.Candidates = append(result.Candidates, Candidate{
			Params: params,
			Scores: scores,
			Mean:   mean,
			Std:    std,
		})

		// Strict improvement only: first-seen wins on ties.
		if result.BestParams == nil || mean > result.BestMean {
			result.BestParams = params
			result.BestMean = mean
			result.BestStd = std
		}
	}

	return result, nil
}
