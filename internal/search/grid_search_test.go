package search

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
	"mlpipeline/internal/evaluation"
)

func searchDataset(n int) (*data.Collection, []int) {
	features := make([][]decimal.Decimal, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		y[i] = i % 2
		features[i] = []decimal.Decimal{decimal.NewFromInt(int64(y[i]))}
	}
	return data.FromFeatures(features), y
}

func TestNewGridSearchValidation(t *testing.T) {
	cv := evaluation.NewCrossValidator(2, true)
	scorer, err := evaluation.CheckScoring("accuracy")
	require.NoError(t, err)
	grid := ParamGrid{{Name: "rate", Values: []any{0.5}}}

	_, err = NewGridSearch(ParamGrid{{Name: "", Values: []any{1}}}, cv, scorer)
	assert.Error(t, err)

	_, err = NewGridSearch(grid, nil, scorer)
	assert.Error(t, err)

	_, err = NewGridSearch(grid, cv, nil)
	assert.Error(t, err)

	_, err = NewGridSearch(grid, cv, scorer)
	assert.NoError(t, err)
}

func TestFitEvaluatesEveryCandidate(t *testing.T) {
	cv := evaluation.NewCrossValidator(2, true)
	scorer, err := evaluation.CheckScoring("accuracy")
	require.NoError(t, err)

	grid := ParamGrid{{Name: "rate", Values: []any{0.0, 1.0, 0.5}}}
	gs, err := NewGridSearch(grid, cv, scorer)
	require.NoError(t, err)

	X, y := searchDataset(8)
	clf := &tunablePredictor{rate: 0.0}

	result, err := gs.Fit(clf, X, y)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 3)

	// rate=1.0 predicts the true label for every sample.
	assert.Equal(t, map[string]any{"rate": 1.0}, result.BestParams)
	assert.InDelta(t, 1.0, result.BestMean, 1e-12)

	// The classifier passed in was never mutated.
	assert.Equal(t, 0.0, clf.rate)
}

func TestFitTiesResolveToFirstCandidate(t *testing.T) {
	cv := evaluation.NewCrossValidator(2, true)
	scorer, err := evaluation.CheckScoring("accuracy")
	require.NoError(t, err)

	// Both candidates score identically; the first declared must win.
	grid := ParamGrid{{Name: "rate", Values: []any{1.0, 1.00000001}}}
	gs, err := NewGridSearch(grid, cv, scorer)
	require.NoError(t, err)

	X, y := searchDataset(8)
	result, err := gs.Fit(&tunablePredictor{}, X, y)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"rate": 1.0}, result.BestParams)
}

func TestFitRejectsBadParams(t *testing.T) {
	cv := evaluation.NewCrossValidator(2, true)
	scorer, err := evaluation.CheckScoring("accuracy")
	require.NoError(t, err)

	grid := ParamGrid{{Name: "rate", Values: []any{-1.0}}}
	gs, err := NewGridSearch(grid, cv, scorer)
	require.NoError(t, err)

	X, y := searchDataset(8)
	_, err = gs.Fit(&tunablePredictor{}, X, y)
	assert.Error(t, err)
}

// tunablePredictor predicts the true feature-encoded label when rate >= 1
// and class 0 otherwise, so its CV accuracy is a pure function of rate.
type tunablePredictor struct {
	rate float64
}

func (p *tunablePredictor) Fit(X *data.Collection, y []int) error { return nil }
func (p *tunablePredictor) GetName() string                       { return "Tunable" }
func (p *tunablePredictor) GetClasses() []int                     { return []int{0, 1} }

func (p *tunablePredictor) GetParams() map[string]any {
	return map[string]any{"rate": p.rate}
}

func (p *tunablePredictor) SetParams(params map[string]any) error {
	rate, err := estimator.FloatParam(params, "rate", p.rate)
	if err != nil {
		return err
	}
	if rate < 0 {
		return assert.AnError
	}
	p.rate = rate
	return nil
}

func (p *tunablePredictor) Clone() estimator.Estimator {
	return &tunablePredictor{rate: p.rate}
}

func (p *tunablePredictor) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}

	preds := make([]int, len(features))
	if p.rate >= 1 {
		for i, row := range features {
			v, _ := row[0].Float64()
			preds[i] = int(v)
		}
	}
	return preds, nil
}

func (p *tunablePredictor) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	preds, err := p.Predict(X)
	if err != nil {
		return nil, err
	}
	proba := make([][]decimal.Decimal, len(preds))
	for i, pred := range preds {
		proba[i] = []decimal.Decimal{decimal.Zero, decimal.Zero}
		proba[i][pred] = decimal.NewFromInt(1)
	}
	return proba, nil
}
