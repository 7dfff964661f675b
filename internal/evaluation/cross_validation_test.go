package evaluation

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

func labeledDataset(n int) (*data.Collection, []int) {
	features := make([][]decimal.Decimal, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		y[i] = i % 2
		features[i] = []decimal.Decimal{decimal.NewFromInt(int64(y[i]))}
	}
	return data.FromFeatures(features), y
}

func TestSplitCoversEverySampleExactlyOnce(t *testing.T) {
	for _, stratified := range []bool{false, true} {
		cv := NewCrossValidator(4, stratified)
		_, y := labeledDataset(22)

		splits, err := cv.Split(22, y)
		require.NoError(t, err)
		require.Len(t, splits, 4)

		seen := make(map[int]int)
		for _, split := range splits {
			for _, idx := range split.Test {
				seen[idx]++
			}

			// Train and test are disjoint and cover everything.
			assert.Len(t, split.Train, 22-len(split.Test))
			inTest := make(map[int]bool)
			for _, idx := range split.Test {
				inTest[idx] = true
			}
			for _, idx := range split.Train {
				assert.False(t, inTest[idx])
			}
		}

		assert.Len(t, seen, 22)
		for idx, count := range seen {
			assert.Equal(t, 1, count, "sample %d", idx)
		}
	}
}

func TestSplitIsReproducible(t *testing.T) {
	_, y := labeledDataset(20)

	cv := NewCrossValidator(5, true)
	first, err := cv.Split(20, y)
	require.NoError(t, err)
	second, err := cv.Split(20, y)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	shifted, err := cv.WithSeed(43).Split(20, y)
	require.NoError(t, err)
	assert.NotEqual(t, first, shifted, "different seeds should shuffle differently")
}

func TestWithSeedLeavesOriginalUntouched(t *testing.T) {
	cv := NewCrossValidator(5, true)
	shifted := cv.WithSeed(99)
	assert.EqualValues(t, 42, cv.Seed)
	assert.EqualValues(t, 99, shifted.Seed)
	assert.Equal(t, cv.NFolds, shifted.NFolds)
}

func TestStratifiedSplitKeepsClassBalance(t *testing.T) {
	cv := NewCrossValidator(4, true)
	_, y := labeledDataset(40)

	splits, err := cv.Split(40, y)
	require.NoError(t, err)

	for f, split := range splits {
		counts := map[int]int{}
		for _, idx := range split.Test {
			counts[y[idx]]++
		}
		assert.Equal(t, 5, counts[0], "fold %d", f)
		assert.Equal(t, 5, counts[1], "fold %d", f)
	}
}

func TestSplitRejectsBadFoldCounts(t *testing.T) {
	_, y := labeledDataset(4)

	cv := NewCrossValidator(1, false)
	_, err := cv.Split(4, y)
	assert.Error(t, err)

	cv = NewCrossValidator(5, false)
	_, err = cv.Split(4, y)
	assert.Error(t, err)
}

func TestStratifiedSplitRejectsFoldsExceedingSmallestClass(t *testing.T) {
	// Two samples per class cannot fill three test folds; the splitter must
	// refuse instead of dealing an empty fold that would score as NaN.
	X, y := labeledDataset(4)

	cv := NewCrossValidator(3, true)
	_, err := cv.Split(4, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "samples per class")

	scorer, err := CheckScoring("accuracy")
	require.NoError(t, err)
	scores, err := CrossValScore(&constantPredictor{}, X, y, scorer, cv)
	assert.Error(t, err)
	assert.Nil(t, scores)

	// Plain K-fold has no per-class requirement.
	_, err = NewCrossValidator(3, false).Split(4, y)
	assert.NoError(t, err)
}

func TestCrossValScoreParallelMatchesSerial(t *testing.T) {
	X, y := labeledDataset(20)
	scorer, err := CheckScoring("accuracy")
	require.NoError(t, err)

	serial := NewCrossValidator(4, true)
	serialScores, err := CrossValScore(&constantPredictor{}, X, y, scorer, serial)
	require.NoError(t, err)

	parallel := NewCrossValidator(4, true)
	parallel.NJobs = 4
	parallelScores, err := CrossValScore(&constantPredictor{}, X, y, scorer, parallel)
	require.NoError(t, err)

	assert.Equal(t, serialScores, parallelScores)
}

func TestCrossValPredictCoversEverySample(t *testing.T) {
	X, y := labeledDataset(20)
	cv := NewCrossValidator(4, true)

	preds, err := CrossValPredict(&lookupClassifier{}, X, y, cv)
	require.NoError(t, err)
	require.Len(t, preds, 20)

	// The lookup classifier memorizes feature -> label, and here features
	// equal labels, so out-of-fold predictions are perfect.
	assert.Equal(t, y, preds)
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), std, 1e-12)

	mean, std = MeanStd([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = MeanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}

// constantPredictor always predicts class 0.
type constantPredictor struct{}

func (c *constantPredictor) Fit(X *data.Collection, y []int) error { return nil }
func (c *constantPredictor) GetName() string                       { return "Constant" }
func (c *constantPredictor) GetParams() map[string]any             { return nil }
func (c *constantPredictor) SetParams(params map[string]any) error { return nil }
func (c *constantPredictor) Clone() estimator.Estimator            { return &constantPredictor{} }
func (c *constantPredictor) GetClasses() []int                     { return []int{0, 1} }

func (c *constantPredictor) Predict(X *data.Collection) ([]int, error) {
	return make([]int, X.Len()), nil
}

func (c *constantPredictor) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	proba := make([][]decimal.Decimal, X.Len())
	for i := range proba {
		proba[i] = []decimal.Decimal{decimal.NewFromInt(1), decimal.Zero}
	}
	return proba, nil
}

// lookupClassifier memorizes the label seen for each first-feature value.
type lookupClassifier struct {
	seen map[string]int
}

func (l *lookupClassifier) Fit(X *data.Collection, y []int) error {
	features, err := X.FeatureMatrix()
	if err != nil {
		return err
	}
	l.seen = make(map[string]int, len(features))
	for i, row := range features {
		l.seen[row[0].String()] = y[i]
	}
	return nil
}

func (l *lookupClassifier) GetName() string                       { return "Lookup" }
func (l *lookupClassifier) GetParams() map[string]any             { return nil }
func (l *lookupClassifier) SetParams(params map[string]any) error { return nil }
func (l *lookupClassifier) Clone() estimator.Estimator            { return &lookupClassifier{} }
func (l *lookupClassifier) GetClasses() []int                     { return []int{0, 1} }

func (l *lookupClassifier) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	preds := make([]int, len(features))
	for i, row := range features {
		preds[i] = l.seen[row[0].String()]
	}
	return preds, nil
}

func (l *lookupClassifier) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	preds, err := l.Predict(X)
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
