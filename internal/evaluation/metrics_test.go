package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMetricsKnownConfusion(t *testing.T) {
	// Confusion matrix:
	//        pred 0  pred 1
	// true 0    3       1
	// true 1    2       4
	yTrue := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 1}
	yPred := []int{0, 0, 0, 1, 0, 0, 1, 1, 1, 1}

	m := CalculateMetrics(yTrue, yPred, []int{0, 1})
	require.NotNil(t, m)

	assert.InDelta(t, 0.7, m.Accuracy, 1e-12)
	assert.Equal(t, [][]int{{3, 1}, {2, 4}}, m.ConfusionMatrix)
	assert.Equal(t, 10, m.NumSamples)
	assert.Equal(t, 2, m.NumClasses)

	class0 := m.PerClassMetrics[0]
	assert.InDelta(t, 3.0/5.0, class0.Precision, 1e-12)
	assert.InDelta(t, 3.0/4.0, class0.Recall, 1e-12)
	assert.Equal(t, 4, class0.Support)

	class1 := m.PerClassMetrics[1]
	assert.InDelta(t, 4.0/5.0, class1.Precision, 1e-12)
	assert.InDelta(t, 4.0/6.0, class1.Recall, 1e-12)

	assert.InDelta(t, (3.0/4.0+4.0/6.0)/2, m.BalancedAccuracy, 1e-12)
	assert.InDelta(t, (3.0/5.0+4.0/5.0)/2, m.MacroPrecision, 1e-12)
	assert.InDelta(t, (3.0/5.0*4+4.0/5.0*6)/10, m.WeightedPrecision, 1e-12)
}

func TestCalculateMetricsPerfectPrediction(t *testing.T) {
	y := []int{0, 1, 2, 0, 1, 2}

	m := CalculateMetrics(y, y, []int{0, 1, 2})
	require.NotNil(t, m)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.MacroF1)
	assert.Equal(t, 1.0, m.BalancedAccuracy)
}

func TestCalculateMetricsRejectsBadInput(t *testing.T) {
	assert.Nil(t, CalculateMetrics([]int{0}, []int{0, 1}, []int{0, 1}))
	assert.Nil(t, CalculateMetrics(nil, nil, []int{0}))
	assert.Nil(t, CalculateMetrics([]int{0}, []int{0}, nil))
}

func TestCheckScoringResolvesKnownMetrics(t *testing.T) {
	for _, name := range ScoringNames() {
		scorer, err := CheckScoring(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, scorer.Name)
	}

	_, err := CheckScoring("made_up")
	assert.Error(t, err)
}

func TestScoreLabels(t *testing.T) {
	accuracy, err := CheckScoring("accuracy")
	require.NoError(t, err)

	score, err := accuracy.ScoreLabels([]int{0, 1, 1, 0}, []int{0, 1, 0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score, 1e-12)

	rocAUC, err := CheckScoring("roc_auc")
	require.NoError(t, err)
	_, err = rocAUC.ScoreLabels([]int{0, 1}, []int{0, 1})
	assert.Error(t, err, "probability scorers cannot score pooled labels")
}

func TestRankAUC(t *testing.T) {
	// Perfect separation.
	y := []int{0, 0, 1, 1}
	assert.InDelta(t, 1.0, rankAUC(y, []float64{0.1, 0.2, 0.8, 0.9}, 1), 1e-12)

	// Perfectly inverted.
	assert.InDelta(t, 0.0, rankAUC(y, []float64{0.9, 0.8, 0.2, 0.1}, 1), 1e-12)

	// All scores tied: chance level via average ranks.
	assert.InDelta(t, 0.5, rankAUC(y, []float64{0.5, 0.5, 0.5, 0.5}, 1), 1e-12)

	// One misranked pair out of four: AUC 0.75.
	assert.InDelta(t, 0.75, rankAUC(y, []float64{0.1, 0.8, 0.2, 0.9}, 1), 1e-12)
}
