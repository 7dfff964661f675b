package preprocessing

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlpipeline/internal/data"
)

func featureData(values ...float64) *data.Collection {
	features := make([][]decimal.Decimal, len(values))
	for i, v := range values {
		features[i] = []decimal.Decimal{decimal.NewFromFloat(v)}
	}
	return data.FromFeatures(features)
}

func asFloat(t *testing.T, v decimal.Decimal) float64 {
	t.Helper()
	f, _ := v.Float64()
	return f
}

func TestMinMaxScaling(t *testing.T) {
	scaler := NewScaler("minmax")
	X := featureData(0, 5, 10)

	require.NoError(t, scaler.Fit(X, nil))
	out, err := scaler.Transform(X)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, asFloat(t, out.Features[0][0]), 1e-9)
	assert.InDelta(t, 0.5, asFloat(t, out.Features[1][0]), 1e-9)
	assert.InDelta(t, 1.0, asFloat(t, out.Features[2][0]), 1e-9)
}

func TestStandardScaling(t *testing.T) {
	scaler := NewScaler("standard")
	X := featureData(2, 4, 6)

	require.NoError(t, scaler.Fit(X, nil))
	out, err := scaler.Transform(X)
	require.NoError(t, err)

	// Mean 4, population std sqrt(8/3).
	assert.InDelta(t, 0.0, asFloat(t, out.Features[1][0]), 1e-6)
	assert.InDelta(t, -asFloat(t, out.Features[2][0]), asFloat(t, out.Features[0][0]), 1e-6)
}

func TestNoneScalerPassesThrough(t *testing.T) {
	scaler := NewScaler("none")
	X := featureData(1, 2, 3)

	require.NoError(t, scaler.Fit(X, nil))
	out, err := scaler.Transform(X)
	require.NoError(t, err)
	assert.Equal(t, X.Features, out.Features)
}

func TestScalerTransformBeforeFitFails(t *testing.T) {
	scaler := NewScaler("minmax")
	_, err := scaler.Transform(featureData(1))
	assert.Error(t, err)
}

func TestScalerSetParams(t *testing.T) {
	scaler := NewScaler("minmax")

	require.NoError(t, scaler.SetParams(map[string]any{"scaling": "standard"}))
	assert.Equal(t, "standard", scaler.ScaleType)

	assert.Error(t, scaler.SetParams(map[string]any{"scaling": "robust"}))
}

func TestLabelEncoderAssignsSortedCodes(t *testing.T) {
	le := NewLabelEncoder()

	encoded, err := le.FitTransform([]string{"setosa", "virginica", "setosa", "versicolor"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 0, 1}, encoded)
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, le.Classes())

	decoded, err := le.InverseTransform(encoded)
	require.NoError(t, err)
	assert.Equal(t, []string{"setosa", "virginica", "setosa", "versicolor"}, decoded)

	_, err = le.Transform([]string{"unknown"})
	assert.Error(t, err)

	_, err = le.InverseTransform([]int{9})
	assert.Error(t, err)
}

func TestLabelEncoderRequiresFit(t *testing.T) {
	le := NewLabelEncoder()

	_, err := le.Transform([]string{"a"})
	assert.Error(t, err)

	_, err = le.InverseTransform([]int{0})
	assert.Error(t, err)
}

func TestLabelEncoderSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.gob")

	le := NewLabelEncoder()
	_, err := le.FitTransform([]string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, le.Save(path))

	loaded := NewLabelEncoder()
	require.NoError(t, loaded.Load(path))

	encoded, err := loaded.Transform([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, encoded)
}
