package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntParamAcceptsNumericKinds(t *testing.T) {
	params := map[string]any{
		"int":     3,
		"int64":   int64(4),
		"float64": 5.0,
		"string":  "six",
	}

	for key, expected := range map[string]int{"int": 3, "int64": 4, "float64": 5} {
		got, err := IntParam(params, key, 0)
		require.NoError(t, err, key)
		assert.Equal(t, expected, got, key)
	}

	_, err := IntParam(params, "string", 0)
	assert.Error(t, err)

	got, err := IntParam(params, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got, "missing key falls back to default")
}

func TestFloatParam(t *testing.T) {
	params := map[string]any{"f": 0.5, "i": 2, "s": "x"}

	got, err := FloatParam(params, "f", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	got, err = FloatParam(params, "i", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	_, err = FloatParam(params, "s", 0)
	assert.Error(t, err)

	got, err = FloatParam(params, "missing", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)
}

func TestStringParam(t *testing.T) {
	params := map[string]any{"s": "euclidean", "i": 1}

	got, err := StringParam(params, "s", "")
	require.NoError(t, err)
	assert.Equal(t, "euclidean", got)

	_, err = StringParam(params, "i", "")
	assert.Error(t, err)

	got, err = StringParam(params, "missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestExtractClassesSortedAscending(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, ExtractClasses([]int{2, 0, 1, 2, 0}))
	assert.Equal(t, []int{5}, ExtractClasses([]int{5, 5}))
	assert.Empty(t, ExtractClasses(nil))
}
