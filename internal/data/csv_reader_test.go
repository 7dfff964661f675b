package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadCSV(t *testing.T) {
	ds, err := ReadCSV(writeCSV(t, "f1,f2,label\n1.5, 2,a\n3,4.25,b\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"f1", "f2"}, ds.Features)
	assert.Equal(t, []string{"a", "b"}, ds.Labels)
	require.Len(t, ds.X, 2)
	assert.Equal(t, "1.5", ds.X[0][0].String())
	assert.Equal(t, "2", ds.X[0][1].String())
	assert.Equal(t, "4.25", ds.X[1][1].String())
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)

	_, err = ReadCSV(writeCSV(t, "f1,label\n"))
	assert.Error(t, err, "header only")

	_, err = ReadCSV(writeCSV(t, "f1,label\nnot-a-number,a\n"))
	assert.Error(t, err)
}

func TestValidateDataset(t *testing.T) {
	v := NewValidator()

	good := [][]decimal.Decimal{{d(1), d(2)}, {d(3), d(4)}}
	assert.NoError(t, v.ValidateDataset(good, []int{0, 1}))

	assert.Error(t, v.ValidateDataset(nil, nil), "empty dataset")
	assert.Error(t, v.ValidateDataset(good, []int{0}), "length mismatch")
	assert.Error(t, v.ValidateDataset([][]decimal.Decimal{{}}, []int{0}), "no features")

	ragged := [][]decimal.Decimal{{d(1), d(2)}, {d(3)}}
	assert.Error(t, v.ValidateDataset(ragged, []int{0, 1}))
}

func TestValidateLabels(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateLabels([]int{0, 1, 0}))
	assert.Error(t, v.ValidateLabels(nil))
	assert.Error(t, v.ValidateLabels([]int{1, 1, 1}), "single class")
}

func TestStats(t *testing.T) {
	v := NewValidator()

	stats := v.Stats([][]decimal.Decimal{{d(1)}, {d(2)}, {d(3)}}, []int{0, 0, 1})
	assert.Equal(t, 3, stats["samples"])
	assert.Equal(t, 1, stats["features"])
	assert.Equal(t, 2, stats["classes"])

	assert.Empty(t, v.Stats(nil, nil))
}
