package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlpipeline/internal/data"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func matrix(rows ...[]float64) [][]decimal.Decimal {
	m := make([][]decimal.Decimal, len(rows))
	for i, row := range rows {
		m[i] = make([]decimal.Decimal, len(row))
		for j, v := range row {
			m[i][j] = d(v)
		}
	}
	return m
}

func double(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
	two := decimal.NewFromInt(2)
	out := make([][]decimal.Decimal, len(sample))
	for i, row := range sample {
		out[i] = make([]decimal.Decimal, len(row))
		for j, v := range row {
			out[i][j] = v.Mul(two)
		}
	}
	return out, nil
}

func sampleTable(t *testing.T) *data.Table {
	t.Helper()
	tbl := data.NewTable([]string{"s1", "s2"})
	require.NoError(t, tbl.SetField("matrix", [][][]decimal.Decimal{
		matrix([]float64{1, 2}, []float64{3, 4}),
		matrix([]float64{5, 6}, []float64{7, 8}),
	}))
	return tbl
}

func TestNewValidatesDeclaration(t *testing.T) {
	_, err := New("empty", nil, Options{})
	assert.Error(t, err)

	_, err = New("half-routed", double, Options{FromField: "a"})
	assert.Error(t, err)

	_, err = New("half-routed", double, Options{ToField: "b"})
	assert.Error(t, err)

	dt, err := New("ok", double, Options{FromField: "a", ToField: "b"})
	require.NoError(t, err)
	assert.Equal(t, "ok", dt.GetName())

	_, err = New("collect-only", nil, Options{Collect: []string{"a"}})
	assert.NoError(t, err)
}

func TestSequenceTransformPreservesLengthAndOrder(t *testing.T) {
	dt := MustNew("double", double, Options{})

	X := data.FromSamples([][][]decimal.Decimal{
		matrix([]float64{1}),
		matrix([]float64{2}),
		matrix([]float64{3}),
	})

	out, err := dt.Transform(X)
	require.NoError(t, err)
	require.Len(t, out.Samples, 3)

	for i, expected := range []float64{2, 4, 6} {
		assert.True(t, out.Samples[i][0][0].Equal(d(expected)),
			"sample %d: got %s", i, out.Samples[i][0][0])
	}
}

func TestSequenceTransformRequiresSampleSequence(t *testing.T) {
	dt := MustNew("double", double, Options{})

	_, err := dt.Transform(data.FromFeatures(matrix([]float64{1, 2})))
	assert.Error(t, err)
}

func TestFieldRoutingLeavesInputUntouched(t *testing.T) {
	tbl := sampleTable(t)
	X := data.FromTable(tbl)

	dt := MustNew("double", double, Options{FromField: "matrix", ToField: "doubled"})

	out, err := dt.Transform(X)
	require.NoError(t, err)
	require.NotNil(t, out.Table)

	assert.True(t, out.Table.HasField("doubled"))
	assert.False(t, tbl.HasField("doubled"), "input table must not gain fields")

	doubled, err := out.Table.Field("doubled")
	require.NoError(t, err)
	assert.True(t, doubled[0][0][0].Equal(d(2)))
	assert.True(t, doubled[1][1][1].Equal(d(16)))

	original, err := out.Table.Field("matrix")
	require.NoError(t, err)
	assert.True(t, original[0][0][0].Equal(d(1)), "source field must survive")
}

func TestFieldRoutingMissingSourceField(t *testing.T) {
	dt := MustNew("double", double, Options{FromField: "absent", ToField: "out"})

	_, err := dt.Transform(data.FromTable(sampleTable(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestCollectConcatenatesFieldsInListedOrder(t *testing.T) {
	tbl := data.NewTable([]string{"s1"})
	require.NoError(t, tbl.SetField("a", [][][]decimal.Decimal{matrix([]float64{1, 2})}))
	require.NoError(t, tbl.SetField("b", [][][]decimal.Decimal{matrix([]float64{3})}))

	ab := MustNew("collect", nil, Options{Collect: []string{"a", "b"}})
	out, err := ab.Transform(data.FromTable(tbl))
	require.NoError(t, err)
	require.Len(t, out.Features, 1)
	require.Len(t, out.Features[0], 3)
	assert.True(t, out.Features[0][0].Equal(d(1)))
	assert.True(t, out.Features[0][2].Equal(d(3)))

	// Reversing the collect list reverses the concatenation order.
	ba := MustNew("collect", nil, Options{Collect: []string{"b", "a"}})
	out, err = ba.Transform(data.FromTable(tbl))
	require.NoError(t, err)
	assert.True(t, out.Features[0][0].Equal(d(3)))
}

func TestCollectMissingFieldFailsBeforeOutput(t *testing.T) {
	dt := MustNew("collect", nil, Options{Collect: []string{"matrix", "absent"}})

	_, err := dt.Transform(data.FromTable(sampleTable(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestTransformThenCollect(t *testing.T) {
	dt := MustNew("double-and-collect", double, Options{
		FromField: "matrix",
		ToField:   "doubled",
		Collect:   []string{"doubled"},
	})

	out, err := dt.Transform(data.FromTable(sampleTable(t)))
	require.NoError(t, err)
	require.Len(t, out.Features, 2)
	require.Len(t, out.Features[0], 4)
	assert.True(t, out.Features[0][0].Equal(d(2)))
	assert.True(t, out.Features[1][3].Equal(d(16)))
}

func TestSetParamsRejectsTuning(t *testing.T) {
	dt := MustNew("double", double, Options{})
	assert.NoError(t, dt.SetParams(nil))
	assert.Error(t, dt.SetParams(map[string]any{"anything": 1}))
}

func TestCloneIsIndependent(t *testing.T) {
	dt := MustNew("double", double, Options{FromField: "a", ToField: "b"})

	clone := dt.Clone().(*DataTransformer)
	assert.Equal(t, dt.GetName(), clone.GetName())
	assert.Equal(t, dt.Opts, clone.Opts)

	clone.Opts.FromField = "other"
	assert.Equal(t, "a", dt.Opts.FromField)
}
