// Package features holds per-sample matrix helpers used as local functions
// of data transformers: normalizations that keep a matrix square, and
// vectorizers that turn a matrix into a single feature row.
package features

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/transform"
)

// Identity returns the sample unchanged.
func Identity() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		return sample, nil
	}
}

// Binarize maps entries to 1 when strictly above the threshold, else 0.
func Binarize(threshold decimal.Decimal) transform.LocalFunc {
	one := decimal.NewFromInt(1)

	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		out := make([][]decimal.Decimal, len(sample))
		for i, row := range sample {
			out[i] = make([]decimal.Decimal, len(row))
			for j, v := range row {
				if v.GreaterThan(threshold) {
					out[i][j] = one
				} else {
					out[i][j] = decimal.Zero
				}
			}
		}
		return out, nil
	}
}

// MeanNorm divides every entry by the mean of all entries.
func MeanNorm() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		sum := decimal.Zero
		count := 0
		for _, row := range sample {
			for _, v := range row {
				sum = sum.Add(v)
				count++
			}
		}
		if count == 0 {
			return nil, fmt.Errorf("empty matrix")
		}

		mean := sum.Div(decimal.NewFromInt(int64(count)))
		if mean.IsZero() {
			return nil, fmt.Errorf("mean normalization: matrix mean is zero")
		}

		out := make([][]decimal.Decimal, len(sample))
		for i, row := range sample {
			out[i] = make([]decimal.Decimal, len(row))
			for j, v := range row {
				out[i][j] = v.Div(mean)
			}
		}
		return out, nil
	}
}

// MaxNorm divides every entry by the maximum absolute entry.
func MaxNorm() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		max := decimal.Zero
		for _, row := range sample {
			for _, v := range row {
				if v.Abs().GreaterThan(max) {
					max = v.Abs()
				}
			}
		}
		if max.IsZero() {
			return nil, fmt.Errorf("max normalization: matrix is all zeros")
		}

		out := make([][]decimal.Decimal, len(sample))
		for i, row := range sample {
			out[i] = make([]decimal.Decimal, len(row))
			for j, v := range row {
				out[i][j] = v.Div(max)
			}
		}
		return out, nil
	}
}

// SpectralNorm rescales a square matrix entrywise by sqrt(d_i * d_j),
// where d_i is the i-th row sum. Zero-degree rows pass through unchanged.
func SpectralNorm() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		if err := requireSquare(sample); err != nil {
			return nil, err
		}

		degrees := rowSums(sample)

		out := make([][]decimal.Decimal, len(sample))
		for i, row := range sample {
			out[i] = make([]decimal.Decimal, len(row))
			for j, v := range row {
				di, _ := degrees[i].Float64()
				dj, _ := degrees[j].Float64()
				norm := math.Sqrt(di * dj)
				if norm == 0 {
					out[i][j] = v
					continue
				}
				out[i][j] = v.Div(decimal.NewFromFloat(norm))
			}
		}
		return out, nil
	}
}

// Degrees reduces a square matrix to its row sums, as a single-row matrix.
func Degrees() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		if err := requireSquare(sample); err != nil {
			return nil, err
		}
		return [][]decimal.Decimal{rowSums(sample)}, nil
	}
}

// UpperTriangle vectorizes the strict upper triangle of a square matrix,
// row by row, into a single-row matrix. For symmetric matrices this is the
// bag-of-edges representation.
func UpperTriangle() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		if err := requireSquare(sample); err != nil {
			return nil, err
		}

		n := len(sample)
		var vec []decimal.Decimal
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				vec = append(vec, sample[i][j])
			}
		}
		return [][]decimal.Decimal{vec}, nil
	}
}

// Flatten vectorizes a matrix row-major into a single-row matrix.
func Flatten() transform.LocalFunc {
	return func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error) {
		var vec []decimal.Decimal
		for _, row := range sample {
			vec = append(vec, row...)
		}
		return [][]decimal.Decimal{vec}, nil
	}
}

func requireSquare(sample [][]decimal.Decimal) error {
	n := len(sample)
	for i, row := range sample {
		if len(row) != n {
			return fmt.Errorf("matrix must be square: row %d has %d columns, expected %d", i, len(row), n)
		}
	}
	return nil
}

func rowSums(sample [][]decimal.Decimal) []decimal.Decimal {
	sums := make([]decimal.Decimal, len(sample))
	for i, row := range sample {
		sum := decimal.Zero
		for _, v := range row {
			sum = sum.Add(v)
		}
		sums[i] = sum
	}
	return sums
}
