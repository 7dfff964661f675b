package data

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Collection is the sample container that flows between pipeline steps.
// Exactly one of the three forms is populated:
//
//   - Features: a flat tabular feature matrix, one row per sample
//   - Samples:  an ordered sequence of per-sample matrices
//   - Table:    dictionary-shaped data with named per-sample fields
type Collection struct {
	Features [][]decimal.Decimal
	Samples  [][][]decimal.Decimal
	Table    *Table
}

func FromFeatures(features [][]decimal.Decimal) *Collection {
	return &Collection{Features: features}
}

func FromSamples(samples [][][]decimal.Decimal) *Collection {
	return &Collection{Samples: samples}
}

func FromTable(table *Table) *Collection {
	return &Collection{Table: table}
}

// Len returns the number of samples in whichever form is populated.
func (c *Collection) Len() int {
	switch {
	case c.Features != nil:
		return len(c.Features)
	case c.Samples != nil:
		return len(c.Samples)
	case c.Table != nil:
		return c.Table.Len()
	default:
		return 0
	}
}

// FeatureMatrix returns the tabular form of the collection. Flat sample
// sequences are flattened row-major into one feature vector per sample.
// Dictionary-shaped data has no implicit tabular form: fields must be
// assembled into features by a collecting transform first.
func (c *Collection) FeatureMatrix() ([][]decimal.Decimal, error) {
	if c.Features != nil {
		return c.Features, nil
	}

	if c.Samples != nil {
		features := make([][]decimal.Decimal, len(c.Samples))
		for i, sample := range c.Samples {
			features[i] = FlattenMatrix(sample)
		}
		return features, nil
	}

	if c.Table != nil {
		return nil, fmt.Errorf("dictionary-shaped data has no feature matrix: collect fields into features first")
	}

	return nil, fmt.Errorf("empty collection")
}

// Subset returns a new collection containing the samples at the given
// indices, in index order. Sample values are shared, not copied.
func (c *Collection) Subset(indices []int) (*Collection, error) {
	n := c.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("sample index %d out of range [0, %d)", idx, n)
		}
	}

	switch {
	case c.Features != nil:
		features := make([][]decimal.Decimal, len(indices))
		for i, idx := range indices {
			features[i] = c.Features[idx]
		}
		return FromFeatures(features), nil

	case c.Samples != nil:
		samples := make([][][]decimal.Decimal, len(indices))
		for i, idx := range indices {
			samples[i] = c.Samples[idx]
		}
		return FromSamples(samples), nil

	case c.Table != nil:
		return FromTable(c.Table.Subset(indices)), nil

	default:
		return nil, fmt.Errorf("empty collection")
	}
}

// FlattenMatrix concatenates the rows of a matrix into a single vector.
func FlattenMatrix(m [][]decimal.Decimal) []decimal.Decimal {
	size := 0
	for _, row := range m {
		size += len(row)
	}

	flat := make([]decimal.Decimal, 0, size)
	for _, row := range m {
		flat = append(flat, row...)
	}
	return flat
}
