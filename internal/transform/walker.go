package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
)

// LocalFunc transforms a single sample. Parameters belong to the function
// itself: helpers that need options close over a typed options value.
type LocalFunc func(sample [][]decimal.Decimal) ([][]decimal.Decimal, error)

// Walker is a traversal strategy: it applies a local transform to every
// sample of a collection and produces the resulting collection.
type Walker interface {
	Walk(X *data.Collection, fn LocalFunc) (*data.Collection, error)
}

// SequenceWalker traverses a flat ordered sample sequence. The output has
// the same length and order as the input.
type SequenceWalker struct{}

func (SequenceWalker) Walk(X *data.Collection, fn LocalFunc) (*data.Collection, error) {
	if X.Samples == nil {
		return nil, fmt.Errorf("sequence traversal requires a flat sample sequence")
	}

	out := make([][][]decimal.Decimal, len(X.Samples))
	for i, sample := range X.Samples {
		transformed, err := fn(sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = transformed
	}

	return data.FromSamples(out), nil
}

// FieldWalker traverses the samples of one named field of a
// dictionary-shaped collection and writes the results into another field
// of a shallow copy, leaving the input and its other fields untouched.
type FieldWalker struct {
	FromField string
	ToField   string
}

func (w FieldWalker) Walk(X *data.Collection, fn LocalFunc) (*data.Collection, error) {
	if X.Table == nil {
		return nil, fmt.Errorf("field traversal requires dictionary-shaped data")
	}

	samples, err := X.Table.Field(w.FromField)
	if err != nil {
		return nil, err
	}

	out := make([][][]decimal.Decimal, len(samples))
	for i, sample := range samples {
		transformed, err := fn(sample)
		if err != nil {
			return nil, fmt.Errorf("field %q, sample %d: %w", w.FromField, i, err)
		}
		out[i] = transformed
	}

	result := X.Table.Copy()
	if err := result.SetField(w.ToField, out); err != nil {
		return nil, err
	}

	return data.FromTable(result), nil
}
