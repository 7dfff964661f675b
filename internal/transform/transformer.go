// Package transform provides a generic sample-wise transformation step
// usable inside a pipeline: a per-sample function applied across a flat
// sample sequence, or routed through named fields of dictionary-shaped
// data, optionally assembling several derived fields into one feature
// matrix.
package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// Options configures traversal and field routing. FromField and ToField
// must be set together; when unset the input is treated as a flat sample
// sequence. Collect names previously produced fields whose per-sample
// vectors are concatenated, in listed order, into the output feature
// matrix.
type Options struct {
	FromField string
	ToField   string
	Collect   []string
}

// DataTransformer applies a local per-sample function via a traversal
// strategy chosen from Options. It learns nothing from data: Fit is a
// no-op and always succeeds.
type DataTransformer struct {
	TransformerName string
	Local           LocalFunc
	Opts            Options
}

func New(name string, local LocalFunc, opts Options) (*DataTransformer, error) {
	if local == nil && len(opts.Collect) == 0 {
		return nil, fmt.Errorf("data transformer %q needs a local function or collect fields", name)
	}

	if (opts.FromField == "") != (opts.ToField == "") {
		return nil, fmt.Errorf("data transformer %q: from_field and to_field must be set together", name)
	}

	return &DataTransformer{
		TransformerName: name,
		Local:           local,
		Opts:            opts,
	}, nil
}

// MustNew panics on configuration errors. Convenient for statically known
// transformer declarations.
func MustNew(name string, local LocalFunc, opts Options) *DataTransformer {
	dt, err := New(name, local, opts)
	if err != nil {
		panic(err)
	}
	return dt
}

func (dt *DataTransformer) GetName() string {
	return dt.TransformerName
}

func (dt *DataTransformer) GetParams() map[string]any {
	params := map[string]any{}
	if dt.Opts.FromField != "" {
		params["from_field"] = dt.Opts.FromField
		params["to_field"] = dt.Opts.ToField
	}
	if len(dt.Opts.Collect) > 0 {
		params["collect"] = dt.Opts.Collect
	}
	return params
}

// SetParams is accepted but rejects any parameter: traversal options are
// fixed at construction and local functions carry their own options.
func (dt *DataTransformer) SetParams(params map[string]any) error {
	if len(params) > 0 {
		return fmt.Errorf("data transformer %q has no tunable parameters", dt.TransformerName)
	}
	return nil
}

func (dt *DataTransformer) Clone() estimator.Estimator {
	clone := *dt
	return &clone
}

// Fit is stateless and never fails.
func (dt *DataTransformer) Fit(X *data.Collection, y []int) error {
	return nil
}

func (dt *DataTransformer) Transform(X *data.Collection) (*data.Collection, error) {
	out := X

	if dt.Local != nil {
		walked, err := dt.walker().Walk(X, dt.Local)
		if err != nil {
			return nil, err
		}
		out = walked
	}

	if len(dt.Opts.Collect) > 0 {
		return dt.collect(out)
	}

	return out, nil
}

func (dt *DataTransformer) FitTransform(X *data.Collection, y []int) (*data.Collection, error) {
	if err := dt.Fit(X, y); err != nil {
		return nil, err
	}
	return dt.Transform(X)
}

func (dt *DataTransformer) walker() Walker {
	if dt.Opts.FromField != "" {
		return FieldWalker{FromField: dt.Opts.FromField, ToField: dt.Opts.ToField}
	}
	return SequenceWalker{}
}

// collect concatenates the per-sample vectors of the named fields, in
// listed order, into one feature matrix. Every named field must already
// exist: fields are produced by earlier steps.
func (dt *DataTransformer) collect(X *data.Collection) (*data.Collection, error) {
	if X.Table == nil {
		return nil, fmt.Errorf("collect requires dictionary-shaped data")
	}

	for _, name := range dt.Opts.Collect {
		if !X.Table.HasField(name) {
			return nil, fmt.Errorf("collect: field %q not found in table", name)
		}
	}

	n := X.Table.Len()
	features := make([][]decimal.Decimal, n)

	for _, name := range dt.Opts.Collect {
		samples, err := X.Table.Field(name)
		if err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			features[i] = append(features[i], data.FlattenMatrix(samples[i])...)
		}
	}

	return data.FromFeatures(features), nil
}
