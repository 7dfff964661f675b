package data

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Table is dictionary-shaped sample data: named fields, each holding one
// matrix per sample, index-aligned with the table's sample IDs. Field
// iteration order follows insertion order.
type Table struct {
	ids    []string
	order  []string
	fields map[string][][][]decimal.Decimal
}

func NewTable(ids []string) *Table {
	owned := make([]string, len(ids))
	copy(owned, ids)

	return &Table{
		ids:    owned,
		fields: make(map[string][][][]decimal.Decimal),
	}
}

func (t *Table) Len() int {
	return len(t.ids)
}

func (t *Table) IDs() []string {
	ids := make([]string, len(t.ids))
	copy(ids, t.ids)
	return ids
}

// FieldNames returns the field names in insertion order.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

func (t *Table) HasField(name string) bool {
	_, ok := t.fields[name]
	return ok
}

// Field returns the per-sample values of a named field, aligned with IDs.
func (t *Table) Field(name string) ([][][]decimal.Decimal, error) {
	samples, ok := t.fields[name]
	if !ok {
		return nil, fmt.Errorf("field %q not found in table", name)
	}
	return samples, nil
}

// SetField stores one matrix per sample under the given name. The slice
// must be aligned with the table's sample IDs.
func (t *Table) SetField(name string, samples [][][]decimal.Decimal) error {
	if len(samples) != len(t.ids) {
		return fmt.Errorf("field %q has %d samples, table has %d", name, len(samples), len(t.ids))
	}

	if _, exists := t.fields[name]; !exists {
		t.order = append(t.order, name)
	}
	t.fields[name] = samples
	return nil
}

// Copy returns a shallow copy: a new field map sharing the sample values,
// so writing a field into the copy leaves the original untouched.
func (t *Table) Copy() *Table {
	cp := NewTable(t.ids)
	cp.order = make([]string, len(t.order))
	copy(cp.order, t.order)

	for name, samples := range t.fields {
		cp.fields[name] = samples
	}
	return cp
}

// Subset returns a new table with the samples at the given indices, in
// index order, across every field.
func (t *Table) Subset(indices []int) *Table {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = t.ids[idx]
	}

	sub := NewTable(ids)
	for _, name := range t.order {
		samples := make([][][]decimal.Decimal, len(indices))
		for i, idx := range indices {
			samples[i] = t.fields[name][idx]
		}
		sub.SetField(name, samples)
	}
	return sub
}
