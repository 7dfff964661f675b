package data

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDataset checks that the feature matrix is rectangular, non-empty
// and index-aligned with the labels.
func (v *Validator) ValidateDataset(X [][]decimal.Decimal, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("dataset is empty")
	}

	if len(X) != len(y) {
		return fmt.Errorf("feature matrix and labels have different lengths: %d vs %d", len(X), len(y))
	}

	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("features cannot be empty")
	}

	for i, sample := range X {
		if len(sample) != nFeatures {
			return fmt.Errorf("inconsistent feature count at sample %d: expected %d, got %d", i, nFeatures, len(sample))
		}
	}

	return nil
}

func (v *Validator) ValidateLabels(y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("labels are empty")
	}

	classCount := make(map[int]int)
	for _, label := range y {
		classCount[label]++
	}

	if len(classCount) < 2 {
		return fmt.Errorf("dataset must have at least 2 classes, found %d", len(classCount))
	}

	return nil
}

// Stats summarizes a labeled dataset for CLI reporting.
func (v *Validator) Stats(X [][]decimal.Decimal, y []int) map[string]any {
	if len(X) == 0 {
		return map[string]any{}
	}

	classCount := make(map[int]int)
	for _, label := range y {
		classCount[label]++
	}

	return map[string]any{
		"samples":            len(X),
		"features":           len(X[0]),
		"classes":            len(classCount),
		"class_distribution": classCount,
	}
}
