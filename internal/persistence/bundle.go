// Package persistence saves and restores the winning configuration of a
// pipeline evaluation run: the fitted classifier with its preprocessing
// state and a summary of how it scored.
package persistence

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"mlpipeline/internal/estimator"
	"mlpipeline/internal/models"
	"mlpipeline/internal/preprocessing"
)

// Bundle is the gob-serialized artifact of a run. The classifier is stored
// through its interface, so every concrete model type must be registered
// before encoding or decoding.
type Bundle struct {
	Classifier   estimator.Classifier
	Scaler       *preprocessing.Scaler
	LabelEncoder *preprocessing.LabelEncoder
	Metadata     Metadata
	CreatedAt    time.Time
}

type Metadata struct {
	Choices    []string
	Metric     string
	BestParams map[string]any
	EvalMean   float64
	EvalStd    float64
	Dataset    string
}

func registerModels() {
	gob.Register(&models.KNN{})
	gob.Register(&models.DecisionTree{})
	gob.Register(&models.RandomForest{})
	gob.Register(&models.GaussianNB{})
	gob.Register(&models.TreeNode{})
}

func NewBundle(clf estimator.Classifier, meta Metadata) *Bundle {
	return &Bundle{
		Classifier: clf,
		Metadata:   meta,
		CreatedAt:  time.Now(),
	}
}

func (b *Bundle) Save(filename string) error {
	registerModels()

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(b); err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	return nil
}

func LoadBundle(filename string) (*Bundle, error) {
	registerModels()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var bundle Bundle
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}

	return &bundle, nil
}

// SaveMetadata writes a human-readable summary next to the binary bundle.
func (b *Bundle) SaveMetadata(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintf(file, "Classifier: %s\n", b.Classifier.GetName())
	fmt.Fprintf(file, "Pipeline: %v\n", b.Metadata.Choices)
	fmt.Fprintf(file, "Dataset: %s\n", b.Metadata.Dataset)
	fmt.Fprintf(file, "Created: %s\n", b.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(file, "Metric: %s\n", b.Metadata.Metric)
	fmt.Fprintf(file, "Best Params: %v\n", b.Metadata.BestParams)
	fmt.Fprintf(file, "Eval Mean: %.4f\n", b.Metadata.EvalMean)
	fmt.Fprintf(file, "Eval Std: %.4f\n", b.Metadata.EvalStd)

	return nil
}
