// Package pipeline composes named estimator steps into a sequential
// pipeline: every step but the last must be a transformer, the last may be
// a transformer or a classifier.
package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

type Step struct {
	Name      string
	Estimator estimator.Estimator
}

type Pipeline struct {
	Steps []Step
}

func New(steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one step")
	}

	seen := make(map[string]bool)
	for i, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step %d has no name", i)
		}
		if step.Estimator == nil {
			return nil, fmt.Errorf("step %q has no estimator", step.Name)
		}
		if seen[step.Name] {
			return nil, fmt.Errorf("duplicate step name: %s", step.Name)
		}
		seen[step.Name] = true

		if i < len(steps)-1 {
			if _, ok := step.Estimator.(estimator.Transformer); !ok {
				return nil, fmt.Errorf("step %q must be a transformer", step.Name)
			}
		}
	}

	return &Pipeline{Steps: steps}, nil
}

func (p *Pipeline) GetName() string {
	return "Pipeline"
}

func (p *Pipeline) GetParams() map[string]any {
	return p.finalStep().GetParams()
}

// SetParams routes parameters to the terminal step, the one hyperparameter
// search tunes.
func (p *Pipeline) SetParams(params map[string]any) error {
	return p.finalStep().SetParams(params)
}

// Clone returns a fresh pipeline with every step's estimator cloned
// unfitted.
func (p *Pipeline) Clone() estimator.Estimator {
	steps := make([]Step, len(p.Steps))
	for i, step := range p.Steps {
		steps[i] = Step{Name: step.Name, Estimator: step.Estimator.Clone()}
	}
	return &Pipeline{Steps: steps}
}

func (p *Pipeline) GetClasses() []int {
	if clf, ok := p.finalStep().(estimator.Classifier); ok {
		return clf.GetClasses()
	}
	return nil
}

// Fit fits and applies every transformer step in order, then fits the
// terminal step on the transformed collection.
func (p *Pipeline) Fit(X *data.Collection, y []int) error {
	cur := X

	for _, step := range p.Steps[:len(p.Steps)-1] {
		t := step.Estimator.(estimator.Transformer)
		next, err := estimator.FitTransform(t, cur, y)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.Name, err)
		}
		cur = next
	}

	last := p.Steps[len(p.Steps)-1]
	if err := last.Estimator.Fit(cur, y); err != nil {
		return fmt.Errorf("step %q: %w", last.Name, err)
	}

	return nil
}

func (p *Pipeline) Predict(X *data.Collection) ([]int, error) {
	cur, err := p.applyTransformers(X)
	if err != nil {
		return nil, err
	}

	clf, ok := p.finalStep().(estimator.Classifier)
	if !ok {
		return nil, fmt.Errorf("terminal step %q is not a classifier", p.Steps[len(p.Steps)-1].Name)
	}

	return clf.Predict(cur)
}

func (p *Pipeline) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	cur, err := p.applyTransformers(X)
	if err != nil {
		return nil, err
	}

	clf, ok := p.finalStep().(estimator.Classifier)
	if !ok {
		return nil, fmt.Errorf("terminal step %q is not a classifier", p.Steps[len(p.Steps)-1].Name)
	}

	return clf.PredictProba(cur)
}

// Transform applies every step as a transformer. Fails if any step,
// including the terminal one, is not a transformer.
func (p *Pipeline) Transform(X *data.Collection) (*data.Collection, error) {
	cur := X

	for _, step := range p.Steps {
		t, ok := step.Estimator.(estimator.Transformer)
		if !ok {
			return nil, fmt.Errorf("step %q is not a transformer", step.Name)
		}

		next, err := t.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		cur = next
	}

	return cur, nil
}

func (p *Pipeline) applyTransformers(X *data.Collection) (*data.Collection, error) {
	cur := X

	for _, step := range p.Steps[:len(p.Steps)-1] {
		t := step.Estimator.(estimator.Transformer)
		next, err := t.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", step.Name, err)
		}
		cur = next
	}

	return cur, nil
}

func (p *Pipeline) finalStep() estimator.Estimator {
	return p.Steps[len(p.Steps)-1].Estimator
}
