// Package pipeliner enumerates combinations of named pipeline steps, tunes
// and evaluates each combination with nested cross-validation, and
// tabulates the results.
package pipeliner

import (
	"fmt"

	"mlpipeline/internal/estimator"
	"mlpipeline/internal/evaluation"
	"mlpipeline/internal/search"
	"mlpipeline/internal/table"
)

// Option is one choice for a step: a named estimator prototype. Prototypes
// are never fitted; every plan row works on fresh clones.
type Option struct {
	Name      string
	Estimator estimator.Estimator
}

// Step is a named pipeline position with its ordered candidate options.
type Step struct {
	Name    string
	Options []Option
}

// PlanRow is one fully-specified combination of option choices, aligned
// with the pipeliner's step names.
type PlanRow struct {
	Choices []string
}

type Pipeliner struct {
	Steps        []Step
	GridCV       *evaluation.CrossValidator
	EvalCV       *evaluation.CrossValidator
	ParamGrids   map[string]search.ParamGrid
	BannedCombos [][]string

	plan []PlanRow
}

// New validates the declaration and precomputes the plan. The plan is a
// pure function of the declaration: the Cartesian product over steps in
// declaration order, each step's options in declaration order, minus rows
// containing every member of a banned combination.
func New(steps []Step, gridCV, evalCV *evaluation.CrossValidator, grids map[string]search.ParamGrid, banned [][]string) (*Pipeliner, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("pipeliner needs at least one step")
	}
	if gridCV == nil || evalCV == nil {
		return nil, fmt.Errorf("pipeliner needs grid and eval cross-validators")
	}

	stepNames := make(map[string]bool)
	optionNames := make(map[string]bool)
	for _, step := range steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step has no name")
		}
		if stepNames[step.Name] {
			return nil, fmt.Errorf("duplicate step name: %s", step.Name)
		}
		stepNames[step.Name] = true

		if len(step.Options) == 0 {
			return nil, fmt.Errorf("step %q has no options", step.Name)
		}

		seen := make(map[string]bool)
		for _, opt := range step.Options {
			if opt.Name == "" {
				return nil, fmt.Errorf("step %q has an unnamed option", step.Name)
			}
			if opt.Estimator == nil {
				return nil, fmt.Errorf("option %q of step %q has no estimator", opt.Name, step.Name)
			}
			if seen[opt.Name] {
				return nil, fmt.Errorf("duplicate option %q in step %q", opt.Name, step.Name)
			}
			seen[opt.Name] = true
			optionNames[opt.Name] = true
		}
	}

	for name, grid := range grids {
		if !optionNames[name] {
			return nil, fmt.Errorf("parameter grid for %q matches no option", name)
		}
		if err := grid.Validate(); err != nil {
			return nil, fmt.Errorf("parameter grid for %q: %w", name, err)
		}
	}

	p := &Pipeliner{
		Steps:        steps,
		GridCV:       gridCV,
		EvalCV:       evalCV,
		ParamGrids:   grids,
		BannedCombos: banned,
	}
	p.plan = p.generatePlan()

	return p, nil
}

func (p *Pipeliner) generatePlan() []PlanRow {
	rows := [][]string{{}}

	for _, step := range p.Steps {
		next := make([][]string, 0, len(rows)*len(step.Options))
		for _, row := range rows {
			for _, opt := range step.Options {
				choice := make([]string, len(row), len(row)+1)
				copy(choice, row)
				next = append(next, append(choice, opt.Name))
			}
		}
		rows = next
	}

	plan := make([]PlanRow, 0, len(rows))
	for _, row := range rows {
		if p.banned(row) {
			continue
		}
		plan = append(plan, PlanRow{Choices: row})
	}

	return plan
}

// banned reports whether a row contains every member of some banned
// combination.
func (p *Pipeliner) banned(choices []string) bool {
	chosen := make(map[string]bool, len(choices))
	for _, choice := range choices {
		chosen[choice] = true
	}

	for _, combo := range p.BannedCombos {
		all := len(combo) > 0
		for _, name := range combo {
			if !chosen[name] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}

	return false
}

// StepNames returns the step names in declaration order.
func (p *Pipeliner) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		names[i] = step.Name
	}
	return names
}

// Plan returns a copy of the evaluation plan.
func (p *Pipeliner) Plan() []PlanRow {
	plan := make([]PlanRow, len(p.plan))
	for i, row := range p.plan {
		choices := make([]string, len(row.Choices))
		copy(choices, row.Choices)
		plan[i] = PlanRow{Choices: choices}
	}
	return plan
}

// PlanTable renders the plan as a table, one column per step.
func (p *Pipeliner) PlanTable() *table.Table {
	t := table.New(p.StepNames()...)
	for _, row := range p.plan {
		t.Append(row.Choices)
	}
	return t
}

// option returns the estimator prototype chosen for a step.
func (p *Pipeliner) option(stepIdx int, name string) (estimator.Estimator, error) {
	for _, opt := range p.Steps[stepIdx].Options {
		if opt.Name == name {
			return opt.Estimator, nil
		}
	}
	return nil, fmt.Errorf("step %q has no option %q", p.Steps[stepIdx].Name, name)
}
