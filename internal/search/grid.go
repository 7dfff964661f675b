package search

import (
	"fmt"
	"strings"
)

// ParamRange is one hyperparameter with its ordered candidate values.
type ParamRange struct {
	Name   string
	Values []any
}

// ParamGrid is an ordered hyperparameter grid. Enumeration order is the
// lexicographic product in declaration order, the last parameter varying
// fastest, so searches are reproducible.
type ParamGrid []ParamRange

func (g ParamGrid) Validate() error {
	seen := make(map[string]bool)
	for _, p := range g {
		if p.Name == "" {
			return fmt.Errorf("grid parameter has no name")
		}
		if len(p.Values) == 0 {
			return fmt.Errorf("grid parameter %q has no values", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate grid parameter: %s", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Size returns the number of candidate combinations.
func (g ParamGrid) Size() int {
	if len(g) == 0 {
		return 0
	}

	size := 1
	for _, p := range g {
		size *= len(p.Values)
	}
	return size
}

// Combinations enumerates every candidate parameter assignment in
// deterministic order.
func (g ParamGrid) Combinations() []map[string]any {
	if len(g) == 0 {
		return nil
	}

	combos := []map[string]any{{}}

	for _, p := range g {
		next := make([]map[string]any, 0, len(combos)*len(p.Values))
		for _, combo := range combos {
			for _, value := range p.Values {
				candidate := make(map[string]any, len(combo)+1)
				for k, v := range combo {
					candidate[k] = v
				}
				candidate[p.Name] = value
				next = append(next, candidate)
			}
		}
		combos = next
	}

	return combos
}

// Format renders a parameter assignment in grid declaration order.
func (g ParamGrid) Format(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}

	parts := make([]string, 0, len(g))
	for _, p := range g {
		if value, ok := params[p.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", p.Name, value))
		}
	}
	return strings.Join(parts, ", ")
}
