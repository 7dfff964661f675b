// Package config loads pipeline declarations from YAML files and builds
// runnable pipeliners from them.
package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"mlpipeline/internal/estimator"
	"mlpipeline/internal/evaluation"
	"mlpipeline/internal/features"
	"mlpipeline/internal/models"
	"mlpipeline/internal/pipeliner"
	"mlpipeline/internal/preprocessing"
	"mlpipeline/internal/search"
	"mlpipeline/internal/transform"
)

type Config struct {
	Steps        []StepConfig           `yaml:"steps"`
	GridCV       CVConfig               `yaml:"grid_cv"`
	EvalCV       CVConfig               `yaml:"eval_cv"`
	Scoring      []string               `yaml:"scoring"`
	CollectN     int                    `yaml:"collect_n"`
	CachingSteps []string               `yaml:"caching_steps"`
	BannedCombos [][]string             `yaml:"banned_combos"`
	ParamGrids   map[string][]GridEntry `yaml:"param_grids"`
}

type StepConfig struct {
	Name    string         `yaml:"name"`
	Options []OptionConfig `yaml:"options"`
}

// OptionConfig declares one named option of a step. Kind selects the
// estimator: a scaler type, a classifier, or a per-sample transform.
type OptionConfig struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	Params    map[string]any `yaml:"params"`
	FromField string         `yaml:"from_field"`
	ToField   string         `yaml:"to_field"`
	Collect   []string       `yaml:"collect"`
}

type CVConfig struct {
	Folds      int   `yaml:"folds"`
	Stratified bool  `yaml:"stratified"`
	Seed       int64 `yaml:"seed"`
	NJobs      int   `yaml:"n_jobs"`
}

type GridEntry struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

func Load(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Build assembles the declared pipeliner: every option is instantiated by
// kind, cross-validators are configured, and parameter grids keep their
// declared order.
func (c *Config) Build() (*pipeliner.Pipeliner, error) {
	if len(c.Steps) == 0 {
		return nil, fmt.Errorf("config declares no steps")
	}

	steps := make([]pipeliner.Step, 0, len(c.Steps))
	for _, sc := range c.Steps {
		step := pipeliner.Step{Name: sc.Name}
		for _, oc := range sc.Options {
			est, err := buildOption(oc)
			if err != nil {
				return nil, fmt.Errorf("step %q option %q: %w", sc.Name, oc.Name, err)
			}
			step.Options = append(step.Options, pipeliner.Option{Name: oc.Name, Estimator: est})
		}
		steps = append(steps, step)
	}

	grids := make(map[string]search.ParamGrid, len(c.ParamGrids))
	for option, entries := range c.ParamGrids {
		grid := make(search.ParamGrid, 0, len(entries))
		for _, e := range entries {
			grid = append(grid, search.ParamRange{Name: e.Name, Values: e.Values})
		}
		grids[option] = grid
	}

	return pipeliner.New(steps, c.GridCV.build(), c.EvalCV.build(), grids, c.BannedCombos)
}

func (cv CVConfig) build() *evaluation.CrossValidator {
	folds := cv.Folds
	if folds < 2 {
		folds = 5
	}

	out := evaluation.NewCrossValidator(folds, cv.Stratified)
	if cv.Seed != 0 {
		out.Seed = cv.Seed
	}
	if cv.NJobs > 0 {
		out.NJobs = cv.NJobs
	}
	return out
}

func buildOption(oc OptionConfig) (estimator.Estimator, error) {
	switch oc.Kind {
	case "minmax", "standard", "none":
		return preprocessing.NewScaler(oc.Kind), nil

	case "knn", "tree", "forest", "bayes":
		return models.Create(oc.Kind, oc.Params)

	case "collect":
		return transform.New(oc.Name, nil, transform.Options{Collect: oc.Collect})

	default:
		local, err := buildLocalFunc(oc)
		if err != nil {
			return nil, err
		}
		return transform.New(oc.Name, local, transform.Options{
			FromField: oc.FromField,
			ToField:   oc.ToField,
			Collect:   oc.Collect,
		})
	}
}

func buildLocalFunc(oc OptionConfig) (transform.LocalFunc, error) {
	switch oc.Kind {
	case "identity":
		return features.Identity(), nil
	case "binarize":
		threshold, err := estimator.FloatParam(oc.Params, "threshold", 0)
		if err != nil {
			return nil, err
		}
		return features.Binarize(decimal.NewFromFloat(threshold)), nil
	case "mean_norm":
		return features.MeanNorm(), nil
	case "max_norm":
		return features.MaxNorm(), nil
	case "spectral_norm":
		return features.SpectralNorm(), nil
	case "degrees":
		return features.Degrees(), nil
	case "upper_triangle":
		return features.UpperTriangle(), nil
	case "flatten":
		return features.Flatten(), nil
	default:
		return nil, fmt.Errorf("unknown option kind: %s", oc.Kind)
	}
}
