package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
steps:
  - name: scaler
    options:
      - name: minmax
        kind: minmax
      - name: raw
        kind: none
  - name: classifier
    options:
      - name: knn
        kind: knn
        params:
          k: 3
      - name: bayes
        kind: bayes

grid_cv:
  folds: 3
  stratified: true
eval_cv:
  folds: 5
  stratified: true
  seed: 7
  n_jobs: 2

scoring: [accuracy, f1]
collect_n: 2
caching_steps: [scaler]
banned_combos:
  - [minmax, bayes]

param_grids:
  knn:
    - name: k
      values: [1, 3, 5]
    - name: distance
      values: [euclidean, manhattan]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipelines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadParsesDeclaration(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Steps, 2)
	assert.Equal(t, "scaler", cfg.Steps[0].Name)
	assert.Equal(t, "knn", cfg.Steps[1].Options[0].Name)
	assert.Equal(t, 3, cfg.Steps[1].Options[0].Params["k"])

	assert.Equal(t, []string{"accuracy", "f1"}, cfg.Scoring)
	assert.Equal(t, 2, cfg.CollectN)
	assert.Equal(t, []string{"scaler"}, cfg.CachingSteps)
	assert.Equal(t, [][]string{{"minmax", "bayes"}}, cfg.BannedCombos)

	grid := cfg.ParamGrids["knn"]
	require.Len(t, grid, 2)
	assert.Equal(t, "k", grid[0].Name)
	assert.Equal(t, []any{1, 3, 5}, grid[0].Values)
}

func TestLoadFailsOnMissingFileAndBadYAML(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "steps: ["))
	assert.Error(t, err)
}

func TestBuildAssemblesPipeliner(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	pl, err := cfg.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"scaler", "classifier"}, pl.StepNames())
	// 2x2 combinations minus the banned minmax+bayes row.
	assert.Len(t, pl.Plan(), 3)

	assert.Equal(t, 3, pl.GridCV.NFolds)
	assert.EqualValues(t, 42, pl.GridCV.Seed)
	assert.Equal(t, 5, pl.EvalCV.NFolds)
	assert.EqualValues(t, 7, pl.EvalCV.Seed)
	assert.Equal(t, 2, pl.EvalCV.NJobs)

	grid, ok := pl.ParamGrids["knn"]
	require.True(t, ok)
	assert.Equal(t, 6, grid.Size())
}

func TestBuildDefaultsFoldsWhenUnset(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
steps:
  - name: classifier
    options:
      - name: knn
        kind: knn
`))
	require.NoError(t, err)

	pl, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, 5, pl.GridCV.NFolds)
	assert.Equal(t, 5, pl.EvalCV.NFolds)
}

func TestBuildTransformKinds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
steps:
  - name: normalize
    options:
      - name: spectral
        kind: spectral_norm
        from_field: matrix
        to_field: normed
      - name: binary
        kind: binarize
        params:
          threshold: 0.5
        from_field: matrix
        to_field: bin
  - name: featurize
    options:
      - name: edges
        kind: collect
        collect: [normed]
  - name: classifier
    options:
      - name: knn
        kind: knn
`))
	require.NoError(t, err)

	pl, err := cfg.Build()
	require.NoError(t, err)
	assert.Len(t, pl.Plan(), 2)
}

func TestBuildRejectsUnknownKind(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
steps:
  - name: classifier
    options:
      - name: svm
        kind: svm
`))
	require.NoError(t, err)

	_, err = cfg.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "svm")
}

func TestBuildRejectsEmptyDeclaration(t *testing.T) {
	cfg := &Config{}
	_, err := cfg.Build()
	assert.Error(t, err)
}
