package pipeliner

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
	"mlpipeline/internal/evaluation"
	"mlpipeline/internal/pipeline"
	"mlpipeline/internal/progress"
	"mlpipeline/internal/search"
)

// EvalOptions configures one evaluation run.
type EvalOptions struct {
	// Scoring lists the metric names to evaluate; defaults to accuracy.
	Scoring []string

	// CachingSteps names a leading run of steps whose transforms are
	// cached and shared between consecutive plan rows that pick the same
	// options. Cached transforms are fitted once on the full dataset.
	CachingSteps []string

	// CollectN, when positive, replaces per-fold scoring with CollectN
	// repetitions of out-of-fold prediction under shifted seeds, scoring
	// the pooled predictions each time.
	CollectN int

	// LogWriter receives run log lines. When neither LogWriter nor
	// Tracker is set, log lines go to stdout.
	LogWriter io.Writer

	// Tracker observes row-by-row progress when set.
	Tracker *progress.Tracker
}

// GetResults evaluates every plan row in order: an inner grid search over
// the terminal option's parameter grid (when one is declared), then an
// outer cross-validated evaluation of the best configuration, for every
// requested metric.
//
// A row failure aborts the run. The rows completed before the failure are
// returned alongside the error; they are valid and never mutated
// afterwards.
func (p *Pipeliner) GetResults(X *data.Collection, y []int, opts EvalOptions) (*Results, error) {
	// Row-by-row progress is part of the contract; without an explicit
	// sink or tracker it goes to stdout.
	if opts.LogWriter == nil && opts.Tracker == nil {
		opts.LogWriter = os.Stdout
	}

	scoring := opts.Scoring
	if len(scoring) == 0 {
		scoring = []string{"accuracy"}
	}

	scorers := make(map[string]*evaluation.Scorer, len(scoring))
	for _, metric := range scoring {
		scorer, err := evaluation.CheckScoring(metric)
		if err != nil {
			return nil, err
		}
		scorers[metric] = scorer
	}

	cacheLen, err := p.checkCachingSteps(opts.CachingSteps)
	if err != nil {
		return nil, err
	}

	results := &Results{
		StepNames: p.StepNames(),
		Scoring:   scoring,
	}

	tracker := opts.Tracker
	if tracker != nil {
		tracker.Start()
	}

	cache := newStepCache(X)
	total := len(p.plan)

	for idx, row := range p.plan {
		p.logf(opts, "Line: %d/%d", idx+1, total)
		p.logf(opts, "Pipeline: %s", strings.Join(row.Choices, " -> "))

		XRow, err := p.transformWithCaching(cache, row.Choices[:cacheLen], cacheLen)
		if err != nil {
			return p.fail(results, tracker, fmt.Errorf("row %d (%s): %w", idx, strings.Join(row.Choices, "/"), err))
		}

		pipe, err := p.buildPipeline(row.Choices, cacheLen)
		if err != nil {
			return p.fail(results, tracker, fmt.Errorf("row %d (%s): %w", idx, strings.Join(row.Choices, "/"), err))
		}

		rowResult := RowResult{
			Choices: row.Choices,
			Metrics: make(map[string]MetricResult, len(scoring)),
		}

		terminalOption := row.Choices[len(row.Choices)-1]
		grid, hasGrid := p.ParamGrids[terminalOption]

		for _, metric := range scoring {
			metricResult, err := p.evaluateMetric(pipe, XRow, y, scorers[metric], grid, hasGrid, opts)
			if err != nil {
				return p.fail(results, tracker, fmt.Errorf("row %d (%s), metric %s: %w", idx, strings.Join(row.Choices, "/"), metric, err))
			}

			p.logf(opts, "%s: grid %s +/- %s, eval %s +/- %s",
				metric,
				formatScore(metricResult.GridMean), formatScore(metricResult.GridStd),
				formatScore(metricResult.EvalMean), formatScore(metricResult.EvalStd))

			rowResult.Metrics[metric] = metricResult
		}

		results.Rows = append(results.Rows, rowResult)
		if tracker != nil {
			tracker.Advance(strings.Join(row.Choices, " -> "))
		}
	}

	if tracker != nil {
		tracker.Complete()
	}

	return results, nil
}

func (p *Pipeliner) evaluateMetric(pipe *pipeline.Pipeline, X *data.Collection, y []int, scorer *evaluation.Scorer, grid search.ParamGrid, hasGrid bool, opts EvalOptions) (MetricResult, error) {
	result := MetricResult{
		GridMean:   math.NaN(),
		GridStd:    math.NaN(),
		BestParams: map[string]any{},
	}

	if hasGrid {
		gs, err := search.NewGridSearch(grid, p.GridCV, scorer)
		if err != nil {
			return result, err
		}

		gridResult, err := gs.Fit(pipe, X, y)
		if err != nil {
			return result, err
		}

		result.GridMean = gridResult.BestMean
		result.GridStd = gridResult.BestStd
		result.BestParams = gridResult.BestParams
		result.BestParamsStr = grid.Format(gridResult.BestParams)
	}

	evalPipe, ok := pipe.Clone().(estimator.Classifier)
	if !ok {
		return result, fmt.Errorf("pipeline clone is not a classifier")
	}
	if len(result.BestParams) > 0 {
		if err := evalPipe.SetParams(result.BestParams); err != nil {
			return result, err
		}
	}

	var scores []float64
	var err error

	if opts.CollectN > 0 {
		scores, err = p.collectScores(evalPipe, X, y, scorer, opts.CollectN)
	} else {
		scores, err = evaluation.CrossValScore(evalPipe, X, y, scorer, p.EvalCV)
	}
	if err != nil {
		return result, err
	}

	result.EvalMean, result.EvalStd = evaluation.MeanStd(scores)
	result.EvalScores = scores

	return result, nil
}

// collectScores repeats out-of-fold prediction with shifted seeds and
// scores the pooled predictions once per repetition.
func (p *Pipeliner) collectScores(clf estimator.Classifier, X *data.Collection, y []int, scorer *evaluation.Scorer, collectN int) ([]float64, error) {
	scores := make([]float64, 0, collectN)

	for i := 0; i < collectN; i++ {
		cv := p.EvalCV.WithSeed(p.EvalCV.Seed + int64(i))

		preds, err := evaluation.CrossValPredict(clf, X, y, cv)
		if err != nil {
			return nil, err
		}

		score, err := scorer.ScoreLabels(y, preds)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	return scores, nil
}

// Assemble builds a runnable pipeline for one plan row with fresh clones
// of the chosen estimators. Used to refit a winning row on a full dataset.
func (p *Pipeliner) Assemble(choices []string) (*pipeline.Pipeline, error) {
	return p.buildPipeline(choices, 0)
}

// buildPipeline assembles a fresh pipeline for the non-cached suffix of a
// plan row, cloning every chosen estimator prototype.
func (p *Pipeliner) buildPipeline(choices []string, cacheLen int) (*pipeline.Pipeline, error) {
	steps := make([]pipeline.Step, 0, len(choices)-cacheLen)

	for i := cacheLen; i < len(choices); i++ {
		proto, err := p.option(i, choices[i])
		if err != nil {
			return nil, err
		}
		steps = append(steps, pipeline.Step{
			Name:      choices[i],
			Estimator: proto.Clone(),
		})
	}

	return pipeline.New(steps...)
}

// checkCachingSteps verifies the caching steps are a leading run of step
// names, all transformers, with at least one step left for the pipeline.
func (p *Pipeliner) checkCachingSteps(cachingSteps []string) (int, error) {
	if len(cachingSteps) == 0 {
		return 0, nil
	}

	if len(cachingSteps) >= len(p.Steps) {
		return 0, fmt.Errorf("caching steps must leave at least one step for the pipeline")
	}

	for i, name := range cachingSteps {
		if p.Steps[i].Name != name {
			return 0, fmt.Errorf("caching steps must be a leading run of step names: got %q, expected %q", name, p.Steps[i].Name)
		}
		for _, opt := range p.Steps[i].Options {
			if _, ok := opt.Estimator.(estimator.Transformer); !ok {
				return 0, fmt.Errorf("caching step %q option %q is not a transformer", name, opt.Name)
			}
		}
	}

	return len(cachingSteps), nil
}

// transformWithCaching reuses previously computed transforms sharing a
// prefix of option choices, recomputing only from the first mismatch.
func (p *Pipeliner) transformWithCaching(cache *stepCache, choices []string, cacheLen int) (*data.Collection, error) {
	if cacheLen == 0 {
		return cache.init, nil
	}

	shared := cache.sharedPrefix(choices)
	cache.truncate(shared)

	cur := cache.last()
	for i := shared; i < cacheLen; i++ {
		proto, err := p.option(i, choices[i])
		if err != nil {
			return nil, err
		}

		t := proto.Clone().(estimator.Transformer)
		next, err := estimator.FitTransform(t, cur, nil)
		if err != nil {
			return nil, fmt.Errorf("caching step %q: %w", choices[i], err)
		}

		cache.push(choices[i], next)
		cur = next
	}

	return cur, nil
}

func (p *Pipeliner) fail(results *Results, tracker *progress.Tracker, err error) (*Results, error) {
	if tracker != nil {
		tracker.Fail(err)
	}
	return results, err
}

func (p *Pipeliner) logf(opts EvalOptions, format string, args ...any) {
	if opts.LogWriter != nil {
		fmt.Fprintf(opts.LogWriter, format+"\n", args...)
	}
	if opts.Tracker != nil {
		opts.Tracker.Logf(format, args...)
	}
}

// stepCache holds the chain of cached transforms for the current shared
// prefix of option choices.
type stepCache struct {
	init   *data.Collection
	keys   []string
	values []*data.Collection
}

func newStepCache(init *data.Collection) *stepCache {
	return &stepCache{init: init}
}

func (c *stepCache) sharedPrefix(choices []string) int {
	n := 0
	for n < len(c.keys) && n < len(choices) && c.keys[n] == choices[n] {
		n++
	}
	return n
}

func (c *stepCache) truncate(n int) {
	c.keys = c.keys[:n]
	c.values = c.values[:n]
}

func (c *stepCache) push(key string, value *data.Collection) {
	c.keys = append(c.keys, key)
	c.values = append(c.values, value)
}

func (c *stepCache) last() *data.Collection {
	if len(c.values) == 0 {
		return c.init
	}
	return c.values[len(c.values)-1]
}
