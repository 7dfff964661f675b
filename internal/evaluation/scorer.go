package evaluation

import (
	"fmt"
	"sort"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// Scorer evaluates a fitted classifier on a test collection. Label-based
// scorers can additionally score pooled out-of-fold predictions; the
// probability-based roc_auc scorer cannot.
type Scorer struct {
	Name    string
	scoreFn func(clf estimator.Classifier, X *data.Collection, y []int) (float64, error)
	labelFn func(yTrue, yPred []int) float64
}

func (s *Scorer) Score(clf estimator.Classifier, X *data.Collection, y []int) (float64, error) {
	return s.scoreFn(clf, X, y)
}

// ScoreLabels scores true labels against predictions directly. Fails for
// scorers that need probability outputs.
func (s *Scorer) ScoreLabels(yTrue, yPred []int) (float64, error) {
	if s.labelFn == nil {
		return 0, fmt.Errorf("scorer %s cannot score label predictions", s.Name)
	}
	return s.labelFn(yTrue, yPred), nil
}

// CheckScoring resolves a metric name to a scorer.
func CheckScoring(name string) (*Scorer, error) {
	if fn, ok := labelMetrics[name]; ok {
		return newLabelScorer(name, fn), nil
	}

	if name == "roc_auc" {
		return &Scorer{Name: name, scoreFn: rocAUCScore}, nil
	}

	return nil, fmt.Errorf("unknown scoring metric: %s", name)
}

// ScoringNames returns the supported metric names, sorted.
func ScoringNames() []string {
	names := make([]string, 0, len(labelMetrics)+1)
	for name := range labelMetrics {
		names = append(names, name)
	}
	names = append(names, "roc_auc")
	sort.Strings(names)
	return names
}

var labelMetrics = map[string]func(yTrue, yPred []int) float64{
	"accuracy": func(yTrue, yPred []int) float64 {
		correct := 0
		for i, pred := range yPred {
			if pred == yTrue[i] {
				correct++
			}
		}
		return float64(correct) / float64(len(yTrue))
	},
	"balanced_accuracy": metricField(func(m *ClassificationMetrics) float64 { return m.BalancedAccuracy }),
	"precision":         metricField(func(m *ClassificationMetrics) float64 { return m.MacroPrecision }),
	"recall":            metricField(func(m *ClassificationMetrics) float64 { return m.MacroRecall }),
	"f1":                metricField(func(m *ClassificationMetrics) float64 { return m.MacroF1 }),
	"f1_weighted":       metricField(func(m *ClassificationMetrics) float64 { return m.WeightedF1 }),
}

func metricField(pick func(*ClassificationMetrics) float64) func(yTrue, yPred []int) float64 {
	return func(yTrue, yPred []int) float64 {
		metrics := CalculateMetrics(yTrue, yPred, estimator.ExtractClasses(yTrue))
		if metrics == nil {
			return 0
		}
		return pick(metrics)
	}
}

func newLabelScorer(name string, fn func(yTrue, yPred []int) float64) *Scorer {
	return &Scorer{
		Name: name,
		scoreFn: func(clf estimator.Classifier, X *data.Collection, y []int) (float64, error) {
			preds, err := clf.Predict(X)
			if err != nil {
				return 0, err
			}
			return fn(y, preds), nil
		},
		labelFn: fn,
	}
}

// rocAUCScore computes the binary area under the ROC curve from predicted
// probabilities of the larger class label.
func rocAUCScore(clf estimator.Classifier, X *data.Collection, y []int) (float64, error) {
	classes := clf.GetClasses()
	if len(classes) != 2 {
		return 0, fmt.Errorf("roc_auc requires binary classification, got %d classes", len(classes))
	}
	positive := classes[1]

	proba, err := clf.PredictProba(X)
	if err != nil {
		return 0, err
	}

	scores := make([]float64, len(proba))
	for i := range proba {
		scores[i], _ = proba[i][1].Float64()
	}

	return rankAUC(y, scores, positive), nil
}

// rankAUC is the Mann-Whitney formulation of AUC, with average ranks for
// tied scores.
func rankAUC(y []int, scores []float64, positive int) float64 {
	n := len(y)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return scores[order[i]] < scores[order[j]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		// Ranks are 1-based; ties share the average rank of the run.
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	nPos, nNeg := 0, 0
	sumRanksPos := 0.0
	for i, label := range y {
		if label == positive {
			nPos++
			sumRanksPos += ranks[i]
		} else {
			nNeg++
		}
	}

	if nPos == 0 || nNeg == 0 {
		return 0
	}

	return (sumRanksPos - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}
