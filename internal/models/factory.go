package models

import (
	"fmt"

	"mlpipeline/internal/estimator"
)

// Create builds a classifier by kind name with optional overriding
// parameters. Used when estimators are declared in configuration files.
func Create(kind string, params map[string]any) (estimator.Classifier, error) {
	switch kind {
	case "knn":
		k, err := estimator.IntParam(params, "k", 5)
		if err != nil {
			return nil, err
		}
		distance, err := estimator.StringParam(params, "distance", "euclidean")
		if err != nil {
			return nil, err
		}
		return NewKNN(k, distance), nil

	case "tree":
		maxDepth, err := estimator.IntParam(params, "max_depth", 10)
		if err != nil {
			return nil, err
		}
		minSplit, err := estimator.IntParam(params, "min_samples_split", 2)
		if err != nil {
			return nil, err
		}
		return NewDecisionTree(maxDepth, minSplit), nil

	case "forest":
		nTrees, err := estimator.IntParam(params, "n_trees", 100)
		if err != nil {
			return nil, err
		}
		maxDepth, err := estimator.IntParam(params, "max_depth", 10)
		if err != nil {
			return nil, err
		}
		minSplit, err := estimator.IntParam(params, "min_samples_split", 2)
		if err != nil {
			return nil, err
		}
		return NewRandomForest(nTrees, maxDepth, minSplit), nil

	case "bayes":
		smoothing, err := estimator.FloatParam(params, "var_smoothing", 1e-9)
		if err != nil {
			return nil, err
		}
		return NewGaussianNB(smoothing), nil

	default:
		return nil, fmt.Errorf("unknown classifier kind: %s", kind)
	}
}
