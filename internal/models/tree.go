package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

type TreeNode struct {
	IsLeaf           bool
	Class            int
	Feature          int
	Threshold        decimal.Decimal
	Left             *TreeNode
	Right            *TreeNode
	Samples          int
	Impurity         float64
	ImpurityDecrease float64
}

// DecisionTree is a CART-style classifier splitting on Gini impurity.
type DecisionTree struct {
	estimator.BaseModel
	Root                *TreeNode
	MaxDepth            int
	MinSamplesSplit     int
	MinImpurityDecrease float64
}

func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}

	return &DecisionTree{
		MaxDepth:            maxDepth,
		MinSamplesSplit:     minSamplesSplit,
		MinImpurityDecrease: 0.01,
		BaseModel: estimator.BaseModel{
			Name: "DecisionTree",
			Params: map[string]any{
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
			},
		},
	}
}

func (dt *DecisionTree) SetParams(params map[string]any) error {
	maxDepth, err := estimator.IntParam(params, "max_depth", dt.MaxDepth)
	if err != nil {
		return err
	}
	if maxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", maxDepth)
	}

	minSplit, err := estimator.IntParam(params, "min_samples_split", dt.MinSamplesSplit)
	if err != nil {
		return err
	}
	if minSplit < 2 {
		return fmt.Errorf("min_samples_split must be at least 2, got %d", minSplit)
	}

	dt.MaxDepth = maxDepth
	dt.MinSamplesSplit = minSplit
	dt.Params = map[string]any{
		"max_depth":         maxDepth,
		"min_samples_split": minSplit,
	}
	return nil
}

func (dt *DecisionTree) Clone() estimator.Estimator {
	return NewDecisionTree(dt.MaxDepth, dt.MinSamplesSplit)
}

func (dt *DecisionTree) Fit(X *data.Collection, y []int) error {
	features, err := X.FeatureMatrix()
	if err != nil {
		return err
	}
	if len(features) != len(y) {
		return fmt.Errorf("x and y must have the same length")
	}
	if len(features) == 0 {
		return fmt.Errorf("cannot fit on empty dataset")
	}

	dt.Classes = estimator.ExtractClasses(y)
	dt.Root = dt.buildTree(features, y, 0)
	return nil
}

func (dt *DecisionTree) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if dt.Root == nil {
		return nil, fmt.Errorf("DecisionTree must be fitted before predict")
	}

	predictions := make([]int, len(features))
	for i, sample := range features {
		predictions[i] = dt.predictSample(sample, dt.Root)
	}

	return predictions, nil
}

func (dt *DecisionTree) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if dt.Root == nil {
		return nil, fmt.Errorf("DecisionTree must be fitted before predict")
	}

	proba := make([][]decimal.Decimal, len(features))
	for i, sample := range features {
		prediction := dt.predictSample(sample, dt.Root)
		proba[i] = make([]decimal.Decimal, len(dt.Classes))

		for j, class := range dt.Classes {
			if class == prediction {
				proba[i][j] = decimal.NewFromInt(1)
			} else {
				proba[i][j] = decimal.Zero
			}
		}
	}

	return proba, nil
}

func (dt *DecisionTree) buildTree(X [][]decimal.Decimal, y []int, depth int) *TreeNode {
	node := &TreeNode{
		Samples: len(y),
	}

	node.Impurity = dt.calculateGini(y)

	if depth >= dt.MaxDepth ||
		len(y) < dt.MinSamplesSplit ||
		dt.isPure(y) ||
		node.Impurity < dt.MinImpurityDecrease {

		node.IsLeaf = true
		node.Class = dt.mostCommonClass(y)
		return node
	}

	bestFeature, bestThreshold, bestImpurityDecrease := dt.findBestSplit(X, y)

	if bestImpurityDecrease < dt.MinImpurityDecrease {
		node.IsLeaf = true
		node.Class = dt.mostCommonClass(y)
		return node
	}

	node.Feature = bestFeature
	node.Threshold = bestThreshold
	node.ImpurityDecrease = bestImpurityDecrease

	leftIndices, rightIndices := dt.splitData(X, bestFeature, bestThreshold)

	if len(leftIndices) == 0 || len(rightIndices) == 0 {
		node.IsLeaf = true
		node.Class = dt.mostCommonClass(y)
		return node
	}

	XLeft, yLeft := dt.selectData(X, y, leftIndices)
	XRight, yRight := dt.selectData(X, y, rightIndices)

	node.Left = dt.buildTree(XLeft, yLeft, depth+1)
	node.Right = dt.buildTree(XRight, yRight, depth+1)

	return node
}

func (dt *DecisionTree) findBestSplit(X [][]decimal.Decimal, y []int) (int, decimal.Decimal, float64) {
	bestFeature := 0
	bestThreshold := decimal.Zero
	bestImpurityDecrease := 0.0

	parentImpurity := dt.calculateGini(y)
	n := len(y)

	for feature := range X[0] {
		thresholds := dt.candidateThresholds(X, feature)

		for _, threshold := range thresholds {
			leftIndices, rightIndices := dt.splitData(X, feature, threshold)

			if len(leftIndices) == 0 || len(rightIndices) == 0 {
				continue
			}

			yLeft := make([]int, len(leftIndices))
			yRight := make([]int, len(rightIndices))

			for i, idx := range leftIndices {
				yLeft[i] = y[idx]
			}
			for i, idx := range rightIndices {
				yRight[i] = y[idx]
			}

			leftImpurity := dt.calculateGini(yLeft)
			rightImpurity := dt.calculateGini(yRight)

			weightedImpurity := (float64(len(leftIndices))/float64(n))*leftImpurity +
				(float64(len(rightIndices))/float64(n))*rightImpurity

			impurityDecrease := parentImpurity - weightedImpurity

			if impurityDecrease > bestImpurityDecrease {
				bestImpurityDecrease = impurityDecrease
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	return bestFeature, bestThreshold, bestImpurityDecrease
}

func (dt *DecisionTree) predictSample(sample []decimal.Decimal, node *TreeNode) int {
	if node.IsLeaf {
		return node.Class
	}

	if sample[node.Feature].LessThan(node.Threshold) {
		return dt.predictSample(sample, node.Left)
	}
	return dt.predictSample(sample, node.Right)
}

func (dt *DecisionTree) calculateGini(y []int) float64 {
	if len(y) == 0 {
		return 0.0
	}

	classCounts := make(map[int]int)
	for _, class := range y {
		classCounts[class]++
	}

	impurity := 1.0
	n := float64(len(y))

	for _, count := range classCounts {
		p := float64(count) / n
		impurity -= p * p
	}

	return impurity
}

func (dt *DecisionTree) isPure(y []int) bool {
	if len(y) == 0 {
		return true
	}

	firstClass := y[0]
	for _, class := range y {
		if class != firstClass {
			return false
		}
	}

	return true
}

func (dt *DecisionTree) mostCommonClass(y []int) int {
	if len(y) == 0 {
		return 0
	}

	classCounts := make(map[int]int)
	for _, class := range y {
		classCounts[class]++
	}

	maxCount := 0
	mostCommon := y[0]

	// Iterate classes in sorted order so ties resolve deterministically.
	for _, class := range estimator.ExtractClasses(y) {
		if classCounts[class] > maxCount {
			maxCount = classCounts[class]
			mostCommon = class
		}
	}

	return mostCommon
}

// candidateThresholds returns the midpoints between adjacent distinct
// feature values, so a learned threshold sits between the training values
// rather than on one of them and generalizes to unseen nearby samples.
func (dt *DecisionTree) candidateThresholds(X [][]decimal.Decimal, feature int) []decimal.Decimal {
	seen := make(map[string]struct{}, len(X))
	values := make([]decimal.Decimal, 0, len(X))

	for _, sample := range X {
		key := sample[feature].String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, sample[feature])
	}

	sort.Slice(values, func(i, j int) bool {
		return values[i].LessThan(values[j])
	})

	two := decimal.NewFromInt(2)
	thresholds := make([]decimal.Decimal, 0, len(values))
	for i := 1; i < len(values); i++ {
		thresholds = append(thresholds, values[i-1].Add(values[i]).Div(two))
	}

	return thresholds
}

func (dt *DecisionTree) splitData(X [][]decimal.Decimal, feature int, threshold decimal.Decimal) ([]int, []int) {
	var leftIndices, rightIndices []int

	for i, sample := range X {
		if sample[feature].LessThan(threshold) {
			leftIndices = append(leftIndices, i)
		} else {
			rightIndices = append(rightIndices, i)
		}
	}

	return leftIndices, rightIndices
}

func (dt *DecisionTree) selectData(X [][]decimal.Decimal, y []int, indices []int) ([][]decimal.Decimal, []int) {
	selectedX := make([][]decimal.Decimal, len(indices))
	selectedY := make([]int, len(indices))

	for i, idx := range indices {
		selectedX[i] = X[idx]
		selectedY[i] = y[idx]
	}

	return selectedX, selectedY
}
