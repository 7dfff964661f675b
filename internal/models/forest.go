package models

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// RandomForest is a bagging ensemble of decision trees, each trained on a
// bootstrap sample over a random feature subset. Tree seeds are the tree
// indices, so fits are reproducible.
type RandomForest struct {
	estimator.BaseModel
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MaxFeatures     int
	Trees           []*DecisionTree
	FeatureIndices  [][]int
	NJobs           int
}

func NewRandomForest(nTrees, maxDepth, minSamplesSplit int) *RandomForest {
	if nTrees <= 0 {
		nTrees = 100
	}
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}

	return &RandomForest{
		NTrees:          nTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		NJobs:           4,
		BaseModel: estimator.BaseModel{
			Name: "RandomForest",
			Params: map[string]any{
				"n_trees":           nTrees,
				"max_depth":         maxDepth,
				"min_samples_split": minSamplesSplit,
			},
		},
	}
}

func (rf *RandomForest) SetParams(params map[string]any) error {
	nTrees, err := estimator.IntParam(params, "n_trees", rf.NTrees)
	if err != nil {
		return err
	}
	if nTrees <= 0 {
		return fmt.Errorf("n_trees must be positive, got %d", nTrees)
	}

	maxDepth, err := estimator.IntParam(params, "max_depth", rf.MaxDepth)
	if err != nil {
		return err
	}
	if maxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", maxDepth)
	}

	minSplit, err := estimator.IntParam(params, "min_samples_split", rf.MinSamplesSplit)
	if err != nil {
		return err
	}
	if minSplit < 2 {
		return fmt.Errorf("min_samples_split must be at least 2, got %d", minSplit)
	}

	rf.NTrees = nTrees
	rf.MaxDepth = maxDepth
	rf.MinSamplesSplit = minSplit
	rf.Params = map[string]any{
		"n_trees":           nTrees,
		"max_depth":         maxDepth,
		"min_samples_split": minSplit,
	}
	return nil
}

func (rf *RandomForest) Clone() estimator.Estimator {
	clone := NewRandomForest(rf.NTrees, rf.MaxDepth, rf.MinSamplesSplit)
	clone.NJobs = rf.NJobs
	return clone
}

func (rf *RandomForest) Fit(X *data.Collection, y []int) error {
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

	rf.Classes = estimator.ExtractClasses(y)
	nFeatures := len(features[0])

	rf.MaxFeatures = int(math.Sqrt(float64(nFeatures)))
	if rf.MaxFeatures < 1 {
		rf.MaxFeatures = 1
	}

	rf.Trees = make([]*DecisionTree, rf.NTrees)
	rf.FeatureIndices = make([][]int, rf.NTrees)

	if rf.NJobs > 1 {
		return rf.trainParallel(features, y)
	}

	return rf.trainSequential(features, y)
}

func (rf *RandomForest) trainParallel(X [][]decimal.Decimal, y []int) error {
	var wg sync.WaitGroup
	errors := make([]error, rf.NTrees)

	workers := rf.NJobs
	if workers > rf.NTrees {
		workers = rf.NTrees
	}

	jobs := make(chan int, rf.NTrees)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tree, features, err := rf.trainSingleTree(X, y, int64(i))
				rf.Trees[i] = tree
				rf.FeatureIndices[i] = features
				errors[i] = err
			}
		}()
	}

	for i := 0; i < rf.NTrees; i++ {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	for i, err := range errors {
		if err != nil {
			return fmt.Errorf("tree %d training failed: %w", i, err)
		}
	}

	return nil
}

func (rf *RandomForest) trainSequential(X [][]decimal.Decimal, y []int) error {
	for i := 0; i < rf.NTrees; i++ {
		tree, features, err := rf.trainSingleTree(X, y, int64(i))
		if err != nil {
			return err
		}
		rf.Trees[i] = tree
		rf.FeatureIndices[i] = features
	}
	return nil
}

func (rf *RandomForest) trainSingleTree(X [][]decimal.Decimal, y []int, seed int64) (*DecisionTree, []int, error) {
	r := rand.New(rand.NewSource(seed))

	n := len(X)
	XBoot := make([][]decimal.Decimal, n)
	yBoot := make([]int, n)

	for i := 0; i < n; i++ {
		idx := r.Intn(n)
		XBoot[i] = X[idx]
		yBoot[i] = y[idx]
	}

	nFeatures := len(X[0])
	features := rf.selectRandomFeatures(nFeatures, r)

	XSelected := make([][]decimal.Decimal, n)
	for i := range XBoot {
		XSelected[i] = make([]decimal.Decimal, len(features))
		for j, feat := range features {
			XSelected[i][j] = XBoot[i][feat]
		}
	}

	tree := NewDecisionTree(rf.MaxDepth, rf.MinSamplesSplit)
	err := tree.Fit(data.FromFeatures(XSelected), yBoot)

	return tree, features, err
}

func (rf *RandomForest) selectRandomFeatures(nFeatures int, r *rand.Rand) []int {
	features := make([]int, nFeatures)
	for i := range features {
		features[i] = i
	}

	for i := 0; i < rf.MaxFeatures && i < nFeatures; i++ {
		j := i + r.Intn(nFeatures-i)
		features[i], features[j] = features[j], features[i]
	}

	return features[:rf.MaxFeatures]
}

func (rf *RandomForest) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if rf.Trees == nil {
		return nil, fmt.Errorf("RandomForest must be fitted before predict")
	}

	predictions := make([]int, len(features))

	for i, sample := range features {
		votes := make(map[int]int)

		for j := range rf.Trees {
			votes[rf.treeVote(j, sample)]++
		}

		maxVotes := 0
		bestClass := rf.Classes[0]
		for _, class := range rf.Classes {
			if votes[class] > maxVotes {
				maxVotes = votes[class]
				bestClass = class
			}
		}

		predictions[i] = bestClass
	}

	return predictions, nil
}

func (rf *RandomForest) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if rf.Trees == nil {
		return nil, fmt.Errorf("RandomForest must be fitted before predict")
	}

	proba := make([][]decimal.Decimal, len(features))

	for i, sample := range features {
		votes := make(map[int]int)
		for j := range rf.Trees {
			votes[rf.treeVote(j, sample)]++
		}

		proba[i] = make([]decimal.Decimal, len(rf.Classes))
		nTrees := decimal.NewFromInt(int64(rf.NTrees))
		for j, class := range rf.Classes {
			proba[i][j] = decimal.NewFromInt(int64(votes[class])).Div(nTrees)
		}
	}

	return proba, nil
}

func (rf *RandomForest) treeVote(treeIdx int, sample []decimal.Decimal) int {
	selected := make([]decimal.Decimal, len(rf.FeatureIndices[treeIdx]))
	for k, feat := range rf.FeatureIndices[treeIdx] {
		selected[k] = sample[feat]
	}

	return rf.Trees[treeIdx].predictSample(selected, rf.Trees[treeIdx].Root)
}
