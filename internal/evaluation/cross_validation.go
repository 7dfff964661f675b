package evaluation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// Split is one cross-validation fold: index sets into the sample
// collection.
type Split struct {
	Train []int
	Test  []int
}

// CrossValidator produces seeded, reproducible K-fold splits, stratified
// when requested. NJobs controls the fold worker pool used by
// CrossValScore; it never changes the scores, only how they are computed.
type CrossValidator struct {
	NFolds     int
	Stratified bool
	Shuffle    bool
	Seed       int64
	NJobs      int
}

func NewCrossValidator(nFolds int, stratified bool) *CrossValidator {
	return &CrossValidator{
		NFolds:     nFolds,
		Stratified: stratified,
		Shuffle:    true,
		Seed:       42,
		NJobs:      1,
	}
}

// WithSeed returns a copy of the cross-validator using a different seed.
func (cv *CrossValidator) WithSeed(seed int64) *CrossValidator {
	shifted := *cv
	shifted.Seed = seed
	return &shifted
}

// Split yields the fold index pairs for n samples. Every sample appears in
// exactly one test set. Repeated calls with the same inputs yield the same
// folds.
func (cv *CrossValidator) Split(n int, y []int) ([]Split, error) {
	if cv.NFolds < 2 || cv.NFolds > n {
		return nil, fmt.Errorf("invalid number of folds: %d (must be between 2 and %d)", cv.NFolds, n)
	}
	if cv.Stratified && len(y) != n {
		return nil, fmt.Errorf("stratified split needs labels for all %d samples, got %d", n, len(y))
	}

	if cv.Stratified {
		if err := cv.checkClassCounts(y); err != nil {
			return nil, err
		}
		return cv.stratifiedSplit(n, y), nil
	}
	return cv.kfoldSplit(n), nil
}

// checkClassCounts rejects fold counts larger than the smallest class:
// round-robin dealing would leave later folds with empty test sets, which
// score as NaN and poison downstream means.
func (cv *CrossValidator) checkClassCounts(y []int) error {
	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}

	for _, class := range estimator.ExtractClasses(y) {
		if counts[class] < cv.NFolds {
			return fmt.Errorf("stratified split needs at least %d samples per class, class %d has %d",
				cv.NFolds, class, counts[class])
		}
	}

	return nil
}

func (cv *CrossValidator) kfoldSplit(n int) []Split {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if cv.Shuffle {
		rng := rand.New(rand.NewSource(cv.Seed))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([][]int, cv.NFolds)
	foldSize := n / cv.NFolds

	for f := 0; f < cv.NFolds; f++ {
		start := f * foldSize
		end := start + foldSize
		if f == cv.NFolds-1 {
			end = n
		}
		folds[f] = append([]int(nil), indices[start:end]...)
	}

	return cv.foldsToSplits(n, folds)
}

func (cv *CrossValidator) stratifiedSplit(n int, y []int) []Split {
	rng := rand.New(rand.NewSource(cv.Seed))

	classIndices := make(map[int][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}

	folds := make([][]int, cv.NFolds)

	// Deal each class round-robin across folds so class proportions stay
	// close to the full dataset's in every fold.
	for _, class := range estimator.ExtractClasses(y) {
		indices := classIndices[class]
		if cv.Shuffle {
			rng.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}

		for i, idx := range indices {
			f := i % cv.NFolds
			folds[f] = append(folds[f], idx)
		}
	}

	return cv.foldsToSplits(n, folds)
}

func (cv *CrossValidator) foldsToSplits(n int, folds [][]int) []Split {
	splits := make([]Split, len(folds))

	for f, test := range folds {
		testSet := make(map[int]bool, len(test))
		for _, idx := range test {
			testSet[idx] = true
		}

		train := make([]int, 0, n-len(test))
		for i := 0; i < n; i++ {
			if !testSet[i] {
				train = append(train, i)
			}
		}

		sorted := append([]int(nil), test...)
		sort.Ints(sorted)

		splits[f] = Split{Train: train, Test: sorted}
	}

	return splits
}

// CrossValScore fits a fresh clone of the classifier on every fold's
// training subset and scores it on the test subset. Folds are processed by
// a worker pool when NJobs exceeds one.
func CrossValScore(clf estimator.Classifier, X *data.Collection, y []int, scorer *Scorer, cv *CrossValidator) ([]float64, error) {
	splits, err := cv.Split(X.Len(), y)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(splits))
	errs := make([]error, len(splits))

	evalFold := func(f int) {
		scores[f], errs[f] = evaluateFold(clf, X, y, scorer, splits[f])
	}

	if cv.NJobs > 1 {
		workers := cv.NJobs
		if workers > len(splits) {
			workers = len(splits)
		}

		jobs := make(chan int, len(splits))
		var wg sync.WaitGroup

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for f := range jobs {
					evalFold(f)
				}
			}()
		}

		for f := range splits {
			jobs <- f
		}
		close(jobs)
		wg.Wait()
	} else {
		for f := range splits {
			evalFold(f)
		}
	}

	for f, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fold %d failed: %w", f, err)
		}
	}

	return scores, nil
}

func evaluateFold(clf estimator.Classifier, X *data.Collection, y []int, scorer *Scorer, split Split) (float64, error) {
	XTrain, err := X.Subset(split.Train)
	if err != nil {
		return 0, err
	}
	XTest, err := X.Subset(split.Test)
	if err != nil {
		return 0, err
	}

	yTrain := make([]int, len(split.Train))
	for i, idx := range split.Train {
		yTrain[i] = y[idx]
	}
	yTest := make([]int, len(split.Test))
	for i, idx := range split.Test {
		yTest[i] = y[idx]
	}

	foldClf, ok := clf.Clone().(estimator.Classifier)
	if !ok {
		return 0, fmt.Errorf("clone of %s is not a classifier", clf.GetName())
	}

	if err := foldClf.Fit(XTrain, yTrain); err != nil {
		return 0, err
	}

	return scorer.Score(foldClf, XTest, yTest)
}

// CrossValPredict returns out-of-fold predictions: each sample is
// predicted by the model fitted on the folds it does not belong to.
func CrossValPredict(clf estimator.Classifier, X *data.Collection, y []int, cv *CrossValidator) ([]int, error) {
	splits, err := cv.Split(X.Len(), y)
	if err != nil {
		return nil, err
	}

	predictions := make([]int, X.Len())

	for f, split := range splits {
		XTrain, err := X.Subset(split.Train)
		if err != nil {
			return nil, err
		}
		XTest, err := X.Subset(split.Test)
		if err != nil {
			return nil, err
		}

		yTrain := make([]int, len(split.Train))
		for i, idx := range split.Train {
			yTrain[i] = y[idx]
		}

		foldClf, ok := clf.Clone().(estimator.Classifier)
		if !ok {
			return nil, fmt.Errorf("clone of %s is not a classifier", clf.GetName())
		}

		if err := foldClf.Fit(XTrain, yTrain); err != nil {
			return nil, fmt.Errorf("fold %d failed: %w", f, err)
		}

		preds, err := foldClf.Predict(XTest)
		if err != nil {
			return nil, fmt.Errorf("fold %d failed: %w", f, err)
		}

		for i, idx := range split.Test {
			predictions[idx] = preds[i]
		}
	}

	return predictions, nil
}

// MeanStd returns the mean and sample standard deviation of the scores.
func MeanStd(scores []float64) (mean, std float64) {
	if len(scores) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean = sum / float64(len(scores))

	if len(scores) > 1 {
		variance := 0.0
		for _, s := range scores {
			diff := s - mean
			variance += diff * diff
		}
		variance /= float64(len(scores) - 1)
		std = math.Sqrt(variance)
	}

	return mean, std
}
