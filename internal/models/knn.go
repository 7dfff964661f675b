package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

type KNN struct {
	estimator.BaseModel
	K        int
	Distance string
	XTrain   [][]decimal.Decimal
	YTrain   []int
}

func NewKNN(k int, distance string) *KNN {
	if k <= 0 {
		k = 5
	}

	if distance != "euclidean" && distance != "manhattan" {
		distance = "euclidean"
	}

	return &KNN{
		K:        k,
		Distance: distance,
		BaseModel: estimator.BaseModel{
			Name: "KNN",
			Params: map[string]any{
				"k":        k,
				"distance": distance,
			},
		},
	}
}

func (knn *KNN) SetParams(params map[string]any) error {
	k, err := estimator.IntParam(params, "k", knn.K)
	if err != nil {
		return err
	}
	if k <= 0 {
		return fmt.Errorf("k must be positive, got %d", k)
	}

	distance, err := estimator.StringParam(params, "distance", knn.Distance)
	if err != nil {
		return err
	}
	if distance != "euclidean" && distance != "manhattan" {
		return fmt.Errorf("unknown distance: %s", distance)
	}

	knn.K = k
	knn.Distance = distance
	knn.Params = map[string]any{
		"k":        k,
		"distance": distance,
	}
	return nil
}

func (knn *KNN) Clone() estimator.Estimator {
	return NewKNN(knn.K, knn.Distance)
}

func (knn *KNN) Fit(X *data.Collection, y []int) error {
	features, err := X.FeatureMatrix()
	if err != nil {
		return err
	}
	if len(features) != len(y) {
		return fmt.Errorf("x and y must have the same length")
	}

	knn.XTrain = make([][]decimal.Decimal, len(features))
	for i := range features {
		knn.XTrain[i] = make([]decimal.Decimal, len(features[i]))
		copy(knn.XTrain[i], features[i])
	}

	knn.YTrain = make([]int, len(y))
	copy(knn.YTrain, y)

	knn.Classes = estimator.ExtractClasses(y)
	return nil
}

func (knn *KNN) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if knn.XTrain == nil {
		return nil, fmt.Errorf("KNN must be fitted before predict")
	}

	predictions := make([]int, len(features))
	for i, sample := range features {
		neighbors := knn.findNeighbors(sample)
		predictions[i] = knn.majorityVote(neighbors)
	}

	return predictions, nil
}

func (knn *KNN) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if knn.XTrain == nil {
		return nil, fmt.Errorf("KNN must be fitted before predict")
	}

	proba := make([][]decimal.Decimal, len(features))
	for i, sample := range features {
		neighbors := knn.findNeighbors(sample)
		proba[i] = knn.calculateProbabilities(neighbors)
	}

	return proba, nil
}

func (knn *KNN) findNeighbors(sample []decimal.Decimal) []int {
	type neighbor struct {
		index    int
		distance float64
	}

	neighbors := make([]neighbor, len(knn.XTrain))

	for i, trainSample := range knn.XTrain {
		dist := knn.calculateDistance(sample, trainSample)
		neighbors[i] = neighbor{index: i, distance: dist}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].distance < neighbors[j].distance
	})

	k := knn.K
	if k > len(neighbors) {
		k = len(neighbors)
	}

	kNeighbors := make([]int, k)
	for i := 0; i < k; i++ {
		kNeighbors[i] = neighbors[i].index
	}

	return kNeighbors
}

func (knn *KNN) calculateDistance(a, b []decimal.Decimal) float64 {
	switch knn.Distance {
	case "manhattan":
		sum := 0.0
		for i := range a {
			diff, _ := a[i].Sub(b[i]).Abs().Float64()
			sum += diff
		}
		return sum
	default:
		sum := 0.0
		for i := range a {
			diff, _ := a[i].Sub(b[i]).Float64()
			sum += diff * diff
		}
		return math.Sqrt(sum)
	}
}

func (knn *KNN) majorityVote(neighbors []int) int {
	votes := make(map[int]int)

	for _, neighborIdx := range neighbors {
		if neighborIdx < len(knn.YTrain) {
			class := knn.YTrain[neighborIdx]
			votes[class]++
		}
	}

	maxVotes := 0
	bestClass := knn.Classes[0]

	for _, class := range knn.Classes {
		if votes[class] > maxVotes {
			maxVotes = votes[class]
			bestClass = class
		}
	}

	return bestClass
}

func (knn *KNN) calculateProbabilities(neighbors []int) []decimal.Decimal {
	votes := make(map[int]int)

	for _, neighborIdx := range neighbors {
		if neighborIdx < len(knn.YTrain) {
			class := knn.YTrain[neighborIdx]
			votes[class]++
		}
	}

	proba := make([]decimal.Decimal, len(knn.Classes))
	totalVotes := decimal.NewFromInt(int64(len(neighbors)))

	for i, class := range knn.Classes {
		count := votes[class]
		proba[i] = decimal.NewFromInt(int64(count)).Div(totalVotes)
	}

	return proba
}
