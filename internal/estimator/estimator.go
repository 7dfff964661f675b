package estimator

import (
	"sort"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
)

// Estimator is anything that can be fitted to a sample collection. Clone
// must return a fresh, unfitted instance carrying the same parameters, so
// that grid search and cross-validation never leak fitted state between
// candidates or folds.
type Estimator interface {
	Fit(X *data.Collection, y []int) error
	GetName() string
	GetParams() map[string]any
	SetParams(params map[string]any) error
	Clone() Estimator
}

// Transformer is a preprocessing step: fit, then map one collection to
// another.
type Transformer interface {
	Estimator
	Transform(X *data.Collection) (*data.Collection, error)
}

// Classifier is a terminal pipeline step.
type Classifier interface {
	Estimator
	Predict(X *data.Collection) ([]int, error)
	PredictProba(X *data.Collection) ([][]decimal.Decimal, error)
	GetClasses() []int
}

// FitTransform fits a transformer and applies it to the same collection.
func FitTransform(t Transformer, X *data.Collection, y []int) (*data.Collection, error) {
	if err := t.Fit(X, y); err != nil {
		return nil, err
	}
	return t.Transform(X)
}

type BaseModel struct {
	Name    string
	Params  map[string]any
	Classes []int
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
	return bm.Params
}

func (bm *BaseModel) GetClasses() []int {
	return bm.Classes
}

// ExtractClasses returns the distinct labels in ascending order, so that
// probability columns line up deterministically across fitted models.
func ExtractClasses(y []int) []int {
	classMap := make(map[int]bool)
	for _, label := range y {
		classMap[label] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)

	return classes
}
