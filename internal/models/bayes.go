package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// GaussianNB is a Gaussian naive Bayes classifier computed in log space.
type GaussianNB struct {
	estimator.BaseModel
	ClassLogPriors map[int]float64
	FeatureMeans   map[int][]decimal.Decimal
	FeatureVars    map[int][]decimal.Decimal
	VarSmoothing   decimal.Decimal
}

func NewGaussianNB(varSmoothing float64) *GaussianNB {
	if varSmoothing <= 0 {
		varSmoothing = 1e-9
	}

	return &GaussianNB{
		VarSmoothing: decimal.NewFromFloat(varSmoothing),
		BaseModel: estimator.BaseModel{
			Name: "GaussianNB",
			Params: map[string]any{
				"var_smoothing": varSmoothing,
			},
		},
	}
}

func (nb *GaussianNB) SetParams(params map[string]any) error {
	current, _ := nb.VarSmoothing.Float64()
	smoothing, err := estimator.FloatParam(params, "var_smoothing", current)
	if err != nil {
		return err
	}
	if smoothing <= 0 {
		return fmt.Errorf("var_smoothing must be positive, got %g", smoothing)
	}

	nb.VarSmoothing = decimal.NewFromFloat(smoothing)
	nb.Params = map[string]any{"var_smoothing": smoothing}
	return nil
}

func (nb *GaussianNB) Clone() estimator.Estimator {
	smoothing, _ := nb.VarSmoothing.Float64()
	return NewGaussianNB(smoothing)
}

func (nb *GaussianNB) Fit(X *data.Collection, y []int) error {
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

	nb.Classes = estimator.ExtractClasses(y)
	nFeatures := len(features[0])

	nb.ClassLogPriors = make(map[int]float64)
	nb.FeatureMeans = make(map[int][]decimal.Decimal)
	nb.FeatureVars = make(map[int][]decimal.Decimal)

	for _, class := range nb.Classes {
		classData := [][]decimal.Decimal{}
		for i, label := range y {
			if label == class {
				classData = append(classData, features[i])
			}
		}

		if len(classData) == 0 {
			return fmt.Errorf("class %d has no samples", class)
		}

		nb.ClassLogPriors[class] = math.Log(float64(len(classData)) / float64(len(y)))

		nb.FeatureMeans[class] = make([]decimal.Decimal, nFeatures)
		nb.FeatureVars[class] = make([]decimal.Decimal, nFeatures)

		for j := 0; j < nFeatures; j++ {
			sum := decimal.Zero
			for _, row := range classData {
				sum = sum.Add(row[j])
			}
			mean := sum.Div(decimal.NewFromInt(int64(len(classData))))
			nb.FeatureMeans[class][j] = mean

			variance := decimal.Zero
			for _, row := range classData {
				diff := row[j].Sub(mean)
				variance = variance.Add(diff.Mul(diff))
			}
			variance = variance.Div(decimal.NewFromInt(int64(len(classData))))
			nb.FeatureVars[class][j] = variance.Add(nb.VarSmoothing)
		}
	}

	return nil
}

func (nb *GaussianNB) logGaussianPDF(x, mean, variance decimal.Decimal) float64 {
	if variance.IsZero() {
		variance = nb.VarSmoothing
	}

	xFloat, _ := x.Float64()
	meanFloat, _ := mean.Float64()
	varFloat, _ := variance.Float64()

	logTwoPiVar := math.Log(2 * math.Pi * varFloat)
	diff := xFloat - meanFloat
	exponent := -(diff * diff) / (2 * varFloat)

	return -0.5*logTwoPiVar + exponent
}

func (nb *GaussianNB) Predict(X *data.Collection) ([]int, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if nb.ClassLogPriors == nil {
		return nil, fmt.Errorf("GaussianNB must be fitted before predict")
	}

	predictions := make([]int, len(features))

	for i, sample := range features {
		maxLogProb := math.Inf(-1)
		bestClass := nb.Classes[0]

		for _, class := range nb.Classes {
			logProb := nb.ClassLogPriors[class]
			for j, feature := range sample {
				logProb += nb.logGaussianPDF(
					feature,
					nb.FeatureMeans[class][j],
					nb.FeatureVars[class][j],
				)
			}

			if logProb > maxLogProb {
				maxLogProb = logProb
				bestClass = class
			}
		}

		predictions[i] = bestClass
	}

	return predictions, nil
}

func (nb *GaussianNB) PredictProba(X *data.Collection) ([][]decimal.Decimal, error) {
	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}
	if nb.ClassLogPriors == nil {
		return nil, fmt.Errorf("GaussianNB must be fitted before predict")
	}

	proba := make([][]decimal.Decimal, len(features))

	for i, sample := range features {
		logProbs := make([]float64, len(nb.Classes))

		for k, class := range nb.Classes {
			logProb := nb.ClassLogPriors[class]
			for j, feature := range sample {
				logProb += nb.logGaussianPDF(
					feature,
					nb.FeatureMeans[class][j],
					nb.FeatureVars[class][j],
				)
			}
			logProbs[k] = logProb
		}

		maxLogProb := logProbs[0]
		for _, lp := range logProbs[1:] {
			if lp > maxLogProb {
				maxLogProb = lp
			}
		}

		sumExp := 0.0
		for _, lp := range logProbs {
			sumExp += math.Exp(lp - maxLogProb)
		}

		proba[i] = make([]decimal.Decimal, len(nb.Classes))
		for j, lp := range logProbs {
			prob := math.Exp(lp-maxLogProb) / sumExp
			proba[i][j] = decimal.NewFromFloat(prob)
		}
	}

	return proba, nil
}
