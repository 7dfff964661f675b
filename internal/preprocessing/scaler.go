package preprocessing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
)

// Scaler rescales tabular feature collections. Supported types are
// "minmax", "standard" and "none" (passthrough).
type Scaler struct {
	ScaleType   string
	IsFitted    bool
	FeatureMin  []decimal.Decimal
	FeatureMax  []decimal.Decimal
	FeatureMean []decimal.Decimal
	FeatureStd  []decimal.Decimal
}

func NewScaler(scaleType string) *Scaler {
	return &Scaler{
		ScaleType: scaleType,
		IsFitted:  false,
	}
}

func (s *Scaler) GetName() string {
	return "Scaler"
}

func (s *Scaler) GetParams() map[string]any {
	return map[string]any{"scaling": s.ScaleType}
}

func (s *Scaler) SetParams(params map[string]any) error {
	scaleType, err := estimator.StringParam(params, "scaling", s.ScaleType)
	if err != nil {
		return err
	}

	switch scaleType {
	case "minmax", "standard", "none":
		s.ScaleType = scaleType
		return nil
	default:
		return fmt.Errorf("unknown scale type: %s", scaleType)
	}
}

func (s *Scaler) Clone() estimator.Estimator {
	return NewScaler(s.ScaleType)
}

func (s *Scaler) Fit(X *data.Collection, y []int) error {
	features, err := X.FeatureMatrix()
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return fmt.Errorf("empty dataset")
	}

	nFeatures := len(features[0])
	s.FeatureMin = make([]decimal.Decimal, nFeatures)
	s.FeatureMax = make([]decimal.Decimal, nFeatures)
	s.FeatureMean = make([]decimal.Decimal, nFeatures)
	s.FeatureStd = make([]decimal.Decimal, nFeatures)

	switch s.ScaleType {
	case "minmax":
		s.fitMinMax(features)
	case "standard":
		s.fitStandard(features)
	case "none":
	default:
		return fmt.Errorf("unknown scale type: %s", s.ScaleType)
	}

	s.IsFitted = true
	return nil
}

func (s *Scaler) Transform(X *data.Collection) (*data.Collection, error) {
	if !s.IsFitted {
		return nil, fmt.Errorf("scaler must be fitted before transform")
	}

	features, err := X.FeatureMatrix()
	if err != nil {
		return nil, err
	}

	result := make([][]decimal.Decimal, len(features))
	for i := range features {
		result[i] = make([]decimal.Decimal, len(features[i]))
		for j := range features[i] {
			switch s.ScaleType {
			case "minmax":
				result[i][j] = s.transformMinMax(features[i][j], j)
			case "standard":
				result[i][j] = s.transformStandard(features[i][j], j)
			default:
				result[i][j] = features[i][j]
			}
		}
	}

	return data.FromFeatures(result), nil
}

func (s *Scaler) fitMinMax(X [][]decimal.Decimal) {
	nFeatures := len(X[0])

	for j := 0; j < nFeatures; j++ {
		s.FeatureMin[j] = X[0][j]
		s.FeatureMax[j] = X[0][j]

		for i := 1; i < len(X); i++ {
			if X[i][j].LessThan(s.FeatureMin[j]) {
				s.FeatureMin[j] = X[i][j]
			}
			if X[i][j].GreaterThan(s.FeatureMax[j]) {
				s.FeatureMax[j] = X[i][j]
			}
		}
	}
}

func (s *Scaler) fitStandard(X [][]decimal.Decimal) {
	nFeatures := len(X[0])
	nSamples := decimal.NewFromInt(int64(len(X)))

	for j := 0; j < nFeatures; j++ {
		sum := decimal.Zero
		for i := 0; i < len(X); i++ {
			sum = sum.Add(X[i][j])
		}
		s.FeatureMean[j] = sum.Div(nSamples)
	}

	for j := 0; j < nFeatures; j++ {
		variance := decimal.Zero
		for i := 0; i < len(X); i++ {
			diff := X[i][j].Sub(s.FeatureMean[j])
			variance = variance.Add(diff.Mul(diff))
		}
		variance = variance.Div(nSamples)

		varFloat, _ := variance.Float64()
		stdFloat := math.Sqrt(varFloat)
		s.FeatureStd[j] = decimal.NewFromFloat(stdFloat)

		if s.FeatureStd[j].IsZero() {
			s.FeatureStd[j] = decimal.NewFromInt(1)
		}
	}
}

func (s *Scaler) transformMinMax(value decimal.Decimal, featureIndex int) decimal.Decimal {
	span := s.FeatureMax[featureIndex].Sub(s.FeatureMin[featureIndex])
	if span.IsZero() {
		return decimal.Zero
	}
	return value.Sub(s.FeatureMin[featureIndex]).Div(span)
}

func (s *Scaler) transformStandard(value decimal.Decimal, featureIndex int) decimal.Decimal {
	return value.Sub(s.FeatureMean[featureIndex]).Div(s.FeatureStd[featureIndex])
}
