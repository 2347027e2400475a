package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature on its mean and divides by its
// population standard deviation. Constant features keep a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Fitted() bool {
	return s != nil && len(s.Mean) > 0
}

func (s *StandardScaler) Fit(X [][]float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	m := toDense(X)
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)
	col := make([]float64, len(X))
	for j := 0; j < width; j++ {
		mat.Col(col, j, m)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("got %d features, want %d: %w", len(x), len(s.Mean), ErrDimension)
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

func toDense(X [][]float64) *mat.Dense {
	rows, cols := len(X), len(X[0])
	data := make([]float64, 0, rows*cols)
	for _, row := range X {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}
