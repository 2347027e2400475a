package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LinearRegressor is an ordinary least-squares fit with an intercept.
type LinearRegressor struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (r *LinearRegressor) Fitted() bool {
	return r != nil && len(r.Coef) > 0
}

func (r *LinearRegressor) Fit(X [][]float64, y []float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	if len(y) != len(X) {
		return fmt.Errorf("got %d targets for %d rows: %w", len(y), len(X), ErrDimension)
	}

	// Column 0 is the intercept.
	design := mat.NewDense(len(X), width+1, nil)
	for i, row := range X {
		design.Set(i, 0, 1)
		for j, v := range row {
			design.Set(i, j+1, v)
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return fmt.Errorf("solve least squares: %w", err)
	}
	params := beta.RawVector().Data
	r.Intercept = params[0]
	r.Coef = append([]float64(nil), params[1:]...)
	return nil
}

func (r *LinearRegressor) Predict(x []float64) (float64, error) {
	if !r.Fitted() {
		return 0, ErrNotFitted
	}
	if len(x) != len(r.Coef) {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(x), len(r.Coef), ErrDimension)
	}
	return floats.Dot(r.Coef, x) + r.Intercept, nil
}
