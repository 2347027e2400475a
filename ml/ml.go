// Package ml holds the small estimators behind the training endpoints: a
// standard scaler, a least-squares regressor, a nearest-centroid classifier
// and an isolation forest. All of them serialize to JSON artifacts.
package ml

import (
	"errors"
	"fmt"
)

var (
	ErrNotFitted = errors.New("estimator has not been fitted")
	ErrDimension = errors.New("feature dimension mismatch")
	ErrEmpty     = errors.New("training set is empty")
)

// checkMatrix reports the shared row width of X.
func checkMatrix(X [][]float64) (int, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return 0, ErrEmpty
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), width, ErrDimension)
		}
	}
	return width, nil
}
