package ml

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// CentroidClassifier assigns a sample to the class whose training mean is
// nearest in Euclidean distance.
type CentroidClassifier struct {
	Classes   []int       `json:"classes"`
	Centroids [][]float64 `json:"centroids"`
}

func (c *CentroidClassifier) Fitted() bool {
	return c != nil && len(c.Classes) > 0
}

func (c *CentroidClassifier) Fit(X [][]float64, y []int) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	if len(y) != len(X) {
		return fmt.Errorf("got %d labels for %d rows: %w", len(y), len(X), ErrDimension)
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, row := range X {
		sum, ok := sums[y[i]]
		if !ok {
			sum = make([]float64, width)
			sums[y[i]] = sum
		}
		floats.Add(sum, row)
		counts[y[i]]++
	}

	c.Classes = c.Classes[:0]
	for label := range sums {
		c.Classes = append(c.Classes, label)
	}
	sort.Ints(c.Classes)

	c.Centroids = make([][]float64, len(c.Classes))
	for i, label := range c.Classes {
		floats.Scale(1/float64(counts[label]), sums[label])
		c.Centroids[i] = sums[label]
	}
	return nil
}

func (c *CentroidClassifier) Predict(x []float64) (int, error) {
	if !c.Fitted() {
		return 0, ErrNotFitted
	}
	if len(x) != len(c.Centroids[0]) {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(x), len(c.Centroids[0]), ErrDimension)
	}
	best, bestDist := c.Classes[0], math.Inf(1)
	for i, centroid := range c.Centroids {
		if d := floats.Distance(centroid, x, 2); d < bestDist {
			best, bestDist = c.Classes[i], d
		}
	}
	return best, nil
}
