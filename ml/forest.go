package ml

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const eulerGamma = 0.5772156649015329

// IsolationForest scores samples by how quickly random axis-aligned splits
// isolate them. Short average paths mean anomalies.
type IsolationForest struct {
	NEstimators int    `json:"n_estimators"`
	MaxSamples  int    `json:"max_samples"`
	Seed        int64  `json:"seed"`
	SampleSize  int    `json:"sample_size"`
	NFeatures   int    `json:"n_features"`
	Trees       []Tree `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left >= 0, otherwise a leaf holding Size samples.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Size      int     `json:"s"`
}

func NewIsolationForest(nEstimators, maxSamples int, seed int64) *IsolationForest {
	return &IsolationForest{NEstimators: nEstimators, MaxSamples: maxSamples, Seed: seed}
}

func (f *IsolationForest) Fitted() bool {
	return f != nil && len(f.Trees) > 0
}

func (f *IsolationForest) Fit(X [][]float64) error {
	width, err := checkMatrix(X)
	if err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		return fmt.Errorf("n_estimators must be positive, got %d", f.NEstimators)
	}

	f.SampleSize = len(X)
	if f.MaxSamples > 0 && f.MaxSamples < f.SampleSize {
		f.SampleSize = f.MaxSamples
	}
	f.NFeatures = width
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(f.SampleSize), 2))))

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]Tree, f.NEstimators)
	for t := range f.Trees {
		idx := rng.Perm(len(X))[:f.SampleSize]
		b := treeBuilder{X: X, rng: rng, maxDepth: maxDepth, width: width}
		b.build(idx, 0)
		f.Trees[t] = Tree{Nodes: b.nodes}
	}
	return nil
}

type treeBuilder struct {
	X        [][]float64
	rng      *rand.Rand
	maxDepth int
	width    int
	nodes    []Node
}

func (b *treeBuilder) build(idx []int, depth int) int {
	pos := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1, Size: len(idx)})
	if depth >= b.maxDepth || len(idx) <= 1 {
		return pos
	}

	feature := b.rng.Intn(b.width)
	col := make([]float64, len(idx))
	for i, row := range idx {
		col[i] = b.X[row][feature]
	}
	lo, hi := floats.Min(col), floats.Max(col)
	if lo == hi {
		return pos
	}
	threshold := lo + b.rng.Float64()*(hi-lo)

	var left, right []int
	for _, row := range idx {
		if b.X[row][feature] < threshold {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[pos] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Size: len(idx)}
	return pos
}

func (t Tree) pathLength(x []float64) float64 {
	depth, i := 0, 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return float64(depth) + averagePathLength(n.Size)
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
		depth++
	}
}

// ScoreSample returns -2^(-E[h(x)]/c(n)). Values near -1 are anomalous and
// values near -0.5 or above are normal.
func (f *IsolationForest) ScoreSample(x []float64) (float64, error) {
	if !f.Fitted() {
		return 0, ErrNotFitted
	}
	if len(x) != f.NFeatures {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(x), f.NFeatures, ErrDimension)
	}
	var total float64
	for _, t := range f.Trees {
		total += t.pathLength(x)
	}
	mean := total / float64(len(f.Trees))
	return -math.Pow(2, -mean/averagePathLength(f.SampleSize)), nil
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// ScoreToPercent maps a sample score onto 0-100 as clamp((1-|s|)*100).
func ScoreToPercent(score float64) float64 {
	return math.Min(100, math.Max(0, (1-math.Abs(score))*100))
}
