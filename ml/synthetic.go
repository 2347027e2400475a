package ml

import "math/rand"

// UniformMatrix draws an n x d matrix from U[0,1).
func UniformMatrix(rng *rand.Rand, n, d int) [][]float64 {
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, d)
		for j := range X[i] {
			X[i][j] = rng.Float64()
		}
	}
	return X
}

// UniformInts draws n integers from [0, hi).
func UniformInts(rng *rand.Rand, n, hi int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rng.Intn(hi)
	}
	return out
}
