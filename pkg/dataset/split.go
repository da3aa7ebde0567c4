package dataset

import (
	"math/rand"
)

// Split shuffles rows with the given seed and cuts off the final testFraction
// as the holdout set. The same seed always produces the same partition.
func Split(f *Frame, testFraction float64, seed int64) (train, test *Frame) {
	n := f.Rows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})

	testSize := int(float64(n) * testFraction)
	if testSize < 1 && n > 1 && testFraction > 0 {
		testSize = 1
	}
	cut := n - testSize

	return f.Select(indices[:cut]), f.Select(indices[cut:])
}
