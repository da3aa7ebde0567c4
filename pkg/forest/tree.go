// Package forest implements a random-forest regressor: CART trees grown on
// bootstrap samples with per-split random feature subsets, aggregated by
// mean. Training is deterministic under a fixed seed.
package forest

import (
	"math"
	"math/rand"
	"sort"
)

// node is a binary regression tree node. Leaves have Left == nil.
type node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Value     float64 `json:"value"`
	Left      *node   `json:"left,omitempty"`
	Right     *node   `json:"right,omitempty"`
}

func (n *node) predict(x []float64) float64 {
	for n.Left != nil {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// treeParams bound tree growth.
type treeParams struct {
	maxDepth    int // 0 means unlimited
	minLeaf     int
	maxFeatures int // features sampled per split
}

// growTree builds a tree over the sample rows (indices into X).
func growTree(X [][]float64, y []float64, rows []int, params treeParams, rng *rand.Rand) *node {
	return grow(X, y, rows, params, rng, 0)
}

func grow(X [][]float64, y []float64, rows []int, params treeParams, rng *rand.Rand, depth int) *node {
	leaf := &node{Value: mean(y, rows)}
	if len(rows) < 2*params.minLeaf {
		return leaf
	}
	if params.maxDepth > 0 && depth >= params.maxDepth {
		return leaf
	}
	if pureTarget(y, rows) {
		return leaf
	}

	feature, threshold, ok := bestSplit(X, y, rows, params, rng)
	if !ok {
		return leaf
	}

	left := make([]int, 0, len(rows))
	right := make([]int, 0, len(rows))
	for _, i := range rows {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < params.minLeaf || len(right) < params.minLeaf {
		return leaf
	}

	return &node{
		Feature:   feature,
		Threshold: threshold,
		Value:     leaf.Value,
		Left:      grow(X, y, left, params, rng, depth+1),
		Right:     grow(X, y, right, params, rng, depth+1),
	}
}

// bestSplit scans a random feature subset for the threshold with the largest
// weighted variance reduction.
func bestSplit(X [][]float64, y []float64, rows []int, params treeParams, rng *rand.Rand) (int, float64, bool) {
	d := len(X[rows[0]])
	features := rng.Perm(d)
	if params.maxFeatures > 0 && params.maxFeatures < d {
		features = features[:params.maxFeatures]
	}

	bestScore := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(rows))
	for _, feature := range features {
		copy(order, rows)
		f := feature
		sort.Slice(order, func(a, b int) bool {
			return X[order[a]][f] < X[order[b]][f]
		})

		// Prefix sums over the sorted order allow O(1) variance of each cut.
		var leftSum, leftSq float64
		totalSum, totalSq := sums(y, order)

		for k := 0; k < len(order)-1; k++ {
			v := y[order[k]]
			leftSum += v
			leftSq += v * v

			cur := X[order[k]][f]
			next := X[order[k+1]][f]
			if cur == next {
				continue
			}
			nl := float64(k + 1)
			nr := float64(len(order) - k - 1)
			if int(nl) < params.minLeaf || int(nr) < params.minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			score := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func sums(y []float64, rows []int) (sum, sq float64) {
	for _, i := range rows {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sum, sq
}

func mean(y []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, i := range rows {
		sum += y[i]
	}
	return sum / float64(len(rows))
}

func pureTarget(y []float64, rows []int) bool {
	first := y[rows[0]]
	for _, i := range rows[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}
