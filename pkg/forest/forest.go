package forest

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// Config controls forest training.
type Config struct {
	Trees    int     `json:"trees"`
	MaxDepth int     `json:"max_depth"` // 0 = unlimited
	MinLeaf  int     `json:"min_leaf"`
	// FeatureFraction is the share of features sampled per split.
	// 0 selects the sqrt(d) heuristic.
	FeatureFraction float64 `json:"feature_fraction"`
	Seed            int64   `json:"seed"`
}

// DefaultConfig mirrors the usual regression-forest defaults.
func DefaultConfig() Config {
	return Config{
		Trees:   100,
		MinLeaf: 2,
		Seed:    42,
	}
}

// Regressor is a trained random forest.
type Regressor struct {
	Features []string `json:"features"`
	Cfg      Config   `json:"config"`
	Trees    []*node  `json:"trees"`
}

// Train grows the forest on the feature matrix X and target y. The feature
// name list is retained so callers can verify vector layout later.
func Train(X [][]float64, y []float64, features []string, cfg Config) (*Regressor, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("training data has %d rows and %d targets", len(X), len(y))
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("forest needs at least one tree, got %d", cfg.Trees)
	}
	if cfg.MinLeaf <= 0 {
		cfg.MinLeaf = 1
	}
	d := len(X[0])
	if d == 0 {
		return nil, fmt.Errorf("training data has no features")
	}
	if len(features) != d {
		return nil, fmt.Errorf("feature names (%d) do not match matrix width (%d)", len(features), d)
	}

	maxFeatures := int(cfg.FeatureFraction * float64(d))
	if cfg.FeatureFraction <= 0 {
		maxFeatures = int(math.Sqrt(float64(d)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > d {
		maxFeatures = d
	}

	params := treeParams{
		maxDepth:    cfg.MaxDepth,
		minLeaf:     cfg.MinLeaf,
		maxFeatures: maxFeatures,
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	trees := make([]*node, cfg.Trees)
	n := len(X)
	for t := 0; t < cfg.Trees; t++ {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		trees[t] = growTree(X, y, rows, params, rng)
	}

	return &Regressor{
		Features: append([]string(nil), features...),
		Cfg:      cfg,
		Trees:    trees,
	}, nil
}

// Predict returns the mean prediction over all trees.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if len(x) != len(r.Features) {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(x), len(r.Features))
	}
	var sum float64
	for _, t := range r.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(r.Trees)), nil
}

// Evaluate computes mean absolute error and R² over a holdout set.
func (r *Regressor) Evaluate(X [][]float64, y []float64) (mae, r2 float64, err error) {
	if len(X) == 0 || len(X) != len(y) {
		return 0, 0, fmt.Errorf("evaluation data has %d rows and %d targets", len(X), len(y))
	}

	var yMean float64
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(len(y))

	var absSum, ssRes, ssTot float64
	for i, x := range X {
		pred, perr := r.Predict(x)
		if perr != nil {
			return 0, 0, perr
		}
		diff := pred - y[i]
		absSum += math.Abs(diff)
		ssRes += diff * diff
		ssTot += (y[i] - yMean) * (y[i] - yMean)
	}

	mae = absSum / float64(len(y))
	if ssTot == 0 {
		return mae, 0, nil
	}
	return mae, 1 - ssRes/ssTot, nil
}

// Save writes the forest to path as JSON.
func (r *Regressor) Save(path string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model snapshot: %w", err)
	}
	return nil
}

// Load reads a forest previously written by Save.
func Load(path string) (*Regressor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model snapshot: %w", err)
	}
	var r Regressor
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode model snapshot: %w", err)
	}
	if len(r.Trees) == 0 {
		return nil, fmt.Errorf("model snapshot %s contains no trees", path)
	}
	return &r, nil
}
