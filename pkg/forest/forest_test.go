package forest

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainRejectsBadInput(t *testing.T) {
	_, err := Train(nil, nil, nil, DefaultConfig())
	assert.Error(t, err)

	_, err = Train([][]float64{{1}}, []float64{1, 2}, []string{"x"}, DefaultConfig())
	assert.Error(t, err)

	_, err = Train([][]float64{{1}}, []float64{1}, []string{"x", "y"}, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Trees = 0
	_, err = Train([][]float64{{1}}, []float64{1}, []string{"x"}, cfg)
	assert.Error(t, err)
}

func TestConstantTargetPredictsConstant(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}

	model, err := Train(X, y, []string{"x"}, Config{Trees: 10, MinLeaf: 1, Seed: 1})
	require.NoError(t, err)

	pred, err := model.Predict([]float64{2.5})
	require.NoError(t, err)
	assert.InDelta(t, 7, pred, 1e-9)
}

func TestForestLearnsStepFunction(t *testing.T) {
	// y jumps from 10 to 50 at x=0.5; a forest should separate the regimes.
	rng := rand.New(rand.NewSource(3))
	var X [][]float64
	var y []float64
	for i := 0; i < 200; i++ {
		x := rng.Float64()
		X = append(X, []float64{x})
		if x < 0.5 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}

	model, err := Train(X, y, []string{"x"}, Config{Trees: 30, MinLeaf: 2, Seed: 9})
	require.NoError(t, err)

	low, err := model.Predict([]float64{0.1})
	require.NoError(t, err)
	high, err := model.Predict([]float64{0.9})
	require.NoError(t, err)

	assert.InDelta(t, 10, low, 5)
	assert.InDelta(t, 50, high, 5)
}

func TestForestApproximatesLinearTrend(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var X [][]float64
	var y []float64
	for i := 0; i < 300; i++ {
		a := rng.Float64()
		b := rng.Float64()
		X = append(X, []float64{a, b})
		y = append(y, 100*a+20*b)
	}

	cfg := Config{Trees: 50, MinLeaf: 2, FeatureFraction: 1, Seed: 5}
	model, err := Train(X, y, []string{"a", "b"}, cfg)
	require.NoError(t, err)

	mae, r2, err := model.Evaluate(X, y)
	require.NoError(t, err)
	assert.Less(t, mae, 10.0)
	assert.Greater(t, r2, 0.9)
}

func TestTrainingIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	var X [][]float64
	var y []float64
	for i := 0; i < 100; i++ {
		x := rng.Float64()
		X = append(X, []float64{x})
		y = append(y, math.Sin(x*6))
	}

	cfg := Config{Trees: 20, MinLeaf: 2, Seed: 77}
	m1, err := Train(X, y, []string{"x"}, cfg)
	require.NoError(t, err)
	m2, err := Train(X, y, []string{"x"}, cfg)
	require.NoError(t, err)

	for _, input := range []float64{0.1, 0.33, 0.5, 0.78} {
		p1, err := m1.Predict([]float64{input})
		require.NoError(t, err)
		p2, err := m2.Predict([]float64{input})
		require.NoError(t, err)
		assert.Equal(t, p1, p2)
	}
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	model, err := Train([][]float64{{1, 2}, {3, 4}}, []float64{1, 2}, []string{"a", "b"}, Config{Trees: 5, MinLeaf: 1, Seed: 1})
	require.NoError(t, err)

	_, err = model.Predict([]float64{1})
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	X := [][]float64{{0}, {0.2}, {0.4}, {0.6}, {0.8}, {1}}
	y := []float64{0, 2, 4, 6, 8, 10}

	model, err := Train(X, y, []string{"x"}, Config{Trees: 15, MinLeaf: 1, Seed: 4})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Features, loaded.Features)

	for _, input := range []float64{0.15, 0.55, 0.95} {
		p1, err := model.Predict([]float64{input})
		require.NoError(t, err)
		p2, err := loaded.Predict([]float64{input})
		require.NoError(t, err)
		assert.Equal(t, p1, p2)
	}
}

func TestLoadRejectsEmptySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, (&Regressor{Features: []string{"x"}}).Save(path))

	_, err := Load(path)
	assert.Error(t, err)
}
