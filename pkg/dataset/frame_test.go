package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnQuantile(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{4, 1, 3, 2}))

	col, ok := f.Column("x")
	require.True(t, ok)

	assert.InDelta(t, 1.75, col.Quantile(0.25), 1e-9)
	assert.InDelta(t, 2.5, col.Quantile(0.5), 1e-9)
	assert.InDelta(t, 3.25, col.Quantile(0.75), 1e-9)
	assert.Equal(t, 1.0, col.Min())
	assert.Equal(t, 4.0, col.Max())
}

func TestColumnQuantileIgnoresMissing(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{1, math.NaN(), 3}))

	col, _ := f.Column("x")
	assert.InDelta(t, 2.0, col.Median(), 1e-9)
}

func TestColumnModeDeterministicTieBreak(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddCategorical("c", []string{"b", "a", "a", "b", ""}))

	col, _ := f.Column("c")
	// a and b both appear twice; the smaller wins.
	assert.Equal(t, "a", col.Mode())
}

func TestFrameFilterAndDrop(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{1, 2, 3}))
	require.NoError(t, f.AddCategorical("c", []string{"a", "b", "c"}))

	f.Filter([]bool{true, false, true})
	assert.Equal(t, 2, f.Rows())

	col, _ := f.Column("x")
	assert.Equal(t, []float64{1, 3}, col.Nums)

	f.Drop("c", "does-not-exist")
	assert.False(t, f.Has("c"))
	assert.True(t, f.Has("x"))
}

func TestFrameRejectsMismatchedColumns(t *testing.T) {
	f := NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{1, 2}))
	assert.Error(t, f.AddNumeric("y", []float64{1}))
	assert.Error(t, f.AddNumeric("x", []float64{3, 4}))
}

func TestSplitIsDeterministic(t *testing.T) {
	f := NewFrame()
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	require.NoError(t, f.AddNumeric("x", vals))

	train1, test1 := Split(f, 0.2, 42)
	train2, test2 := Split(f, 0.2, 42)

	assert.Equal(t, 80, train1.Rows())
	assert.Equal(t, 20, test1.Rows())

	c1, _ := train1.Column("x")
	c2, _ := train2.Column("x")
	assert.Equal(t, c1.Nums, c2.Nums)

	t1, _ := test1.Column("x")
	t2, _ := test2.Column("x")
	assert.Equal(t, t1.Nums, t2.Nums)
}

func TestSplitSeparatesRows(t *testing.T) {
	f := NewFrame()
	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = float64(i)
	}
	require.NoError(t, f.AddNumeric("x", vals))

	train, test := Split(f, 0.2, 7)

	seen := make(map[float64]bool)
	trainCol, _ := train.Column("x")
	for _, v := range trainCol.Nums {
		seen[v] = true
	}
	testCol, _ := test.Column("x")
	for _, v := range testCol.Nums {
		assert.False(t, seen[v], "row %v appears in both partitions", v)
	}
	assert.Equal(t, 50, train.Rows()+test.Rows())
}
