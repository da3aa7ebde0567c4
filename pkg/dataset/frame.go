// Package dataset provides a small column-oriented frame for tabular loan
// data, a CSV loader, and a seeded train/test split.
package dataset

import (
	"fmt"
	"math"
	"sort"
)

// ColumnType distinguishes numeric columns from categorical ones.
type ColumnType int

const (
	Numeric ColumnType = iota
	Categorical
)

// Column holds a single named column. Numeric columns mark missing values
// with NaN, categorical columns with the empty string.
type Column struct {
	Name string
	Type ColumnType
	Nums []float64
	Cats []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Type == Numeric {
		return len(c.Nums)
	}
	return len(c.Cats)
}

// IsMissing reports whether the value at row i is missing.
func (c *Column) IsMissing(i int) bool {
	if c.Type == Numeric {
		return math.IsNaN(c.Nums[i])
	}
	return c.Cats[i] == ""
}

// present returns the sorted non-missing numeric values.
func (c *Column) present() []float64 {
	vals := make([]float64, 0, len(c.Nums))
	for _, v := range c.Nums {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)
	return vals
}

// Quantile returns the q-quantile (0 <= q <= 1) of the non-missing values,
// using linear interpolation between order statistics. NaN when empty.
func (c *Column) Quantile(q float64) float64 {
	vals := c.present()
	if len(vals) == 0 {
		return math.NaN()
	}
	if len(vals) == 1 {
		return vals[0]
	}
	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo] + frac*(vals[hi]-vals[lo])
}

// Median returns the median of the non-missing values.
func (c *Column) Median() float64 {
	return c.Quantile(0.5)
}

// Min returns the smallest non-missing value, NaN when empty.
func (c *Column) Min() float64 {
	vals := c.present()
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[0]
}

// Max returns the largest non-missing value, NaN when empty.
func (c *Column) Max() float64 {
	vals := c.present()
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

// Mode returns the most frequent non-missing category. Ties break toward the
// lexicographically smallest value so imputation is deterministic.
func (c *Column) Mode() string {
	counts := make(map[string]int)
	for _, v := range c.Cats {
		if v != "" {
			counts[v]++
		}
	}
	best := ""
	bestCount := 0
	for v, n := range counts {
		if n > bestCount || (n == bestCount && (best == "" || v < best)) {
			best = v
			bestCount = n
		}
	}
	return best
}

// Categories returns the sorted set of distinct non-missing categories.
func (c *Column) Categories() []string {
	seen := make(map[string]bool)
	for _, v := range c.Cats {
		if v != "" {
			seen[v] = true
		}
	}
	cats := make([]string, 0, len(seen))
	for v := range seen {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return cats
}

// Frame is an ordered collection of equally sized columns.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// NewFrame creates an empty frame.
func NewFrame() *Frame {
	return &Frame{index: make(map[string]int)}
}

// Rows returns the row count.
func (f *Frame) Rows() int {
	return f.rows
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Has reports whether every named column exists.
func (f *Frame) Has(names ...string) bool {
	for _, name := range names {
		if _, ok := f.index[name]; !ok {
			return false
		}
	}
	return true
}

// AddNumeric appends a numeric column.
func (f *Frame) AddNumeric(name string, vals []float64) error {
	return f.add(&Column{Name: name, Type: Numeric, Nums: vals})
}

// AddCategorical appends a categorical column.
func (f *Frame) AddCategorical(name string, vals []string) error {
	return f.add(&Column{Name: name, Type: Categorical, Cats: vals})
}

func (f *Frame) add(col *Column) error {
	if _, exists := f.index[col.Name]; exists {
		return fmt.Errorf("duplicate column: %s", col.Name)
	}
	if len(f.cols) > 0 && col.Len() != f.rows {
		return fmt.Errorf("column %s has %d rows, frame has %d", col.Name, col.Len(), f.rows)
	}
	f.rows = col.Len()
	f.index[col.Name] = len(f.cols)
	f.cols = append(f.cols, col)
	return nil
}

// Drop removes the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := make([]*Column, 0, len(f.cols))
	index := make(map[string]int)
	for _, c := range f.cols {
		if drop[c.Name] {
			continue
		}
		index[c.Name] = len(kept)
		kept = append(kept, c)
	}
	f.cols = kept
	f.index = index
	if len(f.cols) == 0 {
		f.rows = 0
	}
}

// Filter keeps only the rows where keep[i] is true.
func (f *Frame) Filter(keep []bool) {
	if len(keep) != f.rows {
		return
	}
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	for _, c := range f.cols {
		if c.Type == Numeric {
			vals := make([]float64, 0, kept)
			for i, k := range keep {
				if k {
					vals = append(vals, c.Nums[i])
				}
			}
			c.Nums = vals
		} else {
			vals := make([]string, 0, kept)
			for i, k := range keep {
				if k {
					vals = append(vals, c.Cats[i])
				}
			}
			c.Cats = vals
		}
	}
	f.rows = kept
}

// Select returns a new frame containing the rows at the given indices.
func (f *Frame) Select(indices []int) *Frame {
	out := NewFrame()
	for _, c := range f.cols {
		if c.Type == Numeric {
			vals := make([]float64, len(indices))
			for j, i := range indices {
				vals[j] = c.Nums[i]
			}
			out.AddNumeric(c.Name, vals)
		} else {
			vals := make([]string, len(indices))
			for j, i := range indices {
				vals[j] = c.Cats[i]
			}
			out.AddCategorical(c.Name, vals)
		}
	}
	return out
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame()
	for _, c := range f.cols {
		if c.Type == Numeric {
			out.AddNumeric(c.Name, append([]float64(nil), c.Nums...))
		} else {
			out.AddCategorical(c.Name, append([]string(nil), c.Cats...))
		}
	}
	return out
}
