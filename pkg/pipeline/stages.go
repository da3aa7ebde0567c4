package pipeline

import (
	"fmt"
	"math"

	"loanpilot/pkg/dataset"
)

// Stage is one step of the preprocessing pipeline. Fit learns from the
// training frame and transforms it in place; Apply transforms a frame (a
// single applicant profile at serving time) using the learned state. Stages
// that only filter training rows are no-ops in Apply.
type Stage interface {
	Name() string
	Fit(f *dataset.Frame) error
	Apply(f *dataset.Frame) error
}

// dropColumns removes identity columns that carry no signal.
type dropColumns struct {
	columns []string
}

func (s *dropColumns) Name() string { return "drop-columns" }

func (s *dropColumns) Fit(f *dataset.Frame) error { return s.Apply(f) }

func (s *dropColumns) Apply(f *dataset.Frame) error {
	f.Drop(s.columns...)
	return nil
}

// outlierFilter removes training rows outside whisker*IQR of the quartiles.
// Serving profiles are never rejected, matching the fit-only semantics.
type outlierFilter struct {
	columns []string
	whisker float64
}

func (s *outlierFilter) Name() string { return "outlier-filter" }

func (s *outlierFilter) Fit(f *dataset.Frame) error {
	if !f.Has(s.columns...) {
		return nil
	}
	keep := make([]bool, f.Rows())
	for i := range keep {
		keep[i] = true
	}
	for _, name := range s.columns {
		col, _ := f.Column(name)
		if col.Type != dataset.Numeric {
			return fmt.Errorf("outlier filter requires numeric column %s", name)
		}
		q1 := col.Quantile(0.25)
		q3 := col.Quantile(0.75)
		iqr := q3 - q1
		lo := q1 - s.whisker*iqr
		hi := q3 + s.whisker*iqr
		for i, v := range col.Nums {
			// Missing values are kept; the imputer handles them later.
			if math.IsNaN(v) {
				continue
			}
			if v < lo || v > hi {
				keep[i] = false
			}
		}
	}
	f.Filter(keep)
	return nil
}

func (s *outlierFilter) Apply(f *dataset.Frame) error { return nil }

// professionFilter drops training rows with professions too rare to model.
type professionFilter struct {
	column  string
	dropped []string
}

func (s *professionFilter) Name() string { return "profession-filter" }

func (s *professionFilter) Fit(f *dataset.Frame) error {
	col, ok := f.Column(s.column)
	if !ok {
		return nil
	}
	droppedSet := make(map[string]bool, len(s.dropped))
	for _, p := range s.dropped {
		droppedSet[p] = true
	}
	keep := make([]bool, f.Rows())
	for i, v := range col.Cats {
		keep[i] = !droppedSet[v]
	}
	f.Filter(keep)
	return nil
}

func (s *professionFilter) Apply(f *dataset.Frame) error { return nil }

// missingImputer drops training rows without a target value, then fills
// missing categoricals with the column mode and missing numerics with the
// column median. The learned statistics fill serving-time gaps.
type missingImputer struct {
	target     string
	modeCols   []string
	medianCols []string

	modes   map[string]string
	medians map[string]float64
}

func (s *missingImputer) Name() string { return "missing-imputer" }

func (s *missingImputer) Fit(f *dataset.Frame) error {
	if target, ok := f.Column(s.target); ok {
		keep := make([]bool, f.Rows())
		for i := range keep {
			keep[i] = !target.IsMissing(i)
		}
		f.Filter(keep)
	}

	s.modes = make(map[string]string, len(s.modeCols))
	for _, name := range s.modeCols {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		s.modes[name] = col.Mode()
	}

	s.medians = make(map[string]float64, len(s.medianCols))
	for _, name := range s.medianCols {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		s.medians[name] = col.Median()
	}

	return s.fill(f)
}

func (s *missingImputer) Apply(f *dataset.Frame) error {
	if s.modes == nil && s.medians == nil {
		return fmt.Errorf("missing imputer applied before fit")
	}
	return s.fill(f)
}

func (s *missingImputer) fill(f *dataset.Frame) error {
	for name, mode := range s.modes {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		for i, v := range col.Cats {
			if v == "" {
				col.Cats[i] = mode
			}
		}
	}
	for name, median := range s.medians {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		for i, v := range col.Nums {
			if math.IsNaN(v) {
				col.Nums[i] = median
			}
		}
	}
	return nil
}

// sentinelImputer replaces the -999 placeholder the dataset uses for
// "not applicable" with zero.
type sentinelImputer struct {
	columns     []string
	sentinel    float64
	replacement float64
}

func (s *sentinelImputer) Name() string { return "sentinel-imputer" }

func (s *sentinelImputer) Fit(f *dataset.Frame) error { return s.Apply(f) }

func (s *sentinelImputer) Apply(f *dataset.Frame) error {
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		for i, v := range col.Nums {
			if v == s.sentinel {
				col.Nums[i] = s.replacement
			}
		}
	}
	return nil
}

// skewTransform takes the cube root of right-skewed columns.
type skewTransform struct {
	columns []string
}

func (s *skewTransform) Name() string { return "skew-transform" }

func (s *skewTransform) Fit(f *dataset.Frame) error { return s.Apply(f) }

func (s *skewTransform) Apply(f *dataset.Frame) error {
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		for i, v := range col.Nums {
			if !math.IsNaN(v) {
				col.Nums[i] = math.Cbrt(v)
			}
		}
	}
	return nil
}

// minMaxScaler rescales columns into [0,1] using bounds learned at fit time.
// Serving values outside the training range are clamped.
type minMaxScaler struct {
	columns []string

	mins map[string]float64
	maxs map[string]float64
}

func (s *minMaxScaler) Name() string { return "min-max-scaler" }

func (s *minMaxScaler) Fit(f *dataset.Frame) error {
	s.mins = make(map[string]float64, len(s.columns))
	s.maxs = make(map[string]float64, len(s.columns))
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		s.mins[name] = col.Min()
		s.maxs[name] = col.Max()
	}
	return s.scale(f, false)
}

func (s *minMaxScaler) Apply(f *dataset.Frame) error {
	if s.mins == nil {
		return fmt.Errorf("min-max scaler applied before fit")
	}
	return s.scale(f, true)
}

func (s *minMaxScaler) scale(f *dataset.Frame, clamp bool) error {
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		lo, hi := s.mins[name], s.maxs[name]
		span := hi - lo
		for i, v := range col.Nums {
			if math.IsNaN(v) {
				continue
			}
			if span == 0 {
				col.Nums[i] = 0
				continue
			}
			scaled := (v - lo) / span
			if clamp {
				scaled = math.Max(0, math.Min(1, scaled))
			}
			col.Nums[i] = scaled
		}
	}
	return nil
}

// oneHotEncoder replaces categorical columns with indicator columns, one per
// category observed at fit time. Unseen serving categories encode to all
// zeros rather than failing the request.
type oneHotEncoder struct {
	columns []string

	categories map[string][]string
}

func (s *oneHotEncoder) Name() string { return "one-hot-encoder" }

func (s *oneHotEncoder) Fit(f *dataset.Frame) error {
	s.categories = make(map[string][]string, len(s.columns))
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		s.categories[name] = col.Categories()
	}
	return s.encode(f)
}

func (s *oneHotEncoder) Apply(f *dataset.Frame) error {
	if s.categories == nil {
		return fmt.Errorf("one-hot encoder applied before fit")
	}
	return s.encode(f)
}

func (s *oneHotEncoder) encode(f *dataset.Frame) error {
	for _, name := range s.columns {
		col, ok := f.Column(name)
		if !ok {
			continue
		}
		cats := s.categories[name]
		indicators := make([][]float64, len(cats))
		for j := range indicators {
			indicators[j] = make([]float64, f.Rows())
		}
		for i, v := range col.Cats {
			for j, cat := range cats {
				if v == cat {
					indicators[j][i] = 1
				}
			}
		}
		f.Drop(name)
		for j, cat := range cats {
			if err := f.AddNumeric(IndicatorName(name, cat), indicators[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

// IndicatorName is the column name of a one-hot indicator.
func IndicatorName(column, category string) string {
	return column + "=" + category
}
