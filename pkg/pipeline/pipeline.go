package pipeline

import (
	"fmt"
	"math"

	"loanpilot/pkg/dataset"
)

// Pipeline runs preprocessing stages in a fixed order.
type Pipeline struct {
	stages []Stage
	fitted bool
}

// NewLoanPipeline wires the standard stages for the loan sanction dataset.
func NewLoanPipeline() *Pipeline {
	return &Pipeline{
		stages: []Stage{
			&dropColumns{columns: droppedColumns},
			&outlierFilter{columns: outlierColumns, whisker: 1.5},
			&professionFilter{column: ColProfession, dropped: uncommonProfessions},
			&missingImputer{
				target:     ColSanctionAmount,
				modeCols:   modeImputedColumns,
				medianCols: medianImputedColumns,
			},
			&sentinelImputer{columns: sentinelColumns, sentinel: -999, replacement: 0},
			&skewTransform{columns: skewedColumns},
			&minMaxScaler{columns: scaledColumns},
			&oneHotEncoder{columns: encodedColumns},
		},
	}
}

// Fit learns stage statistics from the training frame, transforming it in
// place. The frame that comes out is ready for model training.
func (p *Pipeline) Fit(f *dataset.Frame) error {
	for _, stage := range p.stages {
		if err := stage.Fit(f); err != nil {
			return fmt.Errorf("pipeline stage %s fit: %w", stage.Name(), err)
		}
	}
	if f.Rows() == 0 {
		return fmt.Errorf("pipeline filtered out every training row")
	}
	p.fitted = true
	return nil
}

// Apply transforms a frame with the statistics learned during Fit.
func (p *Pipeline) Apply(f *dataset.Frame) error {
	if !p.fitted {
		return fmt.Errorf("pipeline has not been fitted")
	}
	for _, stage := range p.stages {
		if err := stage.Apply(f); err != nil {
			return fmt.Errorf("pipeline stage %s apply: %w", stage.Name(), err)
		}
	}
	return nil
}

// FeatureNames returns the numeric columns of a transformed frame, in order,
// excluding the target. This fixes the feature vector layout for the model.
func FeatureNames(f *dataset.Frame, target string) []string {
	names := make([]string, 0, len(f.Names()))
	for _, name := range f.Names() {
		if name == target {
			continue
		}
		col, _ := f.Column(name)
		if col.Type == dataset.Numeric {
			names = append(names, name)
		}
	}
	return names
}

// Matrix extracts the named feature columns as a row-major matrix. Columns
// missing from the frame (possible for a serving profile when the training
// data never produced that indicator) read as zero; residual NaNs read as
// zero so the model never sees a missing value.
func Matrix(f *dataset.Frame, features []string) [][]float64 {
	rows := f.Rows()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, len(features))
	}
	for j, name := range features {
		col, ok := f.Column(name)
		if !ok || col.Type != dataset.Numeric {
			continue
		}
		for i, v := range col.Nums {
			if math.IsNaN(v) {
				continue
			}
			out[i][j] = v
		}
	}
	return out
}

// Target extracts the target column values.
func Target(f *dataset.Frame, target string) ([]float64, error) {
	col, ok := f.Column(target)
	if !ok || col.Type != dataset.Numeric {
		return nil, fmt.Errorf("target column %s not found", target)
	}
	return append([]float64(nil), col.Nums...), nil
}
