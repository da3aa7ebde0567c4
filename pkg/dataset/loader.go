package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads a CSV file into a frame. Columns named in categorical are read
// as strings; everything else is parsed as float64. Empty cells and cells
// that fail to parse become missing values.
func Load(path string, categorical map[string]bool) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s has no data rows", path)
	}

	header := records[0]
	rows := records[1:]

	frame := NewFrame()
	for col, name := range header {
		name = strings.TrimSpace(name)
		if categorical[name] {
			vals := make([]string, len(rows))
			for i, row := range rows {
				vals[i] = cellString(row, col)
			}
			if err := frame.AddCategorical(name, vals); err != nil {
				return nil, err
			}
			continue
		}
		vals := make([]float64, len(rows))
		for i, row := range rows {
			vals[i] = cellFloat(row, col)
		}
		if err := frame.AddNumeric(name, vals); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

func cellString(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func cellFloat(row []string, col int) float64 {
	s := cellString(row, col)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
