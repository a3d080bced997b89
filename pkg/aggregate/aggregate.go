// Package aggregate summarizes a per-cell expression matrix into per-group
// matrices: rows collapse over gene groups and columns over cell groups,
// with optional size-factor normalization, row scaling and value clipping.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

// Strategy selects how grouped values combine.
type Strategy int

const (
	Sum Strategy = iota
	Mean
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Options controls aggregation.
type Options struct {
	Strategy Strategy
	// SizeFactors divides each column by its factor before grouping.
	// Every column id must have a positive factor when set.
	SizeFactors map[string]float64
	// Log applies log10(x+1) after size-factor normalization, before
	// grouping.
	Log bool
	// ScaleRows standardizes each output row to zero mean and unit
	// variance after grouping.
	ScaleRows bool
	// ClipMin/ClipMax bound the output values when ClipMin < ClipMax.
	ClipMin float64
	ClipMax float64
}

// Aggregate collapses rows by rowGroups and columns by colGroups. Either
// mapping may be nil to keep that axis ungrouped. Rows or columns absent
// from a non-nil mapping are dropped; mapping keys that name no row or
// column are an error. Group labels sort lexicographically in the output.
func Aggregate(m *matrix.Labeled, rowGroups, colGroups map[string]string, opts Options) (*matrix.Labeled, error) {
	data, err := normalized(m, opts.SizeFactors)
	if err != nil {
		return nil, err
	}
	if opts.Log {
		data = logTransform(data)
	}

	rowIdx, rowLabels, err := groupIndex(m.RowIDs, rowGroups, "row")
	if err != nil {
		return nil, err
	}
	colIdx, colLabels, err := groupIndex(m.ColIDs, colGroups, "column")
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(len(rowLabels), len(colLabels), nil)
	counts := make([]int, len(rowLabels)*len(colLabels))
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		gi, ok := rowIdx[i]
		if !ok {
			continue
		}
		for j := 0; j < c; j++ {
			gj, ok := colIdx[j]
			if !ok {
				continue
			}
			out.Set(gi, gj, out.At(gi, gj)+data.At(i, j))
			counts[gi*len(colLabels)+gj]++
		}
	}

	if opts.Strategy == Mean {
		for gi := 0; gi < len(rowLabels); gi++ {
			for gj := 0; gj < len(colLabels); gj++ {
				if n := counts[gi*len(colLabels)+gj]; n > 0 {
					out.Set(gi, gj, out.At(gi, gj)/float64(n))
				}
			}
		}
	}

	if opts.ScaleRows {
		scaleRows(out)
	}
	if opts.ClipMin < opts.ClipMax {
		clip(out, opts.ClipMin, opts.ClipMax)
	}

	return matrix.NewLabeled(out, rowLabels, colLabels)
}

// normalized divides each column by its size factor, or returns the data
// unchanged when no factors are configured.
func normalized(m *matrix.Labeled, factors map[string]float64) (*mat.Dense, error) {
	if factors == nil {
		return m.Data, nil
	}
	r, c := m.Dims()
	data := mat.NewDense(r, c, nil)
	for j, id := range m.ColIDs {
		factor, ok := factors[id]
		if !ok {
			return nil, fmt.Errorf("no size factor for column %q", id)
		}
		if factor <= 0 || math.IsNaN(factor) {
			return nil, fmt.Errorf("size factor for column %q must be positive, got %g", id, factor)
		}
		for i := 0; i < r; i++ {
			data.Set(i, j, m.Data.At(i, j)/factor)
		}
	}
	return data, nil
}

// groupIndex maps axis positions to output group positions. A nil mapping
// keeps every id as its own group in input order.
func groupIndex(ids []string, groups map[string]string, axis string) (map[int]int, []string, error) {
	if groups == nil {
		idx := make(map[int]int, len(ids))
		for i := range ids {
			idx[i] = i
		}
		return idx, ids, nil
	}

	known := make(map[string]int, len(ids))
	for i, id := range ids {
		known[id] = i
	}
	labelSet := make(map[string]bool)
	for id, label := range groups {
		if _, ok := known[id]; !ok {
			return nil, nil, fmt.Errorf("%s group references unknown id %q", axis, id)
		}
		labelSet[label] = true
	}

	labels := make([]string, 0, len(labelSet))
	for label := range labelSet {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	labelPos := make(map[string]int, len(labels))
	for i, label := range labels {
		labelPos[label] = i
	}

	idx := make(map[int]int)
	for id, label := range groups {
		idx[known[id]] = labelPos[label]
	}
	return idx, labels, nil
}

func logTransform(data *mat.Dense) *mat.Dense {
	r, c := data.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, math.Log10(data.At(i, j)+1))
		}
	}
	return out
}

func scaleRows(data *mat.Dense) {
	r, c := data.Dims()
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, data)
		mean, std := stat.MeanStdDev(row, nil)
		for j := 0; j < c; j++ {
			if std > 0 {
				data.Set(i, j, (row[j]-mean)/std)
			} else {
				data.Set(i, j, 0)
			}
		}
	}
}

func clip(data *mat.Dense, lo, hi float64) {
	r, c := data.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := data.At(i, j)
			if v < lo {
				data.Set(i, j, lo)
			} else if v > hi {
				data.Set(i, j, hi)
			}
		}
	}
}
