// Package matrix provides a dense numeric matrix with stable string labels
// attached to rows and columns. It is the interchange type between the
// expression/loading input, the embedding providers and the clustering
// pipeline.
package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Labeled wraps a gonum dense matrix with row and column identifiers.
// Row ids are required to be unique; column ids are not inspected beyond
// their count.
type Labeled struct {
	Data   *mat.Dense
	RowIDs []string
	ColIDs []string

	rowIndex map[string]int
}

// NewLabeled validates label lengths against the matrix dimensions and
// builds the row index.
func NewLabeled(data *mat.Dense, rowIDs, colIDs []string) (*Labeled, error) {
	if data == nil {
		return nil, fmt.Errorf("matrix data must not be nil")
	}
	r, c := data.Dims()
	if len(rowIDs) != r {
		return nil, fmt.Errorf("row label count %d does not match matrix rows %d", len(rowIDs), r)
	}
	if len(colIDs) != c {
		return nil, fmt.Errorf("column label count %d does not match matrix columns %d", len(colIDs), c)
	}

	index := make(map[string]int, r)
	for i, id := range rowIDs {
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate row id %q", id)
		}
		index[id] = i
	}

	return &Labeled{
		Data:     data,
		RowIDs:   rowIDs,
		ColIDs:   colIDs,
		rowIndex: index,
	}, nil
}

// Dims returns the matrix dimensions (rows, columns).
func (l *Labeled) Dims() (int, int) {
	return l.Data.Dims()
}

// RowIndex returns the position of a row id.
func (l *Labeled) RowIndex(id string) (int, bool) {
	i, ok := l.rowIndex[id]
	return i, ok
}

// Row returns a copy of the row for the given id.
func (l *Labeled) Row(id string) ([]float64, bool) {
	i, ok := l.rowIndex[id]
	if !ok {
		return nil, false
	}
	return l.RowAt(i), true
}

// RowAt returns a copy of the row at position i.
func (l *Labeled) RowAt(i int) []float64 {
	_, c := l.Data.Dims()
	row := make([]float64, c)
	mat.Row(row, i, l.Data)
	return row
}
