package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewLabeledValidation(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})

	_, err := NewLabeled(data, []string{"a"}, []string{"x", "y", "z"})
	assert.Error(t, err, "row label count mismatch must fail")

	_, err = NewLabeled(data, []string{"a", "b"}, []string{"x", "y"})
	assert.Error(t, err, "column label count mismatch must fail")

	_, err = NewLabeled(data, []string{"a", "a"}, []string{"x", "y", "z"})
	assert.Error(t, err, "duplicate row ids must fail")

	_, err = NewLabeled(nil, nil, nil)
	assert.Error(t, err)
}

func TestRowLookup(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	m, err := NewLabeled(data, []string{"g1", "g2"}, []string{"x", "y", "z"})
	require.NoError(t, err)

	row, ok := m.Row("g2")
	require.True(t, ok)
	assert.Equal(t, []float64{4, 5, 6}, row)

	idx, ok := m.RowIndex("g1")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = m.Row("missing")
	assert.False(t, ok)

	// Row returns a copy, mutating it must not touch the backing data.
	row[0] = 99
	assert.Equal(t, 4.0, m.Data.At(1, 0))
}
