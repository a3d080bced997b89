package aggregate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

func smallMatrix(t *testing.T) *matrix.Labeled {
	t.Helper()
	data := mat.NewDense(4, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
	m, err := matrix.NewLabeled(data,
		[]string{"g1", "g2", "g3", "g4"},
		[]string{"c1", "c2", "c3"})
	require.NoError(t, err)
	return m
}

func TestAggregateSumByRowGroups(t *testing.T) {
	m := smallMatrix(t)
	groups := map[string]string{
		"g1": "early", "g2": "early",
		"g3": "late", "g4": "late",
	}

	out, err := Aggregate(m, groups, nil, Options{Strategy: Sum})
	require.NoError(t, err)

	require.Equal(t, []string{"early", "late"}, out.RowIDs)
	require.Equal(t, []string{"c1", "c2", "c3"}, out.ColIDs)
	assert.InDelta(t, 5.0, out.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 7.0, out.Data.At(0, 1), 1e-12)
	assert.InDelta(t, 17.0, out.Data.At(1, 0), 1e-12)
	assert.InDelta(t, 21.0, out.Data.At(1, 2), 1e-12)
}

func TestAggregateMeanByBothAxes(t *testing.T) {
	m := smallMatrix(t)
	rowGroups := map[string]string{
		"g1": "a", "g2": "a", "g3": "b", "g4": "b",
	}
	colGroups := map[string]string{
		"c1": "x", "c2": "x", "c3": "y",
	}

	out, err := Aggregate(m, rowGroups, colGroups, Options{Strategy: Mean})
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b"}, out.RowIDs)
	require.Equal(t, []string{"x", "y"}, out.ColIDs)
	// group a/x covers rows g1,g2 and columns c1,c2: mean(1,2,4,5).
	assert.InDelta(t, 3.0, out.Data.At(0, 0), 1e-12)
	// group b/y covers rows g3,g4 and column c3: mean(9,12).
	assert.InDelta(t, 10.5, out.Data.At(1, 1), 1e-12)
}

func TestAggregateDropsUnmappedRows(t *testing.T) {
	m := smallMatrix(t)
	groups := map[string]string{"g1": "only", "g2": "only"}

	out, err := Aggregate(m, groups, nil, Options{Strategy: Sum})
	require.NoError(t, err)

	require.Equal(t, []string{"only"}, out.RowIDs)
	assert.InDelta(t, 5.0, out.Data.At(0, 0), 1e-12)
}

func TestAggregateUnknownGroupID(t *testing.T) {
	m := smallMatrix(t)

	_, err := Aggregate(m, map[string]string{"nope": "a"}, nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestAggregateSizeFactors(t *testing.T) {
	m := smallMatrix(t)
	factors := map[string]float64{"c1": 1, "c2": 2, "c3": 3}

	out, err := Aggregate(m, nil, nil, Options{Strategy: Sum, SizeFactors: factors})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, out.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, out.Data.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, out.Data.At(0, 2), 1e-12)

	_, err = Aggregate(m, nil, nil, Options{SizeFactors: map[string]float64{"c1": 1, "c2": 2}})
	require.Error(t, err)

	_, err = Aggregate(m, nil, nil, Options{SizeFactors: map[string]float64{"c1": 0, "c2": 2, "c3": 3}})
	require.Error(t, err)
}

func TestAggregateLogTransform(t *testing.T) {
	data := mat.NewDense(1, 2, []float64{9, 99})
	m, err := matrix.NewLabeled(data, []string{"g1"}, []string{"c1", "c2"})
	require.NoError(t, err)

	out, err := Aggregate(m, nil, nil, Options{Strategy: Sum, Log: true})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, out.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0, out.Data.At(0, 1), 1e-12)
}

func TestAggregateScaleRows(t *testing.T) {
	m := smallMatrix(t)

	out, err := Aggregate(m, nil, nil, Options{Strategy: Sum, ScaleRows: true})
	require.NoError(t, err)

	r, c := out.Dims()
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c; j++ {
			sum += out.Data.At(i, j)
		}
		assert.InDelta(t, 0.0, sum, 1e-9, "row %d should be centered", i)
	}
}

func TestAggregateClipBounds(t *testing.T) {
	const lo, hi = -2.0, 2.0
	rng := rand.New(rand.NewSource(7))

	rows, cols := 30, 20
	data := mat.NewDense(rows, cols, nil)
	rowIDs := make([]string, rows)
	colIDs := make([]string, cols)
	rowGroups := make(map[string]string, rows)
	factors := make(map[string]float64, cols)
	for i := 0; i < rows; i++ {
		rowIDs[i] = fmt.Sprintf("g%d", i)
		rowGroups[rowIDs[i]] = fmt.Sprintf("grp%d", i%4)
	}
	for j := 0; j < cols; j++ {
		colIDs[j] = fmt.Sprintf("c%d", j)
		factors[colIDs[j]] = 0.5 + rng.Float64()
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, rng.NormFloat64()*50)
		}
	}
	m, err := matrix.NewLabeled(data, rowIDs, colIDs)
	require.NoError(t, err)

	out, err := Aggregate(m, rowGroups, nil, Options{
		Strategy:    Sum,
		SizeFactors: factors,
		ClipMin:     lo,
		ClipMax:     hi,
	})
	require.NoError(t, err)

	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := out.Data.At(i, j)
			assert.GreaterOrEqual(t, v, lo)
			assert.LessOrEqual(t, v, hi)
		}
	}
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "sum", Sum.String())
	assert.Equal(t, "mean", Mean.String())
}
