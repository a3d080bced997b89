package embedding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

func TestParseMethod(t *testing.T) {
	cases := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"UMAP", UMAP, false},
		{"umap", UMAP, false},
		{"tSNE", TSNE, false},
		{"t-sne", TSNE, false},
		{"PCA", PCA, false},
		{"pca", PCA, false},
		{"isomap", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMethod(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
		} else {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestPCAReduceShape(t *testing.T) {
	// 6 points in 4 features with variance concentrated in the first two.
	data := mat.NewDense(6, 4, []float64{
		10, 0, 0.1, 0.1,
		-10, 0, 0.0, 0.1,
		9, 1, 0.1, 0.0,
		-9, -1, 0.1, 0.1,
		8, 2, 0.0, 0.0,
		-8, -2, 0.1, 0.0,
	})
	m, err := matrix.NewLabeled(data, ids("g", 6), []string{"f1", "f2", "f3", "f4"})
	require.NoError(t, err)

	coords, err := PCAProvider{}.Reduce(m, 2)
	require.NoError(t, err)

	r, c := coords.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, m.RowIDs, coords.RowIDs)
	assert.Equal(t, []string{"dim_1", "dim_2"}, coords.ColIDs)

	// First component must separate positive from negative rows.
	assert.Less(t, coords.Data.At(0, 0)*coords.Data.At(1, 0), 0.0)
}

func TestPCAReduceDeterministic(t *testing.T) {
	data := mat.NewDense(5, 3, []float64{
		1, 2, 3,
		2, 1, 0,
		0, 0, 1,
		4, 4, 4,
		1, 0, 2,
	})
	m, err := matrix.NewLabeled(data, ids("g", 5), []string{"a", "b", "c"})
	require.NoError(t, err)

	first, err := PCAProvider{}.Reduce(m, 2)
	require.NoError(t, err)
	second, err := PCAProvider{}.Reduce(m, 2)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(first.Data, second.Data, 1e-12))
}

func TestPCAReduceBadDims(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	m, err := matrix.NewLabeled(data, ids("g", 3), []string{"a", "b"})
	require.NoError(t, err)

	_, err = PCAProvider{}.Reduce(m, 0)
	assert.Error(t, err)
	_, err = PCAProvider{}.Reduce(m, 3)
	assert.Error(t, err)
}

func TestStoreResolve(t *testing.T) {
	data := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		1, 1, 1,
	})
	expr, err := matrix.NewLabeled(data, ids("g", 4), []string{"a", "b", "c"})
	require.NoError(t, err)

	store := NewStore()

	// UMAP has no on-demand path.
	_, err = store.Resolve(UMAP, expr, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))

	// PCA is computed and cached.
	coords, err := store.Resolve(PCA, expr, 2)
	require.NoError(t, err)
	cached, ok := store.Get(PCA)
	require.True(t, ok)
	assert.Same(t, coords, cached)

	// Registered coordinates win over recomputation.
	umap, err := matrix.NewLabeled(mat.NewDense(4, 2, nil), ids("g", 4), []string{"dim_1", "dim_2"})
	require.NoError(t, err)
	require.NoError(t, store.Register(UMAP, umap))
	got, err := store.Resolve(UMAP, expr, 2)
	require.NoError(t, err)
	assert.Same(t, umap, got)
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}
