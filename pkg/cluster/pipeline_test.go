package cluster

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/knn"
	"github.com/t-carroll/monocle3/pkg/louvain"
	"github.com/t-carroll/monocle3/pkg/matrix"
	"github.com/t-carroll/monocle3/pkg/partition"
)

// twoBlobs returns 2n points in 2D: n around (0,0) and n around (100,100).
func twoBlobs(t *testing.T, n int, seed int64) *matrix.Labeled {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	flat := make([]float64, 0, 4*n)
	ids := make([]string, 0, 2*n)
	for i := 0; i < n; i++ {
		flat = append(flat, rng.NormFloat64(), rng.NormFloat64())
		ids = append(ids, fmt.Sprintf("a%d", i))
	}
	for i := 0; i < n; i++ {
		flat = append(flat, 100+rng.NormFloat64(), 100+rng.NormFloat64())
		ids = append(ids, fmt.Sprintf("b%d", i))
	}
	m, err := matrix.NewLabeled(mat.NewDense(2*n, 2, flat), ids, []string{"dim_1", "dim_2"})
	require.NoError(t, err)
	return m
}

func quietConfig() *Config {
	cfg := NewConfig()
	cfg.Set("logging.level", "disabled")
	return cfg
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		key   string
		value interface{}
	}{
		{"clustering.reduction_method", "isomap"},
		{"clustering.k", 0},
		{"clustering.k", -3},
		{"clustering.louvain_iter", 0},
		{"clustering.resolution", []float64{1.0, -0.5}},
		{"partition.qval", 0.0},
		{"partition.qval", 1.0},
		{"partition.qval", 1.5},
		{"partition.correction", "holm"},
		{"clustering.cores", 0},
		{"clustering.max_components", 0},
	}
	for _, tc := range cases {
		cfg := quietConfig()
		cfg.Set(tc.key, tc.value)
		err := cfg.Validate()
		require.Error(t, err, "%s=%v", tc.key, tc.value)
		assert.True(t, errors.Is(err, ErrConfiguration), "%s=%v", tc.key, tc.value)
		assert.Contains(t, err.Error(), tc.key, "message must name the parameter")
	}

	assert.NoError(t, quietConfig().Validate(), "defaults must validate")
}

func TestClusterGenesMissingEmbedding(t *testing.T) {
	coords := twoBlobs(t, 10, 1)
	ds, err := NewDataset(coords)
	require.NoError(t, err)

	cfg := quietConfig()
	cfg.Set("clustering.k", 5)
	// Default reduction method is UMAP and nothing was registered.
	_, err = ClusterGenes(ds, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, embedding.ErrMissing))
}

func TestClusterGenesTwoBlobs(t *testing.T) {
	coords := twoBlobs(t, 50, 2016)
	ds, err := NewDataset(coords)
	require.NoError(t, err)
	require.NoError(t, ds.RegisterEmbedding(embedding.UMAP, coords))

	cfg := quietConfig()
	cfg.Set("clustering.k", 10)
	cfg.Set("clustering.louvain_iter", 1)
	cfg.Set("clustering.random_seed", 42)

	res, err := ClusterGenes(ds, cfg)
	require.NoError(t, err)
	require.Len(t, res.Rows, 100)

	// No cluster and no partition may span the two well-separated blobs:
	// their neighbor graphs are disconnected.
	blobA := make(map[string]bool)
	blobB := make(map[string]bool)
	partA := make(map[string]bool)
	partB := make(map[string]bool)
	for _, row := range res.Rows {
		if row.ID[0] == 'a' {
			blobA[row.Cluster] = true
			partA[row.Supercluster] = true
		} else {
			blobB[row.Cluster] = true
			partB[row.Supercluster] = true
		}
	}
	for c := range blobA {
		assert.False(t, blobB[c], "cluster %s spans both blobs", c)
	}
	for p := range partA {
		assert.False(t, partB[p], "partition %s spans both blobs", p)
	}
	assert.GreaterOrEqual(t, res.NumClusters, 2)
	assert.GreaterOrEqual(t, res.NumPartitions, 2)
	assert.Greater(t, res.Modularity, 0.0)
}

func TestClusterGenesDeterministicWithSeed(t *testing.T) {
	coords := twoBlobs(t, 30, 5)
	run := func() *Result {
		ds, err := NewDataset(coords)
		require.NoError(t, err)
		require.NoError(t, ds.RegisterEmbedding(embedding.UMAP, coords))
		cfg := quietConfig()
		cfg.Set("clustering.k", 8)
		cfg.Set("clustering.louvain_iter", 1)
		cfg.Set("clustering.random_seed", 2016)
		res, err := ClusterGenes(ds, cfg)
		require.NoError(t, err)
		return res
	}
	first := run()
	second := run()
	assert.Equal(t, first.Rows, second.Rows)
	assert.Equal(t, first.Modularity, second.Modularity)
}

func TestClusterGenesInsufficientData(t *testing.T) {
	coords := twoBlobs(t, 5, 9) // 10 items
	ds, err := NewDataset(coords)
	require.NoError(t, err)
	require.NoError(t, ds.RegisterEmbedding(embedding.UMAP, coords))

	cfg := quietConfig()
	cfg.Set("clustering.k", 10)
	_, err = ClusterGenes(ds, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, knn.ErrInsufficientData))
}

func TestClusterGenesPCAOnDemand(t *testing.T) {
	// High-dimensional expression whose first component separates the
	// groups; PCA is computed on the fly.
	rng := rand.New(rand.NewSource(13))
	n := 30
	flat := make([]float64, 0, n*5)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		base := 0.0
		if i >= n/2 {
			base = 50
		}
		flat = append(flat, base+rng.NormFloat64(), base+rng.NormFloat64(),
			rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		ids[i] = fmt.Sprintf("g%d", i)
	}
	expr, err := matrix.NewLabeled(mat.NewDense(n, 5, flat), ids, []string{"f1", "f2", "f3", "f4", "f5"})
	require.NoError(t, err)
	ds, err := NewDataset(expr)
	require.NoError(t, err)

	cfg := quietConfig()
	cfg.Set("clustering.reduction_method", "PCA")
	cfg.Set("clustering.k", 5)

	res, err := ClusterGenes(ds, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Rows, n)
	assert.Equal(t, embedding.PCA, res.Method)
	assert.Len(t, res.Rows[0].Coords, 2)

	// The computed PCA is cached on the dataset afterwards.
	_, ok := ds.Embedding(embedding.PCA)
	assert.True(t, ok)
}

func TestAssembleKeyMismatch(t *testing.T) {
	coords := twoBlobs(t, 5, 3)
	a := &louvain.Assignment{Labels: []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}, NumCommunities: 2}
	p := &partition.Result{ClusterPartition: []int{0, 1}, NumPartitions: 2}

	// An id absent from the embedding.
	ids := append([]string{}, coords.RowIDs...)
	ids[3] = "unknown"
	_, err := Assemble(ids, coords, a, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyMismatch))

	// Length mismatch between graph items and labels.
	_, err = Assemble(coords.RowIDs[:9], coords, a, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyMismatch))
}

func TestAssembleLabelsAreOneBased(t *testing.T) {
	coords := twoBlobs(t, 2, 4) // 4 items
	a := &louvain.Assignment{Labels: []int{0, 0, 1, 1}, NumCommunities: 2}
	p := &partition.Result{ClusterPartition: []int{0, 1}, NumPartitions: 2}

	rows, err := Assemble(coords.RowIDs, coords, a, p)
	require.NoError(t, err)
	assert.Equal(t, "1", rows[0].Cluster)
	assert.Equal(t, "2", rows[2].Cluster)
	assert.Equal(t, "1", rows[0].Supercluster)
	assert.Equal(t, "2", rows[3].Supercluster)
	assert.Equal(t, coords.RowAt(0), rows[0].Coords)
}

func TestTwoClusterGraphYieldsTwoPartitions(t *testing.T) {
	// The two-blob neighbor graph with the ideal two-cluster assignment
	// has no crossing edges at all, so the merger must return exactly two
	// partitions.
	coords := twoBlobs(t, 50, 2016)
	g, err := knn.BuildGraph(coords, knn.Options{K: 10, Logger: zerolog.Nop()})
	require.NoError(t, err)

	labels := make([]int, 100)
	for i := 50; i < 100; i++ {
		labels[i] = 1
	}
	a := &louvain.Assignment{Labels: labels, NumCommunities: 2}

	res, err := partition.Merge(g, a, 0.05, partition.CorrectionBH, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumPartitions)
	assert.Empty(t, res.Edges, "far-apart blobs must produce no crossing edges")
}
