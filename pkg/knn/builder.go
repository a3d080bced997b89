package knn

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

// ErrInsufficientData is returned when fewer than k+1 items are available,
// so no item can have k distinct neighbors.
var ErrInsufficientData = errors.New("not enough items for requested neighbor count")

// Options controls graph construction.
type Options struct {
	K        int  // neighbor count
	Weighted bool // Jaccard-weight edges from neighbor-set overlap
	Workers  int  // parallelism for the neighbor search, <=1 means serial
	Logger   zerolog.Logger
}

// BuildGraph finds the K nearest neighbors of every row of coords by
// Euclidean distance and connects each pair with an undirected edge. With
// Options.Weighted the unit weight is replaced by the Jaccard similarity of
// the two endpoints' neighbor sets, down-weighting edges that bridge
// different density regions. The result is symmetric, self-loop free and
// has at most one edge per pair.
func BuildGraph(coords *matrix.Labeled, opts Options) (*Graph, error) {
	n, _ := coords.Dims()
	if opts.K < 1 {
		return nil, fmt.Errorf("neighbor count must be positive, got %d", opts.K)
	}
	if n < opts.K+1 {
		return nil, fmt.Errorf("%w: have %d items, need at least %d for k=%d",
			ErrInsufficientData, n, opts.K+1, opts.K)
	}

	neighbors := neighborLists(coords, opts.K, opts.Workers)

	graph := NewGraph(coords.RowIDs)
	seen := make(map[[2]int]bool)
	dropped := 0
	for u := 0; u < n; u++ {
		for _, v := range neighbors[u] {
			key := edgeKey(u, v)
			if seen[key] {
				continue
			}
			seen[key] = true

			weight := 1.0
			if opts.Weighted {
				weight = jaccard(neighbors[u], neighbors[v])
				if weight == 0 {
					// Zero-overlap neighborhoods carry no edge.
					dropped++
					continue
				}
			}
			if err := graph.AddEdge(u, v, weight); err != nil {
				return nil, err
			}
		}
	}

	opts.Logger.Debug().
		Int("nodes", graph.NumNodes).
		Int("edges", graph.EdgeCount()).
		Int("k", opts.K).
		Bool("weighted", opts.Weighted).
		Int("zero_weight_dropped", dropped).
		Msg("Nearest-neighbor graph built")

	return graph, nil
}

// neighborLists returns, for every row, the indices of its k nearest
// neighbors sorted ascending. Rows are processed independently, so the
// search fans out over workers when asked to.
func neighborLists(coords *matrix.Labeled, k, workers int) [][]int {
	n, _ := coords.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = coords.RowAt(i)
	}

	lists := make([][]int, n)
	search := func(lo, hi int) {
		dists := make([]float64, n)
		order := make([]int, n)
		for i := lo; i < hi; i++ {
			for j := 0; j < n; j++ {
				order[j] = j
				if j == i {
					dists[j] = 0
					continue
				}
				dists[j] = floats.Distance(rows[i], rows[j], 2)
			}
			self := i
			sort.SliceStable(order, func(a, b int) bool {
				// The point itself sorts last so it never enters its own
				// neighbor list.
				if order[a] == self {
					return false
				}
				if order[b] == self {
					return true
				}
				return dists[order[a]] < dists[order[b]]
			})
			list := make([]int, k)
			copy(list, order[:k])
			sort.Ints(list)
			lists[i] = list
		}
	}

	if workers <= 1 {
		search(0, n)
		return lists
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			search(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return lists
}

// jaccard computes intersection over union of two sorted index slices.
func jaccard(a, b []int) float64 {
	inter := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func edgeKey(u, v int) [2]int {
	if u <= v {
		return [2]int{u, v}
	}
	return [2]int{v, u}
}
