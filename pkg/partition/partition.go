// Package partition merges low-confidence micro-clusters into statistically
// supported superclusters. It coarsens the neighbor graph over detected
// communities, tests every inter-community edge count against a Poisson
// null model and keeps only denser-than-chance bridges; partitions are the
// connected components over the kept edges.
package partition

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/knn"
	"github.com/t-carroll/monocle3/pkg/louvain"
)

// ErrEmptyAssignment is returned when the community assignment contains no
// clusters.
var ErrEmptyAssignment = errors.New("community assignment has no clusters")

// CoarseGraph is the cluster-level view of the neighbor graph: nodes are
// cluster ids, edge weights are crossing-edge counts and self-loops are
// internal edge counts.
type CoarseGraph struct {
	NumClusters int
	Sizes       []int         // members per cluster
	Internal    []int         // internal edge count per cluster
	Cross       map[[2]int]int // (c1<c2) -> crossing edge count
	TotalEdges  int
	TotalNodes  int
}

// Edge is one tested coarsened-graph edge with its raw and corrected
// p-values.
type Edge struct {
	C1, C2      int
	Count       int
	PValue      float64
	AdjustedP   float64
	Significant bool
}

// Result maps every cluster id to a partition id and keeps the tested
// edges for diagnostics.
type Result struct {
	ClusterPartition []int // cluster id -> partition id, compact 0..NumPartitions-1
	NumPartitions    int
	Coarse           *CoarseGraph
	Edges            []Edge
}

// PartitionOf returns the partition id assigned to an item, given its
// cluster label.
func (r *Result) PartitionOf(cluster int) int {
	return r.ClusterPartition[cluster]
}

// Coarsen counts, for the given per-node cluster labels, the edges of g
// crossing each cluster pair and internal to each cluster. Edge weights are
// ignored: the null model is over edge counts.
func Coarsen(g *knn.Graph, labels []int, numClusters int) *CoarseGraph {
	coarse := &CoarseGraph{
		NumClusters: numClusters,
		Sizes:       make([]int, numClusters),
		Internal:    make([]int, numClusters),
		Cross:       make(map[[2]int]int),
		TotalNodes:  g.NumNodes,
	}
	for _, c := range labels {
		coarse.Sizes[c]++
	}

	for u := 0; u < g.NumNodes; u++ {
		neighbors, _ := g.GetNeighbors(u)
		for _, v := range neighbors {
			if v < u {
				continue // each undirected edge once, self-loops at u==v
			}
			coarse.TotalEdges++
			cu, cv := labels[u], labels[v]
			if cu == cv {
				coarse.Internal[cu]++
				continue
			}
			key := [2]int{cu, cv}
			if cv < cu {
				key = [2]int{cv, cu}
			}
			coarse.Cross[key]++
		}
	}
	return coarse
}

// Merge builds the coarsened graph for the assignment and joins clusters
// whose crossing-edge count is significantly denser than chance. An edge
// survives only when its corrected p-value is strictly below qval.
func Merge(g *knn.Graph, a *louvain.Assignment, qval float64, corr Correction, logger zerolog.Logger) (*Result, error) {
	if a == nil || a.NumCommunities == 0 || len(a.Labels) == 0 {
		return nil, ErrEmptyAssignment
	}
	if len(a.Labels) != g.NumNodes {
		return nil, fmt.Errorf("assignment covers %d nodes, graph has %d", len(a.Labels), g.NumNodes)
	}

	coarse := Coarsen(g, a.Labels, a.NumCommunities)

	// Stable edge order: ascending (c1, c2).
	keys := make([][2]int, 0, len(coarse.Cross))
	for key := range coarse.Cross {
		keys = append(keys, key)
	}
	sortPairs(keys)

	pvals := make([]float64, len(keys))
	for i, key := range keys {
		pvals[i] = PValue(coarse.Cross[key], coarse.Sizes[key[0]], coarse.Sizes[key[1]],
			coarse.TotalEdges, coarse.TotalNodes)
	}
	adjusted := corr.adjust(pvals)

	edges := make([]Edge, len(keys))
	kept := 0
	for i, key := range keys {
		significant := adjusted[i] < qval
		edges[i] = Edge{
			C1:          key[0],
			C2:          key[1],
			Count:       coarse.Cross[key],
			PValue:      pvals[i],
			AdjustedP:   adjusted[i],
			Significant: significant,
		}
		if significant {
			kept++
		}
	}

	partition, numPartitions := components(coarse.NumClusters, edges)

	logger.Info().
		Int("clusters", coarse.NumClusters).
		Int("tested_edges", len(edges)).
		Int("significant_edges", kept).
		Int("partitions", numPartitions).
		Str("correction", corr.String()).
		Float64("qval", qval).
		Msg("Partition merge finished")

	return &Result{
		ClusterPartition: partition,
		NumPartitions:    numPartitions,
		Coarse:           coarse,
		Edges:            edges,
	}, nil
}

// components labels connected components over the significant edges,
// numbering partitions by the smallest cluster id they contain.
func components(numClusters int, edges []Edge) ([]int, int) {
	parent := make([]int, numClusters)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra // keep the smaller id as root
	}

	for _, e := range edges {
		if e.Significant {
			union(e.C1, e.C2)
		}
	}

	ids := make(map[int]int)
	out := make([]int, numClusters)
	next := 0
	for c := 0; c < numClusters; c++ {
		root := find(c)
		id, ok := ids[root]
		if !ok {
			id = next
			ids[root] = id
			next++
		}
		out[c] = id
	}
	return out, next
}

func sortPairs(keys [][2]int) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

func less(a, b [2]int) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}
