// Package knn builds weighted undirected nearest-neighbor graphs over
// labeled points in reduced-dimension space.
package knn

import (
	"fmt"
)

// Graph is a weighted undirected graph over items, stored as adjacency
// arrays. Node order follows the IDs slice. The community detector and the
// partition merger both consume it read-only.
type Graph struct {
	IDs         []string
	NumNodes    int
	Adjacency   [][]int     // adjacency[i] = neighbor indices of node i
	Weights     [][]float64 // weights[i][j] = weight of edge i -> adjacency[i][j]
	Degrees     []float64   // weighted degree per node, self-loops counted twice
	TotalWeight float64     // sum of all edge weights
}

// NewGraph creates an empty graph over the given item ids.
func NewGraph(ids []string) *Graph {
	n := len(ids)
	return &Graph{
		IDs:       ids,
		NumNodes:  n,
		Adjacency: make([][]int, n),
		Weights:   make([][]float64, n),
		Degrees:   make([]float64, n),
	}
}

// AddEdge adds a weighted edge between two nodes. A self-loop contributes
// its weight twice to the node's degree, matching the convention modularity
// calculations rely on.
func (g *Graph) AddEdge(u, v int, weight float64) error {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return fmt.Errorf("node index out of range: u=%d, v=%d, numNodes=%d", u, v, g.NumNodes)
	}
	if weight <= 0 {
		return fmt.Errorf("edge weight must be positive: %f", weight)
	}

	g.Adjacency[u] = append(g.Adjacency[u], v)
	g.Weights[u] = append(g.Weights[u], weight)
	g.Degrees[u] += weight

	if u != v {
		g.Adjacency[v] = append(g.Adjacency[v], u)
		g.Weights[v] = append(g.Weights[v], weight)
		g.Degrees[v] += weight
	} else {
		g.Degrees[u] += weight
	}

	g.TotalWeight += weight
	return nil
}

// GetEdgeWeight returns the weight of the edge between u and v, or 0 when
// absent.
func (g *Graph) GetEdgeWeight(u, v int) float64 {
	if u < 0 || u >= g.NumNodes || v < 0 || v >= g.NumNodes {
		return 0
	}
	for i, neighbor := range g.Adjacency[u] {
		if neighbor == v {
			return g.Weights[u][i]
		}
	}
	return 0
}

// GetNeighbors returns the neighbor indices and edge weights of a node.
// The returned slices are the graph's own storage and must not be mutated.
func (g *Graph) GetNeighbors(node int) ([]int, []float64) {
	if node < 0 || node >= g.NumNodes {
		return nil, nil
	}
	return g.Adjacency[node], g.Weights[node]
}

// EdgeCount returns the number of distinct undirected edges, self-loops
// included.
func (g *Graph) EdgeCount() int {
	count := 0
	for u := range g.Adjacency {
		for _, v := range g.Adjacency[u] {
			if u < v {
				count++
			} else if u == v {
				count++
			}
		}
	}
	return count
}

// Validate checks graph consistency.
func (g *Graph) Validate() error {
	if g.NumNodes <= 0 {
		return fmt.Errorf("graph must have a positive number of nodes")
	}
	if len(g.IDs) != g.NumNodes {
		return fmt.Errorf("id count %d does not match node count %d", len(g.IDs), g.NumNodes)
	}
	for i := 0; i < g.NumNodes; i++ {
		if len(g.Adjacency[i]) != len(g.Weights[i]) {
			return fmt.Errorf("adjacency and weights arrays inconsistent for node %d", i)
		}
		for j, neighbor := range g.Adjacency[i] {
			if neighbor < 0 || neighbor >= g.NumNodes {
				return fmt.Errorf("invalid neighbor %d for node %d", neighbor, i)
			}
			if g.Weights[i][j] <= 0 {
				return fmt.Errorf("non-positive weight %f for edge %d-%d", g.Weights[i][j], i, neighbor)
			}
		}
	}
	return nil
}
