// Package louvain detects communities in weighted undirected graphs by
// greedy modularity optimization (the Louvain heuristic): local moves that
// maximize modularity gain, then coarsening, repeated until no improvement.
package louvain

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/knn"
)

// community tracks the running assignment during one level of local
// optimization.
type community struct {
	nodeToComm   []int
	commNodes    [][]int
	commWeights  []float64 // total weighted degree per community
	commInternal []float64 // internal edge weight per community, counted twice
}

func newCommunity(g *knn.Graph) *community {
	n := g.NumNodes
	c := &community{
		nodeToComm:   make([]int, n),
		commNodes:    make([][]int, n),
		commWeights:  make([]float64, n),
		commInternal: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c.nodeToComm[i] = i
		c.commNodes[i] = []int{i}
		c.commWeights[i] = g.Degrees[i]
		c.commInternal[i] = g.GetEdgeWeight(i, i) * 2 // self-loops count double
	}
	return c
}

// modularity computes Newman's modularity with a resolution parameter.
func modularity(g *knn.Graph, c *community, resolution float64) float64 {
	if g.TotalWeight == 0 {
		return 0
	}
	m2 := 2 * g.TotalWeight
	q := 0.0
	for id := range c.commNodes {
		if len(c.commNodes[id]) == 0 {
			continue
		}
		q += c.commInternal[id]/m2 - resolution*(c.commWeights[id]/m2)*(c.commWeights[id]/m2)
	}
	return q
}

// modularityGain is the change in modularity from inserting a currently
// isolated node into targetComm, given the total edge weight from the node
// into that community.
func modularityGain(g *knn.Graph, c *community, node, targetComm int, edgeWeight, resolution float64) float64 {
	m2 := 2 * g.TotalWeight
	return edgeWeight/g.TotalWeight - resolution*(g.Degrees[node]*c.commWeights[targetComm])/(m2*g.TotalWeight)
}

func (c *community) weightToComm(g *knn.Graph, node, targetComm int) float64 {
	weight := 0.0
	neighbors, weights := g.GetNeighbors(node)
	for i, neighbor := range neighbors {
		if neighbor != node && c.nodeToComm[neighbor] == targetComm {
			weight += weights[i]
		}
	}
	return weight
}

func (c *community) remove(g *knn.Graph, node int) {
	comm := c.nodeToComm[node]
	weight := c.weightToComm(g, node, comm)
	selfLoop := g.GetEdgeWeight(node, node)

	c.commWeights[comm] -= g.Degrees[node]
	c.commInternal[comm] -= 2 * (weight + selfLoop)

	nodes := c.commNodes[comm]
	for i, n := range nodes {
		if n == node {
			c.commNodes[comm] = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}
	c.nodeToComm[node] = -1
}

func (c *community) insert(g *knn.Graph, node, comm int) {
	weight := c.weightToComm(g, node, comm)
	selfLoop := g.GetEdgeWeight(node, node)

	c.nodeToComm[node] = comm
	c.commNodes[comm] = append(c.commNodes[comm], node)
	c.commWeights[comm] += g.Degrees[node]
	c.commInternal[comm] += 2 * (weight + selfLoop)
}

// oneLevel performs local optimization until no node move improves
// modularity. Node order is reshuffled each sweep from the trial's rng.
func oneLevel(g *knn.Graph, c *community, resolution, minGain float64, maxIterations int, rng *rand.Rand, logger zerolog.Logger) bool {
	improvement := false

	nodes := make([]int, g.NumNodes)
	for i := range nodes {
		nodes[i] = i
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		moves := 0
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })

		for _, node := range nodes {
			oldComm := c.nodeToComm[node]
			c.remove(g, node)

			// Candidate communities: the old one plus every neighbor's,
			// visited in ascending id order so ties resolve the same way
			// on every run with the same shuffle.
			candidates := neighborCommunities(g, c, node, oldComm)

			bestComm := oldComm
			bestGain := modularityGain(g, c, node, oldComm, candidates[oldComm], resolution)
			for _, comm := range sortedKeys(candidates) {
				if comm == oldComm {
					continue
				}
				gain := modularityGain(g, c, node, comm, candidates[comm], resolution)
				if gain > bestGain+minGain {
					bestComm = comm
					bestGain = gain
				}
			}

			c.insert(g, node, bestComm)
			if bestComm != oldComm {
				moves++
				improvement = true
			}
		}

		if moves == 0 {
			logger.Debug().Int("iteration", iteration+1).Msg("Converged: no moves")
			break
		}
	}

	return improvement
}

func neighborCommunities(g *knn.Graph, c *community, node, oldComm int) map[int]float64 {
	candidates := map[int]float64{oldComm: 0}
	neighbors, weights := g.GetNeighbors(node)
	for i, neighbor := range neighbors {
		if neighbor == node {
			continue
		}
		comm := c.nodeToComm[neighbor]
		if comm < 0 {
			continue
		}
		candidates[comm] += weights[i]
	}
	return candidates
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// compact renumbers communities to 0..K-1 in order of first appearance over
// the node index, returning per-node labels and the community count.
func (c *community) compact() ([]int, int) {
	mapping := make(map[int]int)
	labels := make([]int, len(c.nodeToComm))
	next := 0
	for node, comm := range c.nodeToComm {
		id, ok := mapping[comm]
		if !ok {
			id = next
			mapping[comm] = id
			next++
		}
		labels[node] = id
	}
	return labels, next
}

// aggregate builds the coarsened graph whose nodes are the compacted
// communities; parallel edges collapse into summed weights and internal
// edges become self-loops.
func aggregate(g *knn.Graph, compactLabels []int, numComms int) (*knn.Graph, error) {
	ids := make([]string, numComms)
	for i := range ids {
		ids[i] = fmt.Sprintf("community_%d", i)
	}
	super := knn.NewGraph(ids)

	edges := make(map[[2]int]float64)
	order := make([][2]int, 0)
	for node := 0; node < g.NumNodes; node++ {
		cu := compactLabels[node]
		neighbors, weights := g.GetNeighbors(node)
		for i, neighbor := range neighbors {
			if neighbor < node {
				continue // each undirected edge once
			}
			cv := compactLabels[neighbor]
			key := [2]int{cu, cv}
			if cv < cu {
				key = [2]int{cv, cu}
			}
			if _, ok := edges[key]; !ok {
				order = append(order, key)
			}
			edges[key] += weights[i]
		}
	}

	for _, key := range order {
		if err := super.AddEdge(key[0], key[1], edges[key]); err != nil {
			return nil, fmt.Errorf("aggregating communities: %w", err)
		}
	}
	return super, nil
}

// runOnce executes one full multi-level Louvain pass and returns per-node
// labels on the original graph.
func runOnce(g *knn.Graph, resolution, minGain float64, maxLevels, maxIterations int, rng *rand.Rand, logger zerolog.Logger) (*Assignment, error) {
	labels := make([]int, g.NumNodes)
	for i := range labels {
		labels[i] = i
	}

	current := g
	score := 0.0
	numComms := g.NumNodes

	for level := 0; level < maxLevels; level++ {
		comm := newCommunity(current)
		improved := oneLevel(current, comm, resolution, minGain, maxIterations, rng, logger)
		score = modularity(current, comm, resolution)

		compactLabels, count := comm.compact()
		for i := range labels {
			labels[i] = compactLabels[labels[i]]
		}
		numComms = count

		logger.Debug().
			Int("level", level).
			Int("nodes", current.NumNodes).
			Int("communities", count).
			Float64("modularity", score).
			Msg("Louvain level finished")

		if !improved || count == current.NumNodes || count == 1 {
			break
		}

		super, err := aggregate(current, compactLabels, count)
		if err != nil {
			return nil, err
		}
		current = super
	}

	return &Assignment{
		Labels:         labels,
		NumCommunities: numComms,
		Modularity:     score,
		Resolution:     resolution,
	}, nil
}
