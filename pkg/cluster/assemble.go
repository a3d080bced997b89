package cluster

import (
	"fmt"
	"strconv"

	"github.com/t-carroll/monocle3/pkg/louvain"
	"github.com/t-carroll/monocle3/pkg/matrix"
	"github.com/t-carroll/monocle3/pkg/partition"
)

// GeneClusterResult is one output row: an item with its cluster label,
// supercluster (partition) label and reduced-dimension coordinates.
type GeneClusterResult struct {
	ID           string    `json:"id"`
	Cluster      string    `json:"cluster"`
	Supercluster string    `json:"supercluster"`
	Coords       []float64 `json:"coords"`
}

// Assemble joins per-item labels with embedding coordinates. It is a pure
// join: the only failure mode is an id present in one intermediate and
// absent from another, which surfaces as ErrKeyMismatch.
func Assemble(ids []string, coords *matrix.Labeled, a *louvain.Assignment, p *partition.Result) ([]GeneClusterResult, error) {
	if len(ids) != len(a.Labels) {
		return nil, fmt.Errorf("%w: %d graph items but %d assignment labels",
			ErrKeyMismatch, len(ids), len(a.Labels))
	}
	coordRows, _ := coords.Dims()
	if coordRows != len(ids) {
		return nil, fmt.Errorf("%w: %d graph items but %d embedding rows",
			ErrKeyMismatch, len(ids), coordRows)
	}

	rows := make([]GeneClusterResult, len(ids))
	for i, id := range ids {
		coord, ok := coords.Row(id)
		if !ok {
			return nil, fmt.Errorf("%w: item %q has no embedding row", ErrKeyMismatch, id)
		}
		clusterID := a.Labels[i]
		rows[i] = GeneClusterResult{
			ID:           id,
			Cluster:      strconv.Itoa(clusterID + 1),
			Supercluster: strconv.Itoa(p.PartitionOf(clusterID) + 1),
			Coords:       coord,
		}
	}
	return rows, nil
}
