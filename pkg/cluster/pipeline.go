// Package cluster orchestrates the graph-based clustering pipeline:
// embedding lookup, nearest-neighbor graph construction, multi-trial
// Louvain community detection and significance-based partition merging.
package cluster

import (
	"fmt"

	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/knn"
	"github.com/t-carroll/monocle3/pkg/louvain"
	"github.com/t-carroll/monocle3/pkg/partition"
)

// Result carries the assembled rows plus diagnostics from the winning
// detection run and the partition merge.
type Result struct {
	Rows          []GeneClusterResult `json:"rows"`
	Method        embedding.Method    `json:"reduction_method"`
	Modularity    float64             `json:"modularity"`
	NumClusters   int                 `json:"num_clusters"`
	NumPartitions int                 `json:"num_partitions"`
}

// ClusterGenes runs the full pipeline on the dataset. All errors abort the
// call; there are no partial results and no silent parameter fallbacks.
func ClusterGenes(ds *Dataset, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.CreateLogger()

	method, err := embedding.ParseMethod(cfg.ReductionMethod())
	if err != nil {
		// Already covered by Validate; kept so direct callers cannot skip it.
		return nil, fmt.Errorf("%w: clustering.reduction_method: %v", ErrConfiguration, err)
	}

	coords, err := ds.resolveEmbedding(method, cfg.MaxComponents())
	if err != nil {
		return nil, fmt.Errorf("resolving %s embedding: %w", method, err)
	}

	graph, err := knn.BuildGraph(coords, knn.Options{
		K:        cfg.K(),
		Weighted: cfg.Weight(),
		Workers:  cfg.Cores(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building neighbor graph: %w", err)
	}

	assignment, err := louvain.Detect(graph, louvain.Options{
		Resolutions: cfg.Resolutions(),
		Trials:      cfg.LouvainIter(),
		Seed:        cfg.RandomSeed(),
		Workers:     cfg.Cores(),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("detecting communities: %w", err)
	}

	correction, err := partition.ParseCorrection(cfg.Correction())
	if err != nil {
		return nil, fmt.Errorf("%w: partition.correction: %v", ErrConfiguration, err)
	}
	parts, err := partition.Merge(graph, assignment, cfg.PartitionQval(), correction, logger)
	if err != nil {
		return nil, fmt.Errorf("merging partitions: %w", err)
	}

	rows, err := Assemble(graph.IDs, coords, assignment, parts)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("method", string(method)).
		Int("items", len(rows)).
		Int("clusters", assignment.NumCommunities).
		Int("partitions", parts.NumPartitions).
		Float64("modularity", assignment.Modularity).
		Msg("Clustering pipeline finished")

	return &Result{
		Rows:          rows,
		Method:        method,
		Modularity:    assignment.Modularity,
		NumClusters:   assignment.NumCommunities,
		NumPartitions: parts.NumPartitions,
	}, nil
}
