package cluster

import "errors"

// Sentinel errors surfaced by the clustering pipeline. Structural errors
// from individual stages (knn.ErrInsufficientData, louvain.ErrDegenerateGraph,
// partition.ErrEmptyAssignment, embedding.ErrMissing) propagate wrapped in
// the pipeline's error chain.
var (
	// ErrConfiguration marks an invalid parameter value. It is raised
	// before any computation and the message names the offending
	// parameter.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrKeyMismatch marks an internal consistency failure when joining
	// intermediate results. It indicates a programming-invariant
	// violation and is never silently dropped.
	ErrKeyMismatch = errors.New("key mismatch between intermediate results")
)
