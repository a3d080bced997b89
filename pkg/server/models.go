package server

import (
	"time"

	"github.com/t-carroll/monocle3/pkg/cluster"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// JobStatus tracks a clustering job through its lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the externally visible state of a clustering run.
type Job struct {
	ID          string      `json:"id"`
	DatasetID   string      `json:"dataset_id"`
	Status      JobStatus   `json:"status"`
	Error       string      `json:"error,omitempty"`
	Summary     *JobSummary `json:"summary,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// JobSummary carries the headline numbers of a completed run; the full
// row-level result is fetched separately.
type JobSummary struct {
	Method        string  `json:"reduction_method"`
	Modularity    float64 `json:"modularity"`
	NumClusters   int     `json:"num_clusters"`
	NumPartitions int     `json:"num_partitions"`
}

// DatasetInfo is the metadata view of a stored dataset.
type DatasetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Embeddings []string  `json:"embeddings"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadDatasetRequest is the JSON body for dataset creation.
type UploadDatasetRequest struct {
	Name   string      `json:"name"`
	RowIDs []string    `json:"row_ids"`
	ColIDs []string    `json:"col_ids"`
	Values [][]float64 `json:"values"`
}

// RegisterEmbeddingRequest attaches precomputed coordinates to a dataset.
type RegisterEmbeddingRequest struct {
	Method string      `json:"method"`
	Coords [][]float64 `json:"coords"`
}

// StartClusteringRequest starts a pipeline run. Parameters use the
// configuration key names without their section prefix, e.g. "k",
// "resolution", "qval".
type StartClusteringRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
}

// StartClusteringResponse is returned on job submission; Result is set
// only for synchronous (wait=true) requests.
type StartClusteringResponse struct {
	Job    *Job            `json:"job"`
	Result *cluster.Result `json:"result,omitempty"`
}
