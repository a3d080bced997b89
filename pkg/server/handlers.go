package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/cluster"
	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/knn"
	"github.com/t-carroll/monocle3/pkg/louvain"
)

// Handlers contains the HTTP request handlers.
type Handlers struct {
	datasets *DatasetStore
	jobs     *JobStore
	logger   zerolog.Logger
}

// NewHandlers wires handlers to their stores.
func NewHandlers(datasets *DatasetStore, jobs *JobStore, logger zerolog.Logger) *Handlers {
	return &Handlers{datasets: datasets, jobs: jobs, logger: logger}
}

// UploadDataset stores a matrix posted as JSON.
func (h *Handlers) UploadDataset(w http.ResponseWriter, r *http.Request) {
	var req UploadDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	info, err := h.datasets.Add(&req)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Dataset upload failed", err)
		return
	}

	h.logger.Info().
		Str("dataset_id", info.ID).
		Str("name", info.Name).
		Int("rows", info.Rows).
		Int("cols", info.Cols).
		Msg("Dataset uploaded")

	writeSuccess(w, h.logger, "Dataset uploaded successfully", info)
}

// ListDatasets lists all datasets.
func (h *Handlers) ListDatasets(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.logger, "Datasets retrieved successfully", h.datasets.List())
}

// GetDataset retrieves dataset metadata.
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	_, info, err := h.datasets.Get(datasetID)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Dataset not found", err)
		return
	}
	writeSuccess(w, h.logger, "Dataset retrieved successfully", info)
}

// DeleteDataset deletes a dataset.
func (h *Handlers) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	if err := h.datasets.Delete(datasetID); err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Dataset not found", err)
		return
	}
	writeSuccess(w, h.logger, "Dataset deleted successfully", nil)
}

// RegisterEmbedding attaches precomputed coordinates to a dataset.
func (h *Handlers) RegisterEmbedding(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	var req RegisterEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	info, err := h.datasets.RegisterEmbedding(datasetID, &req)
	if err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		writeError(w, h.logger, status, "Embedding registration failed", err)
		return
	}

	h.logger.Info().
		Str("dataset_id", datasetID).
		Str("method", req.Method).
		Msg("Embedding registered")

	writeSuccess(w, h.logger, "Embedding registered successfully", info)
}

// StartClustering submits a clustering job. With ?wait=true the pipeline
// runs synchronously and the response carries the full result.
func (h *Handlers) StartClustering(w http.ResponseWriter, r *http.Request) {
	datasetID := mux.Vars(r)["datasetId"]

	var req StartClusteringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		job, result, err := h.jobs.Run(datasetID, req.Parameters)
		if err != nil {
			writeError(w, h.logger, pipelineStatus(err), "Clustering failed", err)
			return
		}
		writeSuccess(w, h.logger, "Clustering completed", StartClusteringResponse{
			Job:    job,
			Result: result,
		})
		return
	}

	job, err := h.jobs.Submit(datasetID, req.Parameters)
	if err != nil {
		writeError(w, h.logger, pipelineStatus(err), "Clustering submission failed", err)
		return
	}
	writeSuccess(w, h.logger, "Clustering job submitted", StartClusteringResponse{Job: job})
}

// GetJob retrieves job state.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobs.Get(jobID)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Job not found", err)
		return
	}
	writeSuccess(w, h.logger, "Job retrieved successfully", job)
}

// GetJobResult retrieves the row-level result of a completed job.
func (h *Handlers) GetJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	result, err := h.jobs.Result(jobID)
	if err != nil {
		writeError(w, h.logger, http.StatusNotFound, "Result not found", err)
		return
	}
	writeSuccess(w, h.logger, "Result retrieved successfully", result)
}

// HealthCheck reports liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.logger, "ok", map[string]string{"status": "healthy"})
}

// pipelineStatus maps pipeline errors to HTTP status codes at the edge.
func pipelineStatus(err error) int {
	switch {
	case errors.Is(err, cluster.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, embedding.ErrMissing),
		errors.Is(err, knn.ErrInsufficientData),
		errors.Is(err, louvain.ErrDegenerateGraph),
		errors.Is(err, cluster.ErrKeyMismatch):
		return http.StatusUnprocessableEntity
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	case strings.Contains(err.Error(), "unknown parameter"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
