package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/cluster"
)

// parameterKeys maps request parameter names to configuration keys.
var parameterKeys = map[string]string{
	"reduction_method": "clustering.reduction_method",
	"k":                "clustering.k",
	"louvain_iter":     "clustering.louvain_iter",
	"weight":           "clustering.weight",
	"resolution":       "clustering.resolution",
	"random_seed":      "clustering.random_seed",
	"cores":            "clustering.cores",
	"max_components":   "clustering.max_components",
	"qval":             "partition.qval",
	"correction":       "partition.correction",
	"log_level":        "logging.level",
}

// buildConfig turns request parameters into a validated pipeline config.
func buildConfig(params map[string]interface{}) (*cluster.Config, error) {
	cfg := cluster.NewConfig()
	for name, value := range params {
		key, ok := parameterKeys[name]
		if !ok {
			return nil, fmt.Errorf("unknown parameter %q", name)
		}
		cfg.Set(key, value)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JobStore runs clustering jobs in the background and keeps their state
// and results in memory.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	results  map[string]*cluster.Result
	workers  chan struct{}
	datasets *DatasetStore
	logger   zerolog.Logger
	ttl      time.Duration
	stop     chan struct{}
}

// NewJobStore creates a job store draining at most maxWorkers jobs at a
// time. The cleanup loop drops jobs idle longer than ttl.
func NewJobStore(datasets *DatasetStore, maxWorkers int, ttl, cleanupEvery time.Duration, logger zerolog.Logger) *JobStore {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	s := &JobStore{
		jobs:     make(map[string]*Job),
		results:  make(map[string]*cluster.Result),
		workers:  make(chan struct{}, maxWorkers),
		datasets: datasets,
		logger:   logger,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.cleanupLoop(cleanupEvery)
	return s
}

// Close stops the cleanup loop.
func (s *JobStore) Close() {
	close(s.stop)
}

// Submit queues a clustering job and processes it in the background.
func (s *JobStore) Submit(datasetID string, params map[string]interface{}) (*Job, error) {
	cfg, err := buildConfig(params)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.datasets.Get(datasetID); err != nil {
		return nil, err
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.Info().
		Str("job_id", job.ID).
		Str("dataset_id", datasetID).
		Msg("Clustering job submitted")

	go s.process(job.ID, cfg)

	return s.snapshot(job.ID)
}

// Run executes a clustering job synchronously and returns the completed
// job together with its result.
func (s *JobStore) Run(datasetID string, params map[string]interface{}) (*Job, *cluster.Result, error) {
	cfg, err := buildConfig(params)
	if err != nil {
		return nil, nil, err
	}
	ds, _, err := s.datasets.Get(datasetID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.New().String(),
		DatasetID: datasetID,
		Status:    JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	result, err := cluster.ClusterGenes(ds, cfg)
	if err != nil {
		s.fail(job.ID, err)
		snap, _ := s.snapshot(job.ID)
		return snap, nil, err
	}
	s.complete(job.ID, result)
	snap, _ := s.snapshot(job.ID)
	return snap, result, nil
}

// Get returns a copy of the job state.
func (s *JobStore) Get(jobID string) (*Job, error) {
	return s.snapshot(jobID)
}

// Result returns the full result of a completed job.
func (s *JobStore) Result(jobID string) (*cluster.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[jobID]
	if !ok {
		return nil, fmt.Errorf("result not found for job: %s", jobID)
	}
	return result, nil
}

// process runs a queued job inside a worker slot.
func (s *JobStore) process(jobID string, cfg *cluster.Config) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	datasetID := job.DatasetID
	job.Status = JobStatusRunning
	job.UpdatedAt = time.Now()
	s.mu.Unlock()

	ds, _, err := s.datasets.Get(datasetID)
	if err != nil {
		s.fail(jobID, err)
		return
	}

	result, err := cluster.ClusterGenes(ds, cfg)
	if err != nil {
		s.fail(jobID, err)
		return
	}
	s.complete(jobID, result)
}

func (s *JobStore) complete(jobID string, result *cluster.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = JobStatusCompleted
	job.UpdatedAt = now
	job.CompletedAt = &now
	job.Summary = &JobSummary{
		Method:        string(result.Method),
		Modularity:    result.Modularity,
		NumClusters:   result.NumClusters,
		NumPartitions: result.NumPartitions,
	}
	s.results[jobID] = result

	s.logger.Info().
		Str("job_id", jobID).
		Float64("modularity", result.Modularity).
		Int("clusters", result.NumClusters).
		Int("partitions", result.NumPartitions).
		Msg("Clustering job completed")
}

func (s *JobStore) fail(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.UpdatedAt = now
	job.CompletedAt = &now

	s.logger.Error().
		Str("job_id", jobID).
		Err(err).
		Msg("Clustering job failed")
}

// snapshot returns a copy so callers never see concurrent mutation.
func (s *JobStore) snapshot(jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	snap := *job
	if job.Summary != nil {
		summary := *job.Summary
		snap.Summary = &summary
	}
	return &snap, nil
}

func (s *JobStore) cleanupLoop(every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *JobStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.ttl)
	cleaned := 0
	for jobID, job := range s.jobs {
		if job.UpdatedAt.Before(cutoff) && job.Status != JobStatusRunning {
			delete(s.jobs, jobID)
			delete(s.results, jobID)
			cleaned++
		}
	}
	if cleaned > 0 {
		s.logger.Info().Int("cleaned_jobs", cleaned).Msg("Job cleanup completed")
	}
}
