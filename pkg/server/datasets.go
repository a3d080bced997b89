package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/t-carroll/monocle3/pkg/cluster"
	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/matrix"
)

// DatasetStore keeps uploaded datasets in memory keyed by uuid.
type DatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*datasetRecord
}

type datasetRecord struct {
	info    DatasetInfo
	dataset *cluster.Dataset
	methods map[embedding.Method]bool
}

// NewDatasetStore creates an empty store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{datasets: make(map[string]*datasetRecord)}
}

// Add validates and stores a dataset from an upload request.
func (s *DatasetStore) Add(req *UploadDatasetRequest) (*DatasetInfo, error) {
	rows, cols := len(req.RowIDs), len(req.ColIDs)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("row_ids and col_ids must be non-empty")
	}
	if len(req.Values) != rows {
		return nil, fmt.Errorf("values has %d rows, expected %d", len(req.Values), rows)
	}
	flat := make([]float64, 0, rows*cols)
	for i, row := range req.Values {
		if len(row) != cols {
			return nil, fmt.Errorf("values row %d has %d columns, expected %d", i, len(row), cols)
		}
		flat = append(flat, row...)
	}

	m, err := matrix.NewLabeled(mat.NewDense(rows, cols, flat), req.RowIDs, req.ColIDs)
	if err != nil {
		return nil, err
	}
	ds, err := cluster.NewDataset(m)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = "unnamed dataset"
	}
	rec := &datasetRecord{
		info: DatasetInfo{
			ID:         uuid.New().String(),
			Name:       name,
			Rows:       rows,
			Cols:       cols,
			Embeddings: []string{},
			CreatedAt:  time.Now(),
		},
		dataset: ds,
		methods: make(map[embedding.Method]bool),
	}

	s.mu.Lock()
	s.datasets[rec.info.ID] = rec
	s.mu.Unlock()

	info := rec.info
	return &info, nil
}

// RegisterEmbedding attaches precomputed coordinates to a dataset.
func (s *DatasetStore) RegisterEmbedding(id string, req *RegisterEmbeddingRequest) (*DatasetInfo, error) {
	method, err := embedding.ParseMethod(req.Method)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset not found: %s", id)
	}
	if len(req.Coords) != rec.info.Rows {
		return nil, fmt.Errorf("coords has %d rows, dataset has %d", len(req.Coords), rec.info.Rows)
	}
	dims := 0
	if len(req.Coords) > 0 {
		dims = len(req.Coords[0])
	}
	if dims == 0 {
		return nil, fmt.Errorf("coords rows must be non-empty")
	}
	flat := make([]float64, 0, len(req.Coords)*dims)
	for i, row := range req.Coords {
		if len(row) != dims {
			return nil, fmt.Errorf("coords row %d has %d columns, expected %d", i, len(row), dims)
		}
		flat = append(flat, row...)
	}
	colIDs := make([]string, dims)
	for j := range colIDs {
		colIDs[j] = fmt.Sprintf("dim_%d", j+1)
	}

	coords, err := matrix.NewLabeled(mat.NewDense(len(req.Coords), dims, flat),
		rec.dataset.Expression.RowIDs, colIDs)
	if err != nil {
		return nil, err
	}
	if err := rec.dataset.RegisterEmbedding(method, coords); err != nil {
		return nil, err
	}

	rec.methods[method] = true
	rec.info.Embeddings = methodNames(rec.methods)
	info := rec.info
	return &info, nil
}

// Get returns the dataset handle and its metadata.
func (s *DatasetStore) Get(id string) (*cluster.Dataset, *DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.datasets[id]
	if !ok {
		return nil, nil, fmt.Errorf("dataset not found: %s", id)
	}
	info := rec.info
	return rec.dataset, &info, nil
}

// List returns metadata for all datasets, newest first.
func (s *DatasetStore) List() []DatasetInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]DatasetInfo, 0, len(s.datasets))
	for _, rec := range s.datasets {
		infos = append(infos, rec.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos
}

// Delete removes a dataset.
func (s *DatasetStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[id]; !ok {
		return fmt.Errorf("dataset not found: %s", id)
	}
	delete(s.datasets, id)
	return nil
}

func methodNames(methods map[embedding.Method]bool) []string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, string(m))
	}
	sort.Strings(names)
	return names
}
