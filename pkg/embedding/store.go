package embedding

import (
	"fmt"
	"sync"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

// Store holds precomputed coordinates keyed by reduction method. It is safe
// for concurrent use; registered matrices are treated as read-only.
type Store struct {
	mu     sync.RWMutex
	coords map[Method]*matrix.Labeled
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{coords: make(map[Method]*matrix.Labeled)}
}

// Register stores coordinates for a method, replacing any previous entry.
func (s *Store) Register(m Method, coords *matrix.Labeled) error {
	if coords == nil {
		return fmt.Errorf("coordinates for %s must not be nil", m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords[m] = coords
	return nil
}

// Get returns registered coordinates for a method.
func (s *Store) Get(m Method) (*matrix.Labeled, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coords, ok := s.coords[m]
	return coords, ok
}

// Resolve returns coordinates for the requested method, computing a PCA
// projection on demand when none is registered. Other methods fail with
// ErrMissing since this module does not implement them.
func (s *Store) Resolve(m Method, expr *matrix.Labeled, dims int) (*matrix.Labeled, error) {
	if coords, ok := s.Get(m); ok {
		return coords, nil
	}
	if m == PCA {
		coords, err := PCAProvider{}.Reduce(expr, dims)
		if err != nil {
			return nil, fmt.Errorf("computing PCA coordinates: %w", err)
		}
		if err := s.Register(PCA, coords); err != nil {
			return nil, err
		}
		return coords, nil
	}
	return nil, fmt.Errorf("%w %s: register coordinates for it first", ErrMissing, m)
}
