package cluster

import (
	"fmt"

	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/matrix"
)

// Dataset bundles an expression/loading matrix with the embeddings computed
// for it. Rows are items (genes or cells), columns are features.
type Dataset struct {
	Expression *matrix.Labeled
	embeddings *embedding.Store
}

// NewDataset wraps an expression matrix.
func NewDataset(expr *matrix.Labeled) (*Dataset, error) {
	if expr == nil {
		return nil, fmt.Errorf("expression matrix must not be nil")
	}
	return &Dataset{
		Expression: expr,
		embeddings: embedding.NewStore(),
	}, nil
}

// RegisterEmbedding stores precomputed coordinates for a reduction method.
// The coordinate rows must cover exactly the expression rows.
func (d *Dataset) RegisterEmbedding(m embedding.Method, coords *matrix.Labeled) error {
	if coords == nil {
		return fmt.Errorf("coordinates must not be nil")
	}
	rows, _ := coords.Dims()
	exprRows, _ := d.Expression.Dims()
	if rows != exprRows {
		return fmt.Errorf("coordinate rows %d do not match expression rows %d", rows, exprRows)
	}
	for _, id := range d.Expression.RowIDs {
		if _, ok := coords.RowIndex(id); !ok {
			return fmt.Errorf("coordinates missing row %q", id)
		}
	}
	return d.embeddings.Register(m, coords)
}

// Embedding returns registered coordinates for a method.
func (d *Dataset) Embedding(m embedding.Method) (*matrix.Labeled, bool) {
	return d.embeddings.Get(m)
}

// resolveEmbedding fetches or computes coordinates for the method.
func (d *Dataset) resolveEmbedding(m embedding.Method, dims int) (*matrix.Labeled, error) {
	return d.embeddings.Resolve(m, d.Expression, dims)
}
