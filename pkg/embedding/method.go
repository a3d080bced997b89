// Package embedding resolves low-dimensional coordinates for the clustering
// pipeline. Coordinates are either registered up front (UMAP, tSNE, or an
// externally computed PCA) or, for PCA only, computed on demand from the
// expression matrix.
package embedding

import (
	"errors"
	"fmt"
	"strings"
)

// Method identifies a dimensionality-reduction source.
type Method string

const (
	UMAP Method = "UMAP"
	TSNE Method = "tSNE"
	PCA  Method = "PCA"
)

// ErrMissing is returned when coordinates for a requested method have not
// been registered and cannot be computed on demand.
var ErrMissing = errors.New("no embedding available for reduction method")

// ParseMethod maps a configuration string to a Method. Matching is
// case-insensitive.
func ParseMethod(s string) (Method, error) {
	switch strings.ToUpper(s) {
	case "UMAP":
		return UMAP, nil
	case "TSNE", "T-SNE":
		return TSNE, nil
	case "PCA":
		return PCA, nil
	}
	return "", fmt.Errorf("unknown reduction method %q (expected UMAP, tSNE or PCA)", s)
}
