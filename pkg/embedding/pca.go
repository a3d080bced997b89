package embedding

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/t-carroll/monocle3/pkg/matrix"
)

// Provider maps an (items x features) matrix to an (items x dims) matrix.
// Implementations must be deterministic or fully seeded; the clustering
// core treats them as black boxes.
type Provider interface {
	Method() Method
	Reduce(m *matrix.Labeled, dims int) (*matrix.Labeled, error)
}

// PCAProvider computes principal-component coordinates with gonum's stat
// package. It is the only provider the module computes itself; UMAP and
// tSNE coordinates must come precomputed through a Store.
type PCAProvider struct{}

// Method implements Provider.
func (PCAProvider) Method() Method { return PCA }

// Reduce projects the centered input onto its first dims principal
// components. Row ids carry over; columns are labeled dim_1..dim_d.
func (PCAProvider) Reduce(m *matrix.Labeled, dims int) (*matrix.Labeled, error) {
	r, c := m.Dims()
	if dims < 1 {
		return nil, fmt.Errorf("dims must be positive, got %d", dims)
	}
	if dims > c {
		return nil, fmt.Errorf("dims %d exceeds feature count %d", dims, c)
	}
	if r < 2 {
		return nil, fmt.Errorf("PCA needs at least 2 rows, got %d", r)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(m.Data, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centered := centerColumns(m.Data)

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, c, 0, dims))

	out := mat.NewDense(r, dims, nil)
	out.Copy(&proj)

	return matrix.NewLabeled(out, m.RowIDs, dimLabels(dims))
}

func centerColumns(data *mat.Dense) *mat.Dense {
	r, c := data.Dims()
	centered := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, data)
		mean := stat.Mean(col, nil)
		for i := 0; i < r; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}
	return centered
}

func dimLabels(dims int) []string {
	labels := make([]string, dims)
	for i := range labels {
		labels[i] = fmt.Sprintf("dim_%d", i+1)
	}
	return labels
}
