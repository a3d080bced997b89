package partition

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// PValue computes the probability of observing at least nCross edges
// between two clusters under a null model where crossing edges are Poisson
// distributed with rate proportional to the product of the cluster sizes
// and the graph's overall edge density (density-peak style test, Rodriguez
// & Laio 2014).
func PValue(nCross, size1, size2, totalEdges, totalNodes int) float64 {
	if nCross <= 0 {
		return 1
	}
	pairs := float64(totalNodes) * float64(totalNodes-1) / 2
	if pairs <= 0 || totalEdges <= 0 {
		return 0
	}
	density := float64(totalEdges) / pairs
	lambda := density * float64(size1) * float64(size2)
	if lambda <= 0 {
		return 0
	}
	// P(X >= n) = 1 - CDF(n-1)
	return distuv.Poisson{Lambda: lambda}.Survival(float64(nCross) - 1)
}

// Correction selects the multiple-testing correction applied across the
// coarsened graph's edges before thresholding.
type Correction int

const (
	// CorrectionBH applies the Benjamini-Hochberg false-discovery-rate
	// adjustment.
	CorrectionBH Correction = iota
	// CorrectionBonferroni multiplies every p-value by the test count.
	CorrectionBonferroni
	// CorrectionNone leaves raw p-values untouched.
	CorrectionNone
)

// String implements fmt.Stringer.
func (c Correction) String() string {
	switch c {
	case CorrectionBH:
		return "BH"
	case CorrectionBonferroni:
		return "bonferroni"
	case CorrectionNone:
		return "none"
	}
	return fmt.Sprintf("Correction(%d)", int(c))
}

// ParseCorrection maps a configuration string to a Correction.
func ParseCorrection(s string) (Correction, error) {
	switch strings.ToLower(s) {
	case "bh", "fdr":
		return CorrectionBH, nil
	case "bonferroni":
		return CorrectionBonferroni, nil
	case "none":
		return CorrectionNone, nil
	}
	return 0, fmt.Errorf("unknown correction method %q (expected BH, bonferroni or none)", s)
}

// adjust returns corrected p-values in the input order.
func (c Correction) adjust(pvals []float64) []float64 {
	m := len(pvals)
	out := make([]float64, m)
	switch c {
	case CorrectionNone:
		copy(out, pvals)
	case CorrectionBonferroni:
		for i, p := range pvals {
			out[i] = clamp01(p * float64(m))
		}
	case CorrectionBH:
		order := make([]int, m)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return pvals[order[a]] < pvals[order[b]] })

		running := 1.0
		for rank := m - 1; rank >= 0; rank-- {
			idx := order[rank]
			adjusted := pvals[idx] * float64(m) / float64(rank+1)
			if adjusted < running {
				running = adjusted
			}
			out[idx] = clamp01(running)
		}
	}
	return out
}

func clamp01(p float64) float64 {
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
