package louvain

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/knn"
)

// ErrDegenerateGraph is returned for graphs with no edges, where modularity
// is undefined.
var ErrDegenerateGraph = errors.New("graph has no edges, modularity is undefined")

// Options controls community detection.
type Options struct {
	// Resolutions to sweep; empty means the single default resolution 1.0.
	Resolutions []float64
	// Trials is the number of independent optimization runs. The run with
	// the highest modularity wins.
	Trials int
	// Seed drives the random node ordering. With Trials == 1 it makes the
	// run fully deterministic. With Trials > 1 each trial uses Seed+trial,
	// keeping multi-trial runs reproducible while every trial still
	// explores its own ordering. A negative Seed draws fresh entropy.
	Seed int64
	// Workers bounds trial-level parallelism; <=1 runs trials serially.
	Workers int

	// Optimization limits, defaulted when zero.
	MaxLevels     int
	MaxIterations int
	MinGain       float64

	Logger zerolog.Logger
}

// Assignment is the outcome of one community-detection run: a disjoint
// cluster label per node plus the modularity score it achieved.
type Assignment struct {
	Labels         []int // node index -> cluster id, compact 0..NumCommunities-1
	NumCommunities int
	Modularity     float64
	Resolution     float64
	Trial          int
}

type job struct {
	index      int
	trial      int
	resolution float64
	seed       int64
}

// Detect runs modularity-optimizing community detection over trials and
// resolution values and returns the assignment with the globally maximum
// modularity. Ties break toward the earliest trial/resolution combination
// in sweep order. The graph is shared read-only across trials.
func Detect(g *knn.Graph, opts Options) (*Assignment, error) {
	if g == nil || g.NumNodes == 0 || g.TotalWeight == 0 {
		return nil, ErrDegenerateGraph
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	trials := opts.Trials
	if trials < 1 {
		trials = 1
	}
	resolutions := opts.Resolutions
	if len(resolutions) == 0 {
		resolutions = []float64{1.0}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	maxLevels := opts.MaxLevels
	if maxLevels <= 0 {
		maxLevels = 10
	}
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 100
	}
	minGain := opts.MinGain
	if minGain <= 0 {
		minGain = 1e-9
	}

	baseSeed := opts.Seed
	if baseSeed < 0 {
		baseSeed = time.Now().UnixNano()
	}

	jobs := make([]job, 0, trials*len(resolutions))
	for t := 0; t < trials; t++ {
		for _, res := range resolutions {
			jobs = append(jobs, job{
				index:      len(jobs),
				trial:      t,
				resolution: res,
				seed:       baseSeed + int64(t),
			})
		}
	}

	results := make([]*Assignment, len(jobs))
	errs := make([]error, len(jobs))

	if workers > len(jobs) {
		workers = len(jobs)
	}
	queue := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range queue {
				rng := rand.New(rand.NewSource(j.seed))
				a, err := runOnce(g, j.resolution, minGain, maxLevels, maxIterations, rng, opts.Logger)
				if err != nil {
					errs[j.index] = err
					continue
				}
				a.Trial = j.trial
				results[j.index] = a
			}
		}()
	}
	for _, j := range jobs {
		queue <- j
	}
	close(queue)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	best := pickBest(results)
	opts.Logger.Info().
		Int("trials", trials).
		Int("resolutions", len(resolutions)).
		Int("winning_trial", best.Trial).
		Float64("resolution", best.Resolution).
		Float64("modularity", best.Modularity).
		Int("communities", best.NumCommunities).
		Msg("Community detection finished")

	return best, nil
}

// pickBest returns the maximum-modularity assignment; the first one in
// slice order wins ties.
func pickBest(results []*Assignment) *Assignment {
	var best *Assignment
	for _, a := range results {
		if a == nil {
			continue
		}
		if best == nil || a.Modularity > best.Modularity {
			best = a
		}
	}
	return best
}
