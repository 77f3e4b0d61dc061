package sim

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Replicate outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeExtinction = "extinction"
	OutcomeBudget     = "budget"
)

// EnsembleConfig describes a batch of independent replicate simulations.
// Replicate r runs with seed BaseSeed + r, so the whole batch is determined
// by (BaseSeed, Replicates, Sim).
type EnsembleConfig struct {
	Sim        Config
	Replicates int
	BaseSeed   int64
}

// Replicate records the outcome of one seed.
type Replicate struct {
	Seed    int64
	Outcome string
	Newick  string  // empty unless Outcome is success
	Leaves  int     // tips in the sampled phylogeny
	Height  float64 // latest tip time
	Result  Result
}

// EnsembleSummary aggregates replicate outcomes. The distribution summaries
// cover successful replicates only. RunID is a batch label for log
// correlation and is the one field not determined by the seed.
type EnsembleSummary struct {
	RunID      string
	Replicates int
	Successes  int

	LeafMean   float64
	LeafStdDev float64
	LeafMedian float64
	LeafP90    float64

	HeightMean   float64
	HeightStdDev float64
	HeightMedian float64
	HeightP90    float64
}

// RunEnsemble runs cfg.Replicates independent simulations, reusing a single
// simulator (and its lineage tree) across seeds.
func RunEnsemble(cfg EnsembleConfig) (*EnsembleSummary, []Replicate, error) {
	if cfg.Replicates <= 0 {
		return nil, nil, fmt.Errorf("ensemble: replicates must be positive, got %d", cfg.Replicates)
	}

	s, err := NewSimulator(cfg.Sim, NewRNG(cfg.BaseSeed))
	if err != nil {
		return nil, nil, err
	}

	runID := uuid.New().String()
	logrus.Infof("ensemble %s: %d replicates, base seed %d", runID, cfg.Replicates, cfg.BaseSeed)

	replicates := make([]Replicate, 0, cfg.Replicates)
	var leaves, heights []float64

	for r := 0; r < cfg.Replicates; r++ {
		seed := cfg.BaseSeed + int64(r)
		s.Reset(NewRNG(seed))
		s.InitialiseSingleInfection()

		res, err := s.Run()
		rep := Replicate{Seed: seed, Result: *res}
		switch {
		case err == nil:
			rep.Outcome = OutcomeSuccess
			roots := s.Tree.SubsampleTree()
			phylo := BuildAncestralTree(roots[0])
			rep.Newick = Newick(phylo, strconv.Itoa)
			rep.Leaves = LeafCount(phylo)
			rep.Height = TreeHeight(phylo)
			leaves = append(leaves, float64(rep.Leaves))
			heights = append(heights, rep.Height)
		case errors.Is(err, ErrCaseBudgetExhausted):
			rep.Outcome = OutcomeBudget
		default:
			rep.Outcome = OutcomeExtinction
		}
		logrus.Debugf("ensemble %s: seed %d -> %s (%d leaves)", runID, seed, rep.Outcome, rep.Leaves)
		replicates = append(replicates, rep)
	}

	summary := &EnsembleSummary{
		RunID:      runID,
		Replicates: cfg.Replicates,
		Successes:  len(leaves),
	}
	summary.LeafMean, summary.LeafStdDev, summary.LeafMedian, summary.LeafP90 = describe(leaves)
	summary.HeightMean, summary.HeightStdDev, summary.HeightMedian, summary.HeightP90 = describe(heights)
	return summary, replicates, nil
}

// describe computes mean, standard deviation, median and 90th percentile of
// xs. A single observation has zero spread; no observations yield zeros.
func describe(xs []float64) (mean, stddev, median, p90 float64) {
	if len(xs) == 0 {
		return 0, 0, 0, 0
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		stddev = stat.StdDev(sorted, nil)
	}
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	return mean, stddev, median, p90
}
