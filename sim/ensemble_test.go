package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylodyn/bdsim/sim/internal/testutil"
)

func TestRunEnsemble_RejectsNonPositiveReplicates(t *testing.T) {
	_, _, err := RunEnsemble(EnsembleConfig{Sim: DefaultConfig(2, 1, 0.1), Replicates: 0})
	assert.Error(t, err)
}

func TestRunEnsemble_RejectsInvalidSimConfig(t *testing.T) {
	_, _, err := RunEnsemble(EnsembleConfig{Sim: Config{R0: -1, DI: 1, Rho: 0.1, MaxCases: 10, MaxSamples: 1}, Replicates: 5})
	assert.Error(t, err)
}

func TestRunEnsemble_ReplicatesMatchStandaloneRuns(t *testing.T) {
	// Replicate r runs with seed BaseSeed+r; reusing the simulator across
	// seeds must not leak state, so each replicate has to match a fresh
	// standalone SimulateBD call
	cfg := EnsembleConfig{
		Sim:        Config{R0: 3, DI: 1, Rho: 0.3, MaxCases: 1000000000, MaxSamples: 5},
		Replicates: 20,
		BaseSeed:   1,
	}

	summary, reps, err := RunEnsemble(cfg)
	require.NoError(t, err)
	require.Len(t, reps, 20)

	successes := 0
	for _, rep := range reps {
		want := SimulateBD(rep.Seed, cfg.Sim.MaxCases, cfg.Sim.MaxSamples, cfg.Sim.R0, cfg.Sim.DI, cfg.Sim.Rho)
		assert.Equal(t, want, rep.Newick, "seed %d", rep.Seed)
		if rep.Outcome == OutcomeSuccess {
			successes++
			assert.Equal(t, cfg.Sim.MaxSamples, rep.Result.Sampled)
			assert.Greater(t, rep.Leaves, 0)
		} else {
			assert.Empty(t, rep.Newick)
		}
	}
	assert.Equal(t, successes, summary.Successes)
}

func TestRunEnsemble_Deterministic(t *testing.T) {
	cfg := EnsembleConfig{
		Sim:        Config{R0: 3, DI: 1, Rho: 0.3, MaxCases: 1000000000, MaxSamples: 5},
		Replicates: 10,
		BaseSeed:   7,
	}

	sum1, reps1, err := RunEnsemble(cfg)
	require.NoError(t, err)
	sum2, reps2, err := RunEnsemble(cfg)
	require.NoError(t, err)

	// everything but the batch label is seed-determined
	sum2.RunID = sum1.RunID
	assert.Equal(t, sum1, sum2)
	assert.Equal(t, reps1, reps2)
}

func TestRunEnsemble_SummaryStatistics(t *testing.T) {
	cfg := EnsembleConfig{
		Sim:        Config{R0: 3, DI: 1, Rho: 0.3, MaxCases: 1000000000, MaxSamples: 5},
		Replicates: 20,
		BaseSeed:   1,
	}

	summary, reps, err := RunEnsemble(cfg)
	require.NoError(t, err)

	var leafSum, heightSum float64
	n := 0
	for _, rep := range reps {
		if rep.Outcome != OutcomeSuccess {
			continue
		}
		leafSum += float64(rep.Leaves)
		heightSum += rep.Height
		n++
	}
	require.Greater(t, n, 0, "twenty supercritical seeds produced no success")

	testutil.AssertFloat64Equal(t, "leaf mean", leafSum/float64(n), summary.LeafMean, 1e-9)
	testutil.AssertFloat64Equal(t, "height mean", heightSum/float64(n), summary.HeightMean, 1e-9)
	assert.NotEmpty(t, summary.RunID)
}

func TestDescribe_Edges(t *testing.T) {
	mean, stddev, median, p90 := describe(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stddev)
	assert.Zero(t, median)
	assert.Zero(t, p90)

	mean, stddev, _, _ = describe([]float64{4})
	assert.Equal(t, 4.0, mean)
	assert.Zero(t, stddev, "a single observation has no spread")
}
