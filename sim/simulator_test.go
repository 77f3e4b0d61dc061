package sim

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero R0", Config{R0: 0, DI: 1, Rho: 0.1, MaxCases: 10, MaxSamples: 1}},
		{"negative dI", Config{R0: 2, DI: -1, Rho: 0.1, MaxCases: 10, MaxSamples: 1}},
		{"rho above one", Config{R0: 2, DI: 1, Rho: 1.5, MaxCases: 10, MaxSamples: 1}},
		{"rho negative", Config{R0: 2, DI: 1, Rho: -0.1, MaxCases: 10, MaxSamples: 1}},
		{"zero case budget", Config{R0: 2, DI: 1, Rho: 0.1, MaxCases: 0, MaxSamples: 1}},
		{"zero sample target", Config{R0: 2, DI: 1, Rho: 0.1, MaxCases: 10, MaxSamples: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulator(tt.cfg, NewRNG(1))
			assert.Error(t, err)
		})
	}
}

func TestDefaultConfig_StockBounds(t *testing.T) {
	cfg := DefaultConfig(2.5, 1.5, 0.2)
	assert.Equal(t, 2.5, cfg.R0)
	assert.Equal(t, 1.5, cfg.DI)
	assert.Equal(t, 0.2, cfg.Rho)
	assert.Equal(t, 100000000, cfg.MaxCases)
	assert.Equal(t, 10, cfg.MaxSamples)
}

func TestSimulator_SameSeedIdenticalResults(t *testing.T) {
	// BDD: deterministic replay, two fresh simulators with the same seed
	cfg := Config{R0: 3, DI: 1, Rho: 0.1, MaxCases: 1000000000, MaxSamples: 5}

	run := func(seed int64) (string, error) {
		s, err := NewSimulator(cfg, NewRNG(seed))
		require.NoError(t, err)
		s.InitialiseSingleInfection()
		if _, err := s.Run(); err != nil {
			return "", err
		}
		return Newick(BuildAncestralTree(s.Tree.SubsampleTree()[0]), intFmt), nil
	}

	nwk1, err1 := run(1)
	nwk2, err2 := run(1)
	assert.Equal(t, err1, err2)
	assert.Equal(t, nwk1, nwk2)
}

func TestSimulator_ResetReplaysIdentically(t *testing.T) {
	// A reset simulator with the same seed must reproduce the run exactly
	cfg := Config{R0: 3, DI: 1, Rho: 0.2, MaxCases: 1000000000, MaxSamples: 5}
	s, err := NewSimulator(cfg, NewRNG(9))
	require.NoError(t, err)

	runOnce := func() (string, error) {
		s.InitialiseSingleInfection()
		if _, err := s.Run(); err != nil {
			return "", err
		}
		return Newick(BuildAncestralTree(s.Tree.SubsampleTree()[0]), intFmt), nil
	}

	nwk1, err1 := runOnce()
	s.Reset(NewRNG(9))
	nwk2, err2 := runOnce()

	assert.Equal(t, err1, err2)
	assert.Equal(t, nwk1, nwk2)
}

func TestSimulator_DifferentSeedsDiverge(t *testing.T) {
	cfg := Config{R0: 5, DI: 1, Rho: 0.5, MaxCases: 1000000000, MaxSamples: 5}

	outputs := map[string]bool{}
	for seed := int64(1); seed <= 10; seed++ {
		s, err := NewSimulator(cfg, NewRNG(seed))
		require.NoError(t, err)
		s.InitialiseSingleInfection()
		if _, err := s.Run(); err != nil {
			outputs[""] = true
			continue
		}
		outputs[Newick(BuildAncestralTree(s.Tree.SubsampleTree()[0]), intFmt)] = true
	}
	assert.Greater(t, len(outputs), 1, "ten seeds produced a single distinct output")
}

func TestSimulator_SampleTargetShapesTheTree(t *testing.T) {
	// Five samples give a five-leaf phylogeny, hence four branching commas
	cfg := Config{R0: 3, DI: 1, Rho: 0.1, MaxCases: 1000000000, MaxSamples: 5}
	s := mustSuccessfulRun(t, cfg)

	phylo := BuildAncestralTree(s.Tree.SubsampleTree()[0])
	assert.Equal(t, 5, LeafCount(phylo))

	nwk := Newick(phylo, intFmt)
	assert.Equal(t, 4, strings.Count(nwk, ","))
	assert.True(t, strings.HasSuffix(nwk, ";"))
}

func TestSimulator_NoSamplingAlwaysFails(t *testing.T) {
	// With rho=0 nothing is ever sampled; the run must die by extinction
	// or by the case budget
	cfg := Config{R0: 3, DI: 1, Rho: 0, MaxCases: 2000, MaxSamples: 5}
	for seed := int64(1); seed <= 10; seed++ {
		s, err := NewSimulator(cfg, NewRNG(seed))
		require.NoError(t, err)
		s.InitialiseSingleInfection()

		res, err := s.Run()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEarlyExtinction) || errors.Is(err, ErrCaseBudgetExhausted))
		assert.Equal(t, 0, res.Sampled)
	}
}

func TestSimulator_SubcriticalGoesExtinct(t *testing.T) {
	// A subcritical epidemic cannot reach a large sample target
	cfg := Config{R0: 0.2, DI: 1, Rho: 0.05, MaxCases: 1000000000, MaxSamples: 100}
	for seed := int64(1); seed <= 20; seed++ {
		s, err := NewSimulator(cfg, NewRNG(seed))
		require.NoError(t, err)
		s.InitialiseSingleInfection()

		_, err = s.Run()
		assert.ErrorIs(t, err, ErrEarlyExtinction, "seed %d", seed)
	}
}

func TestSimulator_CaseBudgetExhaustion(t *testing.T) {
	// A tight budget with sparse sampling must hit the budget on any seed
	// that avoids early extinction
	cfg := Config{R0: 8, DI: 1, Rho: 0.001, MaxCases: 50, MaxSamples: 1000}

	sawBudget := false
	for seed := int64(1); seed <= 50 && !sawBudget; seed++ {
		s, err := NewSimulator(cfg, NewRNG(seed))
		require.NoError(t, err)
		s.InitialiseSingleInfection()

		res, err := s.Run()
		require.Error(t, err)
		if errors.Is(err, ErrCaseBudgetExhausted) {
			sawBudget = true
			assert.Greater(t, res.Cases, 50)
		}
	}
	assert.True(t, sawBudget, "no seed exhausted the case budget")
}

func TestSimulator_SingleSampleYieldsSingleLeaf(t *testing.T) {
	cfg := Config{R0: 2, DI: 1, Rho: 0.3, MaxCases: 1000000000, MaxSamples: 1}
	s := mustSuccessfulRun(t, cfg)

	nwk := Newick(BuildAncestralTree(s.Tree.SubsampleTree()[0]), intFmt)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]+:0\.000000;$`), nwk)
	assert.NotContains(t, nwk, ",")
}

func TestSimulator_FullSamplingBookkeeping(t *testing.T) {
	// With rho=1 every removal is a sampling; the at-most-once rule and the
	// leaf round-trip still hold
	cfg := Config{R0: 3, DI: 1, Rho: 1, MaxCases: 1000000000, MaxSamples: 5}
	s := mustSuccessfulRun(t, cfg)

	sampled := 0
	for _, n := range collectNodes(s.Tree.Roots()) {
		if n.Sampled {
			sampled++
		}
	}
	assert.Equal(t, 5, sampled)

	phylo := BuildAncestralTree(s.Tree.SubsampleTree()[0])
	assert.Equal(t, 5, LeafCount(phylo))
}

func TestSimulator_TreeInvariantsAfterRun(t *testing.T) {
	cfg := Config{R0: 3, DI: 1, Rho: 0.2, MaxCases: 1000000000, MaxSamples: 10}
	s := mustSuccessfulRun(t, cfg)
	checkTreeInvariants(t, s.Tree)

	res := s.result()
	assert.Equal(t, 10, res.Sampled)
	assert.Equal(t, s.Tree.NumNodes(), res.TreeNodes)
	assert.Equal(t, s.Tree.NumExtant(), res.Extant)
	assert.Equal(t, res.Infections+1, res.Cases, "every case but the introduction is an infection event")
}
