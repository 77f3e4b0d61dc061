package sim

import "strconv"

// SimulateBD runs one seeded single-introduction birth-death simulation and
// returns the Newick string of the sampled phylogeny. On failure, whether by
// early extinction or by exhausting the case budget, it returns the empty
// string. Invalid parameters are a programmer error and panic; validate with
// NewSimulator when the parameters come from the outside.
func SimulateBD(seed int64, maxCases, maxSamples int, r0, di, rho float64) string {
	cfg := Config{R0: r0, DI: di, Rho: rho, MaxCases: maxCases, MaxSamples: maxSamples}
	s, err := NewSimulator(cfg, NewRNG(seed))
	if err != nil {
		panic(err)
	}

	s.InitialiseSingleInfection()
	if _, err := s.Run(); err != nil {
		return ""
	}

	roots := s.Tree.SubsampleTree()
	if len(roots) == 0 {
		return ""
	}
	return Newick(BuildAncestralTree(roots[0]), strconv.Itoa)
}
