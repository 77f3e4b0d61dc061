package sim

import "github.com/sirupsen/logrus"

// Result summarizes a completed (or failed) simulation run.
type Result struct {
	FinalTime  float64 // simulation clock at the stopping condition
	Cases      int     // cumulative lineages ever created
	Sampled    int     // lineages marked as sampled
	Infections int     // transmission events
	Removals   int     // removal events
	Extant     int     // lineages still infectious at the end
	TreeNodes  int     // nodes alive in the pruned transmission tree
}

// Log emits the run summary at info level.
func (r *Result) Log() {
	logrus.Infof("simulation ended at t=%.4f: %d cases, %d sampled, %d extant, %d tree nodes (%d infections, %d removals)",
		r.FinalTime, r.Cases, r.Sampled, r.Extant, r.TreeNodes, r.Infections, r.Removals)
}
