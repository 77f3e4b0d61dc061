// Package sim provides an exact stochastic simulator for birth-death
// epidemics with incidental sampling, and the machinery to turn a realized
// transmission history into a sampled phylogenetic tree.
//
// # Reading Guide
//
// Start with these three files to understand the core:
//   - lineage_tree.go: the online transmission tree, its eager pruning rules,
//     and the subsampling pass that produces the reduced tree
//   - simulator.go: the Gillespie event loop over transmission and removal
//   - phylo.go: the conversion from a reduced (multifurcating) transmission
//     tree to a strictly binary time-stamped phylogeny
//
// # Architecture
//
// The simulator records every event in a LineageTree, which prunes extinct
// unsampled branches the moment they become unreachable, so memory tracks
// the extant population rather than cumulative cases. At the end of a
// successful run, SubsampleTree extracts the minimal tree connecting the
// sampled lineages, BuildAncestralTree expands it into a binary phylogeny,
// and Newick/NHX serialize it.
//
// SimulateBD in bd.go wires the whole pipeline behind a single seeded call;
// RunEnsemble in ensemble.go repeats it across replicate seeds and
// aggregates outcome statistics.
//
// All randomness flows through the RNG handle in rng.go: one seed, one
// output, byte for byte.
package sim
