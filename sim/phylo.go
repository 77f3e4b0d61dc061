package sim

import "sort"

// PhyloNode is one node of a strictly binary, time-stamped phylogenetic
// tree. Internal nodes carry the branching instant; leaves carry the
// sampling instant. A node is a leaf exactly when both children are nil.
type PhyloNode[L comparable, D any] struct {
	Lng       L
	Data      D
	LocSample string

	T     float64 // event time at this node
	Dt    float64 // branch length to the parent, 0 at the root
	Depth int     // position within a multifurcation expansion chain

	Left  *PhyloNode[L, D]
	Right *PhyloNode[L, D]
}

// IsLeaf reports whether the node is a tip of the phylogeny.
func (p *PhyloNode[L, D]) IsLeaf() bool {
	return p.Left == nil && p.Right == nil
}

// BuildAncestralTree converts a reduced transmission tree into a binary
// phylogeny. Sampled lineages appear as leaves and internal nodes correspond
// to past infection events; a lineage that was sampled and still has sampled
// descendants shows up both as an internal chain and as a zero-length leaf
// at its sampling time.
//
// A multifurcating transmission node expands into a right-leaning chain of
// binary nodes, one per branching event in chronological order. The input
// must satisfy the pruning invariants: every unsampled node carries at least
// two children. A violation indicates a bug in pruning and panics.
func BuildAncestralTree[L comparable, D any](root *LineageNode[L, D]) *PhyloNode[L, D] {
	if root == nil {
		return nil
	}
	return buildPhylo(root, nil)
}

func buildPhylo[L comparable, D any](n *LineageNode[L, D], parent *PhyloNode[L, D]) *PhyloNode[L, D] {
	k := len(n.Children)

	if k == 0 {
		if !n.Sampled {
			panic("phylo: unsampled leaf in reduced transmission tree")
		}
		tip := &PhyloNode[L, D]{
			Lng:       n.Lng,
			Data:      n.Data,
			LocSample: n.LocSample,
			T:         n.TSample,
		}
		tip.Dt = branchLength(parent, tip.T)
		return tip
	}
	if !n.Sampled && k < 2 {
		panic("phylo: unsampled internal node with a single child")
	}

	children := append([]*LineageNode[L, D](nil), n.Children...)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].TBranchParent < children[j].TBranchParent
	})

	// The chain events are the child branchings, interleaved with the
	// sampling event when n itself was sampled. A nil entry stands for the
	// sampling event. When the sampling time ties with a branching time,
	// the sampled tip attaches before the equal-time child.
	events := children
	if n.Sampled {
		attach := k
		for i, c := range children {
			if n.TSample <= c.TBranchParent {
				attach = i
				break
			}
		}
		events = make([]*LineageNode[L, D], 0, k+1)
		events = append(events, children[:attach]...)
		events = append(events, nil)
		events = append(events, children[attach:]...)
	}

	// All but the final event become internal chain nodes; the final event
	// fills the open slot of the last one.
	m := len(events) - 1
	var chainRoot, prev *PhyloNode[L, D]
	for j := 0; j < m; j++ {
		node := &PhyloNode[L, D]{Lng: n.Lng, Data: n.Data, Depth: j}
		if ev := events[j]; ev != nil {
			node.T = ev.TBranchParent
		} else {
			node.T = n.TSample
		}

		if prev == nil {
			node.Dt = branchLength(parent, node.T)
			chainRoot = node
		} else {
			node.Dt = node.T - prev.T
			linkContinuation(prev, events[j-1], node)
		}

		if ev := events[j]; ev != nil {
			node.Left = buildPhylo(ev, node)
		} else {
			node.Right = sampledTip(n, node, 0)
		}
		prev = node
	}

	if last := events[m]; last != nil {
		linkContinuation(prev, events[m-1], buildPhylo(last, prev))
	} else {
		linkContinuation(prev, events[m-1], sampledTip(n, prev, n.TSample-prev.T))
	}
	return chainRoot
}

// linkContinuation attaches next into the open slot of prev: a branching
// node keeps its child on the left and continues on the right, a sampling
// node keeps its zero-length tip on the right and continues on the left.
func linkContinuation[L comparable, D any](prev *PhyloNode[L, D], prevEvent *LineageNode[L, D], next *PhyloNode[L, D]) {
	if prevEvent != nil {
		prev.Right = next
	} else {
		prev.Left = next
	}
}

// sampledTip builds the leaf for a sampled ancestor. Mid-chain the branch
// length is zero; after the last branching it spans from that branching to
// the sampling time.
func sampledTip[L comparable, D any](n *LineageNode[L, D], parent *PhyloNode[L, D], dt float64) *PhyloNode[L, D] {
	return &PhyloNode[L, D]{
		Lng:       n.Lng,
		Data:      n.Data,
		LocSample: n.LocSample,
		T:         n.TSample,
		Dt:        dt,
		Depth:     parent.Depth + 1,
	}
}

func branchLength[L comparable, D any](parent *PhyloNode[L, D], t float64) float64 {
	if parent == nil {
		return 0
	}
	return t - parent.T
}

// LeafCount returns the number of tips in the phylogeny.
func LeafCount[L comparable, D any](root *PhyloNode[L, D]) int {
	if root == nil {
		return 0
	}
	count := 0
	stack := []*PhyloNode[L, D]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.IsLeaf() {
			count++
			continue
		}
		stack = append(stack, n.Left, n.Right)
	}
	return count
}

// TreeHeight returns the latest tip time in the phylogeny.
func TreeHeight[L comparable, D any](root *PhyloNode[L, D]) float64 {
	if root == nil {
		return 0
	}
	height := root.T
	stack := []*PhyloNode[L, D]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.T > height {
			height = n.T
		}
		if !n.IsLeaf() {
			stack = append(stack, n.Left, n.Right)
		}
	}
	return height
}
