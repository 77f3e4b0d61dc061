package sim

import "fmt"

// LineageNode is one node of a transmission tree. L identifies the lineage
// and D is an opaque per-lineage payload that the tree never inspects.
type LineageNode[L comparable, D any] struct {
	Lng  L
	Data D

	T             float64 // birth time
	TSample       float64 // sampling time, meaningful only when Sampled
	TBranchParent float64 // time the lineage branched off the chain to its current parent
	LocSample     string  // sampling location, "NA" until sampled

	Parent   *LineageNode[L, D]
	Children []*LineageNode[L, D]

	Extant  bool
	Sampled bool

	needed bool // scratch flag owned by SubsampleTree
}

// eraseChild removes child from the children list by identity, swapping with
// the last element. It performs no further updates.
func (n *LineageNode[L, D]) eraseChild(child *LineageNode[L, D]) {
	for i, c := range n.Children {
		if c == child {
			last := len(n.Children) - 1
			n.Children[i] = n.Children[last]
			n.Children[last] = nil
			n.Children = n.Children[:last]
			return
		}
	}
}

// LineageTree is an online, incrementally pruned forest of transmission-tree
// nodes. Extinct unsampled branches are collapsed as soon as a removal makes
// them unreachable from any sampled or extant lineage, so memory scales with
// the extant population plus the skeleton ancestry of sampled lineages
// rather than with cumulative cases.
//
// Between public calls the tree maintains:
//   - extant maps exactly the nodes with Extant == true;
//   - sampled holds exactly the lineages with Sampled == true;
//   - roots holds exactly the parent-less nodes, in creation order;
//   - every non-extant, non-sampled node has at least two children;
//   - for every edge p -> c, p.T <= c.TBranchParent <= c.T.
type LineageTree[L comparable, D any] struct {
	extant  map[L]*LineageNode[L, D]
	sampled map[L]struct{}
	roots   []*LineageNode[L, D]
	nnodes  int
}

// NewLineageTree creates an empty tree.
func NewLineageTree[L comparable, D any]() *LineageTree[L, D] {
	return &LineageTree[L, D]{
		extant:  make(map[L]*LineageNode[L, D]),
		sampled: make(map[L]struct{}),
	}
}

// Reset drops every node and clears all bookkeeping. Use it when the same
// tree instance is reused across independent simulations run sequentially.
func (tr *LineageTree[L, D]) Reset() {
	tr.extant = make(map[L]*LineageNode[L, D])
	tr.sampled = make(map[L]struct{})
	tr.roots = nil
	tr.nnodes = 0
}

// AddExtantExternal records an introduction: a lineage born at time t with no
// parent. Panics if lng is already extant.
func (tr *LineageTree[L, D]) AddExtantExternal(t float64, lng L, data D) {
	if _, ok := tr.extant[lng]; ok {
		panic(fmt.Sprintf("lineage tree: duplicate extant lineage %v", lng))
	}
	node := newLineageNode(lng, data, t, nil)
	tr.extant[lng] = node
	tr.roots = append(tr.roots, node)
	tr.nnodes++
}

// AddExtant records a transmission: lineage lng born at time t from the
// extant parent parentLng. Panics if the parent is unknown or lng is already
// extant.
func (tr *LineageTree[L, D]) AddExtant(t float64, lng L, data D, parentLng L) {
	parent, ok := tr.extant[parentLng]
	if !ok {
		panic(fmt.Sprintf("lineage tree: transmission from unknown lineage %v", parentLng))
	}
	if _, ok := tr.extant[lng]; ok {
		panic(fmt.Sprintf("lineage tree: duplicate extant lineage %v", lng))
	}
	node := newLineageNode(lng, data, t, parent)
	parent.Children = append(parent.Children, node)
	tr.extant[lng] = node
	tr.nnodes++
}

func newLineageNode[L comparable, D any](lng L, data D, t float64, parent *LineageNode[L, D]) *LineageNode[L, D] {
	return &LineageNode[L, D]{
		Lng:           lng,
		Data:          data,
		T:             t,
		TBranchParent: t,
		LocSample:     "NA",
		Parent:        parent,
		Extant:        true,
	}
}

// Sample marks an extant lineage as sampled at time t, with an optional
// sampling location (default "@"). It returns false if the lineage had
// already been sampled, so models where sampling does not remove the lineage
// cannot sample it twice. Panics if lng is not extant.
func (tr *LineageTree[L, D]) Sample(lng L, t float64, loc ...string) bool {
	node, ok := tr.extant[lng]
	if !ok {
		panic(fmt.Sprintf("lineage tree: sample of unknown lineage %v", lng))
	}
	if node.Sampled {
		return false
	}
	node.Sampled = true
	node.TSample = t
	if len(loc) > 0 {
		node.LocSample = loc[0]
	} else {
		node.LocSample = "@"
	}
	tr.sampled[lng] = struct{}{}
	return true
}

// IsSampled reports whether lng has been sampled at some point. The lineage
// need not be extant.
func (tr *LineageTree[L, D]) IsSampled(lng L) bool {
	_, ok := tr.sampled[lng]
	return ok
}

// RemoveExtant removes lng from the infectious pool and prunes whatever part
// of the tree its extinction makes unreachable. A sampled node is always
// retained; an unsampled node survives only as a branching point with at
// least two children. Panics if lng is not extant.
func (tr *LineageTree[L, D]) RemoveExtant(lng L) {
	node, ok := tr.extant[lng]
	if !ok {
		panic(fmt.Sprintf("lineage tree: removal of unknown lineage %v", lng))
	}
	node.Extant = false

	if !node.Sampled {
		switch len(node.Children) {
		case 0:
			if node.Parent != nil {
				tr.notifyParent(node.Parent, node)
			} else {
				tr.removeRoot(node)
			}
			tr.nnodes--
		case 1:
			tr.mergeParentChild(node)
		}
		// with two or more children the node stays as internal skeleton
	}

	delete(tr.extant, lng)
}

// notifyParent propagates the removal of child upward. The child edge is
// erased only when the child is unsampled: a sampled child stays in the tree
// even once extinct, and so does its edge. The walk stops at the first
// ancestor that is extant, sampled, or still a genuine branching point.
func (tr *LineageTree[L, D]) notifyParent(parent, child *LineageNode[L, D]) {
	for {
		if !child.Sampled {
			parent.eraseChild(child)
		}

		if parent.Extant || parent.Sampled {
			return
		}

		switch len(parent.Children) {
		case 0:
			grand := parent.Parent
			if grand == nil {
				tr.removeRoot(parent)
				tr.nnodes--
				return
			}
			tr.nnodes--
			child, parent = parent, grand
		case 1:
			tr.mergeParentChild(parent)
			return
		default:
			return
		}
	}
}

// mergeParentChild splices out mid, an extinct unsampled node with exactly
// one child, reattaching the child to mid's parent (or promoting it to a
// root). The child inherits mid's branching time unless it becomes a root,
// where the branching time is immaterial and resets to its birth time.
func (tr *LineageTree[L, D]) mergeParentChild(mid *LineageNode[L, D]) {
	if len(mid.Children) != 1 {
		panic("lineage tree: merge move on node without exactly one child")
	}
	if mid.Extant {
		panic("lineage tree: merge move on extant node")
	}

	child := mid.Children[0]
	if mid.Parent == nil {
		child.Parent = nil
		tr.replaceRoot(mid, child)
		child.TBranchParent = child.T
	} else {
		child.Parent = mid.Parent
		mid.Parent.eraseChild(mid)
		mid.Parent.Children = append(mid.Parent.Children, child)
		child.TBranchParent = mid.TBranchParent
	}
	tr.nnodes--
}

func (tr *LineageTree[L, D]) removeRoot(node *LineageNode[L, D]) {
	for i, r := range tr.roots {
		if r == node {
			tr.roots = append(tr.roots[:i], tr.roots[i+1:]...)
			return
		}
	}
}

func (tr *LineageTree[L, D]) replaceRoot(from, to *LineageNode[L, D]) {
	for i, r := range tr.roots {
		if r == from {
			tr.roots[i] = to
			return
		}
	}
}

// SampledLineages collects every sampled lineage reachable from rootNode,
// extinct ones included. It returns nil when called on a non-root node.
func (tr *LineageTree[L, D]) SampledLineages(rootNode *LineageNode[L, D]) []L {
	if rootNode.Parent != nil {
		return nil
	}

	var lngs []L
	stack := []*LineageNode[L, D]{rootNode}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Sampled {
			lngs = append(lngs, n.Lng)
		}
		stack = append(stack, n.Children...)
	}
	return lngs
}

// SubsampleTree yields the reduced transmission tree: for each introduction
// with at least one sampled descendant it returns the root of a freshly
// allocated subtree holding only the sampled lineages and the ancestral
// structure needed to connect them. The source tree is unaffected.
func (tr *LineageTree[L, D]) SubsampleTree() []*LineageNode[L, D] {
	var res []*LineageNode[L, D]
	for _, root := range tr.roots {
		if len(tr.SampledLineages(root)) == 0 {
			continue
		}
		markNeeded(root)
		sub := extractSubtree(root)
		res = append(res, eliminateRedundant(sub))
	}
	return res
}

// Roots returns the current forest roots in creation order.
func (tr *LineageTree[L, D]) Roots() []*LineageNode[L, D] {
	return append([]*LineageNode[L, D](nil), tr.roots...)
}

// RootOf walks up from node to the root of its tree.
func RootOf[L comparable, D any](node *LineageNode[L, D]) *LineageNode[L, D] {
	for node.Parent != nil {
		node = node.Parent
	}
	return node
}

// NumExtant returns the number of extant lineages.
func (tr *LineageTree[L, D]) NumExtant() int { return len(tr.extant) }

// NumNodes returns the total number of allocated tree nodes.
func (tr *LineageTree[L, D]) NumNodes() int { return tr.nnodes }

// markNeeded flags every node that is sampled or has a sampled descendant.
// The flag is scratch state for extractSubtree; each call overwrites whatever
// a previous pass left behind. The traversal is an explicit-stack postorder:
// children are settled before their parent, so deep chains cannot blow the
// call stack.
func markNeeded[L comparable, D any](root *LineageNode[L, D]) {
	var order []*LineageNode[L, D]
	stack := []*LineageNode[L, D]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, n)
		stack = append(stack, n.Children...)
	}

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		n.needed = n.Sampled
		if !n.needed {
			for _, c := range n.Children {
				if c.needed {
					n.needed = true
					break
				}
			}
		}
	}
}

// extractSubtree deep-copies src restricted to needed children. The copies
// carry the originals' fields but live outside the tree's bookkeeping.
func extractSubtree[L comparable, D any](src *LineageNode[L, D]) *LineageNode[L, D] {
	type pair struct {
		src, dst *LineageNode[L, D]
	}

	dst := cloneLineageNode(src, nil)
	stack := []pair{{src, dst}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, c := range p.src.Children {
			if !c.needed {
				continue
			}
			nc := cloneLineageNode(c, p.dst)
			p.dst.Children = append(p.dst.Children, nc)
			stack = append(stack, pair{c, nc})
		}
	}
	return dst
}

func cloneLineageNode[L comparable, D any](src, parent *LineageNode[L, D]) *LineageNode[L, D] {
	return &LineageNode[L, D]{
		Lng:           src.Lng,
		Data:          src.Data,
		T:             src.T,
		TSample:       src.TSample,
		TBranchParent: src.TBranchParent,
		LocSample:     src.LocSample,
		Parent:        parent,
		Extant:        src.Extant,
		Sampled:       src.Sampled,
	}
}

// eliminateRedundant collapses residual degree-1 unsampled chains that
// extraction can leave behind, walking upward from every leaf. It returns
// the (possibly new) root of the reduced tree.
func eliminateRedundant[L comparable, D any](root *LineageNode[L, D]) *LineageNode[L, D] {
	var leaves []*LineageNode[L, D]
	stack := []*LineageNode[L, D]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(n.Children) == 0 {
			leaves = append(leaves, n)
			continue
		}
		stack = append(stack, n.Children...)
	}

	for _, leaf := range leaves {
		collapseUpward(leaf.Parent)
	}
	return RootOf(leaves[0])
}

// collapseUpward walks from mid to the root, splicing out every unsampled
// node left with a single child and propagating branching times as in
// mergeParentChild.
func collapseUpward[L comparable, D any](mid *LineageNode[L, D]) {
	for mid != nil {
		if len(mid.Children) != 1 || mid.Sampled {
			mid = mid.Parent
			continue
		}

		child := mid.Children[0]
		if mid.Parent == nil {
			child.Parent = nil
			child.TBranchParent = child.T
			return
		}
		child.Parent = mid.Parent
		mid.Parent.eraseChild(mid)
		mid.Parent.Children = append(mid.Parent.Children, child)
		child.TBranchParent = mid.TBranchParent
		mid = mid.Parent
	}
}
