package sim

import (
	"strconv"
	"strings"
)

// Newick renders a phylogeny as a Newick string terminated by ';'. Leaves
// render as "lng:dt", internal nodes as "(left,right)lng-depth:dt". Lineage
// identities go through the caller-supplied formatter.
func Newick[L comparable, D any](root *PhyloNode[L, D], lngFmt func(L) string) string {
	var b strings.Builder
	writeNewick(&b, root, lngFmt)
	b.WriteByte(';')
	return b.String()
}

func writeNewick[L comparable, D any](b *strings.Builder, node *PhyloNode[L, D], lngFmt func(L) string) {
	if node.IsLeaf() {
		b.WriteString(lngFmt(node.Lng))
		b.WriteByte(':')
		b.WriteString(formatReal(node.Dt))
		return
	}

	b.WriteByte('(')
	writeNewick(b, node.Left, lngFmt)
	b.WriteByte(',')
	writeNewick(b, node.Right, lngFmt)
	b.WriteByte(')')
	b.WriteString(lngFmt(node.Lng))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(node.Depth))
	b.WriteByte(':')
	b.WriteString(formatReal(node.Dt))
}

// NHX renders a phylogeny in NHX format: the Newick structure with a
// "[&&NHX:<data>:<t>]" annotation after every branch length, carrying the
// node payload and absolute event time.
func NHX[L comparable, D any](root *PhyloNode[L, D], lngFmt func(L) string, dataFmt func(D) string) string {
	var b strings.Builder
	writeNHX(&b, root, lngFmt, dataFmt)
	b.WriteByte(';')
	return b.String()
}

func writeNHX[L comparable, D any](b *strings.Builder, node *PhyloNode[L, D], lngFmt func(L) string, dataFmt func(D) string) {
	if node.IsLeaf() {
		b.WriteString(lngFmt(node.Lng))
		b.WriteByte(':')
		b.WriteString(formatReal(node.Dt))
		writeNHXTag(b, node, dataFmt)
		return
	}

	b.WriteByte('(')
	writeNHX(b, node.Left, lngFmt, dataFmt)
	b.WriteByte(',')
	writeNHX(b, node.Right, lngFmt, dataFmt)
	b.WriteByte(')')
	b.WriteString(lngFmt(node.Lng))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(node.Depth))
	b.WriteByte(':')
	b.WriteString(formatReal(node.Dt))
	writeNHXTag(b, node, dataFmt)
}

func writeNHXTag[L comparable, D any](b *strings.Builder, node *PhyloNode[L, D], dataFmt func(D) string) {
	b.WriteString("[&&NHX:")
	b.WriteString(dataFmt(node.Data))
	b.WriteByte(':')
	b.WriteString(formatReal(node.T))
	b.WriteByte(']')
}

// formatReal renders times and branch lengths in 6-decimal fixed notation.
func formatReal(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
