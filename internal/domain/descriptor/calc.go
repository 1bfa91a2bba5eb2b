// Package descriptor computes the physicochemical descriptor set from a
// molecular graph.  Every value is a deterministic pure function of the
// graph: same molecule, same descriptors, on every call and every platform.
package descriptor

import (
	"math"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
)

// Calculate computes the full descriptor set for m.
func Calculate(m *molecule.Molecule) chem.Descriptors {
	var logp, tpsa float64
	var donors, acceptors uint
	for i, a := range m.Atoms() {
		logp += logPContrib(m, i)
		tpsa += tpsaContrib(m, i)
		switch a.Element {
		case "N", "O":
			acceptors++
			if a.Hydrogens > 0 {
				donors++
			}
		}
	}

	return chem.Descriptors{
		MolecularWeight:  m.MolecularWeight(),
		LogP:             round2(logp),
		PolarSurfaceArea: round2(tpsa),
		HBondDonors:      donors,
		HBondAcceptors:   acceptors,
		RotatableBonds:   rotatableBonds(m),
		AromaticRings:    aromaticRings(m),
		HeavyAtomCount:   uint(m.HeavyAtomCount()),
	}
}

// rotatableBonds counts single, non-ring bonds whose both endpoints carry at
// least one other heavy neighbor.  Bonds adjacent to a triple bond stay
// rigid and are excluded.
func rotatableBonds(m *molecule.Molecule) uint {
	var n uint
	for bi, b := range m.Bonds() {
		if b.Order != molecule.BondSingle {
			continue
		}
		if m.Degree(b.A) < 2 || m.Degree(b.B) < 2 {
			continue
		}
		if hasTripleBond(m, b.A) || hasTripleBond(m, b.B) {
			continue
		}
		if bondInRing(m, bi) {
			continue
		}
		n++
	}
	return n
}

func hasTripleBond(m *molecule.Molecule, i int) bool {
	for _, j := range m.Neighbors(i) {
		if b, ok := m.BondBetween(i, j); ok && b.Order == molecule.BondTriple {
			return true
		}
	}
	return false
}

// bondInRing reports whether bond bi lies on a cycle: the endpoints stay
// connected when the bond is masked out.
func bondInRing(m *molecule.Molecule, bi int) bool {
	bonds := m.Bonds()
	target := bonds[bi]
	visited := make([]bool, m.HeavyAtomCount())
	stack := []int{target.A}
	visited[target.A] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range m.Neighbors(cur) {
			if cur == target.A && next == target.B {
				// Skipping only one A–B traversal would be wrong for
				// multigraphs, but duplicate bonds are rejected at
				// construction.
				continue
			}
			if !visited[next] {
				if next == target.B {
					return true
				}
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// aromaticRings counts independent cycles of the aromatic-bond subgraph:
// for each connected component, edges − vertices + 1.  Benzene counts 1,
// naphthalene 2, biphenyl 2.
func aromaticRings(m *molecule.Molecule) uint {
	n := m.HeavyAtomCount()
	adj := make([][]int, n)
	edges := 0
	inSub := make([]bool, n)
	for _, b := range m.Bonds() {
		if b.Order != molecule.BondAromatic {
			continue
		}
		adj[b.A] = append(adj[b.A], b.B)
		adj[b.B] = append(adj[b.B], b.A)
		inSub[b.A], inSub[b.B] = true, true
		edges++
	}
	if edges == 0 {
		return 0
	}

	visited := make([]bool, n)
	var rings int
	for i := 0; i < n; i++ {
		if !inSub[i] || visited[i] {
			continue
		}
		verts, compEdges := 0, 0
		stack := []int{i}
		visited[i] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			verts++
			compEdges += len(adj[cur])
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		compEdges /= 2
		if r := compEdges - verts + 1; r > 0 {
			rings += r
		}
	}
	return uint(rings)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
