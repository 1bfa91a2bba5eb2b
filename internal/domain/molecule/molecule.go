// Package molecule implements the molecular representation layer: parsing of
// SMILES-subset line notation into an immutable in-memory graph, valence
// validation, canonicalization, structural fingerprints, and the structural
// edit-distance heuristic used for lineage divergence.
package molecule

import (
	"math"

	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Graph primitives
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the doubled bond order: single=2, aromatic=3, double=4,
// triple=6.  Doubling keeps aromatic bonds in integer arithmetic.
type BondOrder int

const (
	BondSingle   BondOrder = 2
	BondAromatic BondOrder = 3
	BondDouble   BondOrder = 4
	BondTriple   BondOrder = 6
)

// Order returns the conventional bond order as a float (aromatic = 1.5).
func (b BondOrder) Order() float64 { return float64(b) / 2 }

// Atom is one heavy atom in a molecular graph.  Hydrogens are never graph
// nodes; they exist only as the Hydrogens count.
type Atom struct {
	// Element is the element symbol, e.g. "C" or "Cl".
	Element string

	// Aromatic marks the atom as part of an aromatic system.
	Aromatic bool

	// Charge is the formal charge.
	Charge int

	// Hydrogens is the total attached hydrogen count.  For bracket atoms it
	// is taken verbatim from the input; otherwise it is derived from the
	// element's valence during construction.
	Hydrogens int

	// hydrogensExplicit records whether Hydrogens came from the input
	// (bracket atom) rather than valence filling.
	hydrogensExplicit bool
}

// Bond connects two atoms by index.
type Bond struct {
	A, B  int
	Order BondOrder
}

// Molecule is an immutable connected molecular graph.  Instances are only
// created through Parse or FromGraph, both of which enforce the valence and
// connectivity invariants and precompute the canonical form.  Accessors
// return copies so callers cannot mutate shared state.
type Molecule struct {
	atoms     []Atom
	bonds     []Bond
	adjacency [][]int // adjacency[i] lists bond indices touching atom i
	canonical string
}

// Atoms returns a copy of the atom list.
func (m *Molecule) Atoms() []Atom {
	out := make([]Atom, len(m.atoms))
	copy(out, m.atoms)
	return out
}

// Bonds returns a copy of the bond list.
func (m *Molecule) Bonds() []Bond {
	out := make([]Bond, len(m.bonds))
	copy(out, m.bonds)
	return out
}

// Atom returns the atom at index i.
func (m *Molecule) Atom(i int) Atom { return m.atoms[i] }

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (m *Molecule) HeavyAtomCount() int { return len(m.atoms) }

// BondCount returns the number of bonds.
func (m *Molecule) BondCount() int { return len(m.bonds) }

// Canonical returns the canonical line-notation form.  Two molecules are
// structurally identical iff their canonical forms are equal.
func (m *Molecule) Canonical() string { return m.canonical }

// Degree returns the number of bonds touching atom i.
func (m *Molecule) Degree(i int) int { return len(m.adjacency[i]) }

// Neighbors returns the atom indices bonded to atom i.
func (m *Molecule) Neighbors(i int) []int {
	out := make([]int, 0, len(m.adjacency[i]))
	for _, bi := range m.adjacency[i] {
		out = append(out, m.bonds[bi].other(i))
	}
	return out
}

// BondBetween returns the bond joining atoms i and j, if any.
func (m *Molecule) BondBetween(i, j int) (Bond, bool) {
	for _, bi := range m.adjacency[i] {
		if m.bonds[bi].other(i) == j {
			return m.bonds[bi], true
		}
	}
	return Bond{}, false
}

// MolecularWeight returns the total mass in Da, implicit hydrogens included.
func (m *Molecule) MolecularWeight() float64 {
	var w float64
	for _, a := range m.atoms {
		w += AtomicMass(a.Element) + float64(a.Hydrogens)*hydrogenMass
	}
	// Round to 3 decimals so equal graphs built in different atom orders
	// compare bit-identically.
	return math.Round(w*1000) / 1000
}

func (b Bond) other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction and validation
// ─────────────────────────────────────────────────────────────────────────────

// FromGraph builds a Molecule from an explicit atom and bond list, validating
// the same invariants Parse enforces: known elements, single connected
// component, no self-bonds or duplicate bonds, and per-atom valence within
// the element's allowed range.  Hydrogen counts of non-bracket atoms are
// recomputed from spare valence.
func FromGraph(atoms []Atom, bonds []Bond) (*Molecule, error) {
	if len(atoms) == 0 {
		return nil, errors.New(errors.CodeParseEmpty, "molecule has no atoms")
	}
	m := &Molecule{
		atoms: make([]Atom, len(atoms)),
		bonds: make([]Bond, len(bonds)),
	}
	copy(m.atoms, atoms)
	copy(m.bonds, bonds)

	for i := range m.atoms {
		a := &m.atoms[i]
		if !KnownElement(a.Element) {
			return nil, errors.New(errors.CodeParseMalformed, "unknown element").
				WithDetail(a.Element)
		}
		if a.Element == "H" {
			return nil, errors.New(errors.CodeParseMalformed,
				"hydrogen is implicit and cannot be a graph atom")
		}
		if a.Aromatic && !elements[a.Element].Aromatic {
			return nil, errors.New(errors.CodeParseMalformed,
				"element cannot be aromatic").WithDetail(a.Element)
		}
	}

	m.adjacency = make([][]int, len(m.atoms))
	seen := make(map[[2]int]bool, len(m.bonds))
	for bi, b := range m.bonds {
		if b.A == b.B || b.A < 0 || b.B < 0 || b.A >= len(m.atoms) || b.B >= len(m.atoms) {
			return nil, errors.New(errors.CodeParseMalformed, "invalid bond endpoints")
		}
		key := [2]int{b.A, b.B}
		if b.B < b.A {
			key = [2]int{b.B, b.A}
		}
		if seen[key] {
			return nil, errors.New(errors.CodeParseMalformed, "duplicate bond")
		}
		seen[key] = true
		m.adjacency[b.A] = append(m.adjacency[b.A], bi)
		m.adjacency[b.B] = append(m.adjacency[b.B], bi)
	}

	if !m.connected() {
		return nil, errors.New(errors.CodeParseDisconnected,
			"molecule must be a single connected component")
	}
	if err := m.assignHydrogens(); err != nil {
		return nil, err
	}

	m.canonical = canonicalForm(m)
	return m, nil
}

// connected reports whether the graph is one connected component.
func (m *Molecule) connected() bool {
	if len(m.atoms) == 1 {
		return true
	}
	visited := make([]bool, len(m.atoms))
	stack := []int{0}
	visited[0] = true
	count := 1
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, bi := range m.adjacency[cur] {
			next := m.bonds[bi].other(cur)
			if !visited[next] {
				visited[next] = true
				count++
				stack = append(stack, next)
			}
		}
	}
	return count == len(m.atoms)
}

// explicitValence returns atom i's doubled bond-order sum including the
// aromatic π increment.  Aromatic bonds contribute 1.0 per bond; atoms that
// donate an electron (rather than a lone pair) to the ring system get one
// extra π unit.  Pyrrole-type nitrogens (explicit H) and aromatic O/S donate
// lone pairs and get no increment.
func (m *Molecule) explicitValence(i int) int {
	a := m.atoms[i]
	sum := 0
	aromaticBonds := 0
	for _, bi := range m.adjacency[i] {
		if m.bonds[bi].Order == BondAromatic {
			sum += 2
			aromaticBonds++
		} else {
			sum += int(m.bonds[bi].Order)
		}
	}
	if aromaticBonds > 0 {
		switch {
		case a.Element == "O" || a.Element == "S":
			// lone-pair donor
		case a.hydrogensExplicit && a.Element != "C" && a.Element != "B":
			// pyrrole-type heteroatom
		default:
			sum += 2
		}
	}
	return sum
}

// assignHydrogens fills implicit hydrogen counts and enforces the valence
// invariant for every atom.
func (m *Molecule) assignHydrogens() error {
	for i := range m.atoms {
		a := &m.atoms[i]
		sum := m.explicitValence(i)
		if a.hydrogensExplicit {
			total := sum + 2*a.Hydrogens
			if total > maxValence(a.Element, a.Charge) {
				return errors.New(errors.CodeParseInvalidValence,
					"atom exceeds maximum valence").WithDetail(a.Element)
			}
			continue
		}
		if a.Aromatic && a.Element != "C" {
			// Aromatic heteroatoms never receive implicit hydrogens; a
			// pyrrole-type NH must be written explicitly.
			fill := fillValence(a.Element, a.Charge, sum)
			if fill < 0 {
				return errors.New(errors.CodeParseInvalidValence,
					"atom exceeds maximum valence").WithDetail(a.Element)
			}
			a.Hydrogens = 0
			continue
		}
		fill := fillValence(a.Element, a.Charge, sum)
		if fill < 0 {
			return errors.New(errors.CodeParseInvalidValence,
				"atom exceeds maximum valence").WithDetail(a.Element)
		}
		a.Hydrogens = (fill - sum) / 2
	}
	return nil
}

// removable reports whether atom i can be deleted without disconnecting the
// remaining graph.  Single-atom molecules are never removable.
func (m *Molecule) removable(i int) bool {
	n := len(m.atoms)
	if n <= 1 {
		return false
	}
	if m.Degree(i) <= 1 {
		return true
	}
	// DFS over the graph with atom i masked out.
	visited := make([]bool, n)
	visited[i] = true
	start := 0
	if start == i {
		start = 1
	}
	visited[start] = true
	count := 1
	stack := []int{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, bi := range m.adjacency[cur] {
			next := m.bonds[bi].other(cur)
			if !visited[next] {
				visited[next] = true
				count++
				stack = append(stack, next)
			}
		}
	}
	return count == n-1
}

// Removable reports whether deleting atom i keeps the molecule connected.
func (m *Molecule) Removable(i int) bool { return m.removable(i) }

// SpareValence returns the number of additional single bonds atom i could
// accept before exceeding its element's maximum valence.  Implicit hydrogens
// make way for new substituents; hydrogens fixed by a bracket atom do not.
func (m *Molecule) SpareValence(i int) int {
	a := m.atoms[i]
	sum := m.explicitValence(i)
	if a.hydrogensExplicit {
		sum += 2 * a.Hydrogens
	}
	spare := (maxValence(a.Element, a.Charge) - sum) / 2
	if spare < 0 {
		return 0
	}
	return spare
}
