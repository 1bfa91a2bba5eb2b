package molecule

import (
	"fmt"
	"sort"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Canonical atom ranking
// ─────────────────────────────────────────────────────────────────────────────

// canonicalRanks assigns each atom a unique rank derived only from the graph
// structure, never from input order.  It starts from per-atom invariants and
// iteratively refines ranks with sorted neighbor information (Morgan-style
// relaxation).  Remaining ties after refinement connect atoms that are
// structurally equivalent, so promoting an arbitrary member of the lowest
// tied class yields the same canonical output regardless of which member is
// chosen.
func canonicalRanks(m *Molecule) []int {
	n := len(m.atoms)
	keys := make([]string, n)
	for i, a := range m.atoms {
		keys[i] = fmt.Sprintf("%s|%t|%d|%d|%d|%d",
			a.Element, a.Aromatic, a.Charge, a.Hydrogens,
			m.Degree(i), m.explicitValence(i))
	}
	ranks := ranksOf(keys)
	ranks = refineRanks(m, ranks)

	for countClasses(ranks) < n {
		// Promote one member of the lowest tied class and re-refine.
		tied := lowestTiedClass(ranks)
		for i := range ranks {
			ranks[i] *= 2
		}
		ranks[tied]--
		ranks = refineRanks(m, ranks)
	}
	return ranks
}

// refineRanks repeatedly extends each atom's rank with the sorted multiset of
// (neighbor rank, bond order) pairs until the partition stops splitting.
func refineRanks(m *Molecule, ranks []int) []int {
	for {
		before := countClasses(ranks)
		keys := make([]string, len(ranks))
		for i := range ranks {
			neigh := make([]string, 0, m.Degree(i))
			for _, bi := range m.adjacency[i] {
				b := m.bonds[bi]
				neigh = append(neigh,
					fmt.Sprintf("%08d:%d", ranks[b.other(i)], b.Order))
			}
			sort.Strings(neigh)
			keys[i] = fmt.Sprintf("%08d|%s", ranks[i], strings.Join(neigh, ","))
		}
		ranks = ranksOf(keys)
		if countClasses(ranks) == before {
			return ranks
		}
	}
}

// ranksOf maps each key to its position in the sorted unique key list.
func ranksOf(keys []string) []int {
	uniq := make([]string, len(keys))
	copy(uniq, keys)
	sort.Strings(uniq)
	uniq = dedupe(uniq)
	pos := make(map[string]int, len(uniq))
	for i, k := range uniq {
		pos[k] = i
	}
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = pos[k]
	}
	return out
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

func countClasses(ranks []int) int {
	seen := make(map[int]bool, len(ranks))
	for _, r := range ranks {
		seen[r] = true
	}
	return len(seen)
}

// lowestTiedClass returns the lowest-index atom belonging to the smallest
// rank that is shared by at least two atoms.
func lowestTiedClass(ranks []int) int {
	counts := make(map[int]int, len(ranks))
	for _, r := range ranks {
		counts[r]++
	}
	best, bestRank := -1, 0
	for i, r := range ranks {
		if counts[r] < 2 {
			continue
		}
		if best < 0 || r < bestRank {
			best, bestRank = i, r
		}
	}
	return best
}

// ─────────────────────────────────────────────────────────────────────────────
// Canonical writer
// ─────────────────────────────────────────────────────────────────────────────

// canonicalForm renders the molecule as canonical line notation: a DFS from
// the rank-0 atom, visiting neighbors in ascending rank order, with ring
// closure digits assigned in emission order.  The output reparses to a
// molecule with an identical canonical form.
func canonicalForm(m *Molecule) string {
	ranks := canonicalRanks(m)
	root := 0
	for i, r := range ranks {
		if r < ranks[root] {
			root = i
		}
	}

	w := &canonWriter{
		m:        m,
		ranks:    ranks,
		visited:  make([]bool, len(m.atoms)),
		ringOf:   make(map[int][]int),
		digitOf:  make(map[int]int),
		treeBond: make([]bool, len(m.bonds)),
	}
	w.markTree(root)
	w.emit(root, -1)
	return w.sb.String()
}

type canonWriter struct {
	m        *Molecule
	ranks    []int
	visited  []bool
	treeBond []bool        // spanning-tree membership per bond index
	ringOf   map[int][]int // atom index -> ring-closure bond indices
	digitOf  map[int]int   // ring bond index -> closure digit
	nextNum  int
	sb       strings.Builder
}

// orderedBonds returns atom i's bond indices sorted by the far atom's rank.
func (w *canonWriter) orderedBonds(i int) []int {
	out := make([]int, len(w.m.adjacency[i]))
	copy(out, w.m.adjacency[i])
	sort.Slice(out, func(a, b int) bool {
		ra := w.ranks[w.m.bonds[out[a]].other(i)]
		rb := w.ranks[w.m.bonds[out[b]].other(i)]
		return ra < rb
	})
	return out
}

// markTree walks the DFS spanning tree; every bond left unmarked is a ring
// closure recorded at both endpoints.
func (w *canonWriter) markTree(root int) {
	w.visited[root] = true
	var dfs func(i int)
	dfs = func(i int) {
		for _, bi := range w.orderedBonds(i) {
			next := w.m.bonds[bi].other(i)
			if !w.visited[next] {
				w.visited[next] = true
				w.treeBond[bi] = true
				dfs(next)
			}
		}
	}
	dfs(root)
	for bi, isTree := range w.treeBond {
		if !isTree {
			b := w.m.bonds[bi]
			w.ringOf[b.A] = append(w.ringOf[b.A], bi)
			w.ringOf[b.B] = append(w.ringOf[b.B], bi)
		}
	}
	for i := range w.visited {
		w.visited[i] = false
	}
}

func (w *canonWriter) emit(i, fromBond int) {
	w.visited[i] = true
	if fromBond >= 0 {
		w.writeBond(w.m.bonds[fromBond], i)
	}
	w.writeAtom(i)

	// Ring closure digits, ordered by the far atom's rank for determinism.
	rings := make([]int, len(w.ringOf[i]))
	copy(rings, w.ringOf[i])
	sort.Slice(rings, func(a, b int) bool {
		return w.ranks[w.m.bonds[rings[a]].other(i)] <
			w.ranks[w.m.bonds[rings[b]].other(i)]
	})
	for _, bi := range rings {
		digit, open := w.digitOf[bi]
		if !open {
			w.nextNum++
			digit = w.nextNum
			w.digitOf[bi] = digit
			w.writeBond(w.m.bonds[bi], i)
		}
		if digit > 9 {
			fmt.Fprintf(&w.sb, "%%%02d", digit)
		} else {
			fmt.Fprintf(&w.sb, "%d", digit)
		}
	}

	// Tree children in rank order; all but the last go in branches.
	children := make([]int, 0, 4)
	for _, bi := range w.orderedBonds(i) {
		if w.treeBond[bi] && !w.visited[w.m.bonds[bi].other(i)] {
			children = append(children, bi)
		}
	}
	for ci, bi := range children {
		next := w.m.bonds[bi].other(i)
		if ci < len(children)-1 {
			w.sb.WriteByte('(')
			w.emit(next, bi)
			w.sb.WriteByte(')')
		} else {
			w.emit(next, bi)
		}
	}
}

// writeBond emits the bond symbol preceding atom `to`, omitting it when the
// parser default would reproduce the same order.
func (w *canonWriter) writeBond(b Bond, to int) {
	from := b.other(to)
	bothAromatic := w.m.atoms[from].Aromatic && w.m.atoms[to].Aromatic
	switch b.Order {
	case BondSingle:
		if bothAromatic {
			w.sb.WriteByte('-')
		}
	case BondAromatic:
		if !bothAromatic {
			w.sb.WriteByte(':')
		}
	case BondDouble:
		w.sb.WriteByte('=')
	case BondTriple:
		w.sb.WriteByte('#')
	}
}

// writeAtom emits atom i, bracketing only when a bare symbol would not
// reparse to the same hydrogen count and charge.
func (w *canonWriter) writeAtom(i int) {
	a := w.m.atoms[i]
	sym := a.Element
	if a.Aromatic {
		sym = strings.ToLower(sym)
	}
	if a.Charge == 0 && a.Hydrogens == w.bareHydrogens(i) {
		w.sb.WriteString(sym)
		return
	}
	w.sb.WriteByte('[')
	w.sb.WriteString(sym)
	if a.Hydrogens == 1 {
		w.sb.WriteByte('H')
	} else if a.Hydrogens > 1 {
		fmt.Fprintf(&w.sb, "H%d", a.Hydrogens)
	}
	switch {
	case a.Charge > 1:
		fmt.Fprintf(&w.sb, "+%d", a.Charge)
	case a.Charge == 1:
		w.sb.WriteByte('+')
	case a.Charge == -1:
		w.sb.WriteByte('-')
	case a.Charge < -1:
		fmt.Fprintf(&w.sb, "-%d", -a.Charge)
	}
	w.sb.WriteByte(']')
}

// bareHydrogens computes the hydrogen count the parser would assign to atom i
// written without brackets.
func (w *canonWriter) bareHydrogens(i int) int {
	a := w.m.atoms[i]
	if a.Aromatic && a.Element != "C" {
		return 0
	}
	sum := w.m.explicitValence(i)
	fill := fillValence(a.Element, 0, sum)
	if fill < 0 {
		return -1
	}
	return (fill - sum) / 2
}
