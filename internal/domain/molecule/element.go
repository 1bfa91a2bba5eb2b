package molecule

// elementInfo captures the per-element constants the parser and descriptor
// calculator need: average atomic mass and the list of allowed valences.
// Valences are stored doubled (bond-order units × 2) so that aromatic bonds
// (order 1.5) stay in integer arithmetic.
type elementInfo struct {
	// Mass is the average atomic mass in Da.
	Mass float64

	// Valences lists the allowed total bond-order sums, doubled, in
	// ascending order.  Implicit hydrogens fill up to the smallest allowed
	// valence that accommodates the explicit bonds.
	Valences []int

	// Aromatic reports whether the element may carry the aromatic flag.
	Aromatic bool
}

// hydrogenMass is the average atomic mass of hydrogen in Da.
const hydrogenMass = 1.008

// elements is the supported element table.  The engine deliberately covers
// the organic subset plus the mutation palette; anything else fails parsing.
var elements = map[string]elementInfo{
	"H":  {Mass: 1.008, Valences: []int{2}},
	"B":  {Mass: 10.81, Valences: []int{6}, Aromatic: true},
	"C":  {Mass: 12.011, Valences: []int{8}, Aromatic: true},
	"N":  {Mass: 14.007, Valences: []int{6}, Aromatic: true},
	"O":  {Mass: 15.999, Valences: []int{4}, Aromatic: true},
	"F":  {Mass: 18.998, Valences: []int{2}},
	"P":  {Mass: 30.974, Valences: []int{6, 10}, Aromatic: true},
	"S":  {Mass: 32.06, Valences: []int{4, 8, 12}, Aromatic: true},
	"Cl": {Mass: 35.45, Valences: []int{2}},
	"Br": {Mass: 79.904, Valences: []int{2}},
	"I":  {Mass: 126.904, Valences: []int{2}},
}

// organicSubset lists the elements that may appear without brackets in line
// notation.  Matches the SMILES organic subset restricted to the supported
// element table.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true,
	"S": true, "F": true, "Cl": true, "Br": true, "I": true,
}

// KnownElement reports whether the engine supports the given element symbol.
func KnownElement(symbol string) bool {
	_, ok := elements[symbol]
	return ok
}

// AtomicMass returns the average atomic mass of the given element, or 0 for
// unknown symbols.
func AtomicMass(symbol string) float64 {
	return elements[symbol].Mass
}

// maxValence returns the largest allowed doubled valence for the element,
// adjusted for formal charge.  A positive charge on nitrogen-family atoms
// raises the cap (e.g. [NH4+]); a negative charge lowers it (e.g. [O-]).
func maxValence(symbol string, charge int) int {
	info, ok := elements[symbol]
	if !ok || len(info.Valences) == 0 {
		return 0
	}
	v := info.Valences[len(info.Valences)-1] + 2*charge
	if v < 0 {
		return 0
	}
	return v
}

// fillValence returns the smallest allowed doubled valence that is ≥ the
// explicit doubled bond-order sum, adjusted for charge.  It returns -1 when
// even the largest allowed valence is exceeded.
func fillValence(symbol string, charge, doubledSum int) int {
	info, ok := elements[symbol]
	if !ok {
		return -1
	}
	for _, v := range info.Valences {
		adj := v + 2*charge
		if adj >= doubledSum {
			return adj
		}
	}
	if m := maxValence(symbol, charge); m >= doubledSum {
		return m
	}
	return -1
}
