package descriptor

import "github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"

// Atomic contribution tables, versioned so stored scores remain comparable:
// logp/v1 and tpsa/v1.  Values are additive per-atom contributions chosen to
// track published fragment models on common drug-like molecules; they are
// part of the scoring contract and must not change without a version bump.

// LogPTableVersion identifies the logP contribution table.
const LogPTableVersion = "logp/v1"

// TPSATableVersion identifies the polar surface area contribution table.
const TPSATableVersion = "tpsa/v1"

// logPContrib returns atom i's additive logP contribution.
func logPContrib(m *molecule.Molecule, i int) float64 {
	a := m.Atom(i)
	switch a.Element {
	case "C":
		if a.Aromatic {
			return 0.34
		}
		return 0.26
	case "N":
		if a.Aromatic {
			return -0.30
		}
		return -0.52
	case "O":
		if a.Aromatic {
			return -0.20
		}
		return -0.45
	case "S":
		if a.Aromatic {
			return 0.50
		}
		return 0.45
	case "P":
		return -0.20
	case "B":
		return -0.10
	case "F":
		return 0.14
	case "Cl":
		return 0.65
	case "Br":
		return 0.86
	case "I":
		return 1.10
	}
	return 0
}

// tpsaContrib returns atom i's polar surface area contribution in Å².
// Only nitrogen, oxygen, sulfur and phosphorus atoms contribute.
func tpsaContrib(m *molecule.Molecule, i int) float64 {
	a := m.Atom(i)
	switch a.Element {
	case "N":
		if a.Aromatic {
			if a.Hydrogens > 0 {
				return 15.79
			}
			return 12.89
		}
		if hasDoubleBond(m, i) {
			return 12.36
		}
		switch {
		case a.Hydrogens >= 2:
			return 26.02
		case a.Hydrogens == 1:
			return 12.03
		default:
			return 3.24
		}
	case "O":
		if a.Aromatic {
			return 13.14
		}
		if hasDoubleBond(m, i) {
			return 17.07
		}
		if a.Hydrogens > 0 {
			return 20.23
		}
		if a.Charge < 0 {
			return 23.06
		}
		return 9.23
	case "S":
		if a.Aromatic {
			return 28.24
		}
		if hasDoubleBond(m, i) {
			return 32.09
		}
		if a.Hydrogens > 0 {
			return 38.80
		}
		return 25.30
	case "P":
		return 13.59
	}
	return 0
}

func hasDoubleBond(m *molecule.Molecule, i int) bool {
	for _, j := range m.Neighbors(i) {
		if b, ok := m.BondBetween(i, j); ok && b.Order == molecule.BondDouble {
			return true
		}
	}
	return false
}
