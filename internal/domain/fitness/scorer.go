// Package fitness turns a descriptor set into the composite pharmaceutical
// fitness report used to rank candidates.  All sub-scores are deterministic
// pure functions of the molecule and its descriptors.
package fitness

import (
	"math"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
)

// Score computes the full fitness report for a molecule and its descriptors.
//
// The composite ranking key is
//
//	clamp01(0.4·drug_likeness + 0.3·bioavailability
//	        + 0.2·(1−toxicity) + 0.1·(1−sa/10))
//
// where toxicity is 1 when the flag is raised and 0 otherwise.
func Score(m *molecule.Molecule, d chem.Descriptors) chem.FitnessReport {
	violations := lipinskiViolations(d)
	bioavailability := 1 - bioavailabilityPenalty*float64(violations)
	if bioavailability < 0 {
		bioavailability = 0
	}

	drugLikeness := drugLikeness(d)
	sa := syntheticAccessibility(d)
	toxic := Toxic(m, d)

	tox := 0.0
	if toxic {
		tox = 1.0
	}
	composite := clamp01(
		weightDrugLikeness*drugLikeness +
			weightBioavailability*bioavailability +
			weightNonToxic*(1-tox) +
			weightSynthesis*(1-sa/10))

	return chem.FitnessReport{
		DrugLikeness:           round4(drugLikeness),
		LipinskiViolations:     violations,
		Bioavailability:        round4(bioavailability),
		SyntheticAccessibility: round4(sa),
		ToxicityFlag:           toxic,
		BBBPenetrant:           bbbPenetrant(d),
		CompositeFitness:       round4(composite),
	}
}

// lipinskiViolations counts rule-of-five breaches, in [0,4].
func lipinskiViolations(d chem.Descriptors) uint {
	var v uint
	if d.MolecularWeight > lipinskiMaxWeight {
		v++
	}
	if d.LogP > lipinskiMaxLogP {
		v++
	}
	if d.HBondDonors > lipinskiMaxDonors {
		v++
	}
	if d.HBondAcceptors > lipinskiMaxAcceptors {
		v++
	}
	return v
}

// drugLikeness averages the per-descriptor desirability scores.
func drugLikeness(d chem.Descriptors) float64 {
	sum := desirableWeight.score(d.MolecularWeight) +
		desirableLogP.score(d.LogP) +
		desirablePSA.score(d.PolarSurfaceArea) +
		desirableDonors.score(float64(d.HBondDonors)) +
		desirableAcceptors.score(float64(d.HBondAcceptors)) +
		desirableRotatable.score(float64(d.RotatableBonds))
	return sum / 6
}

// syntheticAccessibility estimates synthesis difficulty in [1,10]; larger,
// more flexible and more aromatic structures score higher (harder).
func syntheticAccessibility(d chem.Descriptors) float64 {
	raw := saHeavyAtomCoeff*float64(d.HeavyAtomCount) +
		saRotatableCoeff*float64(d.RotatableBonds) +
		saAromaticRingCoeff*float64(d.AromaticRings)
	return 1 + 9*clamp01(raw)
}

// bbbPenetrant applies the blood-brain-barrier window: light, moderately
// lipophilic, low polar surface area.
func bbbPenetrant(d chem.Descriptors) bool {
	return d.MolecularWeight < bbbMaxWeight &&
		d.PolarSurfaceArea < bbbMaxPSA &&
		d.LogP >= bbbMinLogP && d.LogP <= bbbMaxLogP
}

// Toxic reports whether the molecule trips the structural alert list or
// exceeds the hard weight cap.
func Toxic(m *molecule.Molecule, d chem.Descriptors) bool {
	if d.MolecularWeight > toxicityWeightCap {
		return true
	}
	return hasNitroGroup(m) || hasAzoGroup(m) ||
		hasAcylHalide(m) || hasPeroxide(m)
}

// hasNitroGroup matches N(+) bearing both a double-bonded and a
// negatively charged oxygen.
func hasNitroGroup(m *molecule.Molecule) bool {
	for i, a := range m.Atoms() {
		if a.Element != "N" || a.Charge != 1 {
			continue
		}
		var dblO, negO bool
		for _, j := range m.Neighbors(i) {
			n := m.Atom(j)
			if n.Element != "O" {
				continue
			}
			b, _ := m.BondBetween(i, j)
			if b.Order == molecule.BondDouble {
				dblO = true
			}
			if n.Charge == -1 {
				negO = true
			}
		}
		if dblO && negO {
			return true
		}
	}
	return false
}

// hasAzoGroup matches a non-aromatic N=N bond.
func hasAzoGroup(m *molecule.Molecule) bool {
	for _, b := range m.Bonds() {
		if b.Order != molecule.BondDouble {
			continue
		}
		if m.Atom(b.A).Element == "N" && m.Atom(b.B).Element == "N" {
			return true
		}
	}
	return false
}

// hasAcylHalide matches a carbonyl carbon bonded to Cl, Br or I.
func hasAcylHalide(m *molecule.Molecule) bool {
	for i, a := range m.Atoms() {
		if a.Element != "C" {
			continue
		}
		var carbonyl, halide bool
		for _, j := range m.Neighbors(i) {
			n := m.Atom(j)
			b, _ := m.BondBetween(i, j)
			if n.Element == "O" && b.Order == molecule.BondDouble {
				carbonyl = true
			}
			switch n.Element {
			case "Cl", "Br", "I":
				halide = true
			}
		}
		if carbonyl && halide {
			return true
		}
	}
	return false
}

// hasPeroxide matches an O−O single bond.
func hasPeroxide(m *molecule.Molecule) bool {
	for _, b := range m.Bonds() {
		if b.Order != molecule.BondSingle {
			continue
		}
		if m.Atom(b.A).Element == "O" && m.Atom(b.B).Element == "O" {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
