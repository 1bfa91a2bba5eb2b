// Package mutation implements seeded atom-level edits on molecular graphs:
// adding an atom from the palette, removing a non-bridging atom, or
// substituting an atom's element in place.  All randomness flows from the
// seed given at construction, so equal seeds replay equal edit sequences.
package mutation

import (
	"math/rand"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
)

// Palette is the element set mutations draw from.
var Palette = []string{"C", "N", "O", "S", "F", "Cl", "Br"}

// maxAttempts bounds the rejection-sampling loop per edit.
const maxAttempts = 50

// Operator produces random valid edits from a deterministic stream.
// Not safe for concurrent use; give each worker its own Operator.
type Operator struct {
	rng *rand.Rand
}

// NewOperator returns an operator seeded with the given value.
func NewOperator(seed int64) *Operator {
	return &Operator{rng: rand.New(rand.NewSource(seed))}
}

// Apply performs one random valid edit on parent and returns the mutated
// molecule with its provenance record.  Invalid intermediate graphs (valence
// breaches, disconnections, single-atom removals) are rejected and retried;
// after maxAttempts rejections it fails with CodeMutationExhausted.
func (o *Operator) Apply(parent *molecule.Molecule) (*molecule.Molecule, chem.MutationRecord, error) {
	if parent == nil || parent.HeavyAtomCount() == 0 {
		return nil, chem.MutationRecord{}, errors.New(
			errors.CodeMutationInvalidParent, "nil or empty parent molecule")
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var (
			child *molecule.Molecule
			rec   chem.MutationRecord
			err   error
		)
		switch o.rng.Intn(3) {
		case 0:
			child, rec, err = o.addAtom(parent)
		case 1:
			child, rec, err = o.removeAtom(parent)
		default:
			child, rec, err = o.substituteAtom(parent)
		}
		if err == nil {
			return child, rec, nil
		}
	}
	return nil, chem.MutationRecord{}, errors.New(errors.CodeMutationExhausted,
		"no valid mutation found").WithDetail(parent.Canonical())
}

// addAtom bonds a random palette element to a random atom with spare valence.
func (o *Operator) addAtom(parent *molecule.Molecule) (*molecule.Molecule, chem.MutationRecord, error) {
	pos := o.rng.Intn(parent.HeavyAtomCount())
	if parent.SpareValence(pos) == 0 {
		return nil, chem.MutationRecord{}, errors.New(
			errors.CodeMutationExhausted, "no spare valence at position")
	}
	element := Palette[o.rng.Intn(len(Palette))]

	atoms := parent.Atoms()
	bonds := parent.Bonds()
	atoms = append(atoms, molecule.Atom{Element: element})
	bonds = append(bonds, molecule.Bond{
		A: pos, B: len(atoms) - 1, Order: molecule.BondSingle,
	})
	child, err := molecule.FromGraph(atoms, bonds)
	if err != nil {
		return nil, chem.MutationRecord{}, err
	}
	return child, chem.MutationRecord{
		Operation:    chem.OpAddAtom,
		Element:      element,
		PositionHint: uint(pos),
	}, nil
}

// removeAtom deletes a random non-bridging atom and its bonds.
func (o *Operator) removeAtom(parent *molecule.Molecule) (*molecule.Molecule, chem.MutationRecord, error) {
	pos := o.rng.Intn(parent.HeavyAtomCount())
	if !parent.Removable(pos) {
		return nil, chem.MutationRecord{}, errors.New(
			errors.CodeMutationExhausted, "atom is a bridge")
	}

	old := parent.Atoms()
	atoms := make([]molecule.Atom, 0, len(old)-1)
	remap := make([]int, len(old))
	for i, a := range old {
		if i == pos {
			remap[i] = -1
			continue
		}
		remap[i] = len(atoms)
		atoms = append(atoms, a)
	}
	var bonds []molecule.Bond
	for _, b := range parent.Bonds() {
		if b.A == pos || b.B == pos {
			continue
		}
		bonds = append(bonds, molecule.Bond{
			A: remap[b.A], B: remap[b.B], Order: b.Order,
		})
	}
	child, err := molecule.FromGraph(atoms, bonds)
	if err != nil {
		return nil, chem.MutationRecord{}, err
	}
	return child, chem.MutationRecord{
		Operation:    chem.OpRemoveAtom,
		Element:      old[pos].Element,
		PositionHint: uint(pos),
	}, nil
}

// substituteAtom swaps a random atom's element, keeping the bond topology.
// Hydrogens and charge are recomputed for the new element.
func (o *Operator) substituteAtom(parent *molecule.Molecule) (*molecule.Molecule, chem.MutationRecord, error) {
	pos := o.rng.Intn(parent.HeavyAtomCount())
	current := parent.Atom(pos)
	element := Palette[o.rng.Intn(len(Palette))]
	if element == current.Element {
		return nil, chem.MutationRecord{}, errors.New(
			errors.CodeMutationExhausted, "substitution is a no-op")
	}

	atoms := parent.Atoms()
	atoms[pos] = molecule.Atom{Element: element, Aromatic: current.Aromatic}
	child, err := molecule.FromGraph(atoms, parent.Bonds())
	if err != nil {
		return nil, chem.MutationRecord{}, err
	}
	return child, chem.MutationRecord{
		Operation:    chem.OpSubstituteAtom,
		Element:      element,
		PositionHint: uint(pos),
	}, nil
}
