package evolution

import (
	"sync"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
)

// Entry is one accepted step in a lineage.
type Entry struct {
	GenerationIndex uint
	Molecule        *molecule.Molecule

	// MutationCount is cumulative since the seed.
	MutationCount uint
}

// Lineage records the chain of accepted candidates from a seed molecule.
// Generation indices are strictly monotonic: each Accept must carry exactly
// the previous index plus one.  Safe for concurrent use.
type Lineage struct {
	mu      sync.RWMutex
	seed    *molecule.Molecule
	entries []Entry
}

// StartLineage opens a lineage at generation zero, the seed itself.
func StartLineage(seed *molecule.Molecule) (*Lineage, error) {
	if seed == nil || seed.HeavyAtomCount() == 0 {
		return nil, errors.New(errors.CodeEngineInvalidParent,
			"nil or empty seed molecule")
	}
	return &Lineage{
		seed:    seed,
		entries: []Entry{{GenerationIndex: 0, Molecule: seed}},
	}, nil
}

// Accept appends a candidate as the outcome of the given generation.
// mutations is the number of edits the candidate carries relative to the
// current head; the stored count accumulates since the seed.
func (l *Lineage) Accept(generationIndex uint, m *molecule.Molecule, mutations uint) error {
	if m == nil || m.HeavyAtomCount() == 0 {
		return errors.New(errors.CodeEngineInvalidParent,
			"nil or empty candidate molecule")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	last := l.entries[len(l.entries)-1]
	if generationIndex != last.GenerationIndex+1 {
		return errors.New(errors.CodeLineageNonMonotonic,
			"generation index must advance by exactly one").
			WithDetail(l.seed.Canonical())
	}
	l.entries = append(l.entries, Entry{
		GenerationIndex: generationIndex,
		Molecule:        m,
		MutationCount:   last.MutationCount + mutations,
	})
	return nil
}

// Seed returns the original seed molecule.
func (l *Lineage) Seed() *molecule.Molecule { return l.seed }

// Current returns the latest accepted molecule (the seed before any Accept).
func (l *Lineage) Current() *molecule.Molecule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].Molecule
}

// NextGeneration returns the index the next Accept must carry.
func (l *Lineage) NextGeneration() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[len(l.entries)-1].GenerationIndex + 1
}

// History returns a copy of the accepted chain, seed first.
func (l *Lineage) History() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Divergence reports how far the current head has drifted from the seed as
// a percentage of the larger molecule's heavy atom count.
func (l *Lineage) Divergence() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return molecule.DivergencePercent(l.seed, l.entries[len(l.entries)-1].Molecule)
}

// DTO converts the lineage for transport.
func (l *Lineage) DTO() chem.LineageDTO {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := chem.LineageDTO{
		SeedSMILES: l.seed.Canonical(),
		History:    make([]chem.LineageEntryDTO, 0, len(l.entries)),
		DivergencePercent: molecule.DivergencePercent(
			l.seed, l.entries[len(l.entries)-1].Molecule),
	}
	for _, e := range l.entries {
		out.History = append(out.History, chem.LineageEntryDTO{
			GenerationIndex: e.GenerationIndex,
			SMILES:          e.Molecule.Canonical(),
			MutationCount:   e.MutationCount,
		})
	}
	return out
}
