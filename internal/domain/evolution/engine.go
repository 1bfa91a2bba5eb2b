// Package evolution runs generational search: a parent molecule is expanded
// into k mutated offspring, each offspring is scored, and the survivors are
// ranked deterministically.  Lineages track the chain of accepted candidates
// back to the original seed.
package evolution

import (
	"context"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/descriptor"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/fitness"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/mutation"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
)

// Offspring bounds per generation.
const (
	MinOffspring = 1
	MaxOffspring = 500
)

// maxEditsPerOffspring bounds the mutation chain applied to each slot.
const maxEditsPerOffspring = 3

// Params configures one generation run.
type Params struct {
	// Offspring is k, the number of mutation slots, in [1,500].
	Offspring int

	// Seed drives all randomness.  Equal (parent, Params) runs produce
	// byte-identical results.
	Seed int64

	// Index is the generation number recorded on the result.
	Index uint

	// Workers bounds the scoring pool; 0 means one per CPU.
	Workers int
}

// Candidate is one scored offspring.
type Candidate struct {
	Molecule    *molecule.Molecule
	Descriptors chem.Descriptors
	Fitness     chem.FitnessReport
	Mutations   []chem.MutationRecord
}

// DTO converts the candidate for transport.
func (c Candidate) DTO() chem.CandidateDTO {
	return chem.CandidateDTO{
		SMILES:      c.Molecule.Canonical(),
		Descriptors: c.Descriptors,
		Fitness:     c.Fitness,
		Mutations:   c.Mutations,
	}
}

// Result is one completed generation.  Candidates are unique by canonical
// form and sorted by composite fitness descending, ties broken by canonical
// form ascending.
type Result struct {
	GenerationIndex uint
	Parent          *molecule.Molecule
	Candidates      []Candidate
}

// Top returns the first n candidates (all of them when fewer exist).
func (r *Result) Top(n int) []Candidate {
	if n > len(r.Candidates) {
		n = len(r.Candidates)
	}
	return r.Candidates[:n]
}

// DTO converts the result for transport.
func (r *Result) DTO() chem.GenerationResultDTO {
	out := chem.GenerationResultDTO{
		GenerationIndex: r.GenerationIndex,
		ParentSMILES:    r.Parent.Canonical(),
		Candidates:      make([]chem.CandidateDTO, 0, len(r.Candidates)),
	}
	for _, c := range r.Candidates {
		out.Candidates = append(out.Candidates, c.DTO())
	}
	return out
}

// RunGeneration expands parent into up to k scored offspring.
//
// Each slot derives its own sub-seed from Params.Seed and its slot index, so
// results do not depend on scheduling order or worker count.  Slots whose
// mutation chains come up empty are dropped; when every slot fails the run
// fails with CodeEngineNoValidMutations.
func RunGeneration(ctx context.Context, parent *molecule.Molecule, p Params) (*Result, error) {
	if parent == nil || parent.HeavyAtomCount() == 0 {
		return nil, errors.New(errors.CodeEngineInvalidParent,
			"nil or empty parent molecule")
	}
	if p.Offspring < MinOffspring || p.Offspring > MaxOffspring {
		return nil, errors.New(errors.CodeEngineBadParams,
			"offspring count out of range").WithDetail("allowed range is [1,500]")
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > p.Offspring {
		workers = p.Offspring
	}

	slots := make([]*Candidate, p.Offspring)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for slot := range jobs {
				slots[slot] = runSlot(parent, slotSeed(p.Seed, slot))
			}
		}()
	}

	var cancelled error
dispatch:
	for slot := 0; slot < p.Offspring; slot++ {
		select {
		case jobs <- slot:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	if cancelled != nil {
		return nil, errors.Wrap(cancelled, errors.CodeInternal,
			"generation cancelled")
	}

	// Deduplicate by canonical form in slot order, then rank.
	seen := make(map[string]bool, p.Offspring)
	candidates := make([]Candidate, 0, p.Offspring)
	for _, c := range slots {
		if c == nil || seen[c.Molecule.Canonical()] {
			continue
		}
		seen[c.Molecule.Canonical()] = true
		candidates = append(candidates, *c)
	}
	if len(candidates) == 0 {
		return nil, errors.New(errors.CodeEngineNoValidMutations,
			"no slot produced a valid offspring").WithDetail(parent.Canonical())
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		fi := candidates[i].Fitness.CompositeFitness
		fj := candidates[j].Fitness.CompositeFitness
		if fi != fj {
			return fi > fj
		}
		return candidates[i].Molecule.Canonical() < candidates[j].Molecule.Canonical()
	})

	return &Result{
		GenerationIndex: p.Index,
		Parent:          parent,
		Candidates:      candidates,
	}, nil
}

// runSlot applies a short seeded mutation chain to parent and scores the
// survivor.  A nil return means the slot produced nothing valid.
func runSlot(parent *molecule.Molecule, seed int64) *Candidate {
	rng := rand.New(rand.NewSource(seed))
	edits := 1 + rng.Intn(maxEditsPerOffspring)
	op := mutation.NewOperator(rng.Int63())

	cur := parent
	records := make([]chem.MutationRecord, 0, edits)
	for e := 0; e < edits; e++ {
		child, rec, err := op.Apply(cur)
		if err != nil {
			break
		}
		cur = child
		records = append(records, rec)
	}
	if len(records) == 0 || cur.Canonical() == parent.Canonical() {
		return nil
	}

	d := descriptor.Calculate(cur)
	return &Candidate{
		Molecule:    cur,
		Descriptors: d,
		Fitness:     fitness.Score(cur, d),
		Mutations:   records,
	}
}

// slotSeed derives a per-slot sub-seed via a splitmix-style multiply-xor so
// neighbouring slots get uncorrelated streams.
func slotSeed(seed int64, slot int) int64 {
	x := uint64(seed) + uint64(slot+1)*0x9E3779B97F4A7C15
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}
