// Package chem defines the chemistry-domain Data Transfer Objects and
// enumerations used across every layer of the ULTRATHINK engine: computed
// descriptor sets, fitness reports, mutation provenance records, and the
// candidate/generation structures returned by the evolution engine.  No
// domain logic lives here — only plain data types.
package chem

// ─────────────────────────────────────────────────────────────────────────────
// Descriptors — physicochemical descriptor set
// ─────────────────────────────────────────────────────────────────────────────

// Descriptors holds the computed structural descriptors of a molecule.  All
// fields are deterministic pure functions of the molecular graph; recomputing
// on the same molecule always yields identical values.
type Descriptors struct {
	// MolecularWeight is the molecular weight in Da, implicit hydrogens
	// included.
	MolecularWeight float64 `json:"molecular_weight"`

	// LogP is the additive octanol-water partition coefficient estimate
	// (contribution table logp/v1).
	LogP float64 `json:"logp"`

	// PolarSurfaceArea is the topological polar surface area estimate in Å²
	// (contribution table tpsa/v1).
	PolarSurfaceArea float64 `json:"polar_surface_area"`

	// HBondDonors is the count of N-H and O-H groups.
	HBondDonors uint `json:"h_bond_donors"`

	// HBondAcceptors is the count of nitrogen and oxygen atoms.
	HBondAcceptors uint `json:"h_bond_acceptors"`

	// RotatableBonds is the count of non-ring, non-terminal single bonds.
	RotatableBonds uint `json:"rotatable_bonds"`

	// AromaticRings is the count of rings whose every atom is aromatic.
	AromaticRings uint `json:"aromatic_rings"`

	// HeavyAtomCount is the number of non-hydrogen atoms.
	HeavyAtomCount uint `json:"heavy_atom_count"`
}

// ─────────────────────────────────────────────────────────────────────────────
// FitnessReport — composite pharmaceutical fitness
// ─────────────────────────────────────────────────────────────────────────────

// FitnessReport aggregates the named sub-scores derived from a Descriptors
// value plus the single composite ranking key.
type FitnessReport struct {
	// DrugLikeness is a smooth [0,1] aggregate penalising deviation from the
	// ideal descriptor ranges; 1.0 means every descriptor is in range.
	DrugLikeness float64 `json:"drug_likeness_score"`

	// LipinskiViolations counts rule-of-five violations, in [0,4].
	LipinskiViolations uint `json:"lipinski_violations"`

	// Bioavailability is 1.0 at zero violations, −0.2 per violation,
	// floored at 0.
	Bioavailability float64 `json:"bioavailability_score"`

	// SyntheticAccessibility is in [1,10]; lower means easier to make.
	SyntheticAccessibility float64 `json:"synthetic_accessibility"`

	// ToxicityFlag is true when a disallowed substructure matches or the
	// molecular weight exceeds the hard cap.
	ToxicityFlag bool `json:"toxicity_flag"`

	// BBBPenetrant is true when the blood-brain-barrier heuristic window
	// (weight, polar surface area, logP) is satisfied.
	BBBPenetrant bool `json:"bbb_penetrant"`

	// CompositeFitness is the single [0,1] ranking key:
	// clamp01(0.4·drug_likeness + 0.3·bioavailability
	//         + 0.2·(1−toxicity) + 0.1·(1−sa/10)).
	CompositeFitness float64 `json:"composite_fitness"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Mutation provenance
// ─────────────────────────────────────────────────────────────────────────────

// MutationOp identifies one atom-level edit operation.
type MutationOp string

const (
	// OpAddAtom attaches a new atom to an existing atom with spare valence.
	OpAddAtom MutationOp = "add_atom"

	// OpRemoveAtom deletes a non-bridging atom and its bonds.
	OpRemoveAtom MutationOp = "remove_atom"

	// OpSubstituteAtom replaces an atom's element, keeping bond topology.
	OpSubstituteAtom MutationOp = "substitute_atom"
)

// IsValid reports whether the operation is one of the defined edit kinds.
func (op MutationOp) IsValid() bool {
	switch op {
	case OpAddAtom, OpRemoveAtom, OpSubstituteAtom:
		return true
	}
	return false
}

// MutationRecord describes a single applied edit for provenance reporting.
// PositionHint indexes into the parent's atom sequence; it documents where
// the edit happened and is not an input to any later computation.
type MutationRecord struct {
	Operation    MutationOp `json:"operation"`
	Element      string     `json:"element,omitempty"`
	PositionHint uint       `json:"position_hint"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Generation output DTOs
// ─────────────────────────────────────────────────────────────────────────────

// CandidateDTO is one ranked offspring in a generation result.
type CandidateDTO struct {
	SMILES      string           `json:"smiles"`
	Descriptors Descriptors      `json:"descriptors"`
	Fitness     FitnessReport    `json:"fitness"`
	Mutations   []MutationRecord `json:"mutations"`
}

// GenerationResultDTO is the cross-layer representation of one completed
// generation: candidates are sorted by composite fitness descending, ties
// broken by canonical SMILES ascending.
type GenerationResultDTO struct {
	GenerationIndex uint           `json:"generation_index"`
	ParentSMILES    string         `json:"parent_smiles"`
	Candidates      []CandidateDTO `json:"candidates"`
}

// LineageEntryDTO is one accepted step in a lineage history.
type LineageEntryDTO struct {
	GenerationIndex uint   `json:"generation_index"`
	SMILES          string `json:"smiles"`
	MutationCount   uint   `json:"mutation_count_since_seed"`
}

// LineageDTO is the cross-layer representation of an evolution session's
// ancestor chain.
type LineageDTO struct {
	SeedSMILES        string            `json:"seed_smiles"`
	History           []LineageEntryDTO `json:"history"`
	DivergencePercent float64           `json:"divergence_percent"`
}
