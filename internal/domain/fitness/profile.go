package fitness

// ProfileVersion identifies the scoring constants below.  Stored composite
// scores are only comparable within one profile version; any change to these
// numbers requires a bump.
const ProfileVersion = "fitness/v2"

// Composite weights.  They sum to 1.0 so an ideal molecule scores exactly 1.
const (
	weightDrugLikeness    = 0.4
	weightBioavailability = 0.3
	weightNonToxic        = 0.2
	weightSynthesis       = 0.1
)

// Rule-of-five thresholds.
const (
	lipinskiMaxWeight    = 500.0
	lipinskiMaxLogP      = 5.0
	lipinskiMaxDonors    = 5
	lipinskiMaxAcceptors = 10
)

// bioavailabilityPenalty is subtracted per rule-of-five violation.
const bioavailabilityPenalty = 0.2

// Blood-brain-barrier heuristic window.
const (
	bbbMaxWeight = 400.0
	bbbMaxPSA    = 90.0
	bbbMinLogP   = 1.0
	bbbMaxLogP   = 5.0
)

// toxicityWeightCap flags any molecule above this mass regardless of
// substructures.
const toxicityWeightCap = 800.0

// Synthetic accessibility model: 1 + 9·clamp01(Σ feature·coefficient),
// bounded to [1,10].
const (
	saHeavyAtomCoeff    = 0.035
	saRotatableCoeff    = 0.06
	saAromaticRingCoeff = 0.08
)

// desirability describes one descriptor's ideal window for the drug-likeness
// aggregate: full credit inside [lo,hi], linear falloff over the margin,
// zero beyond.
type desirability struct {
	lo, hi, margin float64
}

func (d desirability) score(v float64) float64 {
	switch {
	case v >= d.lo && v <= d.hi:
		return 1
	case v < d.lo:
		return clamp01(1 - (d.lo-v)/d.margin)
	default:
		return clamp01(1 - (v-d.hi)/d.margin)
	}
}

// Drug-likeness windows, one per contributing descriptor.  Every descriptor
// inside its window scores full credit; each bound crossed strictly lowers
// the aggregate.
var (
	desirableWeight    = desirability{lo: 150, hi: 500, margin: 220}
	desirableLogP      = desirability{lo: 0, hi: 5.0, margin: 2.0}
	desirablePSA       = desirability{lo: 0, hi: 140, margin: 40}
	desirableDonors    = desirability{lo: 0, hi: 5, margin: 5}
	desirableAcceptors = desirability{lo: 0, hi: 10, margin: 5}
	desirableRotatable = desirability{lo: 0, hi: 10, margin: 5}
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
