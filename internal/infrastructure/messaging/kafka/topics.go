// Package kafka publishes the engine's domain events: molecules scored,
// generations completed, candidates accepted into a lineage.
package kafka

import (
	"encoding/json"
	"time"
)

// Topic constants.  The configured topic prefix is prepended at publish time.
const (
	TopicMoleculeScored      = "molecule.scored"
	TopicGenerationCompleted = "evolution.generation_completed"
	TopicCandidateAccepted   = "evolution.candidate_accepted"
)

// SchemaVersion tags every envelope so consumers can dispatch on payload
// shape.
const SchemaVersion = "1.0"

// EventEnvelope standardises event messages.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// MoleculeScoredPayload announces a freshly scored molecule.
type MoleculeScoredPayload struct {
	SMILES           string    `json:"smiles"`
	CanonicalSMILES  string    `json:"canonical_smiles"`
	CompositeFitness float64   `json:"composite_fitness"`
	ToxicityFlag     bool      `json:"toxicity_flag"`
	ProfileVersion   string    `json:"profile_version"`
	ScoredAt         time.Time `json:"scored_at"`
}

// GenerationCompletedPayload announces a finished generation run.
type GenerationCompletedPayload struct {
	LineageID       string    `json:"lineage_id,omitempty"`
	GenerationIndex uint      `json:"generation_index"`
	ParentSMILES    string    `json:"parent_smiles"`
	CandidateCount  int       `json:"candidate_count"`
	BestFitness     float64   `json:"best_fitness"`
	Seed            int64     `json:"seed"`
	CompletedAt     time.Time `json:"completed_at"`
}

// CandidateAcceptedPayload announces a candidate accepted into a lineage.
type CandidateAcceptedPayload struct {
	LineageID         string    `json:"lineage_id"`
	GenerationIndex   uint      `json:"generation_index"`
	SMILES            string    `json:"smiles"`
	MutationCount     uint      `json:"mutation_count_since_seed"`
	DivergencePercent float64   `json:"divergence_percent"`
	AcceptedAt        time.Time `json:"accepted_at"`
}
