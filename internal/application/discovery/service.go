// Package discovery orchestrates batch molecule scoring: parse, compute
// descriptors and fitness, cache by canonical form, persist, and announce.
// Failures are reported per item so one bad structure never sinks a batch.
package discovery

import (
	"context"
	"time"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/descriptor"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/fitness"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/redis"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/messaging/kafka"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

// scoreCacheTTL bounds how long a scored entry stays valid; descriptor and
// fitness tables only change with a profile bump, so a long TTL is safe.
const scoreCacheTTL = 24 * time.Hour

// MoleculeStore is the persistence port the service writes scored molecules
// through.
type MoleculeStore interface {
	Save(ctx context.Context, rec *repositories.MoleculeRecord) error
}

// EventPublisher is the messaging port for molecule.scored announcements.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / response DTOs
// ─────────────────────────────────────────────────────────────────────────────

// ScoreRequest is one batch scoring request.
type ScoreRequest struct {
	SMILES []string `json:"smiles"`
}

// ScoreItem is the per-input outcome.  Exactly one of the result fields or
// Error is populated.
type ScoreItem struct {
	SMILES          string              `json:"smiles"`
	CanonicalSMILES string              `json:"canonical_smiles,omitempty"`
	Descriptors     *chem.Descriptors   `json:"descriptors,omitempty"`
	Fitness         *chem.FitnessReport `json:"fitness,omitempty"`
	Error           *common.ErrorDetail `json:"error,omitempty"`
}

// ScoreResponse carries every item outcome plus batch totals.
type ScoreResponse struct {
	Results        []ScoreItem `json:"results"`
	Scored         int         `json:"scored"`
	Failed         int         `json:"failed"`
	ProfileVersion string      `json:"profile_version"`
}

// SimilarityResult reports how alike two parsed structures are.
type SimilarityResult struct {
	CanonicalA         string  `json:"canonical_a"`
	CanonicalB         string  `json:"canonical_b"`
	TanimotoSimilarity float64 `json:"tanimoto_similarity"`
	EditDistance       float64 `json:"edit_distance"`
}

// scoredEntry is the cache value for one canonical form.
type scoredEntry struct {
	Descriptors chem.Descriptors   `json:"descriptors"`
	Fitness     chem.FitnessReport `json:"fitness"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service implements batch scoring.  Store, cache and event dependencies are
// optional; a nil port degrades that concern gracefully instead of failing
// the batch.
type Service struct {
	cfg     config.EngineConfig
	store   MoleculeStore
	cache   redis.Cache
	events  EventPublisher
	metrics *prometheus.Metrics
	logger  logging.Logger
}

// Option customises service construction.
type Option func(*Service)

// WithStore attaches molecule persistence.
func WithStore(s MoleculeStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithCache attaches the canonical-form score cache.
func WithCache(c redis.Cache) Option {
	return func(svc *Service) { svc.cache = c }
}

// WithEvents attaches the molecule.scored publisher.
func WithEvents(p EventPublisher) Option {
	return func(svc *Service) { svc.events = p }
}

// NewService constructs the discovery scoring service.
func NewService(cfg config.EngineConfig, m *prometheus.Metrics, log logging.Logger, opts ...Option) *Service {
	svc := &Service{
		cfg:     cfg,
		metrics: m,
		logger:  log.Named("discovery"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ScoreBatch scores every input independently.  The batch fails as a whole
// only for an empty or oversized request; individual parse and valence
// failures are reported inline on their item.
func (s *Service) ScoreBatch(ctx context.Context, req ScoreRequest) (*ScoreResponse, error) {
	if len(req.SMILES) == 0 {
		return nil, errors.InvalidParam("smiles list must not be empty")
	}
	if max := s.cfg.MaxBatchSize; max > 0 && len(req.SMILES) > max {
		return nil, errors.InvalidParam("batch exceeds maximum size").
			WithDetail(req.SMILES[0])
	}
	s.metrics.ScoreBatchSize.Observe(float64(len(req.SMILES)))

	resp := &ScoreResponse{
		Results:        make([]ScoreItem, 0, len(req.SMILES)),
		ProfileVersion: fitness.ProfileVersion,
	}
	for _, in := range req.SMILES {
		item := s.scoreOne(ctx, in)
		if item.Error != nil {
			resp.Failed++
		} else {
			resp.Scored++
		}
		resp.Results = append(resp.Results, item)
	}
	return resp, nil
}

// ScoreTarget scores the curated seed library for a named indication.
func (s *Service) ScoreTarget(ctx context.Context, target string, limit int) (*ScoreResponse, error) {
	seeds := SeedsFor(target)
	if limit > 0 && limit < len(seeds) {
		seeds = seeds[:limit]
	}
	return s.ScoreBatch(ctx, ScoreRequest{SMILES: seeds})
}

// Similarity parses both inputs and reports Tanimoto similarity over hashed
// circular fingerprints plus the raw composition edit distance.
func (s *Service) Similarity(ctx context.Context, a, b string) (*SimilarityResult, error) {
	ma, err := molecule.Parse(a)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "first structure rejected")
	}
	mb, err := molecule.Parse(b)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "second structure rejected")
	}
	return &SimilarityResult{
		CanonicalA:         ma.Canonical(),
		CanonicalB:         mb.Canonical(),
		TanimotoSimilarity: molecule.Tanimoto(ma.Fingerprint(), mb.Fingerprint()),
		EditDistance:       molecule.EditDistance(ma, mb),
	}, nil
}

// scoreOne runs the parse → descriptors → fitness pipeline for one input,
// consulting the cache keyed on canonical form first.
func (s *Service) scoreOne(ctx context.Context, in string) ScoreItem {
	item := ScoreItem{SMILES: in}

	m, err := molecule.Parse(in)
	if err != nil {
		s.metrics.MoleculesParsedTotal.WithLabelValues("error").Inc()
		item.Error = errorDetail(err)
		return item
	}
	s.metrics.MoleculesParsedTotal.WithLabelValues("ok").Inc()
	canonical := m.Canonical()
	item.CanonicalSMILES = canonical

	entry := s.computeCached(ctx, canonical, m)
	item.Descriptors = &entry.Descriptors
	item.Fitness = &entry.Fitness
	s.metrics.CompositeFitness.Observe(entry.Fitness.CompositeFitness)

	s.persist(ctx, in, canonical, entry)
	s.announce(ctx, in, canonical, entry)
	return item
}

// computeCached returns the scored entry for a canonical form, loading
// through the cache when one is attached.
func (s *Service) computeCached(ctx context.Context, canonical string, m *molecule.Molecule) scoredEntry {
	compute := func() scoredEntry {
		d := descriptor.Calculate(m)
		return scoredEntry{Descriptors: d, Fitness: fitness.Score(m, d)}
	}
	if s.cache == nil {
		return compute()
	}

	var entry scoredEntry
	loaded := false
	err := s.cache.GetOrSet(ctx, "score:"+canonical, &entry, scoreCacheTTL,
		func(context.Context) (interface{}, error) {
			loaded = true
			s.metrics.CacheMissesTotal.WithLabelValues("score").Inc()
			return compute(), nil
		})
	if err != nil {
		s.logger.Warn("score cache unavailable, computing directly",
			logging.String("canonical", canonical), logging.Err(err))
		return compute()
	}
	if !loaded {
		s.metrics.CacheHitsTotal.WithLabelValues("score").Inc()
	}
	return entry
}

// persist upserts the scored molecule.  Persistence failures degrade to a
// warning; the caller still gets the computed scores.
func (s *Service) persist(ctx context.Context, in, canonical string, entry scoredEntry) {
	if s.store == nil {
		return
	}
	rec := &repositories.MoleculeRecord{
		SMILES:          in,
		CanonicalSMILES: canonical,
		Descriptors:     entry.Descriptors,
		Fitness:         entry.Fitness,
		ProfileVersion:  fitness.ProfileVersion,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Warn("scored molecule not persisted",
			logging.String("canonical", canonical), logging.Err(err))
	}
}

// announce publishes molecule.scored.  Best effort.
func (s *Service) announce(ctx context.Context, in, canonical string, entry scoredEntry) {
	if s.events == nil {
		return
	}
	payload := kafka.MoleculeScoredPayload{
		SMILES:           in,
		CanonicalSMILES:  canonical,
		CompositeFitness: entry.Fitness.CompositeFitness,
		ToxicityFlag:     entry.Fitness.ToxicityFlag,
		ProfileVersion:   fitness.ProfileVersion,
		ScoredAt:         time.Now().UTC(),
	}
	err := s.events.Publish(ctx, kafka.TopicMoleculeScored,
		"molecule.scored", canonical, payload)
	if err != nil {
		s.metrics.EventsPublishedTotal.
			WithLabelValues(kafka.TopicMoleculeScored, "error").Inc()
		s.logger.Warn("molecule.scored not published", logging.Err(err))
		return
	}
	s.metrics.EventsPublishedTotal.
		WithLabelValues(kafka.TopicMoleculeScored, "ok").Inc()
}

// errorDetail converts an error chain into the per-item wire shape.
func errorDetail(err error) *common.ErrorDetail {
	detail := &common.ErrorDetail{
		Code:    errors.CodeOf(err).String(),
		Message: err.Error(),
	}
	var ae *errors.AppError
	if errors.As(err, &ae) {
		detail.Message = ae.Message
		detail.Detail = ae.Detail
	}
	return detail
}
