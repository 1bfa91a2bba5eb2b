// Package evolution orchestrates generational search sessions: it owns the
// in-memory lineage registry, runs generations through the domain engine,
// applies accepts, and mirrors session state to persistence and events.
package evolution

import (
	"context"
	"sync"
	"time"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	engine "github.com/nickita-khylkouski/ultrathink/internal/domain/evolution"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/messaging/kafka"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

// LineageStore is the persistence port lineage state is mirrored through.
type LineageStore interface {
	Save(ctx context.Context, rec *repositories.LineageRecord) error
}

// EventPublisher is the messaging port for evolution announcements.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / response DTOs
// ─────────────────────────────────────────────────────────────────────────────

// StartLineageRequest opens a new evolution session.
type StartLineageRequest struct {
	SeedSMILES string `json:"seed_smiles"`
}

// GenerationRequest runs one generation.  Either LineageID or ParentSMILES
// selects the parent; when both are present the explicit parent must match
// the lineage head.
type GenerationRequest struct {
	LineageID    common.ID `json:"lineage_id,omitempty"`
	ParentSMILES string    `json:"parent_smiles,omitempty"`
	Offspring    int       `json:"offspring,omitempty"`
	TopN         int       `json:"top_n,omitempty"`
	Seed         int64     `json:"seed,omitempty"`
}

// GenerationView is the API shape of one completed generation.  Candidates
// are truncated to the requested top N; TotalCandidates counts everything
// the run produced (and everything Accept may reference).
type GenerationView struct {
	LineageID       common.ID           `json:"lineage_id,omitempty"`
	Seed            int64               `json:"seed"`
	GenerationIndex uint                `json:"generation_index"`
	ParentSMILES    string              `json:"parent_smiles"`
	Candidates      []chem.CandidateDTO `json:"candidates"`
	TotalCandidates int                 `json:"total_candidates"`
}

// AcceptRequest promotes one candidate of the pending generation to the new
// lineage head.
type AcceptRequest struct {
	LineageID common.ID `json:"lineage_id"`
	SMILES    string    `json:"smiles"`
}

// LineageView is the API shape of a session.
type LineageView struct {
	ID                  common.ID              `json:"lineage_id"`
	SeedSMILES          string                 `json:"seed_smiles"`
	CurrentSMILES       string                 `json:"current_smiles"`
	NextGenerationIndex uint                   `json:"next_generation_index"`
	MutationCount       uint                   `json:"mutation_count_since_seed"`
	DivergencePercent   float64                `json:"divergence_percent"`
	History             []chem.LineageEntryDTO `json:"history"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// session is one live lineage plus the last generation awaiting an accept.
type session struct {
	mu      sync.Mutex
	lineage *engine.Lineage
	pending *engine.Result
}

// Service coordinates lineage sessions.  Store and event dependencies are
// optional; a nil port degrades that concern instead of failing requests.
type Service struct {
	cfg     config.EngineConfig
	store   LineageStore
	events  EventPublisher
	metrics *prometheus.Metrics
	logger  logging.Logger

	mu       sync.RWMutex
	sessions map[common.ID]*session
}

// Option customises service construction.
type Option func(*Service)

// WithStore attaches lineage persistence.
func WithStore(s LineageStore) Option {
	return func(svc *Service) { svc.store = s }
}

// WithEvents attaches the event publisher.
func WithEvents(p EventPublisher) Option {
	return func(svc *Service) { svc.events = p }
}

// NewService constructs the evolution session service.
func NewService(cfg config.EngineConfig, m *prometheus.Metrics, log logging.Logger, opts ...Option) *Service {
	svc := &Service{
		cfg:      cfg,
		metrics:  m,
		logger:   log.Named("evolution"),
		sessions: make(map[common.ID]*session),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// StartLineage parses the seed and opens a session at generation zero.
func (s *Service) StartLineage(ctx context.Context, req StartLineageRequest) (*LineageView, error) {
	seed, err := molecule.Parse(req.SeedSMILES)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "seed rejected")
	}
	lin, err := engine.StartLineage(seed)
	if err != nil {
		return nil, err
	}

	id := common.NewID()
	sess := &session{lineage: lin}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.persist(ctx, id, lin)
	s.logger.Info("lineage started",
		logging.String("lineage_id", string(id)),
		logging.String("seed", seed.Canonical()))
	return lineageView(id, lin), nil
}

// GetLineage returns the current session state.
func (s *Service) GetLineage(_ context.Context, id common.ID) (*LineageView, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return lineageView(id, sess.lineage), nil
}

// RunGeneration expands a parent into ranked offspring.  With a lineage the
// parent is the session head and the run becomes the pending generation the
// next Accept draws from; without one it is a standalone expansion.
func (s *Service) RunGeneration(ctx context.Context, req GenerationRequest) (*GenerationView, error) {
	offspring := req.Offspring
	if offspring == 0 {
		offspring = s.cfg.DefaultOffspring
	}
	topN := req.TopN
	switch {
	case topN > offspring:
		return nil, errors.New(errors.CodeEngineBadParams,
			"top_n must not exceed the offspring count")
	case topN <= 0:
		topN = s.cfg.DefaultTopN
		if topN > offspring {
			topN = offspring
		}
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var sess *session
	var parent *molecule.Molecule
	var index uint
	if !req.LineageID.IsZero() {
		var err error
		if sess, err = s.session(req.LineageID); err != nil {
			return nil, err
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		parent = sess.lineage.Current()
		index = sess.lineage.NextGeneration()
		if req.ParentSMILES != "" {
			claimed, err := molecule.Parse(req.ParentSMILES)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeOf(err), "parent rejected")
			}
			if claimed.Canonical() != parent.Canonical() {
				return nil, errors.New(errors.CodeLineageSeedMismatch,
					"parent does not match the lineage head").
					WithDetail(parent.Canonical())
			}
		}
	} else {
		if req.ParentSMILES == "" {
			return nil, errors.InvalidParam("either lineage_id or parent_smiles is required")
		}
		var err error
		if parent, err = molecule.Parse(req.ParentSMILES); err != nil {
			return nil, errors.Wrap(err, errors.CodeOf(err), "parent rejected")
		}
		index = 1
	}

	start := time.Now()
	result, err := engine.RunGeneration(ctx, parent, engine.Params{
		Offspring: offspring,
		Seed:      seed,
		Index:     index,
		Workers:   s.cfg.Workers,
	})
	if err != nil {
		s.metrics.GenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	s.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	s.metrics.CandidatesPerGeneration.Observe(float64(len(result.Candidates)))

	if sess != nil {
		sess.pending = result
	}
	s.announceGeneration(ctx, req.LineageID, seed, result)

	view := &GenerationView{
		LineageID:       req.LineageID,
		Seed:            seed,
		GenerationIndex: result.GenerationIndex,
		ParentSMILES:    parent.Canonical(),
		Candidates:      make([]chem.CandidateDTO, 0, topN),
		TotalCandidates: len(result.Candidates),
	}
	for _, c := range result.Top(topN) {
		view.Candidates = append(view.Candidates, c.DTO())
	}
	return view, nil
}

// Accept promotes a candidate of the pending generation to the lineage head.
// The candidate is addressed by structure; any spelling that canonicalises
// to a pending candidate matches.
func (s *Service) Accept(ctx context.Context, req AcceptRequest) (*LineageView, error) {
	sess, err := s.session(req.LineageID)
	if err != nil {
		return nil, err
	}
	chosen, err := molecule.Parse(req.SMILES)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeOf(err), "candidate rejected")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending == nil {
		return nil, errors.InvalidParam("no pending generation to accept from").
			WithDetail(string(req.LineageID))
	}

	var cand *engine.Candidate
	for i := range sess.pending.Candidates {
		if sess.pending.Candidates[i].Molecule.Canonical() == chosen.Canonical() {
			cand = &sess.pending.Candidates[i]
			break
		}
	}
	if cand == nil {
		return nil, errors.NotFound("candidate is not part of the pending generation").
			WithDetail(chosen.Canonical())
	}

	err = sess.lineage.Accept(sess.pending.GenerationIndex,
		cand.Molecule, uint(len(cand.Mutations)))
	if err != nil {
		return nil, err
	}
	for _, rec := range cand.Mutations {
		s.metrics.MutationOpsTotal.WithLabelValues(string(rec.Operation)).Inc()
	}
	s.metrics.LineageDivergence.Observe(sess.lineage.Divergence())
	sess.pending = nil

	s.persist(ctx, req.LineageID, sess.lineage)
	s.announceAccept(ctx, req.LineageID, sess.lineage)
	return lineageView(req.LineageID, sess.lineage), nil
}

// session looks up a live session by ID.
func (s *Service) session(id common.ID) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.New(errors.CodeLineageNotFound, "lineage session not found").
			WithDetail(string(id))
	}
	return sess, nil
}

// persist mirrors the lineage state to storage.  Best effort.
func (s *Service) persist(ctx context.Context, id common.ID, lin *engine.Lineage) {
	if s.store == nil {
		return
	}
	dto := lin.DTO()
	last := dto.History[len(dto.History)-1]
	rec := &repositories.LineageRecord{
		ID:                id,
		SeedSMILES:        dto.SeedSMILES,
		CurrentSMILES:     last.SMILES,
		GenerationIndex:   last.GenerationIndex,
		MutationCount:     last.MutationCount,
		DivergencePercent: dto.DivergencePercent,
		History:           dto.History,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Warn("lineage not persisted",
			logging.String("lineage_id", string(id)), logging.Err(err))
	}
}

// announceGeneration publishes evolution.generation_completed.  Best effort.
func (s *Service) announceGeneration(ctx context.Context, id common.ID, seed int64, result *engine.Result) {
	if s.events == nil {
		return
	}
	payload := kafka.GenerationCompletedPayload{
		LineageID:       string(id),
		GenerationIndex: result.GenerationIndex,
		ParentSMILES:    result.Parent.Canonical(),
		CandidateCount:  len(result.Candidates),
		BestFitness:     result.Candidates[0].Fitness.CompositeFitness,
		Seed:            seed,
		CompletedAt:     time.Now().UTC(),
	}
	s.publish(ctx, kafka.TopicGenerationCompleted,
		"evolution.generation_completed", payload.ParentSMILES, payload)
}

// announceAccept publishes evolution.candidate_accepted.  Best effort.
func (s *Service) announceAccept(ctx context.Context, id common.ID, lin *engine.Lineage) {
	if s.events == nil {
		return
	}
	dto := lin.DTO()
	last := dto.History[len(dto.History)-1]
	payload := kafka.CandidateAcceptedPayload{
		LineageID:         string(id),
		GenerationIndex:   last.GenerationIndex,
		SMILES:            last.SMILES,
		MutationCount:     last.MutationCount,
		DivergencePercent: dto.DivergencePercent,
		AcceptedAt:        time.Now().UTC(),
	}
	s.publish(ctx, kafka.TopicCandidateAccepted,
		"evolution.candidate_accepted", string(id), payload)
}

func (s *Service) publish(ctx context.Context, topic, eventType, key string, payload interface{}) {
	err := s.events.Publish(ctx, topic, eventType, key, payload)
	if err != nil {
		s.metrics.EventsPublishedTotal.WithLabelValues(topic, "error").Inc()
		s.logger.Warn("event not published",
			logging.String("topic", topic), logging.Err(err))
		return
	}
	s.metrics.EventsPublishedTotal.WithLabelValues(topic, "ok").Inc()
}

// lineageView projects a lineage into its API shape.
func lineageView(id common.ID, lin *engine.Lineage) *LineageView {
	dto := lin.DTO()
	last := dto.History[len(dto.History)-1]
	return &LineageView{
		ID:                  id,
		SeedSMILES:          dto.SeedSMILES,
		CurrentSMILES:       last.SMILES,
		NextGenerationIndex: last.GenerationIndex + 1,
		MutationCount:       last.MutationCount,
		DivergencePercent:   dto.DivergencePercent,
		History:             dto.History,
	}
}
