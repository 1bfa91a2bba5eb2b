package evolution

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

type fakeStore struct {
	mu      sync.Mutex
	records []*repositories.LineageRecord
}

func (f *fakeStore) Save(_ context.Context, rec *repositories.LineageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(_ context.Context, topic, _, _ string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cfg := config.EngineConfig{
		DefaultOffspring: 50,
		DefaultTopN:      5,
		Workers:          2,
		MaxBatchSize:     100,
	}
	return NewService(cfg, prometheus.NewMetrics("test"), logging.NewNopLogger(), opts...)
}

func TestLineageRoundTrip(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := newTestService(t, WithStore(store), WithEvents(pub))
	ctx := context.Background()

	lin, err := svc.StartLineage(ctx, StartLineageRequest{SeedSMILES: "CCO"})
	require.NoError(t, err)
	assert.False(t, lin.ID.IsZero())
	assert.Equal(t, uint(1), lin.NextGenerationIndex)
	assert.Equal(t, lin.SeedSMILES, lin.CurrentSMILES)
	require.Len(t, lin.History, 1)
	assert.Zero(t, lin.MutationCount)

	gen, err := svc.RunGeneration(ctx, GenerationRequest{
		LineageID: lin.ID, Seed: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(1), gen.GenerationIndex)
	assert.Equal(t, lin.CurrentSMILES, gen.ParentSMILES)
	require.NotEmpty(t, gen.Candidates)
	assert.LessOrEqual(t, len(gen.Candidates), 5)
	assert.GreaterOrEqual(t, gen.TotalCandidates, len(gen.Candidates))

	accepted, err := svc.Accept(ctx, AcceptRequest{
		LineageID: lin.ID, SMILES: gen.Candidates[0].SMILES,
	})
	require.NoError(t, err)
	assert.Equal(t, gen.Candidates[0].SMILES, accepted.CurrentSMILES)
	assert.Equal(t, uint(2), accepted.NextGenerationIndex)
	assert.Positive(t, accepted.MutationCount)
	require.Len(t, accepted.History, 2)

	// Start persisted once, accept persisted once.
	require.Len(t, store.records, 2)
	last := store.records[1]
	assert.Equal(t, lin.ID, last.ID)
	assert.Equal(t, uint(1), last.GenerationIndex)
	assert.Equal(t, accepted.CurrentSMILES, last.CurrentSMILES)

	assert.Equal(t, []string{
		"evolution.generation_completed",
		"evolution.candidate_accepted",
	}, pub.topics)
}

func TestRunGenerationDeterministicStandalone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	req := GenerationRequest{ParentSMILES: "CCO", Offspring: 80, TopN: 10, Seed: 7}

	a, err := svc.RunGeneration(ctx, req)
	require.NoError(t, err)
	b, err := svc.RunGeneration(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	req.Seed = 8
	c, err := svc.RunGeneration(ctx, req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Candidates, c.Candidates)
}

func TestRunGenerationRejectsOversizedTopN(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.RunGeneration(ctx, GenerationRequest{
		ParentSMILES: "CCO", Offspring: 10, TopN: 11, Seed: 1,
	})
	assert.True(t, errors.IsCode(err, errors.CodeEngineBadParams))

	// A defaulted top-N is capped to the offspring count, not rejected.
	gen, err := svc.RunGeneration(ctx, GenerationRequest{
		ParentSMILES: "CCO", Offspring: 2, Seed: 1,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(gen.Candidates), 2)
}

func TestRunGenerationRequiresParent(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RunGeneration(context.Background(), GenerationRequest{Seed: 1})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRunGenerationSeedMismatch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lin, err := svc.StartLineage(ctx, StartLineageRequest{SeedSMILES: "CCO"})
	require.NoError(t, err)

	_, err = svc.RunGeneration(ctx, GenerationRequest{
		LineageID: lin.ID, ParentSMILES: "CCC", Seed: 42,
	})
	assert.True(t, errors.IsCode(err, errors.CodeLineageSeedMismatch))

	// A spelling variant of the head is not a mismatch.
	_, err = svc.RunGeneration(ctx, GenerationRequest{
		LineageID: lin.ID, ParentSMILES: "OCC", Seed: 42,
	})
	assert.NoError(t, err)
}

func TestUnknownLineage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := common.NewID()

	_, err := svc.GetLineage(ctx, id)
	assert.True(t, errors.IsCode(err, errors.CodeLineageNotFound))

	_, err = svc.RunGeneration(ctx, GenerationRequest{LineageID: id, Seed: 1})
	assert.True(t, errors.IsCode(err, errors.CodeLineageNotFound))

	_, err = svc.Accept(ctx, AcceptRequest{LineageID: id, SMILES: "CCO"})
	assert.True(t, errors.IsCode(err, errors.CodeLineageNotFound))
}

func TestAcceptGuards(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lin, err := svc.StartLineage(ctx, StartLineageRequest{SeedSMILES: "CCO"})
	require.NoError(t, err)

	// Nothing pending yet.
	_, err = svc.Accept(ctx, AcceptRequest{LineageID: lin.ID, SMILES: "CCC"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	gen, err := svc.RunGeneration(ctx, GenerationRequest{LineageID: lin.ID, Seed: 42})
	require.NoError(t, err)

	// Benzene cannot arise from ethanol in three edits.
	_, err = svc.Accept(ctx, AcceptRequest{LineageID: lin.ID, SMILES: "c1ccccc1"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = svc.Accept(ctx, AcceptRequest{LineageID: lin.ID, SMILES: gen.Candidates[0].SMILES})
	require.NoError(t, err)

	// The pending generation is consumed by the accept.
	_, err = svc.Accept(ctx, AcceptRequest{LineageID: lin.ID, SMILES: gen.Candidates[0].SMILES})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestGetLineageTracksAccepts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	lin, err := svc.StartLineage(ctx, StartLineageRequest{SeedSMILES: "CC(=O)Oc1ccccc1C(=O)O"})
	require.NoError(t, err)

	for want := uint(1); want <= 3; want++ {
		gen, err := svc.RunGeneration(ctx, GenerationRequest{
			LineageID: lin.ID, Seed: int64(want) * 101,
		})
		require.NoError(t, err)
		require.Equal(t, want, gen.GenerationIndex)

		_, err = svc.Accept(ctx, AcceptRequest{
			LineageID: lin.ID, SMILES: gen.Candidates[0].SMILES,
		})
		require.NoError(t, err)
	}

	view, err := svc.GetLineage(ctx, lin.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(4), view.NextGenerationIndex)
	assert.Len(t, view.History, 4)
	assert.GreaterOrEqual(t, view.DivergencePercent, 0.0)
	assert.GreaterOrEqual(t, view.MutationCount, uint(3))
}

func TestStartLineageRejectsBadSeed(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.StartLineage(context.Background(), StartLineageRequest{SeedSMILES: "C1CC"})
	assert.True(t, errors.IsCode(err, errors.CodeParseMalformed))
}
