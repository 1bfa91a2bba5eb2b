package discovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/fitness"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

type fakeStore struct {
	mu      sync.Mutex
	records []*repositories.MoleculeRecord
	err     error
}

func (f *fakeStore) Save(_ context.Context, rec *repositories.MoleculeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
}

func (f *fakePublisher) Publish(_ context.Context, topic, _, key string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	return nil
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	cfg := config.EngineConfig{MaxBatchSize: 100}
	return NewService(cfg, prometheus.NewMetrics("test"), logging.NewNopLogger(), opts...)
}

func TestScoreBatchMixedResults(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.ScoreBatch(context.Background(), ScoreRequest{
		SMILES: []string{"CC(=O)Oc1ccccc1C(=O)O", "C1CC", "CCO"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Scored)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, fitness.ProfileVersion, resp.ProfileVersion)
	require.Len(t, resp.Results, 3)

	aspirin := resp.Results[0]
	require.Nil(t, aspirin.Error)
	require.NotNil(t, aspirin.Descriptors)
	require.NotNil(t, aspirin.Fitness)
	assert.InDelta(t, 180.159, aspirin.Descriptors.MolecularWeight, 1e-9)
	assert.Equal(t, 1.0, aspirin.Fitness.DrugLikeness)

	bad := resp.Results[1]
	require.NotNil(t, bad.Error)
	assert.Equal(t, errors.CodeParseMalformed.String(), bad.Error.Code)
	assert.Nil(t, bad.Descriptors)
	assert.Empty(t, bad.CanonicalSMILES)
}

func TestScoreBatchRejectsEmptyAndOversized(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ScoreBatch(context.Background(), ScoreRequest{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	big := make([]string, 101)
	for i := range big {
		big[i] = "CCO"
	}
	_, err = svc.ScoreBatch(context.Background(), ScoreRequest{SMILES: big})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestScoreBatchPersistsAndAnnounces(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := newTestService(t, WithStore(store), WithEvents(pub))

	resp, err := svc.ScoreBatch(context.Background(), ScoreRequest{
		SMILES: []string{"OCC", "not-a-molecule"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Scored)

	// Only the successfully scored molecule is persisted and announced.
	ethanol := molecule.MustParse("OCC").Canonical()
	require.Len(t, store.records, 1)
	assert.Equal(t, ethanol, store.records[0].CanonicalSMILES)
	assert.Equal(t, "OCC", store.records[0].SMILES)
	assert.Equal(t, fitness.ProfileVersion, store.records[0].ProfileVersion)

	require.Len(t, pub.topics, 1)
	assert.Equal(t, "molecule.scored", pub.topics[0])
	assert.Equal(t, ethanol, pub.keys[0])
}

func TestScoreBatchSurvivesStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New(errors.CodeDatabaseError, "down")}
	svc := newTestService(t, WithStore(store))

	resp, err := svc.ScoreBatch(context.Background(), ScoreRequest{SMILES: []string{"CCO"}})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Scored)
	require.NotNil(t, resp.Results[0].Fitness)
}

func TestScoreTargetUsesLibrary(t *testing.T) {
	svc := newTestService(t)

	resp, err := svc.ScoreTarget(context.Background(), "pancreatic cancer", 3)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 3, resp.Scored)
	assert.Zero(t, resp.Failed)
}

func TestSimilarity(t *testing.T) {
	svc := newTestService(t)

	self, err := svc.Similarity(context.Background(), "OCC", "CCO")
	require.NoError(t, err)
	assert.Equal(t, self.CanonicalA, self.CanonicalB)
	assert.Equal(t, 1.0, self.TanimotoSimilarity)
	assert.Zero(t, self.EditDistance)

	far, err := svc.Similarity(context.Background(), "CCO", "CC(=O)Oc1ccccc1C(=O)O")
	require.NoError(t, err)
	assert.Less(t, far.TanimotoSimilarity, 1.0)
	assert.Greater(t, far.EditDistance, 0.0)

	_, err = svc.Similarity(context.Background(), "C1CC", "CCO")
	assert.True(t, errors.IsCode(err, errors.CodeParseMalformed))
}

func TestTargetSeedsParse(t *testing.T) {
	for _, target := range Targets() {
		for _, seed := range target.Seeds {
			_, err := molecule.Parse(seed)
			assert.NoError(t, err, "target %s seed %s", target.Name, seed)
		}
	}
	for _, seed := range SeedsFor("unknown indication") {
		_, err := molecule.Parse(seed)
		assert.NoError(t, err, "default seed %s", seed)
	}
}

func TestSeedsForMatching(t *testing.T) {
	assert.Equal(t, SeedsFor("cancer"), SeedsFor("metastatic CANCER cohort"))
	assert.NotEqual(t, SeedsFor("cancer"), SeedsFor("type 2 diabetes"))
	assert.Equal(t, defaultSeeds, SeedsFor(""))
}
