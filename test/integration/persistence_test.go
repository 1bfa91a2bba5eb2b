// Integration coverage for the persistence and caching layer against real
// backends.  Gated by environment: set ULTRATHINK_INTEGRATION_TEST=1 plus the
// backend URLs to run, otherwise every test here skips.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/descriptor"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/fitness"
	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/postgres/repositories"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/database/redis"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/chem"
	"github.com/nickita-khylkouski/ultrathink/pkg/types/common"
)

const (
	envEnabled     = "ULTRATHINK_INTEGRATION_TEST"
	envPostgresURL = "ULTRATHINK_TEST_POSTGRES_URL"
	envRedisAddr   = "ULTRATHINK_TEST_REDIS_ADDR"
)

func requirePostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv(envEnabled) == "" {
		t.Skipf("set %s=1 to run integration tests", envEnabled)
	}
	dsn := os.Getenv(envPostgresURL)
	if dsn == "" {
		t.Skipf("set %s to run postgres integration tests", envPostgresURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)

	// Apply the schema directly; the migrate CLI owns versioning in
	// deployments, plain SQL keeps the test self-contained.
	up, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(up))
	require.NoError(t, err)
	return pool
}

func scored(t *testing.T, smiles string) (*molecule.Molecule, chem.Descriptors, chem.FitnessReport) {
	t.Helper()
	m, err := molecule.Parse(smiles)
	require.NoError(t, err)
	d := descriptor.Calculate(m)
	return m, d, fitness.Score(m, d)
}

func TestMoleculeRepositoryRoundTrip(t *testing.T) {
	pool := requirePostgres(t)
	repo := repositories.NewMoleculeRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	m, d, f := scored(t, "CC(=O)Oc1ccccc1C(=O)O")
	rec := &repositories.MoleculeRecord{
		SMILES:          "CC(=O)Oc1ccccc1C(=O)O",
		CanonicalSMILES: m.Canonical(),
		Descriptors:     d,
		Fitness:         f,
		ProfileVersion:  fitness.ProfileVersion,
	}
	require.NoError(t, repo.Save(ctx, rec))
	require.False(t, rec.ID.IsZero())

	got, err := repo.GetByCanonical(ctx, m.Canonical())
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, d, got.Descriptors)
	assert.Equal(t, f, got.Fitness)

	// Upsert on the same canonical form keeps one row.
	again := *rec
	again.ID = ""
	require.NoError(t, repo.Save(ctx, &again))
	list, err := repo.List(ctx, common.Pagination{PageSize: 100})
	require.NoError(t, err)
	count := 0
	for _, r := range list {
		if r.CanonicalSMILES == m.Canonical() {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMoleculeRepositoryListOrdering(t *testing.T) {
	pool := requirePostgres(t)
	repo := repositories.NewMoleculeRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	for _, smiles := range []string{"CCO", "CC(=O)Oc1ccccc1C(=O)O", "CCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"} {
		m, d, f := scored(t, smiles)
		require.NoError(t, repo.Save(ctx, &repositories.MoleculeRecord{
			SMILES:          smiles,
			CanonicalSMILES: m.Canonical(),
			Descriptors:     d,
			Fitness:         f,
			ProfileVersion:  fitness.ProfileVersion,
		}))
	}

	list, err := repo.List(ctx, common.Pagination{PageSize: 100})
	require.NoError(t, err)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t,
			list[i-1].Fitness.CompositeFitness, list[i].Fitness.CompositeFitness)
	}
}

func TestLineageRepositoryRoundTrip(t *testing.T) {
	pool := requirePostgres(t)
	repo := repositories.NewLineageRepository(pool, logging.NewNopLogger())
	ctx := context.Background()

	id := common.NewID()
	rec := &repositories.LineageRecord{
		ID:              id,
		SeedSMILES:      "CCO",
		CurrentSMILES:   "CCCO",
		GenerationIndex: 1,
		MutationCount:   1,
		History: []chem.LineageEntryDTO{
			{GenerationIndex: 0, SMILES: "CCO"},
			{GenerationIndex: 1, SMILES: "CCCO", MutationCount: 1},
		},
	}
	require.NoError(t, repo.Save(ctx, rec))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec.History, got.History)
	assert.Equal(t, uint(1), got.GenerationIndex)

	// Accepting another generation overwrites head state.
	rec.CurrentSMILES = "CCCCO"
	rec.GenerationIndex = 2
	rec.MutationCount = 2
	rec.History = append(rec.History,
		chem.LineageEntryDTO{GenerationIndex: 2, SMILES: "CCCCO", MutationCount: 2})
	require.NoError(t, repo.Save(ctx, rec))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint(2), got.GenerationIndex)
	assert.Len(t, got.History, 3)

	_, err = repo.Get(ctx, common.NewID())
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	if os.Getenv(envEnabled) == "" {
		t.Skipf("set %s=1 to run integration tests", envEnabled)
	}
	addr := os.Getenv(envRedisAddr)
	if addr == "" {
		t.Skipf("set %s to run redis integration tests", envRedisAddr)
	}

	ctx := context.Background()
	client, err := redis.NewClient(ctx, config.RedisConfig{Addr: addr}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	cache := redis.NewCache(client, logging.NewNopLogger(),
		redis.WithPrefix("ultrathink_test:"))

	type entry struct {
		Fitness float64 `json:"fitness"`
	}
	key := string(common.NewID())

	var miss entry
	err = cache.Get(ctx, key, &miss)
	assert.ErrorIs(t, err, redis.ErrCacheMiss)

	loads := 0
	var got entry
	loader := func(context.Context) (interface{}, error) {
		loads++
		return entry{Fitness: 0.42}, nil
	}
	require.NoError(t, cache.GetOrSet(ctx, key, &got, time.Minute, loader))
	require.NoError(t, cache.GetOrSet(ctx, key, &got, time.Minute, loader))
	assert.Equal(t, 1, loads, "second read must come from the cache")
	assert.Equal(t, 0.42, got.Fitness)

	require.NoError(t, cache.Delete(ctx, key))
	exists, err := cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}
