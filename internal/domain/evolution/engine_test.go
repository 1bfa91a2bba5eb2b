package evolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickita-khylkouski/ultrathink/internal/domain/molecule"
	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

const aspirin = "CC(=O)Oc1ccccc1C(=O)O"

func TestRunGenerationDeterministic(t *testing.T) {
	parent := molecule.MustParse(aspirin)
	params := Params{Offspring: 100, Seed: 42}

	first, err := RunGeneration(context.Background(), parent, params)
	require.NoError(t, err)
	second, err := RunGeneration(context.Background(), parent, params)
	require.NoError(t, err)

	assert.Equal(t, first.DTO(), second.DTO(),
		"same parent and seed must replay byte-identical results")

	other, err := RunGeneration(context.Background(), parent,
		Params{Offspring: 100, Seed: 43})
	require.NoError(t, err)
	assert.NotEqual(t, first.DTO(), other.DTO())
}

func TestRunGenerationWorkerCountIndependence(t *testing.T) {
	parent := molecule.MustParse(aspirin)

	serial, err := RunGeneration(context.Background(), parent,
		Params{Offspring: 50, Seed: 7, Workers: 1})
	require.NoError(t, err)
	parallel, err := RunGeneration(context.Background(), parent,
		Params{Offspring: 50, Seed: 7, Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, serial.DTO(), parallel.DTO())
}

func TestRunGenerationRanking(t *testing.T) {
	parent := molecule.MustParse(aspirin)
	res, err := RunGeneration(context.Background(), parent,
		Params{Offspring: 200, Seed: 1})
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	seen := make(map[string]bool)
	for i, c := range res.Candidates {
		canon := c.Molecule.Canonical()
		assert.False(t, seen[canon], "candidates are unique by canonical form")
		seen[canon] = true

		if i == 0 {
			continue
		}
		prev := res.Candidates[i-1]
		if prev.Fitness.CompositeFitness == c.Fitness.CompositeFitness {
			assert.Less(t, prev.Molecule.Canonical(), canon,
				"ties break by canonical form ascending")
		} else {
			assert.Greater(t, prev.Fitness.CompositeFitness,
				c.Fitness.CompositeFitness)
		}
	}
}

func TestRunGenerationTop(t *testing.T) {
	parent := molecule.MustParse(aspirin)
	res, err := RunGeneration(context.Background(), parent,
		Params{Offspring: 100, Seed: 5})
	require.NoError(t, err)

	top := res.Top(5)
	assert.LessOrEqual(t, len(top), 5)
	assert.Equal(t, res.Candidates[:len(top)], top)
	assert.Len(t, res.Top(1_000_000), len(res.Candidates))
}

func TestRunGenerationParamValidation(t *testing.T) {
	parent := molecule.MustParse("CCO")

	_, err := RunGeneration(context.Background(), parent, Params{Offspring: 0, Seed: 1})
	assert.True(t, errors.IsCode(err, errors.CodeEngineBadParams))

	_, err = RunGeneration(context.Background(), parent, Params{Offspring: 501, Seed: 1})
	assert.True(t, errors.IsCode(err, errors.CodeEngineBadParams))

	_, err = RunGeneration(context.Background(), nil, Params{Offspring: 10, Seed: 1})
	assert.True(t, errors.IsCode(err, errors.CodeEngineInvalidParent))
}

func TestRunGenerationCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunGeneration(ctx, molecule.MustParse(aspirin),
		Params{Offspring: 500, Seed: 9})
	// Cancellation may land before or after dispatch finishes; an error, if
	// any, must be the internal cancellation wrap.
	if err != nil {
		assert.True(t, errors.IsCode(err, errors.CodeInternal))
	}
}

func TestLineageMonotonicAccept(t *testing.T) {
	seed := molecule.MustParse(aspirin)
	lin, err := StartLineage(seed)
	require.NoError(t, err)

	assert.Equal(t, uint(1), lin.NextGeneration())
	assert.Equal(t, seed.Canonical(), lin.Current().Canonical())

	child := molecule.MustParse("CC(=O)Oc1ccccc1C(=O)OC")
	require.NoError(t, lin.Accept(1, child, 1))
	assert.Equal(t, child.Canonical(), lin.Current().Canonical())

	// Skipping an index is rejected and leaves the chain untouched.
	err = lin.Accept(3, child, 1)
	assert.True(t, errors.IsCode(err, errors.CodeLineageNonMonotonic))
	assert.Equal(t, uint(2), lin.NextGeneration())

	// Replaying the same index is rejected too.
	err = lin.Accept(1, child, 1)
	assert.True(t, errors.IsCode(err, errors.CodeLineageNonMonotonic))
}

func TestLineageDivergenceGrows(t *testing.T) {
	seed := molecule.MustParse("CCO")
	lin, err := StartLineage(seed)
	require.NoError(t, err)
	assert.Zero(t, lin.Divergence())

	steps := []string{"CCCO", "CCCCO", "CCCCCO"}
	last := 0.0
	for i, s := range steps {
		require.NoError(t, lin.Accept(uint(i+1), molecule.MustParse(s), 1))
		d := lin.Divergence()
		assert.GreaterOrEqual(t, d, last,
			"additive edits never reduce divergence")
		last = d
	}
	assert.Greater(t, last, 0.0)
	assert.LessOrEqual(t, last, 100.0)
}

func TestLineageDTO(t *testing.T) {
	seed := molecule.MustParse("CCO")
	lin, err := StartLineage(seed)
	require.NoError(t, err)
	require.NoError(t, lin.Accept(1, molecule.MustParse("CCCO"), 2))
	require.NoError(t, lin.Accept(2, molecule.MustParse("CCCCO"), 1))

	dto := lin.DTO()
	assert.Equal(t, seed.Canonical(), dto.SeedSMILES)
	require.Len(t, dto.History, 3)
	assert.Equal(t, uint(0), dto.History[0].MutationCount)
	assert.Equal(t, uint(2), dto.History[1].MutationCount)
	assert.Equal(t, uint(3), dto.History[2].MutationCount,
		"mutation counts accumulate since the seed")
	assert.Greater(t, dto.DivergencePercent, 0.0)
}

func TestStartLineageRejectsNilSeed(t *testing.T) {
	_, err := StartLineage(nil)
	assert.True(t, errors.IsCode(err, errors.CodeEngineInvalidParent))
}
