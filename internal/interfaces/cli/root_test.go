package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()
	names := make([]string, 0, 8)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"score", "evolve", "targets", "serve", "migrate"} {
		assert.Contains(t, names, want)
	}
}

func TestScoreCommandRequiresArgs(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"score"})
	err := root.Execute()
	assert.Error(t, err)
}

func TestScoreCommandRuns(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"score", "CCO", "C1CC", "-o", "json"})
	require.NoError(t, root.Execute())
}

func TestTargetsCommandRuns(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"targets", "-o", "json"})
	require.NoError(t, root.Execute())
}

func TestEvolveCommandRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("runs a real evolution session")
	}
	root := NewRootCommand()
	root.SetArgs([]string{"evolve", "CCO", "-g", "2", "-k", "25", "-s", "42", "-o", "json"})
	require.NoError(t, root.Execute())
}

func TestEvolveCommandRejectsBadSeedMolecule(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"evolve", "C1CC", "-g", "1", "-s", "42"})
	assert.Error(t, root.Execute())
}
