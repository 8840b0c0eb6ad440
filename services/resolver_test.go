package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackwarden/internal/models"
)

func mustRegistry(t *testing.T, specs ...models.ServiceSpec) *Registry {
	t.Helper()
	reg, err := LoadRegistry(specs)
	require.NoError(t, err)
	return reg
}

func TestResolveLayers(t *testing.T) {
	reg := mustRegistry(t,
		testSpec("api", "db", "cache"),
		testSpec("worker", "db"),
		testSpec("db"),
		testSpec("cache"),
		testSpec("frontend", "api"),
	)

	layers, err := Resolve(reg)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"cache", "db"},
		{"api", "worker"},
		{"frontend"},
	}, layers)
}

func TestResolveNoDependencies(t *testing.T) {
	reg := mustRegistry(t, testSpec("b"), testSpec("a"), testSpec("c"))

	layers, err := Resolve(reg)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "c"}}, layers)
}

func TestResolveChain(t *testing.T) {
	reg := mustRegistry(t,
		testSpec("c", "b"),
		testSpec("b", "a"),
		testSpec("a"),
	)

	layers, err := Resolve(reg)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, layers)
}

func TestResolveCycle(t *testing.T) {
	reg := mustRegistry(t,
		testSpec("a", "c"),
		testSpec("b", "a"),
		testSpec("c", "b"),
	)

	_, err := Resolve(reg)
	var cycle *models.CycleError
	require.ErrorAs(t, err, &cycle)

	// The path names each cycle member once, first id repeated at the end.
	require.Len(t, cycle.Path, 4)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	assert.ElementsMatch(t, []string{"a", "b", "c"}, cycle.Path[:3])
}

func TestResolveCycleBesideValidServices(t *testing.T) {
	reg := mustRegistry(t,
		testSpec("ok"),
		testSpec("x", "y"),
		testSpec("y", "x"),
	)

	_, err := Resolve(reg)
	var cycle *models.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.NotContains(t, cycle.Path, "ok")
}
