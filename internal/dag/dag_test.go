package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeIsIdempotent(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("a")
	g.AddNode("b")
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddNode("artists")
	g.AddNode("songs")

	require.NoError(t, g.AddEdge("artists", "songs"))
	deps, err := g.Dependencies("songs")
	require.NoError(t, err)
	assert.Equal(t, []string{"artists"}, deps)

	assert.ErrorContains(t, g.AddEdge("dne", "songs"), "source node not found")
	assert.ErrorContains(t, g.AddEdge("songs", "dne"), "destination node not found")
	assert.ErrorContains(t, g.AddEdge("songs", "songs"), "self-referential edge")

	_, err = g.Dependencies("dne")
	assert.Error(t, err)
}

func TestDetectCycles(t *testing.T) {
	g := New()
	for _, id := range []string{"a", "b", "c"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	assert.NoError(t, g.DetectCycles())

	require.NoError(t, g.AddEdge("c", "a"))
	assert.ErrorContains(t, g.DetectCycles(), "cycle detected")

	_, err := g.Layers()
	assert.Error(t, err)
}

func TestLayersStarSchema(t *testing.T) {
	g := New()
	for _, id := range []string{"songplays", "users", "artists", "songs", "time"} {
		g.AddNode(id)
	}
	for _, parent := range []string{"users", "artists", "songs", "time"} {
		require.NoError(t, g.AddEdge(parent, "songplays"))
	}
	require.NoError(t, g.AddEdge("artists", "songs"))

	layers, err := g.Layers()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"artists", "time", "users"},
		{"songs"},
		{"songplays"},
	}, layers)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"artists", "time", "users", "songs", "songplays"}, order)
}

func TestLayersEmptyGraph(t *testing.T) {
	layers, err := New().Layers()
	require.NoError(t, err)
	assert.Empty(t, layers)
}
