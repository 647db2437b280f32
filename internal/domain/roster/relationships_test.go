package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
)

func TestLinkGroupBuildsClique(t *testing.T) {
	g := Graph{}
	require.NoError(t, g.LinkGroup("a", []string{"b", "c"}, LinkSibling))

	assert.ElementsMatch(t, []string{"b", "c"}, g.Peers("a"))
	assert.ElementsMatch(t, []string{"a", "c"}, g.Peers("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, g.Peers("c"))
	assert.True(t, g.Symmetric())
	assert.Equal(t, []string{"a", "b", "c"}, g.Group("b"))
}

func TestLinkGroupReplacesPreviousGroup(t *testing.T) {
	g := Graph{}
	require.NoError(t, g.LinkGroup("a", []string{"b", "c"}, LinkSibling))

	// Relinking the actor to a new peer dissolves the old trio.
	require.NoError(t, g.LinkGroup("a", []string{"d"}, LinkFriend))

	assert.ElementsMatch(t, []string{"d"}, g.Peers("a"))
	assert.ElementsMatch(t, []string{"a"}, g.Peers("d"))
	assert.Empty(t, g.Peers("b"))
	assert.Empty(t, g.Peers("c"))
	_, exists := g["b"]
	assert.False(t, exists, "students with no links are removed from the graph")
	assert.True(t, g.Symmetric())
}

func TestLinkGroupWithNoPeersDetaches(t *testing.T) {
	g := Graph{}
	require.NoError(t, g.LinkGroup("a", []string{"b"}, LinkSibling))
	require.NoError(t, g.LinkGroup("a", nil, LinkSibling))

	assert.Empty(t, g)
}

func TestLinkGroupRejectsSelfAndBadType(t *testing.T) {
	g := Graph{}
	assert.ErrorIs(t, g.LinkGroup("a", []string{"a"}, LinkSibling), shared.ErrSelfLink)
	assert.ErrorIs(t, g.LinkGroup("a", []string{"b"}, LinkType("X")), shared.ErrInvalidInput)
	assert.Empty(t, g)
}

func TestRemoveStudent(t *testing.T) {
	g := Graph{}
	require.NoError(t, g.LinkGroup("a", []string{"b", "c"}, LinkFriend))

	g.RemoveStudent("b")

	_, exists := g["b"]
	assert.False(t, exists)
	assert.ElementsMatch(t, []string{"c"}, g.Peers("a"))
	assert.ElementsMatch(t, []string{"a"}, g.Peers("c"))
	assert.True(t, g.Symmetric())

	g.RemoveStudent("a")
	assert.Empty(t, g)
}

func TestCloneIsIndependent(t *testing.T) {
	g := Graph{}
	require.NoError(t, g.LinkGroup("a", []string{"b"}, LinkSibling))

	clone := g.Clone()
	require.NoError(t, clone.LinkGroup("a", []string{"c"}, LinkFriend))

	assert.ElementsMatch(t, []string{"b"}, g.Peers("a"))
	assert.ElementsMatch(t, []string{"c"}, clone.Peers("a"))
}
