package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/chitwan-abm/internal/errors"
)

type stub struct{ id uint64 }

func (s stub) ID() uint64 { return s.id }

func TestAgentSetAddRemove(t *testing.T) {
	set := NewAgentSet[uint64, stub]("test set 1")

	require.NoError(t, set.Add(stub{3}))
	require.NoError(t, set.Add(stub{1}))
	require.NoError(t, set.Add(stub{2}))
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contains(2))

	got, err := set.Remove(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.ID())
	assert.False(t, set.Contains(2))
	assert.Equal(t, 2, set.Len())
}

func TestAgentSetDuplicateAdd(t *testing.T) {
	set := NewAgentSet[uint64, stub]("household 9")
	require.NoError(t, set.Add(stub{5}))

	err := set.Add(stub{5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateMember))
	assert.Contains(t, err.Error(), "agent 5 in household 9")
	assert.Equal(t, 1, set.Len())
}

func TestAgentSetRemoveAbsent(t *testing.T) {
	set := NewAgentSet[uint64, stub]("neighborhood 2")

	_, err := set.Remove(11)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMemberNotFound))
	assert.Contains(t, err.Error(), "agent 11 in neighborhood 2")
}

func TestAgentSetMembersSortedSnapshot(t *testing.T) {
	set := NewAgentSet[uint64, stub]("s")
	for _, id := range []uint64{9, 4, 7, 1} {
		require.NoError(t, set.Add(stub{id}))
	}

	snapshot := set.Members()
	assert.Equal(t, []uint64{1, 4, 7, 9}, set.IDs())

	// Mutating the set while walking a snapshot is safe.
	for _, m := range snapshot {
		_, err := set.Remove(m.ID())
		require.NoError(t, err)
	}
	assert.Equal(t, 0, set.Len())
	assert.Len(t, snapshot, 4)
}
