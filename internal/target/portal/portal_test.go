package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddLookupRemove(t *testing.T) {
	r := NewRegistry()
	target := NewTarget("iqn.2026-01.com.example:disk0")
	require.NoError(t, r.AddTarget(target))

	got, ok := r.Lookup("iqn.2026-01.com.example:disk0")
	require.True(t, ok)
	assert.Equal(t, target, got)
	assert.Equal(t, uint64(1), r.AccessCount(target.IQN))

	require.NoError(t, r.RemoveTarget(target.IQN))
	_, ok = r.Lookup(target.IQN)
	assert.False(t, ok)
}

func TestRegistryDuplicateTargetRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTarget(NewTarget("iqn.a")))
	err := r.AddTarget(NewTarget("iqn.a"))
	assert.Error(t, err)
}

func TestRegistrySingleTargetEmptyIQNLookup(t *testing.T) {
	r := NewRegistry()
	target := NewTarget("iqn.only")
	require.NoError(t, r.AddTarget(target))

	got, ok := r.Lookup("")
	require.True(t, ok)
	assert.Equal(t, target, got)
}

func TestTPGNodeACLAuthorization(t *testing.T) {
	target := NewTarget("iqn.a")
	tpg := NewTPG(1)
	require.NoError(t, target.AddTPG(tpg))

	assert.False(t, tpg.Authorized("iqn.initiator"))
	tpg.AddNodeACL(&NodeACL{InitiatorIQN: "iqn.initiator"})
	assert.True(t, tpg.Authorized("iqn.initiator"))
}

func TestAddDuplicateTPGRejected(t *testing.T) {
	target := NewTarget("iqn.a")
	require.NoError(t, target.AddTPG(NewTPG(1)))
	err := target.AddTPG(NewTPG(1))
	assert.Error(t, err)
}
