package erl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataOutDigestFailurePolicy(t *testing.T) {
	assert.Equal(t, ActionFailConnection, DataOutDigestFailure(Level0))
	assert.Equal(t, ActionRequestR2TResend, DataOutDigestFailure(Level1))
	assert.Equal(t, ActionRequestR2TResend, DataOutDigestFailure(Level2))
}

func TestNopOutDigestFailureDroppedAboveZero(t *testing.T) {
	assert.Equal(t, ActionFailConnection, NopOutDigestFailure(Level0))
	assert.Equal(t, ActionDropPDU, NopOutDigestFailure(Level1))
}

func TestConnectionFailureParksAtERL2(t *testing.T) {
	assert.Equal(t, ActionFailSession, ConnectionFailure(Level0))
	assert.Equal(t, ActionFailSession, ConnectionFailure(Level1))
	assert.Equal(t, ActionParkForReassignment, ConnectionFailure(Level2))
}

func TestS5RetransmitDataINRange(t *testing.T) {
	s := Snack{Type: SnackDataIN, BegRun: 5, RunLength: 3}
	sns, err := RetransmitDataIN(s, 9, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{5, 6, 7}, sns)
}

func TestRetransmitDataINSkipsAcked(t *testing.T) {
	s := Snack{Type: SnackDataIN, BegRun: 5, RunLength: 3}
	sns, err := RetransmitDataIN(s, 9, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint32{6, 7}, sns)
}

func TestRetransmitR2TRange(t *testing.T) {
	s := Snack{Type: SnackR2T, BegRun: 0, RunLength: 2}
	sns, err := RetransmitR2T(s, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, sns)
}

func TestS6TaskReassignCompletes(t *testing.T) {
	result := Reassign(ReassignRequest{ITT: 1, ExpDataSN: 16, NewCID: 2}, true, true)
	assert.True(t, result.Complete)
}

func TestReassignFailsWhenCommandMissing(t *testing.T) {
	result := Reassign(ReassignRequest{ITT: 1}, false, true)
	assert.False(t, result.Complete)
}

func TestDigestFailureCounters(t *testing.T) {
	var c DigestFailureCounters
	c.RecordHeaderFailure()
	c.RecordDataFailure()
	c.RecordDataFailure()
	header, data := c.Snapshot()
	assert.Equal(t, uint64(1), header)
	assert.Equal(t, uint64(2), data)
}
