package cmdsn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInOrderExecuteAdvancesWindow(t *testing.T) {
	w := NewWindow(20, 16, false)
	assert.Equal(t, Execute, w.Receive(20, 1, nil))
	ready := w.Executed()
	assert.Empty(t, ready)
	assert.Equal(t, uint32(21), w.ExpCmdSN())
}

func TestOutOfOrderBufferAndDrainS4(t *testing.T) {
	// Scenario S4: ExpCmdSN=20; receive 22, then 21 (buffered); then 20
	// executes and drains {20,21,22}. Final ExpCmdSN=23.
	w := NewWindow(20, 16, false)

	require.Equal(t, Higher, w.Receive(22, 1, "cmd22"))
	require.Equal(t, Higher, w.Receive(21, 1, "cmd21"))
	require.Equal(t, Execute, w.Receive(20, 1, "cmd20"))

	ready := w.Executed()
	require.Len(t, ready, 2)
	assert.Equal(t, uint32(21), ready[0].CmdSN)
	assert.Equal(t, uint32(22), ready[1].CmdSN)
	assert.Equal(t, uint32(23), w.ExpCmdSN())
}

func TestLowerCmdSNDroppedSilently(t *testing.T) {
	w := NewWindow(20, 16, false)
	assert.Equal(t, Lower, w.Receive(19, 1, nil))
	assert.Equal(t, uint32(20), w.ExpCmdSN())
}

func TestErrorRecoveryZeroRejectsGaps(t *testing.T) {
	w := NewWindow(20, 16, true)
	assert.Equal(t, Rejected, w.Receive(21, 1, nil))
}

func TestMaxCmdSNReflectsWindowDepth(t *testing.T) {
	w := NewWindow(20, 16, false)
	assert.Equal(t, uint32(35), w.MaxCmdSN())
	w.SetCommandWindow(8)
	assert.Equal(t, uint32(27), w.MaxCmdSN())
}

func TestDuplicateOOOInsertIgnored(t *testing.T) {
	w := NewWindow(20, 16, false)
	w.Receive(25, 1, "a")
	w.Receive(25, 1, "b")
	assert.Len(t, w.Pending(), 1)
}

func TestSeqGreaterWraparound(t *testing.T) {
	assert.True(t, seqGreater(1, 0xFFFFFFFF))
	assert.False(t, seqGreater(0xFFFFFFFF, 1))
}
