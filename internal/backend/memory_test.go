package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read10CDB(lba, blocks uint32) [16]byte {
	var cdb [16]byte
	cdb[0] = 0x28
	cdb[2] = byte(lba >> 24)
	cdb[3] = byte(lba >> 16)
	cdb[4] = byte(lba >> 8)
	cdb[5] = byte(lba)
	cdb[7] = byte(blocks >> 8)
	cdb[8] = byte(blocks)
	return cdb
}

func write10CDB(lba, blocks uint32) [16]byte {
	cdb := read10CDB(lba, blocks)
	cdb[0] = 0x2A
	return cdb
}

func TestMemoryBridgeReadWriteRoundTrip(t *testing.T) {
	b := NewMemoryBridge(map[uint64]uint32{0: 4096})
	ctx := context.Background()

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i)
	}

	wcmd, lerr := b.ResolveLUN(ctx, 0, write10CDB(0, 1))
	require.Equal(t, LunErrorNone, lerr)
	require.Equal(t, AllocErrorNone, b.AllocateTasks(ctx, wcmd))
	require.NoError(t, b.HandleCDB(ctx, wcmd))
	require.NoError(t, b.HandleData(ctx, wcmd, 0, payload))
	status, err := b.WaitForTasks(ctx, wcmd, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), status.BytesWritten)

	rcmd, lerr := b.ResolveLUN(ctx, 0, read10CDB(0, 1))
	require.Equal(t, LunErrorNone, lerr)
	require.NoError(t, b.HandleCDB(ctx, rcmd))
	rstatus, err := b.WaitForTasks(ctx, rcmd, nil)
	require.NoError(t, err)
	assert.Equal(t, payload, rstatus.ReadData)
}

func TestMemoryBridgeUnknownLUN(t *testing.T) {
	b := NewMemoryBridge(map[uint64]uint32{0: 4096})
	_, lerr := b.ResolveLUN(context.Background(), 99, read10CDB(0, 1))
	assert.Equal(t, LunErrorNotFound, lerr)
}

func TestMemoryBridgeReadOutOfRangeReturnsCheckCondition(t *testing.T) {
	b := NewMemoryBridge(map[uint64]uint32{0: 512})
	ctx := context.Background()
	cmd, lerr := b.ResolveLUN(ctx, 0, read10CDB(10, 1))
	require.Equal(t, LunErrorNone, lerr)
	require.NoError(t, b.HandleCDB(ctx, cmd))
	status, err := b.WaitForTasks(ctx, cmd, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0x02, status.Sense.SCSIStatus)
}

func TestMemoryBridgeWaitForTasksRespectsAbort(t *testing.T) {
	b := NewMemoryBridge(map[uint64]uint32{0: 4096})
	ctx := context.Background()
	cmd, _ := b.ResolveLUN(ctx, 0, write10CDB(0, 1))
	require.NoError(t, b.HandleCDB(ctx, cmd))

	abort := make(chan struct{})
	close(abort)
	_, err := b.WaitForTasks(ctx, cmd, abort)
	assert.Error(t, err)

	// Drain the goroutine's data wait so it doesn't leak past the test.
	select {
	case cmd.dataReady <- make([]byte, 0):
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMemoryBridgeHandleTMRUnsupportedFunction(t *testing.T) {
	b := NewMemoryBridge(map[uint64]uint32{0: 4096})
	err := b.HandleTMR(context.Background(), TMRFunction(99), nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedTMR)
}
