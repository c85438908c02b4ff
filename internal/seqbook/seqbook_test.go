package seqbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS1SingleDataInWithFinalAndStatus(t *testing.T) {
	opts := Options{
		MaxRecvDataSegmentLength: 8192,
		MaxBurstLength:           8192,
	}
	book := NewReadBook(512, false, opts)

	d, ok := book.Next()
	require.True(t, ok)
	assert.Equal(t, uint32(0), d.Offset)
	assert.Equal(t, uint32(512), d.Length)
	assert.Equal(t, uint32(0), d.DataSN)
	assert.True(t, d.Final)
	assert.True(t, d.Status)

	_, ok = book.Next()
	assert.False(t, ok)
	assert.True(t, book.Done())
}

func TestS2UnsolicitedThenTwoR2Ts(t *testing.T) {
	opts := Options{
		InitialR2T:               false,
		ImmediateData:            true,
		FirstBurstLength:         4096,
		MaxBurstLength:           4096,
		MaxRecvDataSegmentLength: 4096,
		MaxOutstandingR2T:        2,
	}
	book := NewWriteBook(9000, 4096, opts)

	// Immediate data already accounted for.
	book.RecordDataOut(4096)
	assert.False(t, book.Complete())

	r1, ok := book.NextR2T()
	require.True(t, ok)
	assert.Equal(t, uint32(4096), r1.Offset)
	assert.Equal(t, uint32(4096), r1.XferLen)
	assert.Equal(t, uint32(0), r1.R2TSN)

	book.RecordDataOut(4096)

	r2, ok := book.NextR2T()
	require.True(t, ok)
	assert.Equal(t, uint32(8192), r2.Offset)
	assert.Equal(t, uint32(808), r2.XferLen)
	assert.Equal(t, uint32(1), r2.R2TSN)

	book.RecordDataOut(808)
	assert.True(t, book.Complete())

	_, ok = book.NextR2T()
	assert.False(t, ok)
}

func TestS5DataInSnackRetransmit(t *testing.T) {
	opts := Options{
		MaxRecvDataSegmentLength: 100,
		MaxBurstLength:           2000,
	}
	book := NewReadBook(2000, false, opts)

	var emitted []DataIn
	for i := 0; i < 10; i++ {
		d, ok := book.Next()
		require.True(t, ok)
		emitted = append(emitted, d)
	}

	// SNACK BegRun=5, RunLength=3 -> re-emit DataSN 5,6,7 identically.
	for sn := uint32(5); sn <= 7; sn++ {
		d, ok := book.Retransmit(sn)
		require.True(t, ok)
		assert.Equal(t, emitted[sn].Offset, d.Offset)
		assert.Equal(t, emitted[sn].Length, d.Length)
	}

	highest, found := book.HighestEmittedDataSN()
	require.True(t, found)
	assert.GreaterOrEqual(t, highest, uint32(9))
}

func TestS6ReassignRecomputesR2TOffset(t *testing.T) {
	opts := Options{
		InitialR2T:        true,
		MaxBurstLength:    262144,
		MaxOutstandingR2T: 1,
	}
	book := NewWriteBook(1<<20, 0, opts)
	book.RecordDataOut(524288)
	book.RecomputeR2TAfterReassign()

	r, ok := book.NextR2T()
	require.True(t, ok)
	assert.Equal(t, uint32(524288), r.Offset)
	assert.Equal(t, uint32(262144), r.XferLen)
}

func TestMultiSequenceReadBookAdvancesDataSNAcrossBursts(t *testing.T) {
	opts := Options{
		MaxRecvDataSegmentLength: 4096,
		MaxBurstLength:           4096,
	}
	book := NewReadBook(9000, false, opts)

	var all []DataIn
	for {
		d, ok := book.Next()
		if !ok {
			break
		}
		all = append(all, d)
	}
	require.Len(t, all, 3) // 4096 + 4096 + 808, each its own PDU
	assert.True(t, all[0].Final)
	assert.True(t, all[1].Final)
	assert.True(t, all[2].Final)
	assert.True(t, all[2].Status)
	assert.Equal(t, uint32(0), all[0].DataSN)
	assert.Equal(t, uint32(1), all[1].DataSN)
	assert.Equal(t, uint32(2), all[2].DataSN)
	assert.Equal(t, uint32(9000), book.readDone)
}
