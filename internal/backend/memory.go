package backend

import (
	"context"
	"sync"
)

// MemoryBridge is a reference Bridge backed by a fixed set of in-memory
// byte-addressable LUNs. It exists for tests and small deployments where
// durability is not required; production deployments use s3backend.
type MemoryBridge struct {
	mu   sync.Mutex
	luns map[uint64][]byte
}

// NewMemoryBridge creates a bridge with the given LUN sizes (in bytes).
func NewMemoryBridge(lunSizes map[uint64]uint32) *MemoryBridge {
	luns := make(map[uint64][]byte, len(lunSizes))
	for lun, size := range lunSizes {
		luns[lun] = make([]byte, size)
	}
	return &MemoryBridge{luns: luns}
}

func (b *MemoryBridge) ResolveLUN(ctx context.Context, lun uint64, cdb [16]byte) (*BackendCmd, LunError) {
	b.mu.Lock()
	_, ok := b.luns[lun]
	b.mu.Unlock()
	if !ok {
		return nil, LunErrorNotFound
	}
	return &BackendCmd{
		LUN:       lun,
		CDB:       cdb,
		Done:      make(chan CompletionStatus, 1),
		dataReady: make(chan []byte, 1),
	}, LunErrorNone
}

func (b *MemoryBridge) AllocateTasks(ctx context.Context, cmd *BackendCmd) AllocError {
	return AllocErrorNone
}

// cdbOffsetLength extracts the (LBA, block count) pair of a READ(6)/
// WRITE(6) or READ(10)/WRITE(10) CDB as a byte offset and length, assuming
// 512-byte blocks.
func cdbOffsetLength(cdb [16]byte) (offset uint32, length uint32) {
	if cdb[0] == 0x08 || cdb[0] == 0x0A {
		lba := uint32(cdb[1]&0x1f)<<16 | uint32(cdb[2])<<8 | uint32(cdb[3])
		blocks := uint32(cdb[4])
		if blocks == 0 {
			blocks = 256 // a 6-byte transfer length of 0 means 256 blocks
		}
		return lba * 512, blocks * 512
	}
	lba := uint32(cdb[2])<<24 | uint32(cdb[3])<<16 | uint32(cdb[4])<<8 | uint32(cdb[5])
	blocks := uint32(cdb[7])<<8 | uint32(cdb[8])
	return lba * 512, blocks * 512
}

func (b *MemoryBridge) HandleCDB(ctx context.Context, cmd *BackendCmd) error {
	opcode := cmd.CDB[0]
	offset, length := cdbOffsetLength(cmd.CDB)

	go func() {
		b.mu.Lock()
		data := b.luns[cmd.LUN]
		b.mu.Unlock()

		switch opcode {
		case 0x28, 0x08: // READ(10), READ(6)
			if int(offset)+int(length) > len(data) {
				cmd.Done <- CompletionStatus{Sense: Sense{SCSIStatus: 0x02, Key: 0x05}}
				return
			}
			out := make([]byte, length)
			b.mu.Lock()
			copy(out, data[offset:offset+length])
			b.mu.Unlock()
			cmd.Done <- CompletionStatus{ReadData: out}
		case 0x2A, 0x0A: // WRITE(10), WRITE(6)
			written := <-cmd.dataReady
			b.mu.Lock()
			if int(offset)+len(written) <= len(data) {
				copy(data[offset:], written)
			}
			b.mu.Unlock()
			cmd.Done <- CompletionStatus{BytesWritten: uint32(len(written))}
		default:
			cmd.Done <- CompletionStatus{Sense: Sense{SCSIStatus: 0x02, Key: 0x05, ASC: 0x20}}
		}
	}()
	return nil
}

func (b *MemoryBridge) HandleData(ctx context.Context, cmd *BackendCmd, offset uint32, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case cmd.dataReady <- cp:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (b *MemoryBridge) HandleTMR(ctx context.Context, fn TMRFunction, target *BackendCmd, referencedCmd *BackendCmd) error {
	switch fn {
	case TMRAbortTask, TMRAbortTaskSet, TMRLogicalUnitReset, TMRTargetWarmReset, TMRTargetColdReset:
		return nil
	case TMRTaskReassign:
		return nil
	default:
		return ErrUnsupportedTMR
	}
}

func (b *MemoryBridge) WaitForTasks(ctx context.Context, cmd *BackendCmd, abort <-chan struct{}) (CompletionStatus, error) {
	select {
	case status := <-cmd.Done:
		return status, nil
	case <-abort:
		return CompletionStatus{}, context.Canceled
	case <-ctx.Done():
		return CompletionStatus{}, ctx.Err()
	}
}

var _ Bridge = (*MemoryBridge)(nil)
