package seqbook

// R2T is one generated Ready-To-Transfer grant.
type R2T struct {
	R2TSN       uint32
	Offset      uint32
	XferLen     uint32
	TargetXferTag uint32
	Recovery    bool
}

// WriteBook tracks a write command's progress and generates R2Ts across the
// unsolicited/solicited burst boundary. DataOUT byte accounting
// (write_data_done) is driven by RecordDataOut as the connection ingests
// payload; R2T generation is driven by NextR2T as burst capacity frees up.
type WriteBook struct {
	opts           Options
	dataLength     uint32
	writeDataDone  uint32
	unsolicitedEnd uint32 // end offset of the unsolicited/immediate-data region
	nextR2TOffset  uint32
	r2tSN          uint32
	outstanding    uint32
	tttCounter     uint32
	emitted        map[uint32]R2T
}

// NewWriteBook builds a WriteBook for a write command. immediateDataLength
// is the payload carried directly in the SCSI Command PDU (0 if none).
func NewWriteBook(dataLength, immediateDataLength uint32, opts Options) *WriteBook {
	b := &WriteBook{
		opts:    opts,
		dataLength: dataLength,
		emitted: make(map[uint32]R2T),
	}
	unsolicited := uint32(0)
	if !opts.InitialR2T {
		unsolicited = opts.FirstBurstLength
		if dataLength < unsolicited {
			unsolicited = dataLength
		}
	}
	if immediateDataLength > unsolicited {
		unsolicited = immediateDataLength
	}
	b.unsolicitedEnd = unsolicited
	b.nextR2TOffset = unsolicited
	b.writeDataDone = 0
	return b
}

// RecordDataOut advances write_data_done by length bytes received at
// offset. The caller is responsible for verifying the offset matches the
// expected placement; this only tracks the monotonic byte count.
func (b *WriteBook) RecordDataOut(length uint32) {
	b.writeDataDone += length
	if b.writeDataDone > b.dataLength {
		b.writeDataDone = b.dataLength
	}
}

// WriteDataDone returns bytes received so far.
func (b *WriteBook) WriteDataDone() uint32 { return b.writeDataDone }

// Complete reports whether all data_length bytes have arrived.
func (b *WriteBook) Complete() bool { return b.writeDataDone >= b.dataLength }

// CanIssueR2T reports whether another R2T may be generated: more data
// remains beyond nextR2TOffset and MaxOutstandingR2T is not exceeded.
func (b *WriteBook) CanIssueR2T() bool {
	if b.nextR2TOffset >= b.dataLength {
		return false
	}
	max := b.opts.MaxOutstandingR2T
	if max == 0 {
		max = 1
	}
	return b.outstanding < max
}

// NextR2T generates the next R2T grant, bounded by MaxBurstLength, and
// allocates a fresh Target Transfer Tag.
func (b *WriteBook) NextR2T() (R2T, bool) {
	if !b.CanIssueR2T() {
		return R2T{}, false
	}
	burst := b.opts.MaxBurstLength
	if burst == 0 {
		burst = b.dataLength - b.nextR2TOffset
	}
	xferLen := burst
	if remain := b.dataLength - b.nextR2TOffset; remain < xferLen {
		xferLen = remain
	}

	r := R2T{
		R2TSN:         b.r2tSN,
		Offset:        b.nextR2TOffset,
		XferLen:       xferLen,
		TargetXferTag: b.tttCounter,
	}
	b.emitted[b.r2tSN] = r
	b.r2tSN++
	b.tttCounter++
	b.outstanding++
	b.nextR2TOffset += xferLen
	return r, true
}

// AckR2T marks an outstanding R2T's data as fully received, freeing a slot
// in the MaxOutstandingR2T window.
func (b *WriteBook) AckR2T(r2tSN uint32) {
	if b.outstanding > 0 {
		b.outstanding--
	}
}

// Retransmit looks up a previously generated R2T by sequence number for
// R2T SNACK recovery.
func (b *WriteBook) Retransmit(r2tSN uint32) (R2T, bool) {
	r, ok := b.emitted[r2tSN]
	return r, ok
}

// RecomputeR2TAfterReassign sets the book's cursor to resume issuing R2Ts
// from write_data_done, as required by ERL=2 TASK_REASSIGN recovery: the
// next R2T's offset is the already-acknowledged byte count, and its length
// is bounded by MaxBurstLength or the command's remaining bytes.
func (b *WriteBook) RecomputeR2TAfterReassign() {
	b.nextR2TOffset = b.writeDataDone
	b.outstanding = 0
}
