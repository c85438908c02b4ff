// Package seqbook implements the per-command ledger of PDU sequencing: DataIN
// generation for SCSI reads and R2T generation for SCSI writes, plus the
// retransmit lookups SNACK recovery needs.
//
// RFC 3720 lets DataSequenceInOrder=No/DataPDUInOrder=No grant the target
// permission to reorder sequences and PDUs within them; it does not require
// it. Both books only implement the single in-order cursor a target is
// always allowed to use, and store the negotiated values in Options purely
// so a future out-of-order scheduler has them available.
package seqbook

// Options carries the negotiated session parameters a SeqBook needs to
// compute burst/segment boundaries.
type Options struct {
	DataSequenceInOrder      bool
	DataPDUInOrder           bool
	MaxBurstLength           uint32
	FirstBurstLength         uint32
	MaxRecvDataSegmentLength uint32
	MaxOutstandingR2T        uint32
	InitialR2T               bool
	ImmediateData            bool
}

// DataIn is one generated SCSI Data-In value.
type DataIn struct {
	Offset uint32
	Length uint32
	DataSN uint32
	Final  bool // F bit: last PDU of its sequence (one MaxBurstLength burst)
	Status bool // S bit: status piggybacked on this DataIn (no sense data)
}

// sequence is one burst-sized span of the command's read data.
type sequence struct {
	firstDataSN uint32
	offset      uint32
	length      uint32
	sent        uint32 // bytes already turned into DataIn within this sequence
	nextDataSN  uint32
}

// ReadBook generates DataIN values for one read command's data_length,
// walking its sequences in order, and keeps an emission log so SNACK can
// look up any previously sent DataSN for retransmission.
type ReadBook struct {
	opts       Options
	dataLength uint32
	readDone   uint32
	sequences  []sequence
	seqCursor  int
	emitted    map[uint32]DataIn
	hasSense   bool // whether a separate sense-carrying Response follows
}

// NewReadBook builds a ReadBook for a read command, pre-splitting the data
// into MaxBurstLength-sized sequences and walking them in order.
func NewReadBook(dataLength uint32, hasSense bool, opts Options) *ReadBook {
	b := &ReadBook{
		opts:       opts,
		dataLength: dataLength,
		emitted:    make(map[uint32]DataIn),
		hasSense:   hasSense,
	}
	b.buildSequences()
	return b
}

func (b *ReadBook) buildSequences() {
	burst := b.opts.MaxBurstLength
	if burst == 0 {
		burst = b.dataLength
	}
	if burst == 0 {
		return
	}
	var offset uint32
	dataSN := uint32(0)
	for offset < b.dataLength {
		length := burst
		if remain := b.dataLength - offset; remain < length {
			length = remain
		}
		b.sequences = append(b.sequences, sequence{
			firstDataSN: dataSN,
			offset:      offset,
			length:      length,
		})
		// Count of PDUs this sequence will need, to reserve DataSN space.
		pduCount := pduCountFor(length, b.opts.MaxRecvDataSegmentLength)
		dataSN += pduCount
		offset += length
	}
}

func pduCountFor(length, mrdsl uint32) uint32 {
	if mrdsl == 0 {
		return 1
	}
	n := length / mrdsl
	if length%mrdsl != 0 {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Done reports whether every byte of the command's read data has been
// turned into an emitted DataIn.
func (b *ReadBook) Done() bool {
	return b.readDone >= b.dataLength
}

// Next produces the next DataIn to send, advancing internal cursors. It
// returns ok=false once Done().
func (b *ReadBook) Next() (DataIn, bool) {
	if b.Done() {
		return DataIn{}, false
	}
	if len(b.sequences) == 0 {
		return DataIn{}, false
	}

	seq := &b.sequences[b.seqCursor]
	mrdsl := b.opts.MaxRecvDataSegmentLength
	if mrdsl == 0 {
		mrdsl = seq.length
	}
	remainInSeq := seq.length - seq.sent
	length := mrdsl
	if remainInSeq < length {
		length = remainInSeq
	}
	offset := seq.offset + seq.sent

	dataSN := seq.firstDataSN + seqPDUsSent(seq, mrdsl)
	seq.sent += length
	b.readDone += length

	seqDone := seq.sent >= seq.length
	cmdDone := b.readDone >= b.dataLength

	d := DataIn{
		Offset: offset,
		Length: length,
		DataSN: dataSN,
		Final:  seqDone,
		Status: cmdDone && !b.hasSense,
	}
	b.emitted[dataSN] = d

	if seqDone {
		b.seqCursor++
	}
	return d, true
}

func seqPDUsSent(seq *sequence, mrdsl uint32) uint32 {
	if mrdsl == 0 {
		return 0
	}
	return seq.sent / mrdsl
}

// Retransmit looks up a previously emitted DataIn by DataSN for DataIN
// SNACK recovery. The returned value is marked as a recovery retransmit by
// the caller, not here.
func (b *ReadBook) Retransmit(dataSN uint32) (DataIn, bool) {
	d, ok := b.emitted[dataSN]
	return d, ok
}

// HighestEmittedDataSN returns the largest DataSN emitted so far, or
// (0, false) if nothing has been sent yet.
func (b *ReadBook) HighestEmittedDataSN() (uint32, bool) {
	var max uint32
	found := false
	for sn := range b.emitted {
		if !found || sn > max {
			max = sn
			found = true
		}
	}
	return max, found
}
