package pdu

// BHS is the decoded form of the 48-byte iSCSI Basic Header Segment.
// RFC 3720 overlays different fields on the same byte ranges depending on
// Opcode; this struct exposes the ranges generically and leaves
// interpretation to opcode-aware accessors below, mirroring how the BHS is
// handled as a byte-addressed union rather than per-opcode structs.
type BHS struct {
	Opcode            Opcode
	Immediate         bool
	SpecificFlags     byte // byte 1, opcode-specific flag bits (F/R/W/ATTR/etc.)
	Byte2             byte
	Byte3             byte
	TotalAHSLength    byte   // byte 4, in 4-byte words
	DataSegmentLength uint32 // bytes 5-7, 24-bit big-endian
	Lun               [8]byte
	InitiatorTaskTag  uint32 // bytes 16-19 (ITT)
	Field20           uint32 // bytes 20-23: TTT, EDTL, or opcode-specific
	Field24           uint32 // bytes 24-27: CmdSN or StatSN
	Field28           uint32 // bytes 28-31: ExpStatSN or ExpCmdSN
	Tail              [16]byte // bytes 32-47: CDB, or four opcode-specific words
}

// Final reports whether the F bit is set in the opcode-specific flags byte.
func (b *BHS) Final() bool { return b.SpecificFlags&FlagFinal != 0 }

// SetFinal sets or clears the F bit.
func (b *BHS) SetFinal(v bool) {
	if v {
		b.SpecificFlags |= FlagFinal
	} else {
		b.SpecificFlags &^= FlagFinal
	}
}

// LUNValue decodes the 8-byte LUN field using SAM peripheral addressing for
// the single-level (LUN < 256) case, which is the canonical packing for the
// target configurations this engine supports.
func (b *BHS) LUNValue() uint64 {
	if b.Lun[0] == 0 {
		return uint64(b.Lun[1])
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b.Lun[i])
	}
	return v
}

// SetLUN packs a LUN number into the 8-byte field using single-level
// peripheral addressing when the value fits in one byte.
func (b *BHS) SetLUN(lun uint64) {
	b.Lun = [8]byte{}
	if lun < 256 {
		b.Lun[1] = byte(lun)
		return
	}
	for i := 7; i >= 0; i-- {
		b.Lun[i] = byte(lun)
		lun >>= 8
	}
}

// TTT returns the Target Transfer Tag carried in Field20.
func (b *BHS) TTT() uint32 { return b.Field20 }

// SetTTT sets the Target Transfer Tag in Field20.
func (b *BHS) SetTTT(v uint32) { b.Field20 = v }

// ExpectedDataTransferLength returns Field20 interpreted as the SCSI
// Command PDU's EDTL.
func (b *BHS) ExpectedDataTransferLength() uint32 { return b.Field20 }

// CmdSN returns Field24 interpreted as a command sequence number.
func (b *BHS) CmdSN() uint32 { return b.Field24 }

// SetCmdSN sets Field24.
func (b *BHS) SetCmdSN(v uint32) { b.Field24 = v }

// StatSN returns Field24 interpreted as a status sequence number.
func (b *BHS) StatSN() uint32 { return b.Field24 }

// SetStatSN sets Field24.
func (b *BHS) SetStatSN(v uint32) { b.Field24 = v }

// ExpStatSN returns Field28 interpreted as the peer's expected StatSN.
func (b *BHS) ExpStatSN() uint32 { return b.Field28 }

// SetExpStatSN sets Field28.
func (b *BHS) SetExpStatSN(v uint32) { b.Field28 = v }

// ExpCmdSN returns Field28 interpreted as the target's expected CmdSN.
func (b *BHS) ExpCmdSN() uint32 { return b.Field28 }

// SetExpCmdSN sets Field28.
func (b *BHS) SetExpCmdSN(v uint32) { b.Field28 = v }

// MaxCmdSN returns Tail[0:4] interpreted as the command window's upper
// bound, used by SCSI Response, DataIn, NopIn, R2T, LogoutRsp, TextRsp.
func (b *BHS) MaxCmdSN() uint32 { return be32(b.Tail[0:4]) }

// SetMaxCmdSN sets Tail[0:4].
func (b *BHS) SetMaxCmdSN(v uint32) { putBE32(b.Tail[0:4], v) }

// DataSN returns Tail[4:8] interpreted as a data or R2T sequence number.
func (b *BHS) DataSN() uint32 { return be32(b.Tail[4:8]) }

// SetDataSN sets Tail[4:8].
func (b *BHS) SetDataSN(v uint32) { putBE32(b.Tail[4:8], v) }

// BufferOffset returns Tail[8:12].
func (b *BHS) BufferOffset() uint32 { return be32(b.Tail[8:12]) }

// SetBufferOffset sets Tail[8:12].
func (b *BHS) SetBufferOffset(v uint32) { putBE32(b.Tail[8:12], v) }

// ResidualCount returns Tail[12:16].
func (b *BHS) ResidualCount() uint32 { return be32(b.Tail[12:16]) }

// SetResidualCount sets Tail[12:16].
func (b *BHS) SetResidualCount(v uint32) { putBE32(b.Tail[12:16], v) }

// DesiredDataTransferLength is an alias for ResidualCount's slot, used by
// R2T PDUs.
func (b *BHS) DesiredDataTransferLength() uint32 { return b.ResidualCount() }

// SetDesiredDataTransferLength is an alias for SetResidualCount, used by
// R2T PDUs.
func (b *BHS) SetDesiredDataTransferLength(v uint32) { b.SetResidualCount(v) }

// CDB returns the 16-byte Command Descriptor Block carried by SCSI Command
// PDUs in the Tail field.
func (b *BHS) CDB() [16]byte { return b.Tail }

// SetCDB sets the Tail field from a 16-byte CDB.
func (b *BHS) SetCDB(cdb [16]byte) { b.Tail = cdb }

func be32(p []byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

func putBE32(p []byte, v uint32) {
	p[0] = byte(v >> 24)
	p[1] = byte(v >> 16)
	p[2] = byte(v >> 8)
	p[3] = byte(v)
}
