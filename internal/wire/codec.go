// Package wire implements the iSCSI Basic Header Segment codec and the
// CRC32C digest used for header and data digests, hand-rolled over the raw
// byte layout the same way the protocol/xdr package hand-rolls RPC framing
// rather than reaching for a generic binary-marshaling library.
package wire

import (
	"fmt"

	"github.com/marmos91/iscsitgt/internal/pdu"
)

// BHSLength is the fixed size of the Basic Header Segment in bytes.
const BHSLength = 48

// DecodeBHS parses a 48-byte Basic Header Segment. Unknown opcodes are not
// rejected here — they decode into a BHS carrying pdu.Opcode with
// Known()==false so the caller (connection dispatch / ERL) can forward them
// as raw bytes for reject/recover handling.
func DecodeBHS(b *[BHSLength]byte) *pdu.BHS {
	h := &pdu.BHS{
		Opcode:            pdu.Opcode(b[0] & 0x3f),
		Immediate:         b[0]&0x40 != 0,
		SpecificFlags:     b[1],
		Byte2:             b[2],
		Byte3:             b[3],
		TotalAHSLength:    b[4],
		DataSegmentLength: uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7]),
	}
	copy(h.Lun[:], b[8:16])
	h.InitiatorTaskTag = be32(b[16:20])
	h.Field20 = be32(b[20:24])
	h.Field24 = be32(b[24:28])
	h.Field28 = be32(b[28:32])
	copy(h.Tail[:], b[32:48])
	return h
}

// EncodeBHS serializes a BHS into a caller-provided 48-byte buffer.
func EncodeBHS(h *pdu.BHS, b *[BHSLength]byte) {
	*b = [BHSLength]byte{}

	op := byte(h.Opcode) & 0x3f
	if h.Immediate {
		op |= 0x40
	}
	b[0] = op
	b[1] = h.SpecificFlags
	b[2] = h.Byte2
	b[3] = h.Byte3
	b[4] = h.TotalAHSLength
	b[5] = byte(h.DataSegmentLength >> 16)
	b[6] = byte(h.DataSegmentLength >> 8)
	b[7] = byte(h.DataSegmentLength)
	copy(b[8:16], h.Lun[:])
	putBE32(b[16:20], h.InitiatorTaskTag)
	putBE32(b[20:24], h.Field20)
	putBE32(b[24:28], h.Field24)
	putBE32(b[28:32], h.Field28)
	copy(b[32:48], h.Tail[:])
}

// PadLength returns the number of zero padding bytes (0-3) needed to bring
// n up to the next 4-byte boundary.
func PadLength(n int) int {
	return (4 - (n % 4)) % 4
}

// ErrShortBHS is returned when fewer than BHSLength bytes are available.
var ErrShortBHS = fmt.Errorf("wire: short BHS read, need %d bytes", BHSLength)

func be32(p []byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

func putBE32(p []byte, v uint32) {
	p[0] = byte(v >> 24)
	p[1] = byte(v >> 16)
	p[2] = byte(v >> 8)
	p[3] = byte(v)
}
