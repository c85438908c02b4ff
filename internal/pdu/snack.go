package pdu

// SNACK Request types (low 4 bits of byte 1, RFC 3720 §10.16.1). Type 0
// covers both Data and R2T retransmit requests; which one a given SNACK
// means is determined by whether the referenced task tag names an
// outstanding read or write command.
const (
	SnackTypeDataOrR2T byte = 0
	SnackTypeStatus    byte = 1
	SnackTypeDataACK   byte = 2
	SnackTypeRData     byte = 3
)

// SnackType returns the SNACK Request's type.
func (b *BHS) SnackType() byte { return b.SpecificFlags & 0x0f }

// SetSnackType sets the SNACK Request's type.
func (b *BHS) SetSnackType(v byte) { b.SpecificFlags = b.SpecificFlags&0xf0 | v&0x0f }

// BegRun returns the SNACK Request's starting sequence number, Tail[0:4].
func (b *BHS) BegRun() uint32 { return be32(b.Tail[0:4]) }

// SetBegRun sets Tail[0:4].
func (b *BHS) SetBegRun(v uint32) { putBE32(b.Tail[0:4], v) }

// RunLength returns the SNACK Request's run length, Tail[4:8].
func (b *BHS) RunLength() uint32 { return be32(b.Tail[4:8]) }

// SetRunLength sets Tail[4:8].
func (b *BHS) SetRunLength(v uint32) { putBE32(b.Tail[4:8], v) }
