package pdu

// Login/Logout-specific field accessors over the generic BHS byte ranges
// (RFC 3720 §10.12-10.13). Login and Logout PDUs overlay ISID/TSIH on the
// Lun field and stage/transit bits on SpecificFlags, distinct enough from
// the SCSI Command/Response layout to warrant their own accessors here.

// Stage is a login/text negotiation stage (CSG/NSG values).
type Stage byte

const (
	StageSecurity    Stage = 0
	StageOperational Stage = 1
	StageFullFeature Stage = 3
)

const (
	flagTransit  byte = 0x80 // T bit
	flagContinue byte = 0x40 // C bit
	csgShift          = 2
	stageMask    byte = 0x03
)

// Transit reports the Login/Text Request's T bit: the initiator is ready to
// move to NSG.
func (b *BHS) Transit() bool { return b.SpecificFlags&flagTransit != 0 }

// SetTransit sets or clears the T bit.
func (b *BHS) SetTransit(v bool) {
	if v {
		b.SpecificFlags |= flagTransit
	} else {
		b.SpecificFlags &^= flagTransit
	}
}

// Continue reports the C bit: more text data follows in a subsequent PDU.
func (b *BHS) Continue() bool { return b.SpecificFlags&flagContinue != 0 }

// CSG returns the current negotiation stage.
func (b *BHS) CSG() Stage { return Stage((b.SpecificFlags >> csgShift) & stageMask) }

// NSG returns the next negotiation stage requested.
func (b *BHS) NSG() Stage { return Stage(b.SpecificFlags & stageMask) }

// SetStages packs CSG/NSG into SpecificFlags, preserving T/C.
func (b *BHS) SetStages(csg, nsg Stage) {
	b.SpecificFlags = b.SpecificFlags&(flagTransit|flagContinue) | (byte(csg)&stageMask)<<csgShift | byte(nsg)&stageMask
}

// VersionMax returns the Login Request's max supported version (byte 2).
func (b *BHS) VersionMax() byte { return b.Byte2 }

// SetVersionMax sets byte 2.
func (b *BHS) SetVersionMax(v byte) { b.Byte2 = v }

// VersionMin returns the Login Request's min supported version (byte 3).
func (b *BHS) VersionMin() byte { return b.Byte3 }

// SetVersionMin sets byte 3 (also used for ActiveVersion on the response).
func (b *BHS) SetVersionMin(v byte) { b.Byte3 = v }

// ISID returns the 6-byte initiator session ID, overlaid on the Lun field
// for Login/Logout PDUs.
func (b *BHS) ISID() [6]byte {
	var isid [6]byte
	copy(isid[:], b.Lun[0:6])
	return isid
}

// SetISID packs the 6-byte ISID into the Lun field.
func (b *BHS) SetISID(isid [6]byte) { copy(b.Lun[0:6], isid[:]) }

// TSIH returns the target session identifying handle, overlaid on the Lun
// field's last two bytes.
func (b *BHS) TSIH() uint16 { return uint16(b.Lun[6])<<8 | uint16(b.Lun[7]) }

// SetTSIH packs TSIH into the Lun field's last two bytes.
func (b *BHS) SetTSIH(tsih uint16) {
	b.Lun[6] = byte(tsih >> 8)
	b.Lun[7] = byte(tsih)
}

// CID returns the connection ID carried in the upper 16 bits of Field20.
func (b *BHS) CID() uint16 { return uint16(b.Field20 >> 16) }

// SetCID packs CID into the upper 16 bits of Field20.
func (b *BHS) SetCID(cid uint16) { b.Field20 = b.Field20&0x0000ffff | uint32(cid)<<16 }

// StatusClass/StatusDetail overlay Byte2/Byte3 on a Login Response.
func (b *BHS) StatusClass() byte  { return b.Byte2 }
func (b *BHS) StatusDetail() byte { return b.Byte3 }

func (b *BHS) SetStatusClass(v byte)  { b.Byte2 = v }
func (b *BHS) SetStatusDetail(v byte) { b.Byte3 = v }

// Login response status classes (RFC 3720 §10.13.4).
const (
	StatusClassSuccess        byte = 0x00
	StatusClassRedirect       byte = 0x01
	StatusClassInitiatorError byte = 0x02
	StatusClassTargetError    byte = 0x03
)

// ReasonCode overlays the Logout Request's reason (low 7 bits of byte 1).
func (b *BHS) ReasonCode() byte { return b.SpecificFlags & 0x7f }

// SetReasonCode sets the Logout Request's reason code.
func (b *BHS) SetReasonCode(v byte) { b.SpecificFlags = flagTransit | v&0x7f }

// Logout reason codes (RFC 3720 §10.14.1).
const (
	LogoutCloseSession    byte = 0
	LogoutCloseConnection byte = 1
	LogoutRemoveForRecovery byte = 2
)
