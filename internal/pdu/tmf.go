package pdu

// Task Management Function codes (RFC 3720 §10.5.1), carried in the low 7
// bits of byte 1 on a Task Management Function Request.
const (
	TMFAbortTask        byte = 1
	TMFAbortTaskSet     byte = 2
	TMFClearACA         byte = 3
	TMFClearTaskSet     byte = 4
	TMFLogicalUnitReset byte = 5
	TMFTargetWarmReset  byte = 6
	TMFTargetColdReset  byte = 7
	TMFTaskReassign     byte = 8
)

// Function returns the Task Management Function Request's function code.
func (b *BHS) Function() byte { return b.SpecificFlags & 0x7f }

// SetFunction sets the function code, keeping bit 7 set per RFC framing.
func (b *BHS) SetFunction(v byte) { b.SpecificFlags = FlagFinal | v&0x7f }

// ReferencedTaskTag returns Field20, the task a Task Management Function
// Request targets (ignored for LU/target-wide functions).
func (b *BHS) ReferencedTaskTag() uint32 { return b.Field20 }

// SetReferencedTaskTag sets Field20.
func (b *BHS) SetReferencedTaskTag(v uint32) { b.Field20 = v }

// Response codes for a Task Management Function Response (RFC 3720 §10.6.1).
const (
	TMRFunctionComplete     byte = 0
	TMRTaskNotExist         byte = 1
	TMRLUNNotExist          byte = 2
	TMRTaskStillAllegiant   byte = 3
	TMRFunctionNotSupported byte = 5
	TMRFunctionRejected     byte = 255
)

// ResponseCode overlays byte 2 of a Task Management Function Response.
func (b *BHS) ResponseCode() byte { return b.Byte2 }

// SetResponseCode sets byte 2 of a Task Management Function Response.
func (b *BHS) SetResponseCode(v byte) { b.Byte2 = v }
