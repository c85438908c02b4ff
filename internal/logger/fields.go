package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the iSCSI target engine.
// Use these keys consistently so log lines stay greppable across packages.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Session / Connection / Command identity
	// ========================================================================
	KeySessionKey  = "session_key" // "ISID:TSIH"
	KeyISID        = "isid"
	KeyTSIH        = "tsih"
	KeyCID         = "cid"
	KeyITT         = "itt"
	KeyTTT         = "ttt"
	KeyRemoteAddr  = "remote_addr"
	KeyTargetIQN   = "target_iqn"
	KeyInitiatorID = "initiator_name"
	KeyTPGT        = "tpgt"

	// ========================================================================
	// PDU / opcode
	// ========================================================================
	KeyOpcode  = "opcode"
	KeyCmdSN   = "cmdsn"
	KeyExpCmdSN = "exp_cmdsn"
	KeyMaxCmdSN = "max_cmdsn"
	KeyStatSN  = "statsn"
	KeyDataSN  = "datasn"
	KeyR2TSN   = "r2tsn"

	// ========================================================================
	// SCSI / data transfer
	// ========================================================================
	KeyLUN         = "lun"
	KeyOffset      = "offset"
	KeyLength      = "length"
	KeyDataLength  = "data_length"
	KeyResidual    = "residual"
	KeySCSIStatus  = "scsi_status"

	// ========================================================================
	// Errors / recovery
	// ========================================================================
	KeyErrorRecoveryLevel = "erl"
	KeyReason             = "reason"
	KeyErrorCode          = "error_code"
	KeyError              = "error"

	// ========================================================================
	// Generic
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyAttempt    = "attempt"
	KeyCount      = "count"
)

// SessionKey returns a slog.Attr for the "ISID:TSIH" session key.
func SessionKey(key string) slog.Attr { return slog.String(KeySessionKey, key) }

// ISID returns a slog.Attr for the initiator session ID.
func ISID(isid string) slog.Attr { return slog.String(KeyISID, isid) }

// TSIH returns a slog.Attr for the target session identifying handle.
func TSIH(tsih uint16) slog.Attr { return slog.Any(KeyTSIH, tsih) }

// CID returns a slog.Attr for the connection ID.
func CID(cid uint16) slog.Attr { return slog.Any(KeyCID, cid) }

// ITT returns a slog.Attr for the initiator task tag, rendered as hex.
func ITT(itt uint32) slog.Attr { return slog.String(KeyITT, fmt.Sprintf("0x%08x", itt)) }

// TTT returns a slog.Attr for the target transfer tag, rendered as hex.
func TTT(ttt uint32) slog.Attr { return slog.String(KeyTTT, fmt.Sprintf("0x%08x", ttt)) }

// RemoteAddr returns a slog.Attr for the peer transport address.
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }

// TargetIQN returns a slog.Attr for the target IQN.
func TargetIQN(iqn string) slog.Attr { return slog.String(KeyTargetIQN, iqn) }

// InitiatorName returns a slog.Attr for the initiator's IQN.
func InitiatorName(name string) slog.Attr { return slog.String(KeyInitiatorID, name) }

// TPGT returns a slog.Attr for the target portal group tag.
func TPGT(tag uint16) slog.Attr { return slog.Any(KeyTPGT, tag) }

// Opcode returns a slog.Attr for a PDU opcode.
func Opcode(op byte) slog.Attr { return slog.String(KeyOpcode, fmt.Sprintf("0x%02x", op)) }

// CmdSN returns a slog.Attr for the command sequence number.
func CmdSN(sn uint32) slog.Attr { return slog.Any(KeyCmdSN, sn) }

// ExpCmdSN returns a slog.Attr for the expected command sequence number.
func ExpCmdSN(sn uint32) slog.Attr { return slog.Any(KeyExpCmdSN, sn) }

// MaxCmdSN returns a slog.Attr for the command window's upper bound.
func MaxCmdSN(sn uint32) slog.Attr { return slog.Any(KeyMaxCmdSN, sn) }

// StatSN returns a slog.Attr for a connection's status sequence number.
func StatSN(sn uint32) slog.Attr { return slog.Any(KeyStatSN, sn) }

// DataSN returns a slog.Attr for a command's data sequence number.
func DataSN(sn uint32) slog.Attr { return slog.Any(KeyDataSN, sn) }

// R2TSN returns a slog.Attr for an R2T sequence number.
func R2TSN(sn uint32) slog.Attr { return slog.Any(KeyR2TSN, sn) }

// LUN returns a slog.Attr for a logical unit number.
func LUN(lun uint64) slog.Attr { return slog.Any(KeyLUN, lun) }

// Offset returns a slog.Attr for a byte offset into a command's data.
func Offset(off uint32) slog.Attr { return slog.Any(KeyOffset, off) }

// Length returns a slog.Attr for a byte length.
func Length(n uint32) slog.Attr { return slog.Any(KeyLength, n) }

// DataLength returns a slog.Attr for a command's total expected data length.
func DataLength(n uint32) slog.Attr { return slog.Any(KeyDataLength, n) }

// Residual returns a slog.Attr for a residual byte count.
func Residual(n int32) slog.Attr { return slog.Any(KeyResidual, n) }

// SCSIStatus returns a slog.Attr for a SCSI status byte.
func SCSIStatus(status byte) slog.Attr { return slog.Any(KeySCSIStatus, status) }

// ERL returns a slog.Attr for the negotiated error recovery level.
func ERL(level int) slog.Attr { return slog.Int(KeyErrorRecoveryLevel, level) }

// Reason returns a slog.Attr for a human-readable reason string.
func Reason(reason string) slog.Attr { return slog.String(KeyReason, reason) }

// ErrorCode returns a slog.Attr for a numeric error code.
func ErrorCode(code int) slog.Attr { return slog.Int(KeyErrorCode, code) }

// Err returns a slog.Attr for an error value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// Count returns a slog.Attr for a generic count.
func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }
