package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for iSCSI target operations, following OpenTelemetry
// semantic conventions where applicable.
const (
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	AttrISID          = "iscsi.isid"
	AttrTSIH          = "iscsi.tsih"
	AttrCID           = "iscsi.cid"
	AttrITT           = "iscsi.itt"
	AttrInitiatorName = "iscsi.initiator_name"
	AttrTargetIQN     = "iscsi.target_iqn"
	AttrAuthMethod    = "iscsi.auth_method"
	AttrERL           = "iscsi.error_recovery_level"
	AttrStatSN        = "iscsi.statsn"
	AttrCmdSN         = "iscsi.cmdsn"

	AttrLUN       = "scsi.lun"
	AttrOpcode    = "scsi.cdb_opcode"
	AttrByteCount = "scsi.byte_count"

	AttrContentID = "content.id"
	AttrStoreName = "store.name"
	AttrStoreType = "store.type"
	AttrBucket    = "storage.bucket"
	AttrKey       = "storage.key"
	AttrRegion    = "storage.region"
)

// Span names for iSCSI target operations.
const (
	SpanConnection     = "connection.lifetime"
	SpanLoginAttempt    = "login.attempt"
	SpanErrorRecovery   = "recovery.episode"
	SpanBackendCDB      = "backend.handle_cdb"
	SpanBackendData     = "backend.handle_data"
	SpanBackendTMR      = "backend.handle_tmr"
	SpanContentRead     = "content.read"
	SpanContentWrite    = "content.write"
)

// ClientIP returns an attribute for client IP address.
func ClientIP(ip string) attribute.KeyValue { return attribute.String(AttrClientIP, ip) }

// ClientAddr returns an attribute for full client address.
func ClientAddr(addr string) attribute.KeyValue { return attribute.String(AttrClientAddr, addr) }

// ISID returns an attribute for the session's initiator session ID, hex
// encoded.
func ISID(isid [6]byte) attribute.KeyValue {
	return attribute.String(AttrISID, fmt.Sprintf("%x", isid))
}

// TSIH returns an attribute for the target session identifying handle.
func TSIH(tsih uint16) attribute.KeyValue { return attribute.Int64(AttrTSIH, int64(tsih)) }

// CID returns an attribute for a connection ID.
func CID(cid uint16) attribute.KeyValue { return attribute.Int64(AttrCID, int64(cid)) }

// ITT returns an attribute for an initiator task tag.
func ITT(itt uint32) attribute.KeyValue { return attribute.Int64(AttrITT, int64(itt)) }

// InitiatorName returns an attribute for the negotiated InitiatorName key.
func InitiatorName(name string) attribute.KeyValue {
	return attribute.String(AttrInitiatorName, name)
}

// TargetIQN returns an attribute for the target's IQN.
func TargetIQN(iqn string) attribute.KeyValue { return attribute.String(AttrTargetIQN, iqn) }

// AuthMethod returns an attribute for the negotiated AuthMethod.
func AuthMethod(method string) attribute.KeyValue {
	return attribute.String(AttrAuthMethod, method)
}

// ErrorRecoveryLevel returns an attribute for the session's negotiated ERL.
func ErrorRecoveryLevel(erl int) attribute.KeyValue { return attribute.Int(AttrERL, erl) }

// StatSN returns an attribute for a connection's status sequence number.
func StatSN(statsn uint32) attribute.KeyValue { return attribute.Int64(AttrStatSN, int64(statsn)) }

// CmdSN returns an attribute for a session's command sequence number.
func CmdSN(cmdsn uint32) attribute.KeyValue { return attribute.Int64(AttrCmdSN, int64(cmdsn)) }

// LUN returns an attribute for a SCSI logical unit number.
func LUN(lun uint64) attribute.KeyValue { return attribute.Int64(AttrLUN, int64(lun)) }

// Opcode returns an attribute for a CDB's SCSI opcode.
func Opcode(op byte) attribute.KeyValue { return attribute.Int(AttrOpcode, int(op)) }

// ByteCount returns an attribute for a transfer's byte count.
func ByteCount(n uint32) attribute.KeyValue { return attribute.Int64(AttrByteCount, int64(n)) }

// ContentID returns an attribute for a backend content identifier (e.g. an
// S3 object key).
func ContentID(id string) attribute.KeyValue { return attribute.String(AttrContentID, id) }

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue { return attribute.String(AttrBucket, name) }

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue { return attribute.String(AttrKey, key) }

// StartConnectionSpan starts the root span covering a connection's
// lifetime, from transport accept to close.
func StartConnectionSpan(ctx context.Context, cid uint16, remoteAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanConnection, trace.WithAttributes(CID(cid), ClientAddr(remoteAddr)))
}

// StartLoginSpan starts a child span for one login attempt (one Login
// Phase from first Login Request to final Login Response).
func StartLoginSpan(ctx context.Context, initiatorName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{InitiatorName(initiatorName)}, attrs...)
	return StartSpan(ctx, SpanLoginAttempt, trace.WithAttributes(allAttrs...))
}

// StartRecoverySpan starts a child span for one error-recovery episode
// (one SNACK-driven retransmission or connection reinstatement).
func StartRecoverySpan(ctx context.Context, erl int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ErrorRecoveryLevel(erl)}, attrs...)
	return StartSpan(ctx, SpanErrorRecovery, trace.WithAttributes(allAttrs...))
}

// StartBackendSpan starts a span for a BackendBridge call keyed by LUN.
func StartBackendSpan(ctx context.Context, name string, lun uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{LUN(lun)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartContentSpan starts a span for a storage-backed content operation
// (e.g. s3backend's ranged GetObject/PutObject calls).
func StartContentSpan(ctx context.Context, operation string, contentID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ContentID(contentID)}, attrs...)
	return StartSpan(ctx, "content."+operation, trace.WithAttributes(allAttrs...))
}
