// Package erl implements the Error Recovery Level 0/1/2 policy decisions:
// what a digest failure, dropped PDU, or connection failure means at each
// level, SNACK type routing, and per-connection digest-failure statistics.
package erl

import "sync/atomic"

// Level is the negotiated ErrorRecoveryLevel for a session.
type Level int

const (
	Level0 Level = 0 // connection-fail-on-error
	Level1 Level = 1 // within-command recovery
	Level2 Level = 2 // connection recovery
)

// Action is what the caller must do in response to a fault, decided by
// policy for the negotiated Level.
type Action int

const (
	ActionDropPDU Action = iota
	ActionFailConnection
	ActionFailSession
	ActionRequestR2TResend
	ActionAllowDataINSnack
	ActionParkForReassignment
)

// DataOutDigestFailure decides what to do when a DataOut PDU fails its data
// digest check.
func DataOutDigestFailure(level Level) Action {
	switch level {
	case Level0:
		return ActionFailConnection
	default:
		// ERL>=1: silently drop the offending PDU and resend an R2T for
		// the affected span.
		return ActionRequestR2TResend
	}
}

// DataInDigestFailure decides what to do when the initiator reports (via
// SNACK) that a DataIn PDU failed its digest — the target's role here is
// just to allow the replay.
func DataInDigestFailure(level Level) Action {
	if level == Level0 {
		return ActionFailConnection
	}
	return ActionAllowDataINSnack
}

// NopOutDigestFailure decides what to do when a NopOut PDU fails digest
// verification.
func NopOutDigestFailure(level Level) Action {
	if level == Level0 {
		return ActionFailConnection
	}
	return ActionDropPDU
}

// HeaderDigestFailure decides the fate of any PDU whose header digest does
// not verify. A bad header digest poisons the BHS to the default (Reject)
// dispatch branch regardless of level; at ERL=0 the connection additionally
// fails.
func HeaderDigestFailure(level Level) Action {
	if level == Level0 {
		return ActionFailConnection
	}
	return ActionDropPDU
}

// UnknownOpcode decides the fate of an unrecognized opcode.
func UnknownOpcode(level Level) Action {
	if level == Level0 {
		return ActionFailConnection
	}
	return ActionDropPDU
}

// ConnectionFailure decides the session-level consequence of a connection
// loss.
func ConnectionFailure(level Level) Action {
	if level == Level2 {
		return ActionParkForReassignment
	}
	return ActionFailSession
}

// DataOutWatchdogExpiry decides the outcome when no DataOut arrives for a
// command within the configured interval, after retries are exhausted.
func DataOutWatchdogExpiry(level Level) Action {
	if level == Level0 {
		return ActionFailConnection
	}
	return ActionFailConnection // ERL>=1 still fails the connection; the
	// session itself survives per ConnectionFailure's own policy.
}

// SnackType identifies which retransmit family a SNACK PDU requests.
type SnackType int

const (
	SnackR2T SnackType = iota
	SnackDataIN
	SnackStatus
	SnackDataACK
	SnackRData // unsupported
)

// ErrRDataUnsupported is returned for SNACK_RDATA requests: the source
// leaves R-Data SNACK stubbed and rejected, and this engine codifies that.
var ErrRDataUnsupported = &UnsupportedError{Feature: "SNACK_RDATA"}

// UnsupportedError names a feature this engine declares unsupported per an
// explicit spec decision rather than an oversight.
type UnsupportedError struct{ Feature string }

func (e *UnsupportedError) Error() string { return "erl: unsupported: " + e.Feature }

// DigestFailureCounters is a per-connection tally of digest failures,
// feeding the digest_errors control-plane query.
type DigestFailureCounters struct {
	headerFailures atomic.Uint64
	dataFailures   atomic.Uint64
}

// RecordHeaderFailure increments the header digest failure counter.
func (c *DigestFailureCounters) RecordHeaderFailure() { c.headerFailures.Add(1) }

// RecordDataFailure increments the data digest failure counter.
func (c *DigestFailureCounters) RecordDataFailure() { c.dataFailures.Add(1) }

// Snapshot returns the current counter values.
func (c *DigestFailureCounters) Snapshot() (header, data uint64) {
	return c.headerFailures.Load(), c.dataFailures.Load()
}
