// Package cmdsn implements the per-session CmdSN/ExpCmdSN/MaxCmdSN window
// and its out-of-order command buffer.
package cmdsn

import "sort"

// Disposition reports what Window.Receive decided to do with an incoming
// CmdSN.
type Disposition int

const (
	// Execute means the command is in-order and must run immediately; the
	// caller then calls Window.Executed, which returns anything the
	// advance unblocked.
	Execute Disposition = iota
	// Buffered names the same queued-ahead condition as Higher; Receive
	// itself never returns it and reports a queued command as Higher.
	Buffered
	// Higher means the command arrived ahead of ExpCmdSN and was queued in
	// the out-of-order buffer (ErrorRecoveryLevel > 0).
	Higher
	// Lower means the CmdSN is below ExpCmdSN: a duplicate/retransmitted
	// command, silently dropped.
	Lower
	// Rejected means the CmdSN is above ExpCmdSN under ErrorRecoveryLevel 0,
	// where out-of-order delivery is a protocol error.
	Rejected
)

// Entry is one buffered out-of-order command.
type Entry struct {
	CmdSN      uint32
	ExpCmdSN   uint32
	BatchCount int
	CID        uint16
	CmdRef     any // opaque handle to the caller's Command
}

// Window holds a session's CmdSN ordering state: the next expected CmdSN,
// the advertised command window ceiling, and any commands buffered ahead of
// ExpCmdSN pending drain.
type Window struct {
	expCmdSN       uint32
	commandWindow  uint32 // MaxCmdSN - ExpCmdSN + 1, the advertised depth
	errorRecovery0 bool
	ooo            []Entry // ascending by CmdSN
}

// NewWindow creates a Window seeded with the session's initial CmdSN and
// command-window depth. errorRecoveryLevelZero selects strict in-order
// delivery (ErrorRecoveryLevel == 0): any gap is a protocol error rather
// than buffered.
func NewWindow(initialCmdSN uint32, commandWindow uint32, errorRecoveryLevelZero bool) *Window {
	if commandWindow == 0 {
		commandWindow = 1
	}
	return &Window{
		expCmdSN:       initialCmdSN,
		commandWindow:  commandWindow,
		errorRecovery0: errorRecoveryLevelZero,
	}
}

// ExpCmdSN returns the next CmdSN the session expects.
func (w *Window) ExpCmdSN() uint32 { return w.expCmdSN }

// MaxCmdSN returns the current command window ceiling.
func (w *Window) MaxCmdSN() uint32 { return w.expCmdSN + w.commandWindow - 1 }

// SetCommandWindow updates the advertised window depth (e.g. on backend
// resource pressure); MaxCmdSN reflects the new depth from the next call.
func (w *Window) SetCommandWindow(depth uint32) {
	if depth == 0 {
		depth = 1
	}
	w.commandWindow = depth
}

// Receive classifies an incoming non-immediate CmdSN. On
// Execute, the caller must advance ExpCmdSN itself by calling Executed once
// the command has been dispatched (see Executed).
func (w *Window) Receive(cmdSN uint32, cid uint16, cmdRef any) Disposition {
	switch {
	case cmdSN == w.expCmdSN:
		return Execute
	case seqGreater(cmdSN, w.expCmdSN):
		if w.errorRecovery0 {
			return Rejected
		}
		w.insertOOO(Entry{CmdSN: cmdSN, ExpCmdSN: w.expCmdSN, CID: cid, CmdRef: cmdRef})
		return Higher
	default:
		return Lower
	}
}

// Executed advances ExpCmdSN past a just-executed in-order command and
// returns any now-ready buffered entries to execute next, in ascending
// CmdSN order, draining the OOO buffer as far as contiguous CmdSNs allow.
func (w *Window) Executed() []Entry {
	w.expCmdSN++
	return w.drain()
}

func (w *Window) drain() []Entry {
	var ready []Entry
	for len(w.ooo) > 0 && w.ooo[0].CmdSN == w.expCmdSN {
		ready = append(ready, w.ooo[0])
		w.ooo = w.ooo[1:]
		w.expCmdSN++
	}
	return ready
}

func (w *Window) insertOOO(e Entry) {
	i := sort.Search(len(w.ooo), func(i int) bool { return seqGreaterOrEqual(w.ooo[i].CmdSN, e.CmdSN) })
	if i < len(w.ooo) && w.ooo[i].CmdSN == e.CmdSN {
		return // duplicate insert, already buffered
	}
	w.ooo = append(w.ooo, Entry{})
	copy(w.ooo[i+1:], w.ooo[i:])
	w.ooo[i] = e
}

// Pending returns a snapshot of the currently buffered out-of-order
// entries, for diagnostics/control-plane reporting.
func (w *Window) Pending() []Entry {
	out := make([]Entry, len(w.ooo))
	copy(out, w.ooo)
	return out
}

// seqGreater implements windowed 32-bit sequence comparison: a > b iff the
// signed difference (a - b) is positive, tolerating wraparound.
func seqGreater(a, b uint32) bool {
	return int32(a-b) > 0
}

func seqGreaterOrEqual(a, b uint32) bool {
	return int32(a-b) >= 0
}
