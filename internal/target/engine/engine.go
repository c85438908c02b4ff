// Package engine implements the per-connection protocol dispatch that ties
// the login state machine, parameter negotiation, command window, and
// backend bridge together as a session.Dispatcher. It is the integration
// point the portal/session packages were built to plug into.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/marmos91/iscsitgt/internal/backend"
	"github.com/marmos91/iscsitgt/internal/cmdsn"
	"github.com/marmos91/iscsitgt/internal/erl"
	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/login"
	"github.com/marmos91/iscsitgt/internal/paramlist"
	"github.com/marmos91/iscsitgt/internal/pdu"
	"github.com/marmos91/iscsitgt/internal/seqbook"
	"github.com/marmos91/iscsitgt/internal/target/portal"
	"github.com/marmos91/iscsitgt/internal/target/session"
	"github.com/marmos91/iscsitgt/internal/timerwheel"
	"github.com/marmos91/iscsitgt/internal/wire"
)

// BridgeFactory resolves the backend.Bridge serving one target IQN, so the
// engine stays free of any concrete storage implementation.
type BridgeFactory func(targetIQN string) (backend.Bridge, bool)

// Engine dispatches inbound PDUs for every connection on a portal,
// arbitrating logins through the target registry and driving SCSI commands
// through a per-target backend bridge.
type Engine struct {
	targets  *portal.Registry
	sessions *session.Registry
	bridges  BridgeFactory
	defaults session.Options
	template *paramlist.Template
	wheel    *timerwheel.Wheel

	mu     sync.Mutex
	logins map[*session.Connection]*loginAttempt

	// pendingMu guards buffered SCSI commands awaiting their CmdSN turn
	// (ErrorRecoveryLevel > 0, out-of-order arrival).
	pendingMu   sync.Mutex
	pendingCmds map[*session.Session]map[uint32]*pendingSCSI

	// writesMu guards write commands parked across multiple DataOut PDUs,
	// keyed by the connection they arrived on and their InitiatorTaskTag.
	// Nothing currently evicts an entry if its connection dies mid-transfer
	// without a Logout or a final DataOut ever arriving; this is a known
	// leak for a long-running daemon, tracked in DESIGN.md rather than
	// solved by a connection-lifecycle callback this pass doesn't add.
	writesMu sync.Mutex
	writes   map[*session.Connection]map[uint32]*pendingWrite

	// readsMu guards completed reads retained for DataIN SNACK replay,
	// keyed the same way and with the same known leak.
	readsMu sync.Mutex
	reads   map[*session.Connection]map[uint32]*completedRead
}

// New creates an Engine. defaults seeds session.Options for every session;
// TPG parameters stored through the control plane's set_tpg_param are not
// looked up or applied at login.
func New(targets *portal.Registry, sessions *session.Registry, bridges BridgeFactory, defaults session.Options) *Engine {
	return &Engine{
		targets:     targets,
		sessions:    sessions,
		bridges:     bridges,
		defaults:    defaults,
		template:    standardTemplate(defaults),
		wheel:       timerwheel.New(),
		logins:      make(map[*session.Connection]*loginAttempt),
		pendingCmds: make(map[*session.Session]map[uint32]*pendingSCSI),
		writes:      make(map[*session.Connection]map[uint32]*pendingWrite),
		reads:       make(map[*session.Connection]map[uint32]*completedRead),
	}
}

type loginAttempt struct {
	sm        *login.StateMachine
	pl        *paramlist.ParamList
	req       login.Request
	targetIQN string
}

// pendingSCSI is a SCSI Command PDU buffered by the CmdSN window because it
// arrived ahead of ExpCmdSN (ErrorRecoveryLevel > 0).
type pendingSCSI struct {
	conn *session.Connection
	h    *pdu.BHS
	data []byte
}

// pendingWrite is a write command parked between its initial Command PDU
// (or an R2T) and the DataOut PDUs that complete it.
type pendingWrite struct {
	bridge backend.Bridge
	cmd    *backend.BackendCmd
	book   *seqbook.WriteBook
	ttts   map[uint32]uint32 // Target Transfer Tag -> R2TSN, for AckR2T/SNACK
}

// completedRead retains a finished read's data and its ReadBook so a later
// DataIN SNACK can replay any DataSN already sent.
type completedRead struct {
	book       *seqbook.ReadBook
	data       []byte
	scsiStatus byte
}

// Dispatch implements session.Dispatcher.
func (e *Engine) Dispatch(ctx context.Context, c *session.Connection, msg *wire.Message) (session.HandlerResult, error) {
	h := msg.Header

	if msg.HeaderDigestBad || msg.DataDigestBad {
		return e.handleDigestFailure(c, h, msg.HeaderDigestBad), nil
	}

	if sess := c.Session(); sess != nil && sess.Options.SessionType == int(login.SessionDiscovery) {
		switch h.Opcode {
		case pdu.OpTextReq, pdu.OpLogoutReq, pdu.OpNopOut, pdu.OpLoginReq:
		default:
			return rejectResult(h), nil
		}
	}

	switch h.Opcode {
	case pdu.OpLoginReq:
		return e.dispatchLogin(ctx, c, h, msg.Data)
	case pdu.OpNopOut:
		return e.dispatchNopOut(c, h), nil
	case pdu.OpLogoutReq:
		return e.dispatchLogout(c, h), nil
	case pdu.OpSCSICommand:
		return e.dispatchSCSI(ctx, c, h, msg.Data)
	case pdu.OpSCSIDataOut:
		return e.dispatchDataOut(ctx, c, h, msg.Data)
	case pdu.OpTaskMgmt:
		return e.dispatchTaskMgmt(ctx, c, h)
	case pdu.OpTextReq:
		return e.dispatchTextReq(c, h, msg.Data)
	case pdu.OpSNACK:
		return e.dispatchSNACK(c, h), nil
	default:
		return rejectResult(h), nil
	}
}

// handleDigestFailure applies the negotiated ErrorRecoveryLevel's policy to
// a PDU whose header or data digest did not verify.
func (e *Engine) handleDigestFailure(c *session.Connection, h *pdu.BHS, header bool) session.HandlerResult {
	e.sessions.RecordDigestError(header)

	level := erl.Level0
	if sess := c.Session(); sess != nil {
		level = sess.Options.ErrorRecoveryLevel
	}

	var action erl.Action
	if header {
		action = erl.HeaderDigestFailure(level)
	} else {
		action = erl.DataOutDigestFailure(level)
	}

	if action == erl.ActionFailConnection {
		return session.HandlerResult{Responses: []session.Outbound{{Header: rejectHeader(h)}}, CloseAfterTX: true}
	}
	// ERL>=1: the corrupted PDU is dropped and no response is sent; for a
	// DataOut, no R2T is resent for the dropped data either.
	return session.HandlerResult{}
}

// rejectHeader builds a Reject PDU's BHS for an opcode the engine does not
// (yet) implement, or a PDU too damaged to trust.
func rejectHeader(h *pdu.BHS) *pdu.BHS {
	resp := &pdu.BHS{Opcode: pdu.OpReject, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetFinal(true)
	return resp
}

// rejectResult answers an opcode the engine does not (yet) implement with a
// Reject PDU. ERL-driven retry/recovery for rejected PDUs is handled by the
// session/timerwheel layer above this dispatch, not here.
func rejectResult(h *pdu.BHS) session.HandlerResult {
	return session.HandlerResult{Responses: []session.Outbound{{Header: rejectHeader(h)}}}
}

// dispatchLogin drives one connection through Security (skipped; no
// AuthProvider wired yet -- see DESIGN.md) -> Operational -> FullFeature in
// a single round trip per PDU, matching the common case of a login that
// fits in one text payload.
func (e *Engine) dispatchLogin(ctx context.Context, c *session.Connection, h *pdu.BHS, data []byte) (session.HandlerResult, error) {
	e.mu.Lock()
	attempt, ongoing := e.logins[c]
	e.mu.Unlock()

	if !ongoing {
		attempt = &loginAttempt{
			pl: e.template.New(),
			req: login.Request{
				CID:  h.CID(),
				ISID: h.ISID(),
				TSIH: h.TSIH(),
			},
		}
		attempt.sm = login.NewStateMachine(attempt.pl, nil, false)
		if err := attempt.sm.Begin(h.VersionMax()); err != nil {
			return loginReject(h, err), nil
		}
	}

	if unrecognized, err := attempt.pl.Decode(data); err != nil {
		return loginReject(h, err), nil
	} else if len(unrecognized) > 0 {
		logger.DebugCtx(ctx, "login: ignoring unrecognized keys", "keys", unrecognized)
	}
	if name := attempt.pl.Value("InitiatorName"); name != "" {
		attempt.req.InitiatorName = name
	}
	if tname := attempt.pl.Value("TargetName"); tname != "" {
		attempt.targetIQN = tname
	}
	if attempt.pl.Value("SessionType") == "Discovery" {
		attempt.req.SessionType = login.SessionDiscovery
	}

	var respKeys []string
	for _, k := range []string{"MaxConnections", "InitialR2T", "ImmediateData", "MaxBurstLength",
		"FirstBurstLength", "MaxOutstandingR2T", "DataPDUInOrder", "DataSequenceInOrder", "ErrorRecoveryLevel"} {
		if _, err := attempt.pl.Respond(k); err == nil {
			respKeys = append(respKeys, k)
		}
	}
	payload := attempt.pl.Encode(respKeys)

	resp := &pdu.BHS{Opcode: pdu.OpLoginRsp, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetStages(h.CSG(), h.NSG())
	resp.SetISID(attempt.req.ISID)

	if !h.Transit() || h.NSG() == pdu.StageOperational {
		e.mu.Lock()
		e.logins[c] = attempt
		e.mu.Unlock()
		resp.SetStatusClass(pdu.StatusClassSuccess)
		resp.SetFinal(true)
		return session.HandlerResult{Responses: []session.Outbound{{Header: resp, Data: payload}}}, nil
	}

	// NSG == FullFeature: finish negotiation and bind/create the session.
	if err := attempt.sm.CompleteOperational(); err != nil {
		e.mu.Lock()
		delete(e.logins, c)
		e.mu.Unlock()
		e.sessions.RecordLogin(false)
		return loginReject(h, err), nil
	}

	var target *portal.Target
	if attempt.req.SessionType != login.SessionDiscovery {
		t, ok := e.targets.Lookup(attempt.targetIQN)
		if !ok {
			e.mu.Lock()
			delete(e.logins, c)
			e.mu.Unlock()
			e.sessions.RecordLogin(false)
			return loginRejectClass(h, pdu.StatusClassInitiatorError, 0x03), nil // target not found
		}
		target = t
	}

	sess, err := e.resolveSession(c, attempt.req, h.CmdSN())
	if err != nil {
		e.mu.Lock()
		delete(e.logins, c)
		e.mu.Unlock()
		e.sessions.RecordLogin(false)
		return loginReject(h, err), nil
	}
	e.sessions.RecordLogin(true)

	e.mu.Lock()
	delete(e.logins, c)
	e.mu.Unlock()

	resp.SetTSIH(sess.TSIH)
	resp.SetStatusClass(pdu.StatusClassSuccess)
	resp.SetFinal(true)
	resp.SetExpCmdSN(sess.Window.ExpCmdSN())
	resp.SetMaxCmdSN(sess.Window.MaxCmdSN())

	c.ArmNopInTimer(session.StartNopInTimer(e.wheel, sess.Options.NopInInterval, e.nopInPing(c, sess)))

	if target != nil {
		logger.InfoCtx(ctx, "session established",
			logger.InitiatorName(attempt.req.InitiatorName), logger.TargetIQN(target.IQN), logger.TSIH(sess.TSIH))
	} else {
		logger.InfoCtx(ctx, "discovery session established",
			logger.InitiatorName(attempt.req.InitiatorName), logger.TSIH(sess.TSIH))
	}

	return session.HandlerResult{Responses: []session.Outbound{{Header: resp, Data: payload}}}, nil
}

// resolveSession applies the TSIH-based leading-login/add-connection/
// reinstatement arbitration and returns the session the connection should
// now belong to.
func (e *Engine) resolveSession(c *session.Connection, req login.Request, initialCmdSN uint32) (*session.Session, error) {
	maxConnections := e.defaults.MaxConnections
	if req.TSIH != 0 {
		if existing, ok := e.sessions.GetByTSIH(req.TSIH); ok {
			maxConnections = existing.Options.MaxConnections
		}
	}

	decision, tsih, err := login.Arbitrate(req, e.sessions, maxConnections)
	if err != nil {
		return nil, err
	}

	switch decision {
	case login.DecisionCreateSession:
		opts := e.defaults
		opts.SessionType = int(req.SessionType)
		sess := session.New(req.ISID, nextTSIH(), req.InitiatorName, opts, initialCmdSN, e.wheel)
		sess.AddConnection(c)
		e.sessions.Add(sess)
		return sess, nil

	case login.DecisionReinstateSession:
		if old, ok := e.sessions.GetByTSIH(tsih); ok {
			e.sessions.Remove(old.Key())
			old.CloseAllConnections()
			old.Destroy()
		}
		opts := e.defaults
		opts.SessionType = int(req.SessionType)
		sess := session.New(req.ISID, nextTSIH(), req.InitiatorName, opts, initialCmdSN, e.wheel)
		sess.AddConnection(c)
		e.sessions.Add(sess)
		return sess, nil

	case login.DecisionAddConnection, login.DecisionReinstateConnection:
		sess, ok := e.sessions.GetByTSIH(tsih)
		if !ok {
			return nil, &login.Failure{Class: login.ClassInitiatorError, Detail: "session vanished mid-arbitration", Reason: login.ErrSessionDoesNotExist}
		}
		if old := sess.Connection(req.CID); old != nil && old != c {
			old.Close()
		}
		sess.AddConnection(c)
		return sess, nil

	default:
		return nil, &login.Failure{Class: login.ClassTargetError, Detail: "unknown arbitration decision"}
	}
}

// nopInPing builds the closure a session's NopInTimer fires: an unsolicited
// keep-alive NopIn stamped with the connection's next StatSN.
func (e *Engine) nopInPing(c *session.Connection, sess *session.Session) func() {
	return func() {
		ping := &pdu.BHS{Opcode: pdu.OpNopIn, InitiatorTaskTag: pdu.ITTUnsolicitedNopIn, Field20: pdu.TTTUnassigned}
		ping.SetFinal(true)
		ping.SetStatSN(c.NextStatSN())
		ping.SetExpCmdSN(sess.Window.ExpCmdSN())
		ping.SetMaxCmdSN(sess.Window.MaxCmdSN())
		if err := c.Send(ping, nil); err != nil {
			logger.Error("nopin keepalive failed", logger.CID(c.CID), logger.Err(err))
		}
	}
}

func loginReject(h *pdu.BHS, err error) session.HandlerResult {
	class := byte(pdu.StatusClassInitiatorError)
	if f, ok := err.(*login.Failure); ok && f.Class == login.ClassTargetError {
		class = pdu.StatusClassTargetError
	}
	return loginRejectClass(h, class, 0x01)
}

func loginRejectClass(h *pdu.BHS, class, detail byte) session.HandlerResult {
	resp := &pdu.BHS{Opcode: pdu.OpLoginRsp, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetStatusClass(class)
	resp.SetStatusDetail(detail)
	resp.SetFinal(true)
	return session.HandlerResult{Responses: []session.Outbound{{Header: resp}}}
}

func (e *Engine) dispatchNopOut(c *session.Connection, h *pdu.BHS) session.HandlerResult {
	if h.InitiatorTaskTag == pdu.ITTUnsolicitedNopIn {
		return session.HandlerResult{}
	}
	resp := &pdu.BHS{Opcode: pdu.OpNopIn, InitiatorTaskTag: h.InitiatorTaskTag, Field20: pdu.TTTUnassigned}
	resp.SetFinal(true)
	resp.SetStatSN(c.NextStatSN())
	if sess := c.Session(); sess != nil {
		resp.SetExpCmdSN(sess.Window.ExpCmdSN())
		resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	}
	return session.HandlerResult{Responses: []session.Outbound{{Header: resp}}}
}

func (e *Engine) dispatchLogout(c *session.Connection, h *pdu.BHS) session.HandlerResult {
	resp := &pdu.BHS{Opcode: pdu.OpLogoutRsp, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetFinal(true)
	resp.SetStatSN(c.NextStatSN())
	if sess := c.Session(); sess != nil {
		resp.SetExpCmdSN(sess.Window.ExpCmdSN())
		resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	}
	closeAfter := h.ReasonCode() == pdu.LogoutCloseSession || h.ReasonCode() == pdu.LogoutCloseConnection
	return session.HandlerResult{Responses: []session.Outbound{{Header: resp}}, CloseAfterTX: closeAfter}
}

// dispatchSCSI admits a SCSI Command PDU through the session's CmdSN window,
// executing it immediately when it is next in line and buffering it
// otherwise (ErrorRecoveryLevel > 0), then draining whatever the advance
// unblocks.
func (e *Engine) dispatchSCSI(ctx context.Context, c *session.Connection, h *pdu.BHS, data []byte) (session.HandlerResult, error) {
	sess := c.Session()
	if sess == nil {
		return rejectResult(h), nil
	}

	switch sess.Window.Receive(h.CmdSN(), c.CID, nil) {
	case cmdsn.Lower:
		return session.HandlerResult{}, nil
	case cmdsn.Rejected:
		return session.HandlerResult{Responses: []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}}, nil
	case cmdsn.Higher, cmdsn.Buffered:
		e.storePendingSCSI(sess, h.CmdSN(), &pendingSCSI{conn: c, h: h, data: data})
		return session.HandlerResult{}, nil
	}

	out, err := e.executeSCSI(ctx, c, sess, h, data)
	if err != nil {
		return session.HandlerResult{}, err
	}
	ready := sess.Window.Executed()
	out = append(out, e.drainReady(ctx, c, sess, ready)...)
	return session.HandlerResult{Responses: out}, nil
}

func (e *Engine) storePendingSCSI(sess *session.Session, cmdSN uint32, p *pendingSCSI) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	m, ok := e.pendingCmds[sess]
	if !ok {
		m = make(map[uint32]*pendingSCSI)
		e.pendingCmds[sess] = m
	}
	m[cmdSN] = p
}

func (e *Engine) takePendingSCSI(sess *session.Session, cmdSN uint32) (*pendingSCSI, bool) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	m, ok := e.pendingCmds[sess]
	if !ok {
		return nil, false
	}
	p, ok := m[cmdSN]
	if ok {
		delete(m, cmdSN)
	}
	return p, ok
}

// drainReady executes every buffered command the CmdSN window just
// unblocked. A buffered command's own connection may differ from c (MC/S):
// its responses go out through that connection's own Send rather than
// riding back on c's HandlerResult.
func (e *Engine) drainReady(ctx context.Context, c *session.Connection, sess *session.Session, ready []cmdsn.Entry) []session.Outbound {
	var same []session.Outbound
	for _, entry := range ready {
		p, ok := e.takePendingSCSI(sess, entry.CmdSN)
		if !ok {
			continue
		}
		out, err := e.executeSCSI(ctx, p.conn, sess, p.h, p.data)
		if err != nil {
			continue
		}
		if p.conn == c {
			same = append(same, out...)
			continue
		}
		for _, o := range out {
			_ = p.conn.Send(o.Header, o.Data)
		}
	}
	return same
}

// executeSCSI resolves the LUN, allocates and begins the command on the
// backend bridge, then branches into the read or write data-transfer path.
func (e *Engine) executeSCSI(ctx context.Context, c *session.Connection, sess *session.Session, h *pdu.BHS, data []byte) ([]session.Outbound, error) {
	bridge, ok := e.bridges(sess.InitiatorName)
	if !ok {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
	}

	cmd, lerr := bridge.ResolveLUN(ctx, h.LUNValue(), h.CDB())
	if lerr != backend.LunErrorNone {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
	}
	if aerr := bridge.AllocateTasks(ctx, cmd); aerr != backend.AllocErrorNone {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x08)}, nil
	}
	if err := bridge.HandleCDB(ctx, cmd); err != nil {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
	}

	if h.SpecificFlags&pdu.FlagWrite != 0 {
		return e.startWrite(ctx, c, sess, h, bridge, cmd, data)
	}
	return e.finishRead(ctx, c, sess, h, bridge, cmd)
}

func (e *Engine) finishRead(ctx context.Context, c *session.Connection, sess *session.Session, h *pdu.BHS, bridge backend.Bridge, cmd *backend.BackendCmd) ([]session.Outbound, error) {
	status, err := bridge.WaitForTasks(ctx, cmd, nil)
	if err != nil {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
	}

	hasSense := status.Sense.SCSIStatus != 0x00
	book := seqbook.NewReadBook(uint32(len(status.ReadData)), hasSense, seqbookOptionsFor(sess.Options))

	var out []session.Outbound
	for {
		d, ok := book.Next()
		if !ok {
			break
		}
		out = append(out, dataInOutbound(h.InitiatorTaskTag, sess, c, d, status.Sense.SCSIStatus, status.ReadData))
	}
	e.storeCompletedRead(c, h.InitiatorTaskTag, book, status.ReadData, status.Sense.SCSIStatus)

	if hasSense || len(out) == 0 {
		out = append(out, scsiResponseOutbound(c, sess, h, status.Sense.SCSIStatus))
	}
	return out, nil
}

func (e *Engine) startWrite(ctx context.Context, c *session.Connection, sess *session.Session, h *pdu.BHS, bridge backend.Bridge, cmd *backend.BackendCmd, data []byte) ([]session.Outbound, error) {
	book := seqbook.NewWriteBook(h.ExpectedDataTransferLength(), uint32(len(data)), seqbookOptionsFor(sess.Options))

	if len(data) > 0 {
		if err := bridge.HandleData(ctx, cmd, 0, data); err != nil {
			return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
		}
		book.RecordDataOut(uint32(len(data)))
	}

	if book.Complete() {
		return e.completeWrite(ctx, c, sess, h, bridge, cmd)
	}

	pw := &pendingWrite{bridge: bridge, cmd: cmd, book: book, ttts: make(map[uint32]uint32)}
	var out []session.Outbound
	if r2t, ok := book.NextR2T(); ok {
		pw.ttts[r2t.TargetXferTag] = r2t.R2TSN
		out = append(out, r2tOutbound(h.InitiatorTaskTag, sess, r2t))
	}
	e.storePendingWrite(c, h.InitiatorTaskTag, pw)
	return out, nil
}

func (e *Engine) completeWrite(ctx context.Context, c *session.Connection, sess *session.Session, h *pdu.BHS, bridge backend.Bridge, cmd *backend.BackendCmd) ([]session.Outbound, error) {
	status, err := bridge.WaitForTasks(ctx, cmd, nil)
	if err != nil {
		return []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}, nil
	}
	return []session.Outbound{scsiResponseOutbound(c, sess, h, status.Sense.SCSIStatus)}, nil
}

// dispatchDataOut feeds one SCSI Data-Out PDU into the write command it
// continues, issuing further R2Ts or the final SCSI Response as the
// WriteBook's accounting dictates.
func (e *Engine) dispatchDataOut(ctx context.Context, c *session.Connection, h *pdu.BHS, data []byte) (session.HandlerResult, error) {
	sess := c.Session()
	if sess == nil {
		return rejectResult(h), nil
	}
	pw, ok := e.getPendingWrite(c, h.InitiatorTaskTag)
	if !ok {
		return rejectResult(h), nil
	}

	if err := pw.bridge.HandleData(ctx, pw.cmd, h.BufferOffset(), data); err != nil {
		e.removePendingWrite(c, h.InitiatorTaskTag)
		return session.HandlerResult{Responses: []session.Outbound{scsiResponseOutbound(c, sess, h, 0x02)}}, nil
	}
	pw.book.RecordDataOut(uint32(len(data)))

	if h.Final() {
		if r2tSN, ok := pw.ttts[h.TTT()]; ok {
			pw.book.AckR2T(r2tSN)
		}
	}

	if pw.book.Complete() {
		e.removePendingWrite(c, h.InitiatorTaskTag)
		out, err := e.completeWrite(ctx, c, sess, h, pw.bridge, pw.cmd)
		if err != nil {
			return session.HandlerResult{}, err
		}
		return session.HandlerResult{Responses: out}, nil
	}

	var out []session.Outbound
	if r2t, ok := pw.book.NextR2T(); ok {
		pw.ttts[r2t.TargetXferTag] = r2t.R2TSN
		out = append(out, r2tOutbound(h.InitiatorTaskTag, sess, r2t))
	}
	return session.HandlerResult{Responses: out}, nil
}

func (e *Engine) storePendingWrite(c *session.Connection, itt uint32, pw *pendingWrite) {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	m, ok := e.writes[c]
	if !ok {
		m = make(map[uint32]*pendingWrite)
		e.writes[c] = m
	}
	m[itt] = pw
}

func (e *Engine) getPendingWrite(c *session.Connection, itt uint32) (*pendingWrite, bool) {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	m, ok := e.writes[c]
	if !ok {
		return nil, false
	}
	pw, ok := m[itt]
	return pw, ok
}

func (e *Engine) removePendingWrite(c *session.Connection, itt uint32) {
	e.writesMu.Lock()
	defer e.writesMu.Unlock()
	if m, ok := e.writes[c]; ok {
		delete(m, itt)
	}
}

func (e *Engine) storeCompletedRead(c *session.Connection, itt uint32, book *seqbook.ReadBook, data []byte, scsiStatus byte) {
	e.readsMu.Lock()
	defer e.readsMu.Unlock()
	m, ok := e.reads[c]
	if !ok {
		m = make(map[uint32]*completedRead)
		e.reads[c] = m
	}
	m[itt] = &completedRead{book: book, data: data, scsiStatus: scsiStatus}
}

func (e *Engine) getCompletedRead(c *session.Connection, itt uint32) (*completedRead, bool) {
	e.readsMu.Lock()
	defer e.readsMu.Unlock()
	m, ok := e.reads[c]
	if !ok {
		return nil, false
	}
	r, ok := m[itt]
	return r, ok
}

func seqbookOptionsFor(o session.Options) seqbook.Options {
	return seqbook.Options{
		DataSequenceInOrder:      o.DataSequenceInOrder,
		DataPDUInOrder:           o.DataPDUInOrder,
		MaxBurstLength:           o.MaxBurstLength,
		FirstBurstLength:         o.FirstBurstLength,
		MaxRecvDataSegmentLength: o.MaxRecvDataSegmentLength,
		MaxOutstandingR2T:        o.MaxOutstandingR2T,
		InitialR2T:               o.InitialR2T,
		ImmediateData:            o.ImmediateData,
	}
}

func scsiResponseOutbound(c *session.Connection, sess *session.Session, h *pdu.BHS, scsiStatus byte) session.Outbound {
	resp := &pdu.BHS{Opcode: pdu.OpSCSIResponse, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetFinal(true)
	resp.Tail[1] = scsiStatus
	resp.SetExpCmdSN(sess.Window.ExpCmdSN())
	resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	resp.SetStatSN(c.NextStatSN())
	return session.Outbound{Header: resp}
}

// dataInOutbound renders one generated SCSI Data-In value as a PDU. Only the
// status-bearing DataIn (no separate sense to follow) consumes a StatSN.
func dataInOutbound(itt uint32, sess *session.Session, c *session.Connection, d seqbook.DataIn, scsiStatus byte, readData []byte) session.Outbound {
	resp := &pdu.BHS{Opcode: pdu.OpSCSIDataIn, InitiatorTaskTag: itt, Field20: pdu.TTTUnassigned}
	resp.SetFinal(d.Final)
	resp.SetDataSN(d.DataSN)
	resp.SetBufferOffset(d.Offset)
	if d.Status {
		resp.SpecificFlags |= pdu.FlagStatus
		resp.Tail[1] = scsiStatus
		resp.SetExpCmdSN(sess.Window.ExpCmdSN())
		resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
		resp.SetStatSN(c.NextStatSN())
	}
	return session.Outbound{Header: resp, Data: readData[d.Offset : d.Offset+d.Length]}
}

// r2tOutbound renders one generated R2T grant as a PDU. R2T does not
// consume a StatSN (RFC 3720 §10.8.3).
func r2tOutbound(itt uint32, sess *session.Session, r seqbook.R2T) session.Outbound {
	resp := &pdu.BHS{Opcode: pdu.OpR2T, InitiatorTaskTag: itt}
	resp.SetFinal(true)
	resp.SetTTT(r.TargetXferTag)
	resp.SetExpCmdSN(sess.Window.ExpCmdSN())
	resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	resp.SetDataSN(r.R2TSN)
	resp.SetBufferOffset(r.Offset)
	resp.SetDesiredDataTransferLength(r.XferLen)
	return session.Outbound{Header: resp}
}

var errUnsupportedTMF = errors.New("engine: unsupported task management function")

// dispatchTaskMgmt executes session/LU-wide task management functions
// directly against the backend bridge, and AbortTask/TaskReassign against a
// write command this engine still holds pending its DataOut PDUs -- a
// fire-and-forget read command has no live handle to find once its backend
// call is in flight, so those are reported as not found rather than
// silently ignored.
func (e *Engine) dispatchTaskMgmt(ctx context.Context, c *session.Connection, h *pdu.BHS) (session.HandlerResult, error) {
	sess := c.Session()
	if sess == nil {
		return rejectResult(h), nil
	}
	bridge, ok := e.bridges(sess.InitiatorName)
	if !ok {
		return tmfResponse(c, sess, h, pdu.TMRLUNNotExist), nil
	}

	fn, err := tmrFunctionFor(h.Function())
	if err != nil {
		return tmfResponse(c, sess, h, pdu.TMRFunctionNotSupported), nil
	}

	var referenced *backend.BackendCmd
	if fn == backend.TMRAbortTask || fn == backend.TMRTaskReassign {
		pw, ok := e.getPendingWrite(c, h.ReferencedTaskTag())
		if !ok {
			return tmfResponse(c, sess, h, pdu.TMRTaskNotExist), nil
		}
		referenced = pw.cmd
	}

	if err := bridge.HandleTMR(ctx, fn, nil, referenced); err != nil {
		return tmfResponse(c, sess, h, pdu.TMRFunctionRejected), nil
	}
	return tmfResponse(c, sess, h, pdu.TMRFunctionComplete), nil
}

func tmrFunctionFor(code byte) (backend.TMRFunction, error) {
	switch code {
	case pdu.TMFAbortTask:
		return backend.TMRAbortTask, nil
	case pdu.TMFAbortTaskSet:
		return backend.TMRAbortTaskSet, nil
	case pdu.TMFLogicalUnitReset:
		return backend.TMRLogicalUnitReset, nil
	case pdu.TMFTargetWarmReset:
		return backend.TMRTargetWarmReset, nil
	case pdu.TMFTargetColdReset:
		return backend.TMRTargetColdReset, nil
	case pdu.TMFTaskReassign:
		return backend.TMRTaskReassign, nil
	default:
		return 0, errUnsupportedTMF
	}
}

func tmfResponse(c *session.Connection, sess *session.Session, h *pdu.BHS, code byte) session.HandlerResult {
	resp := &pdu.BHS{Opcode: pdu.OpTaskMgmtRsp, InitiatorTaskTag: h.InitiatorTaskTag}
	resp.SetFinal(true)
	resp.SetResponseCode(code)
	resp.SetStatSN(c.NextStatSN())
	resp.SetExpCmdSN(sess.Window.ExpCmdSN())
	resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	return session.HandlerResult{Responses: []session.Outbound{{Header: resp}}}
}

// dispatchTextReq answers SendTargets discovery text requests. Other text
// keys a real negotiation might carry (vendor-specific extensions) are
// ignored rather than rejected, matching how unrecognized login keys are
// handled.
func (e *Engine) dispatchTextReq(c *session.Connection, h *pdu.BHS, data []byte) (session.HandlerResult, error) {
	sess := c.Session()
	if sess == nil {
		return rejectResult(h), nil
	}

	var payload []byte
	if key, ok := parseTextKeys(data)["SendTargets"]; ok {
		payload = e.targets.SendTargetsText(key)
	}

	resp := &pdu.BHS{Opcode: pdu.OpTextRsp, InitiatorTaskTag: h.InitiatorTaskTag, Field20: pdu.TTTUnassigned}
	resp.SetFinal(true)
	resp.SetStatSN(c.NextStatSN())
	resp.SetExpCmdSN(sess.Window.ExpCmdSN())
	resp.SetMaxCmdSN(sess.Window.MaxCmdSN())
	return session.HandlerResult{Responses: []session.Outbound{{Header: resp, Data: payload}}}, nil
}

func parseTextKeys(data []byte) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(strings.TrimRight(string(data), "\x00"), "\x00") {
		if pair == "" {
			continue
		}
		if idx := strings.IndexByte(pair, '='); idx >= 0 {
			out[pair[:idx]] = pair[idx+1:]
		}
	}
	return out
}

// dispatchSNACK replays DataIN or R2T PDUs already sent for a command this
// engine still holds state for. Status, DataACK, and R-Data SNACK are
// declared unsupported rather than silently mishandled: they require
// retaining every sent status PDU and tracking initiator-acknowledged
// DataSN ranges this engine doesn't keep.
func (e *Engine) dispatchSNACK(c *session.Connection, h *pdu.BHS) session.HandlerResult {
	sess := c.Session()
	if sess == nil {
		return rejectResult(h)
	}

	if h.SnackType() != pdu.SnackTypeDataOrR2T {
		return rejectResult(h)
	}

	itt := h.TTT()
	if read, ok := e.getCompletedRead(c, itt); ok {
		return e.snackDataIN(c, sess, h, itt, read)
	}
	if pw, ok := e.getPendingWrite(c, itt); ok {
		return e.snackR2T(sess, h, itt, pw)
	}
	return rejectResult(h)
}

func (e *Engine) snackDataIN(c *session.Connection, sess *session.Session, h *pdu.BHS, itt uint32, read *completedRead) session.HandlerResult {
	highest, found := read.book.HighestEmittedDataSN()
	if !found {
		return rejectResult(h)
	}
	sns, err := erl.RetransmitDataIN(erl.Snack{Type: erl.SnackDataIN, ITT: itt, BegRun: h.BegRun(), RunLength: h.RunLength()}, highest, 0)
	if err != nil {
		return rejectResult(h)
	}

	var out []session.Outbound
	for _, sn := range sns {
		d, ok := read.book.Retransmit(sn)
		if !ok {
			continue
		}
		out = append(out, dataInOutbound(itt, sess, c, d, read.scsiStatus, read.data))
	}
	return session.HandlerResult{Responses: out}
}

func (e *Engine) snackR2T(sess *session.Session, h *pdu.BHS, itt uint32, pw *pendingWrite) session.HandlerResult {
	var highest uint32
	found := false
	for _, sn := range pw.ttts {
		if !found || sn > highest {
			highest = sn
			found = true
		}
	}
	if !found {
		return rejectResult(h)
	}

	sns, err := erl.RetransmitR2T(erl.Snack{Type: erl.SnackR2T, ITT: itt, BegRun: h.BegRun(), RunLength: h.RunLength()}, highest)
	if err != nil {
		return rejectResult(h)
	}

	var out []session.Outbound
	for _, sn := range sns {
		r, ok := pw.book.Retransmit(sn)
		if !ok {
			continue
		}
		out = append(out, r2tOutbound(itt, sess, r))
	}
	return session.HandlerResult{Responses: out}
}

var tsihCounter struct {
	mu  sync.Mutex
	val uint16
}

// nextTSIH hands out small sequential target session identifying handles.
// TSIH 0 is reserved for "no session" so the counter starts at 1.
func nextTSIH() uint16 {
	tsihCounter.mu.Lock()
	defer tsihCounter.mu.Unlock()
	tsihCounter.val++
	if tsihCounter.val == 0 {
		tsihCounter.val = 1
	}
	return tsihCounter.val
}

// standardTemplate builds the RFC 3720 operational key set, seeded from the
// daemon's configured session defaults.
func standardTemplate(d session.Options) *paramlist.Template {
	b := func(v bool) string {
		if v {
			return "Yes"
		}
		return "No"
	}
	defs := []paramlist.KeyDef{
		{Name: "InitiatorName", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
		{Name: "TargetName", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
		{Name: "SessionType", Type: paramlist.TypeDeclarative, Rule: paramlist.RuleDeclared},
		{Name: "MaxConnections", Type: paramlist.TypeNumeric, Rule: paramlist.RuleMinimum, Min: 1, Max: 65535},
		{Name: "InitialR2T", Type: paramlist.TypeBoolean, Rule: paramlist.RuleOr},
		{Name: "ImmediateData", Type: paramlist.TypeBoolean, Rule: paramlist.RuleAnd},
		{Name: "MaxBurstLength", Type: paramlist.TypeNumeric, Rule: paramlist.RuleMinimum, Min: 512, Max: 16777215},
		{Name: "FirstBurstLength", Type: paramlist.TypeNumeric, Rule: paramlist.RuleMinimum, Min: 512, Max: 16777215},
		{Name: "MaxOutstandingR2T", Type: paramlist.TypeNumeric, Rule: paramlist.RuleMinimum, Min: 1, Max: 65535},
		{Name: "DataPDUInOrder", Type: paramlist.TypeBoolean, Rule: paramlist.RuleOr},
		{Name: "DataSequenceInOrder", Type: paramlist.TypeBoolean, Rule: paramlist.RuleOr},
		{Name: "ErrorRecoveryLevel", Type: paramlist.TypeNumeric, Rule: paramlist.RuleMinimum, Min: 0, Max: 2},
	}
	defaults := map[string]string{
		"MaxConnections":      fmt.Sprintf("%d", d.MaxConnections),
		"InitialR2T":          b(d.InitialR2T),
		"ImmediateData":       b(d.ImmediateData),
		"MaxBurstLength":      fmt.Sprintf("%d", d.MaxBurstLength),
		"FirstBurstLength":    fmt.Sprintf("%d", d.FirstBurstLength),
		"MaxOutstandingR2T":   fmt.Sprintf("%d", d.MaxOutstandingR2T),
		"DataPDUInOrder":      b(d.DataPDUInOrder),
		"DataSequenceInOrder": b(d.DataSequenceInOrder),
		"ErrorRecoveryLevel":  fmt.Sprintf("%d", int(d.ErrorRecoveryLevel)),
	}
	return paramlist.NewTemplate(defs, defaults, []string{"InitiatorName"})
}
