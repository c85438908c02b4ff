package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/iscsitgt/internal/cmdsn"
	"github.com/marmos91/iscsitgt/internal/erl"
	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/timerwheel"
)

// State is a Session's lifecycle state.
type State int

const (
	StateFree State = iota
	StateActive
	StateLoggedIn
	StateFailed
	StateInContinue
)

// Options holds the session-wide negotiated text-key parameter set.
type Options struct {
	MaxBurstLength           uint32
	FirstBurstLength         uint32
	MaxRecvDataSegmentLength uint32
	MaxOutstandingR2T        uint32
	DataSequenceInOrder      bool
	DataPDUInOrder           bool
	InitialR2T               bool
	ImmediateData            bool
	ErrorRecoveryLevel       erl.Level
	DefaultTime2Wait         time.Duration
	DefaultTime2Retain       time.Duration
	MaxConnections           int
	SessionType              int // mirrors login.SessionType without importing it
	NopInInterval            time.Duration // 0 disables target-initiated keep-alive pings
}

// Session is keyed by (ISID, TSIH) and owns its connections, CmdSN window,
// and recovery timers.
type Session struct {
	mu sync.Mutex

	ISID [6]byte
	TSIH uint16
	InitiatorName string

	Options Options
	Window  *cmdsn.Window

	state State

	connections map[uint16]*Connection // keyed by CID
	recoveryList map[uint32]*Command   // ITT -> parked command, ERL=2 only

	wheel         *timerwheel.Wheel
	ownsWheel     bool
	time2RetainID timerwheel.Handle
	hasT2RTimer   bool

	AuditID string // correlation id for audit events, not a protocol field

	onDestroy func(*Session)
}

// New creates a Session with a fresh CmdSN window seeded at initialCmdSN.
// wheel, if nil, is created and owned by the Session (closed on Destroy).
func New(isid [6]byte, tsih uint16, initiatorName string, opts Options, initialCmdSN uint32, wheel *timerwheel.Wheel) *Session {
	ownsWheel := wheel == nil
	if ownsWheel {
		wheel = timerwheel.New()
	}
	return &Session{
		ISID:          isid,
		TSIH:          tsih,
		InitiatorName: initiatorName,
		Options:       opts,
		Window:        cmdsn.NewWindow(initialCmdSN, commandWindowDepth(opts), opts.ErrorRecoveryLevel == erl.Level0),
		state:         StateActive,
		connections:   make(map[uint16]*Connection),
		recoveryList:  make(map[uint32]*Command),
		wheel:         wheel,
		ownsWheel:     ownsWheel,
		AuditID:       uuid.NewString(),
	}
}

func commandWindowDepth(opts Options) uint32 {
	// A conservative default window; control-plane policy may widen it.
	return 32
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddConnection registers a new connection under the session, atomic with
// the MaxConnections check already performed during login arbitration.
func (s *Session) AddConnection(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[c.CID] = c
	c.session = s
	if s.hasT2RTimer {
		s.wheel.Cancel(s.time2RetainID)
		s.hasT2RTimer = false
		s.state = StateLoggedIn
	}
}

// RemoveConnection detaches a connection (logout or failure path).
func (s *Session) RemoveConnection(cid uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, cid)
}

// ConnectionCount returns the number of currently attached connections.
func (s *Session) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// HasConnection reports whether a connection with the given CID exists.
func (s *Session) HasConnection(cid uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.connections[cid]
	return ok
}

// Connection returns the connection for cid, or nil.
func (s *Session) Connection(cid uint16) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections[cid]
}

// CloseAllConnections closes every connection currently attached to the
// session, used when reinstatement discards a prior session wholesale.
func (s *Session) CloseAllConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

// Fail moves every connection to Cleanup-Wait, the session to Failed, and
// starts the Time2Retain timer. At ERL=2, in-flight commands are parked in
// the recovery list rather than discarded so a later TASK_REASSIGN on a
// surviving connection can pick them back up.
func (s *Session) Fail(parkedCommands []*Command, onExpire func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailed
	for cid := range s.connections {
		if c := s.connections[cid]; c != nil {
			c.SetState(ConnCleanupWait)
		}
	}
	if s.Options.ErrorRecoveryLevel == erl.Level2 {
		for _, cmd := range parkedCommands {
			cmd.Phase = PhaseWithinCommandRecovery
			s.recoveryList[cmd.ITT] = cmd
		}
	}

	s.hasT2RTimer = true
	s.time2RetainID = s.wheel.Schedule(s.Options.DefaultTime2Retain, func(cookie any) {
		sess := cookie.(*Session)
		sess.mu.Lock()
		stillFailed := sess.state == StateFailed
		sess.mu.Unlock()
		if stillFailed && onExpire != nil {
			onExpire(sess)
		}
	}, s)

	logger.Info("session failed, Time2Retain started",
		logger.SessionKey(fmt.Sprintf("%x:%d", s.ISID, s.TSIH)),
		logger.ERL(int(s.Options.ErrorRecoveryLevel)))
}

// Continue cancels a pending Time2Retain timer because a new connection
// with matching (ISID, TSIH) arrived during the retain window.
func (s *Session) Continue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasT2RTimer {
		s.wheel.Cancel(s.time2RetainID)
		s.hasT2RTimer = false
	}
	s.state = StateInContinue
}

// RecoverCommand looks up and removes a parked command for TASK_REASSIGN,
// reporting whether it was found.
func (s *Session) RecoverCommand(itt uint32) (*Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmd, ok := s.recoveryList[itt]
	if ok {
		delete(s.recoveryList, itt)
	}
	return cmd, ok
}

// Destroy tears down session-owned resources. Safe to call once the
// session has no remaining connections.
func (s *Session) Destroy() {
	s.mu.Lock()
	owns := s.ownsWheel
	s.mu.Unlock()
	if owns {
		s.wheel.Close()
	}
}

// Key returns the session's (ISID, TSIH) identity formatted for logging
// and audit correlation.
func (s *Session) Key() string {
	return fmt.Sprintf("%x:%d", s.ISID, s.TSIH)
}
