// Package login implements the iSCSI login phase state machine: Security
// (optional) -> Operational -> FullFeature, session lookup/creation, and
// reinstatement arbitration.
package login

import (
	"fmt"

	"github.com/marmos91/iscsitgt/internal/paramlist"
)

// Phase is a step of the login state machine.
type Phase int

const (
	PhaseXptUp Phase = iota
	PhaseSecurity
	PhaseOperational
	PhaseLoggedIn
	PhaseReject
)

func (p Phase) String() string {
	switch p {
	case PhaseXptUp:
		return "XptUp"
	case PhaseSecurity:
		return "Security"
	case PhaseOperational:
		return "Operational"
	case PhaseLoggedIn:
		return "LoggedIn"
	case PhaseReject:
		return "Reject"
	default:
		return "Unknown"
	}
}

// FailureClass mirrors the iSCSI login response status-class taxonomy.
type FailureClass int

const (
	ClassNone FailureClass = iota
	ClassInitiatorError
	ClassTargetError
)

// Failure describes why a login attempt was rejected.
type Failure struct {
	Class  FailureClass
	Detail string
	Reason error
}

func (f *Failure) Error() string {
	if f.Reason != nil {
		return fmt.Sprintf("login: %s: %v", f.Detail, f.Reason)
	}
	return fmt.Sprintf("login: %s", f.Detail)
}

// Sentinel login failure causes.
var (
	ErrVersionMismatch    = fmt.Errorf("login: unsupported iSCSI version")
	ErrAuthentication     = fmt.Errorf("login: authentication failed")
	ErrTooManyConnections = fmt.Errorf("login: MaxConnections exceeded")
	ErrUnavailable        = fmt.Errorf("login: target/TPG/portal not active")
	ErrOutOfResources     = fmt.Errorf("login: resource allocation failed")
	ErrSessionDoesNotExist = fmt.Errorf("login: non-zero TSIH refers to a missing session")
)

// Request carries the fixed per-login inputs extracted from the Login PDU
// and its negotiated text keys.
type Request struct {
	InitiatorName string
	TargetName    string // empty when SessionType=Discovery
	SessionType   SessionType
	CID           uint16
	ISID          [6]byte
	TSIH          uint16 // 0 for a leading login
	VersionMin    byte
	VersionMax    byte
}

// SessionType distinguishes a normal session from a discovery session,
// which only accepts Text, Logout, NopOut and Login requests once
// FullFeature is reached.
type SessionType int

const (
	SessionNormal SessionType = iota
	SessionDiscovery
)

// AuthProvider authenticates the Security phase. A pluggable collaborator
// (CHAP, Kerberos) implements this.
type AuthProvider interface {
	// Authenticate validates the initiator's security-phase proposals
	// against the given ParamList and returns nil on success.
	Authenticate(pl *paramlist.ParamList) error
}

// SessionLookup resolves existing sessions for leading-login reinstatement
// checks and add-connection lookups. It is implemented by the session
// registry so this package stays free of target/session's types.
type SessionLookup interface {
	// FindByIdentity returns the key of any session matching
	// (ISID, initiatorName, sessionType), or ok=false.
	FindByIdentity(isid [6]byte, initiatorName string, sessionType SessionType) (tsih uint16, ok bool)
	// FindByTSIH returns ok=false if no session with this TSIH exists.
	FindByTSIH(tsih uint16) (ok bool)
	// HasConnection reports whether a session already has a connection
	// with the given CID (triggers connection reinstatement).
	HasConnection(tsih uint16, cid uint16) bool
	// ConnectionCount reports how many connections a session currently
	// holds, checked against MaxConnections.
	ConnectionCount(tsih uint16) int
}

// Decision is the outcome of Arbitrate: what the caller (Connection/Portal)
// must do next.
type Decision int

const (
	DecisionCreateSession Decision = iota
	DecisionReinstateSession
	DecisionAddConnection
	DecisionReinstateConnection
)

// Arbitrate implements the TSIH-based leading-login / add-connection
// arbitration.
func Arbitrate(req Request, lookup SessionLookup, maxConnections int) (Decision, uint16, error) {
	if req.TSIH == 0 {
		if existingTSIH, found := lookup.FindByIdentity(req.ISID, req.InitiatorName, req.SessionType); found {
			return DecisionReinstateSession, existingTSIH, nil
		}
		return DecisionCreateSession, 0, nil
	}

	if !lookup.FindByTSIH(req.TSIH) {
		return 0, 0, &Failure{Class: ClassInitiatorError, Detail: "session does not exist", Reason: ErrSessionDoesNotExist}
	}
	if lookup.HasConnection(req.TSIH, req.CID) {
		return DecisionReinstateConnection, req.TSIH, nil
	}
	if maxConnections > 0 && lookup.ConnectionCount(req.TSIH) >= maxConnections {
		return 0, 0, &Failure{Class: ClassInitiatorError, Detail: "too many connections", Reason: ErrTooManyConnections}
	}
	return DecisionAddConnection, req.TSIH, nil
}

// StateMachine drives one connection's login attempt through its phases.
type StateMachine struct {
	phase     Phase
	auth      AuthProvider
	requireAuth bool
	pl        *paramlist.ParamList
}

// NewStateMachine starts a login attempt at XptUp. requireAuth selects
// whether the Security phase must run before Operational.
func NewStateMachine(pl *paramlist.ParamList, auth AuthProvider, requireAuth bool) *StateMachine {
	return &StateMachine{phase: PhaseXptUp, auth: auth, requireAuth: requireAuth, pl: pl}
}

// Phase returns the current state.
func (sm *StateMachine) Phase() Phase { return sm.phase }

// Begin transitions from XptUp into Security (if required) or straight to
// Operational.
func (sm *StateMachine) Begin(versionMajor byte) error {
	if versionMajor != 0 {
		sm.phase = PhaseReject
		return &Failure{Class: ClassInitiatorError, Detail: "version mismatch", Reason: ErrVersionMismatch}
	}
	if sm.requireAuth {
		sm.phase = PhaseSecurity
	} else {
		sm.phase = PhaseOperational
	}
	return nil
}

// AdvanceSecurity runs authentication and transitions to Operational on
// success.
func (sm *StateMachine) AdvanceSecurity() error {
	if sm.phase != PhaseSecurity {
		return &Failure{Class: ClassTargetError, Detail: "not in security phase"}
	}
	if sm.auth == nil {
		sm.phase = PhaseReject
		return &Failure{Class: ClassTargetError, Detail: "no auth provider configured"}
	}
	if err := sm.auth.Authenticate(sm.pl); err != nil {
		sm.phase = PhaseReject
		return &Failure{Class: ClassInitiatorError, Detail: "authentication failed", Reason: ErrAuthentication}
	}
	sm.phase = PhaseOperational
	return nil
}

// CompleteOperational transitions to LoggedIn once all mandatory
// operational keys have been resolved.
func (sm *StateMachine) CompleteOperational() error {
	if sm.phase != PhaseOperational {
		return &Failure{Class: ClassTargetError, Detail: "not in operational phase"}
	}
	if !sm.pl.AllMandatoryResolved() {
		sm.phase = PhaseReject
		return &Failure{Class: ClassInitiatorError, Detail: "mandatory keys unresolved"}
	}
	sm.phase = PhaseLoggedIn
	return nil
}
