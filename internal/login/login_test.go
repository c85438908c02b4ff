package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsitgt/internal/paramlist"
)

type fakeLookup struct {
	byIdentity map[string]uint16
	tsihs      map[uint16]bool
	conns      map[uint16]map[uint16]bool
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		byIdentity: map[string]uint16{},
		tsihs:      map[uint16]bool{},
		conns:      map[uint16]map[uint16]bool{},
	}
}

func (f *fakeLookup) FindByIdentity(isid [6]byte, initiatorName string, sessionType SessionType) (uint16, bool) {
	tsih, ok := f.byIdentity[string(isid[:])+initiatorName]
	return tsih, ok
}
func (f *fakeLookup) FindByTSIH(tsih uint16) bool { return f.tsihs[tsih] }
func (f *fakeLookup) HasConnection(tsih, cid uint16) bool {
	return f.conns[tsih] != nil && f.conns[tsih][cid]
}
func (f *fakeLookup) ConnectionCount(tsih uint16) int { return len(f.conns[tsih]) }

func TestArbitrateLeadingLoginNoExistingSession(t *testing.T) {
	lookup := newFakeLookup()
	req := Request{InitiatorName: "iqn.initiator", ISID: [6]byte{1}, TSIH: 0}
	decision, tsih, err := Arbitrate(req, lookup, 4)
	require.NoError(t, err)
	assert.Equal(t, DecisionCreateSession, decision)
	assert.Equal(t, uint16(0), tsih)
}

func TestArbitrateLeadingLoginReinstatesMatchingSession(t *testing.T) {
	lookup := newFakeLookup()
	isid := [6]byte{1}
	lookup.byIdentity[string(isid[:])+"iqn.initiator"] = 7

	req := Request{InitiatorName: "iqn.initiator", ISID: isid, TSIH: 0}
	decision, tsih, err := Arbitrate(req, lookup, 4)
	require.NoError(t, err)
	assert.Equal(t, DecisionReinstateSession, decision)
	assert.Equal(t, uint16(7), tsih)
}

func TestArbitrateAddConnectionSessionMissing(t *testing.T) {
	lookup := newFakeLookup()
	req := Request{TSIH: 9}
	_, _, err := Arbitrate(req, lookup, 4)
	require.Error(t, err)
	var fail *Failure
	require.ErrorAs(t, err, &fail)
}

func TestArbitrateAddConnectionReinstatesSameCID(t *testing.T) {
	lookup := newFakeLookup()
	lookup.tsihs[9] = true
	lookup.conns[9] = map[uint16]bool{3: true}

	req := Request{TSIH: 9, CID: 3}
	decision, tsih, err := Arbitrate(req, lookup, 4)
	require.NoError(t, err)
	assert.Equal(t, DecisionReinstateConnection, decision)
	assert.Equal(t, uint16(9), tsih)
}

func TestArbitrateTooManyConnections(t *testing.T) {
	lookup := newFakeLookup()
	lookup.tsihs[9] = true
	lookup.conns[9] = map[uint16]bool{1: true, 2: true}

	req := Request{TSIH: 9, CID: 3}
	_, _, err := Arbitrate(req, lookup, 2)
	require.Error(t, err)
}

type acceptAllAuth struct{ fail bool }

func (a acceptAllAuth) Authenticate(pl *paramlist.ParamList) error {
	if a.fail {
		return ErrAuthentication
	}
	return nil
}

func emptyTemplate() *paramlist.ParamList {
	return paramlist.NewTemplate(nil, nil, nil).New()
}

func TestStateMachineHappyPath(t *testing.T) {
	sm := NewStateMachine(emptyTemplate(), acceptAllAuth{}, true)
	require.NoError(t, sm.Begin(0))
	assert.Equal(t, PhaseSecurity, sm.Phase())
	require.NoError(t, sm.AdvanceSecurity())
	assert.Equal(t, PhaseOperational, sm.Phase())
	require.NoError(t, sm.CompleteOperational())
	assert.Equal(t, PhaseLoggedIn, sm.Phase())
}

func TestStateMachineVersionMismatch(t *testing.T) {
	sm := NewStateMachine(emptyTemplate(), acceptAllAuth{}, false)
	err := sm.Begin(1)
	require.Error(t, err)
	assert.Equal(t, PhaseReject, sm.Phase())
}

func TestStateMachineAuthFailure(t *testing.T) {
	sm := NewStateMachine(emptyTemplate(), acceptAllAuth{fail: true}, true)
	require.NoError(t, sm.Begin(0))
	err := sm.AdvanceSecurity()
	require.Error(t, err)
	assert.Equal(t, PhaseReject, sm.Phase())
}

func TestStateMachineSkipsSecurityWhenNotRequired(t *testing.T) {
	sm := NewStateMachine(emptyTemplate(), nil, false)
	require.NoError(t, sm.Begin(0))
	assert.Equal(t, PhaseOperational, sm.Phase())
}
