package engine

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsitgt/internal/backend"
	"github.com/marmos91/iscsitgt/internal/pdu"
	"github.com/marmos91/iscsitgt/internal/target/portal"
	"github.com/marmos91/iscsitgt/internal/target/session"
	"github.com/marmos91/iscsitgt/internal/wire"
)

func testDefaults() session.Options {
	return session.Options{
		MaxConnections:    4,
		MaxBurstLength:    262144,
		FirstBurstLength:  65536,
		MaxOutstandingR2T: 1,
	}
}

func newTestEngine(t *testing.T) (*Engine, *portal.Registry, *session.Registry) {
	t.Helper()
	targets := portal.NewRegistry()
	target := portal.NewTarget("iqn.2026-01.com.example:disk0")
	require.NoError(t, targets.AddTarget(target))

	sessions := session.NewRegistry()
	bridge := backend.NewMemoryBridge(map[uint64]uint32{0: 4096})
	bridges := func(string) (backend.Bridge, bool) { return bridge, true }

	return New(targets, sessions, bridges, testDefaults()), targets, sessions
}

func newTestConnection() *session.Connection {
	client, _ := net.Pipe()
	return session.NewConnection(1, client, nil)
}

func loginRequest(t *testing.T, csg, nsg pdu.Stage, transit bool, keys map[string]string) *wire.Message {
	t.Helper()
	h := &pdu.BHS{Opcode: pdu.OpLoginReq}
	h.SetStages(csg, nsg)
	h.SetTransit(transit)
	h.SetVersionMax(0)
	h.SetVersionMin(0)

	var payload []byte
	for k, v := range keys {
		payload = append(payload, []byte(k+"="+v+"\x00")...)
	}
	return &wire.Message{Header: h, Data: payload}
}

func TestLoginEstablishesSession(t *testing.T) {
	e, _, sessions := newTestEngine(t)
	c := newTestConnection()
	ctx := context.Background()

	msg := loginRequest(t, pdu.StageOperational, pdu.StageFullFeature, true, map[string]string{
		"InitiatorName": "iqn.1994-05.com.redhat:initiator",
		"TargetName":    "iqn.2026-01.com.example:disk0",
	})

	result, err := e.Dispatch(ctx, c, msg)
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Equal(t, pdu.OpLoginRsp, result.Responses[0].Header.Opcode)
	require.Equal(t, pdu.StatusClassSuccess, result.Responses[0].Header.StatusClass())

	require.NotNil(t, c.Session())
	require.Equal(t, 1, sessions.Stats().ActiveSessions)
}

func TestLoginUnknownTargetRejected(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := newTestConnection()
	ctx := context.Background()

	msg := loginRequest(t, pdu.StageOperational, pdu.StageFullFeature, true, map[string]string{
		"InitiatorName": "iqn.1994-05.com.redhat:initiator",
		"TargetName":    "iqn.2026-01.com.example:does-not-exist",
	})

	result, err := e.Dispatch(ctx, c, msg)
	require.NoError(t, err)
	require.Equal(t, pdu.StatusClassInitiatorError, result.Responses[0].Header.StatusClass())
	require.Nil(t, c.Session())
}

func TestNopOutEchoesNopIn(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := newTestConnection()

	h := &pdu.BHS{Opcode: pdu.OpNopOut, InitiatorTaskTag: 5}
	result, err := e.Dispatch(context.Background(), c, &wire.Message{Header: h})
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Equal(t, pdu.OpNopIn, result.Responses[0].Header.Opcode)
	require.Equal(t, uint32(5), result.Responses[0].Header.InitiatorTaskTag)
}
