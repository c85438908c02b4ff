package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/marmos91/iscsitgt/internal/logger"
	"github.com/marmos91/iscsitgt/internal/pdu"
	"github.com/marmos91/iscsitgt/internal/wire"
)

// ConnState is a Connection's lifecycle state.
type ConnState int

const (
	ConnFree ConnState = iota
	ConnXptUp
	ConnInLogin
	ConnLoggedIn
	ConnInLogout
	ConnLogoutRequested
	ConnCleanupWait
	ConnClosed
)

// HandlerResult is what a dispatched opcode handler hands back to the TX
// loop: the encoded response PDU(s) plus bookkeeping used for logging and
// metrics, kept separate from the wire bytes themselves.
type HandlerResult struct {
	Responses     []Outbound
	BytesRead     uint64
	BytesWritten  uint64
	CloseAfterTX  bool
}

// Outbound pairs a header with its data segment, queued for the TX loop.
type Outbound struct {
	Header *pdu.BHS
	Data   []byte
}

// Dispatcher resolves an inbound Message to a HandlerResult. It is supplied
// by the portal/registry layer so this package never imports backend or
// control-plane code directly.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Connection, msg *wire.Message) (HandlerResult, error)
}

// Connection is one TCP (or iSER, though unimplemented here) transport
// carrying a subset of a Session's traffic, identified within the session
// by CID.
type Connection struct {
	CID  uint16
	Conn net.Conn

	session *Session
	state   ConnState
	stateMu sync.Mutex

	HeaderDigest bool
	DataDigest   bool

	dispatcher Dispatcher

	sendMu sync.Mutex // serializes TX loop writers

	statSN atomic.Uint32

	// Affinity pins this connection's Serve goroutine to a CPU set. Set
	// before calling Serve; empty disables pinning.
	Affinity AffinityHint

	nopIn *NopInTimer

	closeOnce sync.Once
	errOnce   error
}

// NewConnection wraps a transport in a Connection in the XptUp state.
func NewConnection(cid uint16, conn net.Conn, dispatcher Dispatcher) *Connection {
	return &Connection{
		CID:        cid,
		Conn:       conn,
		state:      ConnXptUp,
		dispatcher: dispatcher,
	}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() ConnState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// SetState transitions the connection's lifecycle state.
func (c *Connection) SetState(s ConnState) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Session returns the owning session, or nil before login completes.
func (c *Connection) Session() *Session {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.session
}

// NextStatSN returns the next StatSN to stamp on a status-bearing response
// and advances the counter. StatSN is connection-scoped and monotonic
// whether the response is emitted from the RX/dispatch loop or from an
// asynchronous NopIn timer goroutine.
func (c *Connection) NextStatSN() uint32 {
	return c.statSN.Add(1) - 1
}

// ArmNopInTimer installs the connection's keep-alive timer, replacing any
// previous one. Called once a login completes and the negotiated interval
// is known.
func (c *Connection) ArmNopInTimer(t *NopInTimer) {
	c.stateMu.Lock()
	prev := c.nopIn
	c.nopIn = t
	c.stateMu.Unlock()
	prev.Stop()
}

// Serve runs the connection's RX loop until the transport closes or ctx is
// cancelled. Each inbound Message is handed to the dispatcher; the
// resulting Outbound PDUs are written back serialized through sendMu so a
// backend-driven async event (e.g. NopIn) can interleave safely with
// normal command responses.
func (c *Connection) Serve(ctx context.Context) error {
	defer c.Close()

	release := c.Affinity.Apply(c.CID)
	defer release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := wire.ReadMessage(c.Conn, c.HeaderDigest, c.DataDigest)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		result, err := c.dispatcher.Dispatch(ctx, c, msg)
		msg.Release()
		if err != nil {
			logger.Error("dispatch failed", logger.CID(c.CID), logger.Err(err))
			return err
		}

		for _, out := range result.Responses {
			if err := c.Send(out.Header, out.Data); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
		}

		if result.CloseAfterTX {
			return nil
		}
	}
}

// Send writes one PDU to the transport. Safe for concurrent use alongside
// the RX/dispatch loop so async target-initiated PDUs (NopIn, AsyncMsg) can
// be sent without racing command responses.
func (c *Connection) Send(h *pdu.BHS, data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return wire.WriteMessage(c.Conn, h, data, c.HeaderDigest, c.DataDigest)
}

// Close shuts down the transport exactly once and detaches from the
// session, if attached.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.SetState(ConnClosed)
		c.stateMu.Lock()
		c.nopIn.Stop()
		c.stateMu.Unlock()
		c.errOnce = c.Conn.Close()
		if s := c.Session(); s != nil {
			s.RemoveConnection(c.CID)
		}
	})
	return c.errOnce
}
