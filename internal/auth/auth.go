// Package auth defines the pluggable authentication surface the Login
// state machine calls into during the Security negotiation stage, plus a
// registry dispatching by negotiated AuthMethod.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/marmos91/iscsitgt/internal/paramlist"
)

// ErrUnsupportedMechanism is returned when no registered mechanism can
// handle the negotiated AuthMethod.
var ErrUnsupportedMechanism = errors.New("unsupported authentication mechanism")

// Mechanism authenticates one login attempt against the text keys
// exchanged during the Security stage. It satisfies login.AuthProvider.
type Mechanism interface {
	// Name is the RFC 3720 AuthMethod token this mechanism answers to
	// ("None", "CHAP").
	Name() string

	// Authenticate inspects and/or populates CHAP_* (or future mechanism)
	// keys on pl, returning a non-nil error on failure.
	Authenticate(pl *paramlist.ParamList) error
}

// Registry dispatches Authenticate calls to the Mechanism matching the
// initiator's negotiated AuthMethod key.
type Registry struct {
	mu         sync.RWMutex
	mechanisms map[string]Mechanism
}

// NewRegistry creates an empty mechanism registry.
func NewRegistry() *Registry {
	return &Registry{mechanisms: make(map[string]Mechanism)}
}

// Register adds a mechanism, keyed by its Name().
func (r *Registry) Register(m Mechanism) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mechanisms[m.Name()] = m
}

// AuthMethodKey is the RFC 3720 Security-stage text key whose resolved
// value selects which registered Mechanism handles the login attempt.
const AuthMethodKey = "AuthMethod"

// ByMethod looks up the mechanism for authMethod and runs it.
func (r *Registry) ByMethod(authMethod string, pl *paramlist.ParamList) error {
	r.mu.RLock()
	m, ok := r.mechanisms[authMethod]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedMechanism, authMethod)
	}
	return m.Authenticate(pl)
}

// Provider adapts a Registry to login.AuthProvider's single-argument
// Authenticate signature by reading the already-resolved AuthMethod key
// off the ParamList.
type Provider struct {
	Registry *Registry
}

// Authenticate implements login.AuthProvider.
func (p Provider) Authenticate(pl *paramlist.ParamList) error {
	return p.Registry.ByMethod(pl.Value(AuthMethodKey), pl)
}

// None is the no-op mechanism used when Security-stage negotiation
// settles on AuthMethod=None.
type None struct{}

func (None) Name() string { return "None" }

func (None) Authenticate(pl *paramlist.ParamList) error { return nil }

var _ Mechanism = None{}
