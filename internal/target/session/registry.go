package session

import (
	"sort"
	"sync"
	"time"

	"github.com/marmos91/iscsitgt/internal/login"
)

// Registry is the process-wide table of live sessions, keyed by the string
// form of (ISID, TSIH). It is the single source of truth the control plane
// queries for listing sessions and reporting session/connection/digest/
// login counters.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	loginAttempts uint64
	loginSuccess  uint64
	loginFailure  uint64
	headerDigestErrors uint64
	dataDigestErrors   uint64
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its Key().
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Key()] = s
}

// Remove unregisters a session by key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}

// Get looks up a session by key.
func (r *Registry) Get(key string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// GetByTSIH looks up a session by its TSIH alone, used once a Login PDU
// names an existing session rather than a fresh (ISID, InitiatorName) pair.
func (r *Registry) GetByTSIH(tsih uint16) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.TSIH == tsih {
			return s, true
		}
	}
	return nil, false
}

// FindByIdentity implements login.SessionLookup: it reports the TSIH of any
// session matching (isid, initiatorName, sessionType), for leading-login
// reinstatement detection.
func (r *Registry) FindByIdentity(isid [6]byte, initiatorName string, sessionType login.SessionType) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.ISID == isid && s.InitiatorName == initiatorName && s.Options.SessionType == int(sessionType) {
			return s.TSIH, true
		}
	}
	return 0, false
}

// FindByTSIH implements login.SessionLookup.
func (r *Registry) FindByTSIH(tsih uint16) bool {
	_, ok := r.GetByTSIH(tsih)
	return ok
}

// HasConnection implements login.SessionLookup.
func (r *Registry) HasConnection(tsih uint16, cid uint16) bool {
	s, ok := r.GetByTSIH(tsih)
	if !ok {
		return false
	}
	return s.HasConnection(cid)
}

// ConnectionCount implements login.SessionLookup.
func (r *Registry) ConnectionCount(tsih uint16) int {
	s, ok := r.GetByTSIH(tsih)
	if !ok {
		return 0
	}
	return s.ConnectionCount()
}

// RecordLogin tallies a completed login attempt for login_stats.
func (r *Registry) RecordLogin(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loginAttempts++
	if success {
		r.loginSuccess++
	} else {
		r.loginFailure++
	}
}

// RecordDigestError tallies a header or data digest failure for the
// digest_errors query.
func (r *Registry) RecordDigestError(header bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if header {
		r.headerDigestErrors++
	} else {
		r.dataDigestErrors++
	}
}

// Summary is one row of the list_sessions query.
type Summary struct {
	Key            string
	InitiatorName  string
	TSIH           uint16
	State          State
	ConnectionCount int
	ErrorRecoveryLevel int
}

// List returns a stable-ordered snapshot of every live session.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, Summary{
			Key:                s.Key(),
			InitiatorName:      s.InitiatorName,
			TSIH:               s.TSIH,
			State:              s.State(),
			ConnectionCount:    s.ConnectionCount(),
			ErrorRecoveryLevel: int(s.Options.ErrorRecoveryLevel),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats is the process-wide counter snapshot for session_stats.
type Stats struct {
	ActiveSessions     int
	LoginAttempts      uint64
	LoginSuccess       uint64
	LoginFailure       uint64
	HeaderDigestErrors uint64
	DataDigestErrors   uint64
	SampledAt          time.Time
}

// Stats returns a snapshot of process-wide session counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		ActiveSessions:     len(r.sessions),
		LoginAttempts:      r.loginAttempts,
		LoginSuccess:       r.loginSuccess,
		LoginFailure:       r.loginFailure,
		HeaderDigestErrors: r.headerDigestErrors,
		DataDigestErrors:   r.dataDigestErrors,
	}
}

// ConnectionSummary is one row of the connection_stats query.
type ConnectionSummary struct {
	SessionKey string
	CID        uint16
	State      ConnState
}

// ConnectionStats returns every connection across every live session.
func (r *Registry) ConnectionStats() []ConnectionSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ConnectionSummary, 0)
	for _, s := range r.sessions {
		s.mu.Lock()
		for cid, c := range s.connections {
			out = append(out, ConnectionSummary{SessionKey: s.Key(), CID: cid, State: c.State()})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionKey != out[j].SessionKey {
			return out[i].SessionKey < out[j].SessionKey
		}
		return out[i].CID < out[j].CID
	})
	return out
}
