package apiclient

import "time"

// SessionSummary describes one live session.
type SessionSummary struct {
	Key                string
	InitiatorName      string
	TSIH               uint16
	State              int
	ConnectionCount    int
	ErrorRecoveryLevel int
}

// SessionStats is a snapshot of process-wide session counters.
type SessionStats struct {
	ActiveSessions     int
	LoginAttempts      uint64
	LoginSuccess       uint64
	LoginFailure       uint64
	HeaderDigestErrors uint64
	DataDigestErrors   uint64
	SampledAt          time.Time
}

// ConnectionSummary describes one connection within a session.
type ConnectionSummary struct {
	SessionKey string
	CID        uint16
	State      int
}

// AuditEvent is one recorded history entry for a session.
type AuditEvent struct {
	ID           string
	Timestamp    time.Time
	Kind         string
	SessionKey   string
	TargetIQN    string
	InitiatorIQN string
	CID          uint16
	Reason       string
	Detail       string
}

// ListSessions lists every live session (list_sessions).
func (c *Client) ListSessions() ([]SessionSummary, error) {
	return listResources[SessionSummary](c, "/api/v1/sessions")
}

// SessionStats returns process-wide session counters.
func (c *Client) SessionStats() (*SessionStats, error) {
	return getResource[SessionStats](c, "/api/v1/sessions/stats")
}

// ConnectionStats returns every connection across every live session.
func (c *Client) ConnectionStats() ([]ConnectionSummary, error) {
	return listResources[ConnectionSummary](c, "/api/v1/connections/stats")
}

// SessionHistory returns recent audit events for one session key
// (format "isid:tsih"), most recent first, capped at limit.
func (c *Client) SessionHistory(key string, limit int) ([]AuditEvent, error) {
	path := resourcePath("/api/v1/sessions/%s/history", key)
	if limit > 0 {
		path = resourcePath("%s?limit=%d", path, limit)
	}
	return listResources[AuditEvent](c, path)
}

// ForceOfflineRequest is the request body for ForceOffline.
type ForceOfflineRequest struct {
	CID    uint16 `json:"cid"`
	Reason string `json:"reason,omitempty"`
}

// ForceOffline closes one connection of a live session, driving it through
// the normal connection-loss recovery path (force_channel_offline).
func (c *Client) ForceOffline(key string, cid uint16, reason string) error {
	return c.post(resourcePath("/api/v1/sessions/%s/offline", key), ForceOfflineRequest{CID: cid, Reason: reason}, nil)
}
