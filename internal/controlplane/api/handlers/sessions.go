package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/iscsitgt/internal/controlplane/audit"
	"github.com/marmos91/iscsitgt/internal/target/session"
)

// SessionHandler exposes the read-only session/connection query surface
// (list_sessions, session_stats, connection_stats, digest_errors,
// login_stats) plus force_channel_offline.
type SessionHandler struct {
	sessions *session.Registry
	audit    *audit.Log
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions *session.Registry, auditLog *audit.Log) *SessionHandler {
	return &SessionHandler{sessions: sessions, audit: auditLog}
}

// List handles GET /api/v1/sessions (list_sessions).
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.sessions.List())
}

// Stats handles GET /api/v1/sessions/stats (session_stats, login_stats,
// digest_errors -- all sourced from the same counters).
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.sessions.Stats())
}

// ConnectionStats handles GET /api/v1/connections/stats (connection_stats).
func (h *SessionHandler) ConnectionStats(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.sessions.ConnectionStats())
}

// History handles GET /api/v1/sessions/{key}/history, returning recent
// audit events for one session key (format "isid:tsih").
func (h *SessionHandler) History(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		BadRequest(w, "session key is required")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.audit.Recent(r.Context(), key, limit)
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	WriteJSONOK(w, events)
}

type forceOfflineRequest struct {
	CID    uint16 `json:"cid"`
	Reason string `json:"reason,omitempty"`
}

// ForceOffline handles POST /api/v1/sessions/{key}/offline
// (force_channel_offline): closes one connection of a live session,
// driving it through the normal connection-loss recovery path.
func (h *SessionHandler) ForceOffline(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req forceOfflineRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	sess, ok := h.sessions.Get(key)
	if !ok {
		NotFound(w, "session not found")
		return
	}

	conn := sess.Connection(req.CID)
	if conn == nil {
		NotFound(w, "connection not found on session")
		return
	}

	if err := conn.Close(); err != nil {
		InternalServerError(w, err.Error())
		return
	}

	if h.audit != nil {
		_ = h.audit.Record(r.Context(), audit.Event{
			Kind:       audit.EventChannelOffline,
			SessionKey: key,
			CID:        req.CID,
			Reason:     req.Reason,
		})
	}

	WriteNoContent(w)
}
