package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]SessionSummary{
			{Key: "isid1:tsih1", InitiatorName: "iqn.2026-01.com.example:initiator0", TSIH: 1, State: 3, ConnectionCount: 1},
		})
	}))
	defer server.Close()

	client := New(server.URL)
	sessions, err := client.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "isid1:tsih1", sessions[0].Key)
	assert.Equal(t, 3, sessions[0].State)
}

func TestSessionStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode(SessionStats{ActiveSessions: 2, LoginSuccess: 10})
	}))
	defer server.Close()

	client := New(server.URL)
	stats, err := client.SessionStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.EqualValues(t, 10, stats.LoginSuccess)
}

func TestConnectionStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/connections/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]ConnectionSummary{{SessionKey: "isid1:tsih1", CID: 0, State: 2}})
	}))
	defer server.Close()

	client := New(server.URL)
	conns, err := client.ConnectionStats()
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.EqualValues(t, 0, conns[0].CID)
}

func TestSessionHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions/isid1:tsih1/history", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]AuditEvent{{ID: "ev1", Kind: "login_success", SessionKey: "isid1:tsih1"}})
	}))
	defer server.Close()

	client := New(server.URL)
	events, err := client.SessionHistory("isid1:tsih1", 50)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "login_success", events[0].Kind)
}

func TestForceOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/sessions/isid1:tsih1/offline", r.URL.Path)

		var req ForceOfflineRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 0, req.CID)
		assert.Equal(t, "maintenance", req.Reason)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.ForceOffline("isid1:tsih1", 0, "maintenance")
	require.NoError(t, err)
}
