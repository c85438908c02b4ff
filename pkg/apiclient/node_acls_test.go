package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNodeACL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/tpgs/1/node-acls", r.URL.Path)

		var req SetNodeACLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "iqn.2026-01.com.example:initiator0", req.InitiatorIQN)

		_ = json.NewEncoder(w).Encode(NodeACL{
			InitiatorIQN: req.InitiatorIQN,
			AuthRequired: req.AuthRequired,
			LUNMap:       req.LUNMap,
			CmdSNWindow:  req.CmdSNWindow,
		})
	}))
	defer server.Close()

	client := New(server.URL)
	acl, err := client.SetNodeACL(1, SetNodeACLRequest{
		InitiatorIQN: "iqn.2026-01.com.example:initiator0",
		AuthRequired: true,
		LUNMap:       "0:0",
		CmdSNWindow:  32,
	})
	require.NoError(t, err)
	assert.True(t, acl.AuthRequired)
	assert.EqualValues(t, 32, acl.CmdSNWindow)
}

func TestListNodeACLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tpgs/1/node-acls", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]NodeACL{{InitiatorIQN: "iqn.2026-01.com.example:initiator0"}})
	}))
	defer server.Close()

	client := New(server.URL)
	acls, err := client.ListNodeACLs(1)
	require.NoError(t, err)
	require.Len(t, acls, 1)
}

func TestDeleteNodeACL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/tpgs/1/node-acls", r.URL.Path)
		assert.Equal(t, "iqn.2026-01.com.example:initiator0", r.URL.Query().Get("initiator_iqn"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.DeleteNodeACL(1, "iqn.2026-01.com.example:initiator0")
	require.NoError(t, err)
}
