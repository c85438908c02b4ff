package apiclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/targets", r.URL.Path)

		var req CreateTargetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "iqn.2026-01.com.example:target0", req.IQN)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Target{IQN: req.IQN, TPGs: 0})
	}))
	defer server.Close()

	client := New(server.URL)
	target, err := client.CreateTarget("iqn.2026-01.com.example:target0")
	require.NoError(t, err)
	assert.Equal(t, "iqn.2026-01.com.example:target0", target.IQN)
	assert.Equal(t, 0, target.TPGs)
}

func TestListTargets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/targets", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Target{
			{IQN: "iqn.2026-01.com.example:target0", TPGs: 1},
			{IQN: "iqn.2026-01.com.example:target1", TPGs: 2},
		})
	}))
	defer server.Close()

	client := New(server.URL)
	targets, err := client.ListTargets()
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, "iqn.2026-01.com.example:target0", targets[0].IQN)
}

func TestGetTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/targets/iqn.2026-01.com.example:target0", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Target{IQN: "iqn.2026-01.com.example:target0", TPGs: 3})
	}))
	defer server.Close()

	client := New(server.URL)
	target, err := client.GetTarget("iqn.2026-01.com.example:target0")
	require.NoError(t, err)
	assert.Equal(t, 3, target.TPGs)
}

func TestDeleteTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/targets/iqn.2026-01.com.example:target0", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.DeleteTarget("iqn.2026-01.com.example:target0")
	require.NoError(t, err)
}

func TestDeleteTarget_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(APIError{Title: "Not Found", Detail: "target does not exist"})
	}))
	defer server.Close()

	client := New(server.URL)
	err := client.DeleteTarget("iqn.2026-01.com.example:ghost")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}
