package handlers

import (
	"net/http"

	"github.com/marmos91/iscsitgt/internal/controlplane/store"
)

// TPGParamHandler exposes set_tpg_param over HTTP.
type TPGParamHandler struct {
	store store.Store
}

// NewTPGParamHandler creates a TPG-parameter handler.
func NewTPGParamHandler(s store.Store) *TPGParamHandler {
	return &TPGParamHandler{store: s}
}

type setTPGParamRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Set handles PUT /api/v1/tpgs/{id}/params (set_tpg_param). Accepted keys
// mirror the text-mode negotiation parameters: MaxConnections,
// InitialR2T, ImmediateData, MaxBurstLength, FirstBurstLength,
// MaxOutstandingR2T, DataPDUInOrder, DataSequenceInOrder, ErrorRecoveryLevel.
func (h *TPGParamHandler) Set(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req setTPGParamRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		BadRequest(w, "key is required")
		return
	}

	if err := h.store.SetTPGParam(r.Context(), tpgID, req.Key, req.Value); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}

// List handles GET /api/v1/tpgs/{id}/params.
func (h *TPGParamHandler) List(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	params, err := h.store.ListTPGParams(r.Context(), tpgID)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	resp := make(map[string]string, len(params))
	for _, p := range params {
		resp[p.Key] = p.Value
	}
	WriteJSONOK(w, resp)
}
