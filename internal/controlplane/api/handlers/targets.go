package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/iscsitgt/internal/controlplane/store"
)

// TargetHandler exposes add_target/del_target/list over HTTP.
type TargetHandler struct {
	store store.Store
}

// NewTargetHandler creates a target handler.
func NewTargetHandler(s store.Store) *TargetHandler {
	return &TargetHandler{store: s}
}

type createTargetRequest struct {
	IQN string `json:"iqn"`
}

type targetResponse struct {
	IQN  string `json:"iqn"`
	TPGs int    `json:"tpg_count"`
}

// Create handles POST /api/v1/targets (add_target).
func (h *TargetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTargetRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.IQN == "" {
		BadRequest(w, "iqn is required")
		return
	}

	if err := h.store.CreateTarget(r.Context(), req.IQN); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONCreated(w, targetResponse{IQN: req.IQN})
}

// List handles GET /api/v1/targets.
func (h *TargetHandler) List(w http.ResponseWriter, r *http.Request) {
	targets, err := h.store.ListTargets(r.Context())
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	resp := make([]targetResponse, 0, len(targets))
	for _, t := range targets {
		resp = append(resp, targetResponse{IQN: t.IQN, TPGs: len(t.TPGs)})
	}
	WriteJSONOK(w, resp)
}

// Get handles GET /api/v1/targets/{iqn}.
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	iqn := chi.URLParam(r, "iqn")

	target, err := h.store.GetTarget(r.Context(), iqn)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONOK(w, targetResponse{IQN: target.IQN, TPGs: len(target.TPGs)})
}

// Delete handles DELETE /api/v1/targets/{iqn} (del_target).
func (h *TargetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	iqn := chi.URLParam(r, "iqn")

	if err := h.store.DeleteTarget(r.Context(), iqn); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}
