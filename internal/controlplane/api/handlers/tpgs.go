package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/iscsitgt/internal/controlplane/store"
)

// TPGHandler exposes add_tpg/enable_tpg/del_tpg over HTTP.
type TPGHandler struct {
	store store.Store
}

// NewTPGHandler creates a TPG handler.
func NewTPGHandler(s store.Store) *TPGHandler {
	return &TPGHandler{store: s}
}

type createTPGRequest struct {
	Tag uint16 `json:"tag"`
}

type tpgResponse struct {
	ID      uint   `json:"id"`
	Tag     uint16 `json:"tag"`
	Enabled bool   `json:"enabled"`
}

// Create handles POST /api/v1/targets/{iqn}/tpgs (add_tpg).
func (h *TPGHandler) Create(w http.ResponseWriter, r *http.Request) {
	iqn := chi.URLParam(r, "iqn")

	var req createTPGRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	tpg, err := h.store.CreateTPG(r.Context(), iqn, req.Tag)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONCreated(w, tpgResponse{ID: tpg.ID, Tag: tpg.Tag, Enabled: tpg.Enabled})
}

// List handles GET /api/v1/targets/{iqn}/tpgs.
func (h *TPGHandler) List(w http.ResponseWriter, r *http.Request) {
	iqn := chi.URLParam(r, "iqn")

	tpgs, err := h.store.ListTPGs(r.Context(), iqn)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	resp := make([]tpgResponse, 0, len(tpgs))
	for _, t := range tpgs {
		resp = append(resp, tpgResponse{ID: t.ID, Tag: t.Tag, Enabled: t.Enabled})
	}
	WriteJSONOK(w, resp)
}

type enableTPGRequest struct {
	Enabled bool `json:"enabled"`
}

// Enable handles PUT /api/v1/tpgs/{id}/enable (enable_tpg).
func (h *TPGHandler) Enable(w http.ResponseWriter, r *http.Request) {
	id, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req enableTPGRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.store.EnableTPG(r.Context(), id, req.Enabled); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}

// Delete handles DELETE /api/v1/tpgs/{id} (del_tpg).
func (h *TPGHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.store.DeleteTPG(r.Context(), id); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}

func parseTPGID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
