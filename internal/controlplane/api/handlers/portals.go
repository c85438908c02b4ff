package handlers

import (
	"net/http"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
	"github.com/marmos91/iscsitgt/internal/controlplane/store"
)

// PortalHandler exposes add_portal/del_portal over HTTP.
type PortalHandler struct {
	store store.Store
}

// NewPortalHandler creates a portal handler.
func NewPortalHandler(s store.Store) *PortalHandler {
	return &PortalHandler{store: s}
}

type addPortalRequest struct {
	Address         string `json:"address"`
	Port            int    `json:"port"`
	Transport       string `json:"transport,omitempty"`
	ExternalAddress string `json:"external_address,omitempty"`
	ExternalPort    int    `json:"external_port,omitempty"`
}

type portalResponse struct {
	ID              uint   `json:"id"`
	Address         string `json:"address"`
	Port            int    `json:"port"`
	Transport       string `json:"transport"`
	ExternalAddress string `json:"external_address,omitempty"`
	ExternalPort    int    `json:"external_port,omitempty"`
}

// Create handles POST /api/v1/tpgs/{id}/portals (add_portal).
func (h *PortalHandler) Create(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req addPortalRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Address == "" || req.Port == 0 {
		BadRequest(w, "address and port are required")
		return
	}

	p := &models.Portal{
		TPGID:           tpgID,
		Address:         req.Address,
		Port:            req.Port,
		Transport:       req.Transport,
		ExternalAddress: req.ExternalAddress,
		ExternalPort:    req.ExternalPort,
	}
	if err := h.store.AddPortal(r.Context(), p); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONCreated(w, portalResponse{
		ID: p.ID, Address: p.Address, Port: p.Port, Transport: p.Transport,
		ExternalAddress: p.ExternalAddress, ExternalPort: p.ExternalPort,
	})
}

// List handles GET /api/v1/tpgs/{id}/portals.
func (h *PortalHandler) List(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	portals, err := h.store.ListPortals(r.Context(), tpgID)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	resp := make([]portalResponse, 0, len(portals))
	for _, p := range portals {
		resp = append(resp, portalResponse{
			ID: p.ID, Address: p.Address, Port: p.Port, Transport: p.Transport,
			ExternalAddress: p.ExternalAddress, ExternalPort: p.ExternalPort,
		})
	}
	WriteJSONOK(w, resp)
}

// Delete handles DELETE /api/v1/tpgs/{id}/portals?address=... (del_portal).
func (h *PortalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		BadRequest(w, "address query parameter is required")
		return
	}

	if err := h.store.DeletePortal(r.Context(), tpgID, address); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}
