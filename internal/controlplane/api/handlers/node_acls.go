package handlers

import (
	"net/http"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
	"github.com/marmos91/iscsitgt/internal/controlplane/store"
)

// NodeACLHandler exposes set_node_acl over HTTP.
type NodeACLHandler struct {
	store store.Store
}

// NewNodeACLHandler creates a node ACL handler.
func NewNodeACLHandler(s store.Store) *NodeACLHandler {
	return &NodeACLHandler{store: s}
}

type setNodeACLRequest struct {
	InitiatorIQN string `json:"initiator_iqn"`
	AuthRequired bool   `json:"auth_required"`
	LUNMap       string `json:"lun_map"`
	CmdSNWindow  uint32 `json:"cmdsn_window"`
}

type nodeACLResponse struct {
	InitiatorIQN string `json:"initiator_iqn"`
	AuthRequired bool   `json:"auth_required"`
	LUNMap       string `json:"lun_map"`
	CmdSNWindow  uint32 `json:"cmdsn_window"`
}

// Set handles PUT /api/v1/tpgs/{id}/node-acls (set_node_acl).
func (h *NodeACLHandler) Set(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req setNodeACLRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.InitiatorIQN == "" {
		BadRequest(w, "initiator_iqn is required")
		return
	}

	acl := &models.NodeACL{
		TPGID:        tpgID,
		InitiatorIQN: req.InitiatorIQN,
		AuthRequired: req.AuthRequired,
		LUNMap:       req.LUNMap,
		CmdSNWindow:  req.CmdSNWindow,
	}
	if err := h.store.SetNodeACL(r.Context(), acl); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteJSONOK(w, nodeACLResponse{
		InitiatorIQN: acl.InitiatorIQN, AuthRequired: acl.AuthRequired,
		LUNMap: acl.LUNMap, CmdSNWindow: acl.CmdSNWindow,
	})
}

// List handles GET /api/v1/tpgs/{id}/node-acls.
func (h *NodeACLHandler) List(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	acls, err := h.store.ListNodeACLs(r.Context(), tpgID)
	if err != nil {
		HandleStoreError(w, err)
		return
	}

	resp := make([]nodeACLResponse, 0, len(acls))
	for _, a := range acls {
		resp = append(resp, nodeACLResponse{
			InitiatorIQN: a.InitiatorIQN, AuthRequired: a.AuthRequired,
			LUNMap: a.LUNMap, CmdSNWindow: a.CmdSNWindow,
		})
	}
	WriteJSONOK(w, resp)
}

// Delete handles DELETE /api/v1/tpgs/{id}/node-acls?initiator_iqn=....
func (h *NodeACLHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tpgID, err := parseTPGID(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	iqn := r.URL.Query().Get("initiator_iqn")
	if iqn == "" {
		BadRequest(w, "initiator_iqn query parameter is required")
		return
	}

	if err := h.store.DeleteNodeACL(r.Context(), tpgID, iqn); err != nil {
		HandleStoreError(w, err)
		return
	}

	WriteNoContent(w)
}
