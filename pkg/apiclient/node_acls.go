package apiclient

import "net/url"

// NodeACL grants one initiator access to a TPG.
type NodeACL struct {
	InitiatorIQN string `json:"initiator_iqn"`
	AuthRequired bool   `json:"auth_required"`
	LUNMap       string `json:"lun_map"`
	CmdSNWindow  uint32 `json:"cmdsn_window"`
}

// SetNodeACLRequest is the request body for SetNodeACL.
type SetNodeACLRequest struct {
	InitiatorIQN string `json:"initiator_iqn"`
	AuthRequired bool   `json:"auth_required"`
	LUNMap       string `json:"lun_map"`
	CmdSNWindow  uint32 `json:"cmdsn_window"`
}

// SetNodeACL creates or updates a node ACL on a TPG (set_node_acl).
func (c *Client) SetNodeACL(tpgID uint, req SetNodeACLRequest) (*NodeACL, error) {
	return updateResource[NodeACL](c, resourcePath("/api/v1/tpgs/%d/node-acls", tpgID), req)
}

// ListNodeACLs lists the node ACLs on a TPG.
func (c *Client) ListNodeACLs(tpgID uint) ([]NodeACL, error) {
	return listResources[NodeACL](c, resourcePath("/api/v1/tpgs/%d/node-acls", tpgID))
}

// DeleteNodeACL removes an initiator's ACL from a TPG.
func (c *Client) DeleteNodeACL(tpgID uint, initiatorIQN string) error {
	path := resourcePath("/api/v1/tpgs/%d/node-acls?%s", tpgID, url.Values{"initiator_iqn": {initiatorIQN}}.Encode())
	return deleteResource(c, path)
}
