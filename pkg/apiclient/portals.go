package apiclient

import "net/url"

// Portal is a listening address bound to a TPG.
type Portal struct {
	ID              uint   `json:"id"`
	Address         string `json:"address"`
	Port            int    `json:"port"`
	Transport       string `json:"transport"`
	ExternalAddress string `json:"external_address,omitempty"`
	ExternalPort    int    `json:"external_port,omitempty"`
}

// AddPortalRequest is the request body for AddPortal.
type AddPortalRequest struct {
	Address         string `json:"address"`
	Port            int    `json:"port"`
	Transport       string `json:"transport,omitempty"`
	ExternalAddress string `json:"external_address,omitempty"`
	ExternalPort    int    `json:"external_port,omitempty"`
}

// AddPortal binds a new portal to a TPG (add_portal).
func (c *Client) AddPortal(tpgID uint, req AddPortalRequest) (*Portal, error) {
	return createResource[Portal](c, resourcePath("/api/v1/tpgs/%d/portals", tpgID), req)
}

// ListPortals lists the portals bound to a TPG.
func (c *Client) ListPortals(tpgID uint) ([]Portal, error) {
	return listResources[Portal](c, resourcePath("/api/v1/tpgs/%d/portals", tpgID))
}

// DeletePortal removes a portal by address from a TPG (del_portal).
func (c *Client) DeletePortal(tpgID uint, address string) error {
	path := resourcePath("/api/v1/tpgs/%d/portals?%s", tpgID, url.Values{"address": {address}}.Encode())
	return deleteResource(c, path)
}
