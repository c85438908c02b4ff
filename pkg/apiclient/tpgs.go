package apiclient

// TPG is a target portal group belonging to a target.
type TPG struct {
	ID      uint   `json:"id"`
	Tag     uint16 `json:"tag"`
	Enabled bool   `json:"enabled"`
}

// CreateTPGRequest is the request body for CreateTPG.
type CreateTPGRequest struct {
	Tag uint16 `json:"tag"`
}

// CreateTPG adds a TPG to a target (add_tpg).
func (c *Client) CreateTPG(targetIQN string, tag uint16) (*TPG, error) {
	return createResource[TPG](c, resourcePath("/api/v1/targets/%s/tpgs", targetIQN), CreateTPGRequest{Tag: tag})
}

// ListTPGs lists the TPGs belonging to a target.
func (c *Client) ListTPGs(targetIQN string) ([]TPG, error) {
	return listResources[TPG](c, resourcePath("/api/v1/targets/%s/tpgs", targetIQN))
}

type enableTPGRequest struct {
	Enabled bool `json:"enabled"`
}

// EnableTPG enables or disables a TPG (enable_tpg).
func (c *Client) EnableTPG(tpgID uint, enabled bool) error {
	return c.put(resourcePath("/api/v1/tpgs/%d/enable", tpgID), enableTPGRequest{Enabled: enabled}, nil)
}

// DeleteTPG removes a TPG (del_tpg).
func (c *Client) DeleteTPG(tpgID uint) error {
	return deleteResource(c, resourcePath("/api/v1/tpgs/%d", tpgID))
}
