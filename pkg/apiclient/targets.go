package apiclient

// Target is a registered iSCSI target name (IQN).
type Target struct {
	IQN  string `json:"iqn"`
	TPGs int    `json:"tpg_count"`
}

// CreateTargetRequest is the request body for CreateTarget.
type CreateTargetRequest struct {
	IQN string `json:"iqn"`
}

// CreateTarget registers a new target (add_target).
func (c *Client) CreateTarget(iqn string) (*Target, error) {
	return createResource[Target](c, "/api/v1/targets", CreateTargetRequest{IQN: iqn})
}

// ListTargets lists all registered targets.
func (c *Client) ListTargets() ([]Target, error) {
	return listResources[Target](c, "/api/v1/targets")
}

// GetTarget fetches a single target by IQN.
func (c *Client) GetTarget(iqn string) (*Target, error) {
	return getResource[Target](c, resourcePath("/api/v1/targets/%s", iqn))
}

// DeleteTarget removes a target (del_target).
func (c *Client) DeleteTarget(iqn string) error {
	return deleteResource(c, resourcePath("/api/v1/targets/%s", iqn))
}
