package apiclient

// SetTPGParamRequest is the request body for SetTPGParam.
type SetTPGParamRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetTPGParam sets a text-mode negotiation parameter on a TPG
// (set_tpg_param). Accepted keys mirror the negotiated session
// parameters: MaxConnections, InitialR2T, ImmediateData,
// MaxBurstLength, FirstBurstLength, MaxOutstandingR2T,
// DataPDUInOrder, DataSequenceInOrder, ErrorRecoveryLevel.
func (c *Client) SetTPGParam(tpgID uint, key, value string) error {
	return c.put(resourcePath("/api/v1/tpgs/%d/params", tpgID), SetTPGParamRequest{Key: key, Value: value}, nil)
}

// ListTPGParams returns all negotiation parameters set on a TPG.
func (c *Client) ListTPGParams(tpgID uint) (map[string]string, error) {
	var result map[string]string
	if err := c.get(resourcePath("/api/v1/tpgs/%d/params", tpgID), &result); err != nil {
		return nil, err
	}
	return result, nil
}
