package models

// NetSegment is a network slice provisioned at one site and attached to one
// federated network.
type NetSegment struct {
	ID             uint64 `json:"id"`
	Owner          string `json:"owner"`
	Name           string `json:"name"`
	FAEndpoint     string `json:"fa_endpoint"`
	NetworkAddress string `json:"network_address"`
	NetworkMask    string `json:"network_mask"`
	Size           string `json:"size"`
	VlanID         string `json:"vlan_id"`
	CMPNetID       string `json:"cmp_net_id"`

	// CMPBlob is the descriptor returned by add_networksegment. It is opaque
	// here and echoed back to the link adapter.
	CMPBlob string `json:"cmp_blob"`

	FedNetID uint64 `json:"fednet_id"`
	SiteID   uint64 `json:"site_id"`
}

// NetSegmentPatch holds the mutable fields of a network segment. The
// descriptor and the (fednet, site) scope cannot be changed.
type NetSegmentPatch struct {
	Name           *string `json:"name,omitempty"`
	FAEndpoint     *string `json:"fa_endpoint,omitempty"`
	NetworkAddress *string `json:"network_address,omitempty"`
	NetworkMask    *string `json:"network_mask,omitempty"`
	Size           *string `json:"size,omitempty"`
	VlanID         *string `json:"vlan_id,omitempty"`
	CMPNetID       *string `json:"cmp_net_id,omitempty"`
}
