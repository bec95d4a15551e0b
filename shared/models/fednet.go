package models

// FedNetStatus is the link state of a federated network.
type FedNetStatus string

const (
	FedNetUnlinked FedNetStatus = "unlinked"
	FedNetLinked   FedNetStatus = "linked"

	// FedNetLink is only valid in update requests and triggers the link
	// transition. It is never stored.
	FedNetLink FedNetStatus = "link"
)

// FedNet is a federated network spanning segments hosted at several sites.
type FedNet struct {
	ID       uint64       `json:"id"`
	Owner    string       `json:"owner"`
	Name     string       `json:"name"`
	Status   FedNetStatus `json:"status"`
	LinkType string       `json:"linktype"`
	Topology string       `json:"topology"`
	Type     string       `json:"type"`

	// Computed fields
	NetSegments []NetSegment `json:"netsegments,omitempty"`
}

// FedNetPatch holds the mutable fields of a federated network.
type FedNetPatch struct {
	Name     *string       `json:"name,omitempty"`
	Status   *FedNetStatus `json:"status,omitempty"`
	LinkType *string       `json:"linktype,omitempty"`
	Topology *string       `json:"topology,omitempty"`
	Type     *string       `json:"type,omitempty"`
}
