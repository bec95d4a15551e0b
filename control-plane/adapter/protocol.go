package adapter

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation names an adapter executable inside a site kind directory.
type Operation string

const (
	OpValidateUser      Operation = "validate_user"
	OpAddNetworkSegment Operation = "add_networksegment"
	OpLink              Operation = "link"
)

// ValidateUserRequest asks a site to confirm a tenant's credentials.
type ValidateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CMPEndpoint string `json:"cmp_endpoint"`
}

// ValidateUserResponse carries the tenant's standing identity at the site.
type ValidateUserResponse struct {
	ReturnCode int    `json:"returncode"`
	Token      string `json:"token"`
	TenantID   Scalar `json:"tenant_id"`
	ErrorMsg   string `json:"errormsg"`
}

// AddNetworkSegmentRequest asks a site to describe one of its networks.
type AddNetworkSegmentRequest struct {
	NetworkSegmentID string `json:"network_segment_id"`
	CMPEndpoint      string `json:"cmp_endpoint"`
	Token            string `json:"token"`
}

// AddNetworkSegmentResponse holds the network descriptor of the segment.
// NetworkInfo is opaque and kept as raw JSON.
type AddNetworkSegmentResponse struct {
	ReturnCode  int             `json:"returncode"`
	NetworkInfo json.RawMessage `json:"network_info"`
	ErrorMsg    string          `json:"errormsg"`
}

// NetworkDescriptor describes one member segment to the link adapter.
type NetworkDescriptor struct {
	Name     string `json:"name"`
	VNID     string `json:"vnid"`
	Site     string `json:"site"`
	TenantID string `json:"tenant_id"`
	CMPBlob  string `json:"cmp_blob"`
}

// LinkRequest asks the adapters of one site kind to connect the segments
// of a federated network.
type LinkRequest struct {
	Type         string              `json:"type"`
	Token        string              `json:"token"`
	FAEndpoints  []string            `json:"fa_endpoints"`
	NetworkTable []NetworkDescriptor `json:"network_table"`
}

// LinkResponse is the outcome reported by a link adapter.
type LinkResponse struct {
	ReturnCode int    `json:"returncode"`
	ErrorMsg   string `json:"errormsg"`
}

// Scalar is a JSON string or number read as text. Adapters disagree on
// whether remote ids are numeric.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*s = Scalar(num.String())
	return nil
}

// EncodePayload serializes a request into the text delivered on the
// adapter's stdin: base64 of the JSON document, without line breaks.
func EncodePayload(req any) ([]byte, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode adapter request: %w", err)
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// DecodePayload reverses EncodePayload. Line breaks and surrounding blanks
// are ignored since many encoders wrap their output.
func DecodePayload(data []byte, out any) error {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, string(data))
	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return fmt.Errorf("adapter output is not base64: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("adapter output is not a JSON document: %w", err)
	}
	return nil
}

// BlobText renders an opaque adapter value the way it is stored: JSON
// strings as their content, everything else as compact JSON.
func BlobText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
