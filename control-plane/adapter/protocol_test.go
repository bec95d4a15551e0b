package adapter

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayload(t *testing.T) {
	out, err := EncodePayload(ValidateUserRequest{Username: "alice", Password: "pw", CMPEndpoint: "http://one:2633"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\n")

	raw, err := base64.StdEncoding.DecodeString(string(out))
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice","password":"pw","cmp_endpoint":"http://one:2633"}`, string(raw))
}

func TestDecodePayloadToleratesWrappedLines(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"returncode":0,"token":"t0k","tenant_id":7}`))
	wrapped := encoded[:10] + "\n" + encoded[10:] + "\n"

	var resp ValidateUserResponse
	require.NoError(t, DecodePayload([]byte(wrapped), &resp))
	assert.Equal(t, 0, resp.ReturnCode)
	assert.Equal(t, "t0k", resp.Token)
	assert.Equal(t, Scalar("7"), resp.TenantID)
}

func TestDecodePayloadErrors(t *testing.T) {
	var resp ValidateUserResponse
	assert.Error(t, DecodePayload([]byte("%%%"), &resp))
	assert.Error(t, DecodePayload([]byte(base64.StdEncoding.EncodeToString([]byte("not json"))), &resp))
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   string
		want Scalar
	}{
		{`"abc"`, "abc"},
		{`42`, "42"},
		{`null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s Scalar
			require.NoError(t, json.Unmarshal([]byte(tt.in), &s))
			assert.Equal(t, tt.want, s)
		})
	}
	var s Scalar
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &s))
}

func TestBlobText(t *testing.T) {
	assert.Equal(t, "vlan=12", BlobText(json.RawMessage(`"vlan=12"`)))
	assert.Equal(t, `{"vlan":12,"cidr":"10.0.0.0/24"}`, BlobText(json.RawMessage(`{ "vlan": 12, "cidr": "10.0.0.0/24" }`)))
	assert.Equal(t, "", BlobText(nil))
	assert.Equal(t, "", BlobText(json.RawMessage(`null`)))
}

func TestResultOutput(t *testing.T) {
	assert.Equal(t, "out", (&Result{Stdout: []byte("out\n")}).Output())
	assert.Equal(t, "err", (&Result{Stderr: []byte("err")}).Output())
	assert.Equal(t, "out\nerr", (&Result{Stdout: []byte("out"), Stderr: []byte("err")}).Output())
}
