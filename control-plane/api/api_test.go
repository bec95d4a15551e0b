package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/auth"
	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/control-plane/federation"
	"github.com/saintparish4/fedsdn/control-plane/monitoring"
	"github.com/saintparish4/fedsdn/shared/models"
)

type testServer struct {
	*httptest.Server
	fake *adapter.FakeDriver
}

func newTestServer(t *testing.T, jwtSecret, proxyPath string) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := database.NewMemoryBackend()
	require.NoError(t, err)
	store := database.NewStore(backend, logger, database.AllTables()...)
	require.NoError(t, store.Migrate(context.Background(), "test", federation.Migrations("root", "rootpw")...))

	fake := adapter.NewFakeDriver()
	fake.Handle(models.SiteKindOpenStack, adapter.OpValidateUser, func(raw json.RawMessage) (*adapter.Result, error) {
		var req adapter.ValidateUserRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		resp := adapter.ValidateUserResponse{ReturnCode: 1, ErrorMsg: "bad credentials"}
		if req.Password == "good" {
			resp = adapter.ValidateUserResponse{Token: "tok-" + req.Username, TenantID: adapter.Scalar("remote-" + req.Username)}
		}
		out, err := adapter.EncodePayload(resp)
		return &adapter.Result{Stdout: out}, err
	})
	fake.Respond(models.SiteKindOpenStack, adapter.OpAddNetworkSegment, adapter.AddNetworkSegmentResponse{
		NetworkInfo: json.RawMessage(`{"net":"n1"}`),
	})
	fake.Respond(models.SiteKindOpenStack, adapter.OpLink, adapter.LinkResponse{})

	service := federation.NewService(store, fake, logger)
	api := NewFedSDNAPI(service, auth.New(service.Tenants, jwtSecret, time.Hour), monitoring.NewRegistry(nil), logger)
	srv := httptest.NewServer(api.Handler(proxyPath))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, fake: fake}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, v), string(r.body))
}

func (s *testServer) do(t *testing.T, method, path, user, password string, body any) response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func (s *testServer) root(t *testing.T, method, path string, body any) response {
	return s.do(t, method, path, "root", "rootpw", body)
}

// seed creates one openstack site and the tenant alice mapped onto it.
func (s *testServer) seed(t *testing.T) {
	t.Helper()
	resp := s.root(t, "POST", "/fednet/site", models.Site{Name: "site1", Type: "OpenStack", CMPEndpoint: "http://keystone"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	resp = s.root(t, "POST", "/fednet/tenant", models.TenantCreate{
		Name:       "alice",
		Password:   "alicepw",
		ValidSites: []models.SiteCredential{{SiteID: 1, Credentials: "alice:good"}},
	})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
}

func TestUpAndMetrics(t *testing.T) {
	s := newTestServer(t, "", "/")

	resp := s.do(t, "GET", "/up", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = s.do(t, "GET", "/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, string(resp.body), `fedsdn_http_requests_total{code="200",method="GET",route="/up"} 1`)
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, "", "/")

	tests := []struct {
		name     string
		user     string
		password string
		want     int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "root", "nope", http.StatusUnauthorized},
		{"unknown tenant", "mallory", "rootpw", http.StatusUnauthorized},
		{"root", "root", "rootpw", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, "GET", "/fednet", tt.user, tt.password, nil)
			assert.Equal(t, tt.want, resp.status)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, resp.header.Get("WWW-Authenticate"))
				var body map[string]any
				resp.decode(t, &body)
				assert.Equal(t, "Credentials not valid", body["error"])
				assert.Equal(t, false, body["success"])
			} else {
				assert.JSONEq(t, `[]`, string(resp.body))
			}
		})
	}
}

func TestTenantViewsHideSecrets(t *testing.T) {
	s := newTestServer(t, "", "/")
	s.seed(t)

	resp := s.root(t, "GET", "/fednet/tenant/2", nil)
	require.Equal(t, http.StatusCreated, resp.status)
	assert.NotContains(t, string(resp.body), "alicepw")
	assert.NotContains(t, string(resp.body), "alice:good")
	assert.NotContains(t, string(resp.body), "tok-alice")

	var view models.TenantView
	resp.decode(t, &view)
	assert.Equal(t, "alice", view.Name)
	assert.Equal(t, models.TenantKindUser, view.Kind)
	assert.Equal(t, []models.SiteMappingView{{SiteID: 1, RemoteUserID: "remote-alice"}}, view.ValidSites)

	resp = s.root(t, "GET", "/fednet/tenant", nil)
	require.Equal(t, http.StatusCreated, resp.status)
	assert.NotContains(t, string(resp.body), "rootpw")
}

func TestAdminOnlyRoutes(t *testing.T) {
	s := newTestServer(t, "", "/")
	s.seed(t)

	tests := []struct {
		method string
		path   string
		body   any
		want   int
	}{
		{"GET", "/fednet/site", nil, http.StatusCreated},
		{"GET", "/fednet/site/1", nil, http.StatusCreated},
		{"POST", "/fednet/site", models.Site{Name: "site2", Type: "openstack", CMPEndpoint: "x"}, http.StatusForbidden},
		{"PUT", "/fednet/site/1", map[string]string{"name": "renamed"}, http.StatusForbidden},
		{"DELETE", "/fednet/site/1", nil, http.StatusForbidden},
		{"GET", "/fednet/tenant", nil, http.StatusForbidden},
		{"GET", "/fednet/tenant/2", nil, http.StatusForbidden},
		{"POST", "/fednet/tenant", models.TenantCreate{Name: "eve", Password: "x"}, http.StatusForbidden},
		{"DELETE", "/fednet/tenant/1", nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := s.do(t, tt.method, tt.path, "alice", "alicepw", tt.body)
			assert.Equal(t, tt.want, resp.status, string(resp.body))
		})
	}
}

func TestSiteUpdateAndDelete(t *testing.T) {
	s := newTestServer(t, "", "/")
	s.seed(t)

	resp := s.root(t, "PUT", "/fednet/site/1", map[string]string{"name": "renamed"})
	require.Equal(t, http.StatusCreated, resp.status)
	var site models.Site
	resp.decode(t, &site)
	assert.Equal(t, "renamed", site.Name)
	assert.Equal(t, models.SiteKindOpenStack, site.Type)

	resp = s.root(t, "DELETE", "/fednet/site/1", nil)
	assert.Equal(t, http.StatusCreated, resp.status)
	var msg models.Message
	resp.decode(t, &msg)
	assert.True(t, msg.Success)

	resp = s.root(t, "GET", "/fednet/site/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestFedNetLifecycle(t *testing.T) {
	s := newTestServer(t, "", "/")
	s.seed(t)
	resp := s.root(t, "POST", "/fednet/tenant", models.TenantCreate{Name: "bob", Password: "bobpw"})
	require.Equal(t, http.StatusCreated, resp.status)

	resp = s.do(t, "POST", "/fednet", "alice", "alicepw", models.FedNet{Name: "net", Type: "l2", LinkType: "vxlan", Owner: "root"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var fednet models.FedNet
	resp.decode(t, &fednet)
	assert.Equal(t, "alice", fednet.Owner)
	assert.Equal(t, models.FedNetUnlinked, fednet.Status)

	path := fmt.Sprintf("/fednet/%d/1/netsegment", fednet.ID)
	resp = s.do(t, "POST", path, "alice", "alicepw", models.NetSegment{Name: "seg", FAEndpoint: "fa-1", CMPNetID: "n1"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	var seg models.NetSegment
	resp.decode(t, &seg)
	assert.Equal(t, `{"net":"n1"}`, seg.CMPBlob)

	resp = s.do(t, "GET", path, "alice", "alicepw", nil)
	require.Equal(t, http.StatusCreated, resp.status)
	var segs []models.NetSegment
	resp.decode(t, &segs)
	assert.Len(t, segs, 1)

	// Non-owners can neither see nor link the fednet.
	fednetPath := fmt.Sprintf("/fednet/%d", fednet.ID)
	assert.Equal(t, http.StatusForbidden, s.do(t, "GET", fednetPath, "bob", "bobpw", nil).status)
	assert.Equal(t, http.StatusForbidden, s.do(t, "PUT", fednetPath, "bob", "bobpw", map[string]string{"status": "link"}).status)
	assert.Empty(t, s.fake.Calls(adapter.OpLink))

	resp = s.do(t, "PUT", fednetPath, "alice", "alicepw", map[string]string{"status": "link"})
	require.Equal(t, http.StatusCreated, resp.status, string(resp.body))
	resp.decode(t, &fednet)
	assert.Equal(t, models.FedNetLinked, fednet.Status)
	assert.Len(t, fednet.NetSegments, 1)
	assert.Len(t, s.fake.Calls(adapter.OpLink), 1)

	resp = s.do(t, "DELETE", fmt.Sprintf("%s/%d", path, seg.ID), "alice", "alicepw", nil)
	assert.Equal(t, http.StatusCreated, resp.status)
	resp = s.do(t, "DELETE", fednetPath, "alice", "alicepw", nil)
	assert.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", fednetPath, "alice", "alicepw", nil).status)
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t, "", "/")
	s.seed(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		status  int
		message string
	}{
		{"missing site", "GET", "/fednet/site/99", nil, http.StatusNotFound, ""},
		{"malformed body", "POST", "/fednet", "{not json", http.StatusInternalServerError, "Invalid request body"},
		{"missing fields", "POST", "/fednet", map[string]string{"name": "x"}, http.StatusInternalServerError, ""},
		{"duplicate site", "POST", "/fednet/site", models.Site{Name: "site1", Type: "openstack", CMPEndpoint: "x"}, http.StatusInternalServerError, ""},
		{"rejected credentials", "POST", "/fednet/tenant", models.TenantCreate{
			Name:       "carol",
			Password:   "pw",
			ValidSites: []models.SiteCredential{{SiteID: 1, Credentials: "carol:bad"}},
		}, http.StatusUnauthorized, ""},
		{"unknown segment scope", "POST", "/fednet/42/1/netsegment", models.NetSegment{Name: "s", FAEndpoint: "f"}, http.StatusNotFound, ""},
		{"unknown route", "GET", "/fednet/site/abc", nil, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.root(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, resp.status, string(resp.body))
			if tt.name == "unknown route" {
				return
			}
			var body map[string]any
			resp.decode(t, &body)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
			if tt.message != "" {
				assert.Equal(t, tt.message, body["error"])
			}
		})
	}
}

func TestBearerTokens(t *testing.T) {
	s := newTestServer(t, "secret", "/")

	resp := s.root(t, "POST", "/auth/token", nil)
	require.Equal(t, http.StatusCreated, resp.status)
	var token models.Token
	resp.decode(t, &token)
	require.NotEmpty(t, token.Token)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	bearer := func(value string) int {
		req, err := http.NewRequest("GET", s.URL+"/fednet/site", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+value)
		resp, err := s.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusCreated, bearer(token.Token))
	assert.Equal(t, http.StatusUnauthorized, bearer("garbage"))

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "POST", "/auth/token", "root", "wrong", nil).status)
}

func TestBearerTokensDisabled(t *testing.T) {
	s := newTestServer(t, "", "/")
	assert.Equal(t, http.StatusNotFound, s.root(t, "POST", "/auth/token", nil).status)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, "", "/")

	resp := s.do(t, "GET", "/up", "", "", nil)
	assert.NotEmpty(t, resp.header.Get(RequestIDHeader))

	req, err := http.NewRequest("GET", s.URL+"/up", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "trace-42")
	raw, err := s.Client().Do(req)
	require.NoError(t, err)
	raw.Body.Close()
	assert.Equal(t, "trace-42", raw.Header.Get(RequestIDHeader))
}

func TestProxyPath(t *testing.T) {
	s := newTestServer(t, "", "/fedsdn/")

	assert.Equal(t, http.StatusOK, s.do(t, "GET", "/fedsdn/up", "", "", nil).status)
	assert.Equal(t, http.StatusCreated, s.root(t, "GET", "/fedsdn/fednet", nil).status)
	assert.Equal(t, http.StatusNotFound, s.do(t, "GET", "/up", "", "", nil).status)
}
