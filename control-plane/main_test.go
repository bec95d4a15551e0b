package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saintparish4/fedsdn/control-plane/auth"
	"github.com/saintparish4/fedsdn/control-plane/config"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Database.Driver = "memory"
	cfg.Auth.RootUsername = "root"
	cfg.Auth.RootPassword = "rootpw"
	cfg.Adapters.Root = t.TempDir()
	return cfg
}

func TestNewServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, store, err := newServer(context.Background(), testConfig(t), logger)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "0.0.0.0:6121", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/up", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest("GET", "/fednet/site", nil)
	req.SetBasicAuth("root", "rootpw")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fedsdn_http_requests_total")
}

func TestNewServerWithoutMonitoring(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitoring.Enabled = false
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, store, err := newServer(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer store.Close()

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, serve(ctx, srv, logger))
}

func TestHashPasswordCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "s3cret"})
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.True(t, auth.IsHash(hash))
	assert.True(t, auth.VerifyPassword(hash, "s3cret"))
}
