// Package api exposes the federation registries over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/saintparish4/fedsdn/control-plane/auth"
	"github.com/saintparish4/fedsdn/control-plane/federation"
	"github.com/saintparish4/fedsdn/control-plane/monitoring"
	"github.com/saintparish4/fedsdn/shared/models"
)

const maxBodyBytes = 1 << 20

// FedSDNAPI provides the REST endpoints of the federation manager.
type FedSDNAPI struct {
	service  *federation.Service
	auth     *auth.Authenticator
	registry *monitoring.Registry
	metrics  *Metrics
	logger   *slog.Logger
}

// NewFedSDNAPI creates the API. When registry is not nil the request
// metrics are registered with it and served on /metrics.
func NewFedSDNAPI(service *federation.Service, authenticator *auth.Authenticator, registry *monitoring.Registry, logger *slog.Logger) *FedSDNAPI {
	api := &FedSDNAPI{
		service:  service,
		auth:     authenticator,
		registry: registry,
		metrics:  NewMetrics(),
		logger:   logger,
	}
	if registry != nil {
		registry.MustRegister(api.metrics)
	}
	return api
}

// Handler returns the routed API, mounted below proxyPath when the server
// sits behind a path-rewriting proxy.
func (api *FedSDNAPI) Handler(proxyPath string) http.Handler {
	root := mux.NewRouter()
	router := root
	if prefix := strings.TrimRight(proxyPath, "/"); prefix != "" {
		router = root.PathPrefix(prefix).Subrouter()
	}
	api.RegisterRoutes(router)
	return root
}

// RegisterRoutes registers the API routes on router.
func (api *FedSDNAPI) RegisterRoutes(router *mux.Router) {
	router.Use(api.requestID, api.metrics.middleware)

	// Unauthenticated
	router.HandleFunc("/up", api.handleUp).Methods("GET")
	if api.registry != nil {
		router.Handle("/metrics", api.registry.Handler()).Methods("GET")
	}
	router.HandleFunc("/auth/token", api.handleIssueToken).Methods("POST")

	fednet := router.PathPrefix("/fednet").Subrouter()
	fednet.Use(api.authenticate)

	// Site pool
	fednet.HandleFunc("/site", api.handleListSites).Methods("GET")
	fednet.HandleFunc("/site", api.handleCreateSite).Methods("POST")
	fednet.HandleFunc("/site/{id:[0-9]+}", api.handleGetSite).Methods("GET")
	fednet.HandleFunc("/site/{id:[0-9]+}", api.handleUpdateSite).Methods("PUT")
	fednet.HandleFunc("/site/{id:[0-9]+}", api.handleDeleteSite).Methods("DELETE")

	// Tenant pool
	fednet.HandleFunc("/tenant", api.handleListTenants).Methods("GET")
	fednet.HandleFunc("/tenant", api.handleCreateTenant).Methods("POST")
	fednet.HandleFunc("/tenant/{id:[0-9]+}", api.handleGetTenant).Methods("GET")
	fednet.HandleFunc("/tenant/{id:[0-9]+}", api.handleUpdateTenant).Methods("PUT")
	fednet.HandleFunc("/tenant/{id:[0-9]+}", api.handleDeleteTenant).Methods("DELETE")

	// Federated networks
	fednet.HandleFunc("", api.handleListFedNets).Methods("GET")
	fednet.HandleFunc("", api.handleCreateFedNet).Methods("POST")
	fednet.HandleFunc("/{id:[0-9]+}", api.handleGetFedNet).Methods("GET")
	fednet.HandleFunc("/{id:[0-9]+}", api.handleUpdateFedNet).Methods("PUT")
	fednet.HandleFunc("/{id:[0-9]+}", api.handleDeleteFedNet).Methods("DELETE")

	// Network segments
	segments := "/{fednet_id:[0-9]+}/{site_id:[0-9]+}/netsegment"
	fednet.HandleFunc(segments, api.handleListSegments).Methods("GET")
	fednet.HandleFunc(segments, api.handleCreateSegment).Methods("POST")
	fednet.HandleFunc(segments+"/{id:[0-9]+}", api.handleGetSegment).Methods("GET")
	fednet.HandleFunc(segments+"/{id:[0-9]+}", api.handleUpdateSegment).Methods("PUT")
	fednet.HandleFunc(segments+"/{id:[0-9]+}", api.handleDeleteSegment).Methods("DELETE")

	api.logger.Info("FedSDN API routes registered")
}

func (api *FedSDNAPI) handleUp(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, map[string]any{"status": "up"})
}

func (api *FedSDNAPI) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !api.auth.TokensEnabled() {
		api.writeError(w, http.StatusNotFound, "Bearer tokens are disabled", nil)
		return
	}
	name, password, ok := r.BasicAuth()
	if !ok || api.auth.CheckPassword(r.Context(), name, password) != nil {
		api.unauthorized(w)
		return
	}
	token, expires, err := api.auth.IssueToken(name)
	if err != nil {
		api.writeError(w, http.StatusInternalServerError, "Server exception", err)
		return
	}
	api.writeJSON(w, http.StatusCreated, models.Token{Token: token, ExpiresAt: expires})
}

// =============================================================================
// Helper Methods
// =============================================================================

func (api *FedSDNAPI) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		api.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (api *FedSDNAPI) writeError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := models.ErrorBody{Error: message}

	switch {
	case err != nil && statusCode >= http.StatusInternalServerError:
		response.Details = err.Error()
		api.logger.Error("API error", "message", message, "error", err)
	case err != nil:
		response.Details = err.Error()
		api.logger.Warn("API error", "message", message, "error", err)
	default:
		api.logger.Warn("API error", "message", message)
	}

	api.writeJSON(w, statusCode, response)
}

// writeResult answers with 201 and body, or with the status code of err.
func (api *FedSDNAPI) writeResult(w http.ResponseWriter, body any, err error) {
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, body)
}

func (api *FedSDNAPI) writeFailure(w http.ResponseWriter, err error) {
	var fe *federation.Error
	if errors.As(err, &fe) {
		api.writeError(w, federation.StatusCode(err), fe.Message, err)
		return
	}
	api.writeError(w, http.StatusInternalServerError, "Server exception", err)
}

func (api *FedSDNAPI) writeDeleted(w http.ResponseWriter, what string, id uint64, err error) {
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, models.Message{Success: true, Message: fmt.Sprintf("%s %d removed", what, id)})
}

func (api *FedSDNAPI) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="fedsdn"`)
	api.writeError(w, http.StatusUnauthorized, "Credentials not valid", nil)
}

// decode reads the JSON request body into v.
func (api *FedSDNAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.writeFailure(w, &federation.Error{
			Kind:    federation.KindValidation,
			Message: "Invalid request body",
			Err:     err,
		})
		return false
	}
	return true
}

// pathID parses the numeric route variable name.
func (api *FedSDNAPI) pathID(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		api.writeError(w, http.StatusNotFound, fmt.Sprintf("Invalid %s", name), err)
		return 0, false
	}
	return id, true
}

// requireAdmin answers 403 unless the caller is an administrator.
func (api *FedSDNAPI) requireAdmin(w http.ResponseWriter, r *http.Request, message string) bool {
	if callerFrom(r.Context()).Admin {
		return true
	}
	api.writeError(w, http.StatusForbidden, message, nil)
	return false
}
