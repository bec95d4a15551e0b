package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saintparish4/fedsdn/control-plane/federation"
	"github.com/saintparish4/fedsdn/shared/utils"
)

const RequestIDHeader = "X-Request-Id"

type contextKey int

const (
	callerKey contextKey = iota
	requestIDKey
)

func callerFrom(ctx context.Context) federation.Caller {
	caller, _ := ctx.Value(callerKey).(federation.Caller)
	return caller
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// authenticate resolves the caller from Basic credentials or a bearer token
// and stores it in the request context.
func (api *FedSDNAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := api.identify(r)
		if err != nil {
			api.logger.Debug("authentication failed", "request_id", RequestID(r.Context()), "error", err)
			api.unauthorized(w)
			return
		}
		tenant, err := api.service.Tenants.ByName(r.Context(), name)
		if federation.IsKind(err, federation.KindNotFound) {
			api.unauthorized(w)
			return
		}
		if err != nil {
			api.writeError(w, http.StatusInternalServerError, "Server exception", err)
			return
		}
		caller := federation.Caller{Name: tenant.Name, Admin: tenant.IsAdmin()}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
	})
}

func (api *FedSDNAPI) identify(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return api.auth.VerifyToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	}
	name, password, ok := r.BasicAuth()
	if !ok {
		return "", errors.New("missing credentials")
	}
	if err := api.auth.CheckPassword(r.Context(), name, password); err != nil {
		return "", err
	}
	return name, nil
}

// requestID propagates a client supplied request id or assigns a new one.
func (api *FedSDNAPI) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !utils.ValidID(id) {
			id = utils.GenerateID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// Metrics counts and times the requests served by the API.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fedsdn_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fedsdn_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requests.Describe(ch)
	m.duration.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requests.Collect(ch)
	m.duration.Collect(ch)
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
