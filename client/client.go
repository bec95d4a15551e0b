// Package client talks to the federation REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saintparish4/fedsdn/shared/models"
)

const (
	Version    = "0.1.0"
	DefaultURL = "http://localhost:6121/"

	defaultTimeout       = 30 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = 500 * time.Millisecond
)

// ErrNoCredentials is returned by New when neither the options nor the
// environment name a user and password.
var ErrNoCredentials = errors.New("no username or password defined")

// Options configures a Client. Empty fields fall back to the FEDSDN_USER,
// FEDSDN_PASSWORD and FEDSDN_URL environment variables.
type Options struct {
	Username string
	Password string
	URL      string

	// Token is sent as a bearer token instead of Basic credentials.
	Token string

	// Agent names the program using the client in the User-Agent header.
	Agent string

	HTTPClient    *http.Client
	MaxRetries    uint64
	RetryInterval time.Duration
}

// Client wraps HTTP operations with authentication and retries.
type Client struct {
	baseURL       string
	username      string
	password      string
	token         string
	userAgent     string
	httpClient    *http.Client
	maxRetries    uint64
	retryInterval time.Duration
}

// Error is a failed request. StatusCode is 503 when the server could not
// be reached at all.
type Error struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status of a failed request, or 0 if err does
// not come from the server.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// New creates a client.
func New(opts Options) (*Client, error) {
	opts.Username = orEnv(opts.Username, "FEDSDN_USER")
	opts.Password = orEnv(opts.Password, "FEDSDN_PASSWORD")
	opts.URL = orEnv(opts.URL, "FEDSDN_URL")
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Token == "" && (opts.Username == "" || opts.Password == "") {
		return nil, ErrNoCredentials
	}
	if opts.Agent == "" {
		opts.Agent = "Go"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryInterval == 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	return &Client{
		baseURL:       strings.TrimRight(opts.URL, "/"),
		username:      opts.Username,
		password:      opts.Password,
		token:         opts.Token,
		userAgent:     fmt.Sprintf("FederatedSDN %s (%s)", Version, opts.Agent),
		httpClient:    opts.HTTPClient,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
	}, nil
}

func orEnv(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)
}

// do sends a request and decodes the JSON answer into out. Requests that
// never reached the server or got a 503 are retried with exponential
// backoff. Other transport errors are only retried for GET, since a write
// may already be running on the server.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var resp *http.Response
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		} else {
			req.SetBasicAuth(c.username, c.password)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		r, err := c.httpClient.Do(req)
		if err != nil {
			connErr := &Error{
				StatusCode: http.StatusServiceUnavailable,
				Message:    "Error connecting to server",
				Details:    err.Error(),
			}
			if ctx.Err() != nil || !(method == http.MethodGet || unsent(err)) {
				return backoff.Permanent(connErr)
			}
			return connErr
		}
		if r.StatusCode == http.StatusServiceUnavailable {
			err := readError(r)
			r.Body.Close()
			return err
		}
		resp = r
		return nil
	}
	if err := backoff.Retry(operation, c.newBackOff(ctx)); err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readError(resp)
	}
	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// unsent reports whether a transport error happened before the request
// reached the server. Only then is it safe to resend a write.
func unsent(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

func readError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var body models.ErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &Error{StatusCode: resp.StatusCode, Message: body.Error, Details: body.Details}
}

// IssueToken exchanges the client's credentials for a bearer token.
func (c *Client) IssueToken(ctx context.Context) (*models.Token, error) {
	var token models.Token
	if err := c.do(ctx, http.MethodPost, "/auth/token", nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}
