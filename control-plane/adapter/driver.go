// Package adapter invokes the site-kind specific drivers that perform the
// remote side of federation operations.
//
// A driver is an executable located at <root>/<kind>/<operation>. It
// receives a base64 encoded JSON request on stdin and, on exit code 0,
// answers with a base64 encoded JSON document on stdout that carries at
// least a "returncode" field.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/saintparish4/fedsdn/shared/models"
)

// ErrNotInstalled is returned when no executable exists for the requested
// kind and operation.
var ErrNotInstalled = errors.New("adapter not installed")

// Driver runs one adapter operation for a site kind. A non-zero exit is
// reported through Result, not as an error; errors are reserved for
// failures to run the adapter at all.
type Driver interface {
	Invoke(ctx context.Context, kind models.SiteKind, op Operation, req any) (*Result, error)
}

// Result is what an adapter process left behind.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the adapter exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Decode parses the encoded document on stdout into out.
func (r *Result) Decode(out any) error {
	return DecodePayload(r.Stdout, out)
}

// Output is the captured output shown to callers when the adapter failed.
func (r *Result) Output() string {
	stdout := strings.TrimSpace(string(r.Stdout))
	stderr := strings.TrimSpace(string(r.Stderr))
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stdout + "\n" + stderr
	}
}

// ValidateUser runs validate_user and decodes its answer. The response is
// only returned for a zero exit code.
func ValidateUser(ctx context.Context, d Driver, kind models.SiteKind, req ValidateUserRequest) (*ValidateUserResponse, *Result, error) {
	var resp ValidateUserResponse
	res, err := call(ctx, d, kind, OpValidateUser, req, &resp)
	if err != nil || !res.Success() {
		return nil, res, err
	}
	return &resp, res, nil
}

// AddNetworkSegment runs add_networksegment and decodes its answer.
func AddNetworkSegment(ctx context.Context, d Driver, kind models.SiteKind, req AddNetworkSegmentRequest) (*AddNetworkSegmentResponse, *Result, error) {
	var resp AddNetworkSegmentResponse
	res, err := call(ctx, d, kind, OpAddNetworkSegment, req, &resp)
	if err != nil || !res.Success() {
		return nil, res, err
	}
	return &resp, res, nil
}

// Link runs link and decodes its answer. Link adapters are allowed to
// answer with an empty stdout, which counts as returncode 0.
func Link(ctx context.Context, d Driver, kind models.SiteKind, req LinkRequest) (*LinkResponse, *Result, error) {
	var resp LinkResponse
	res, err := d.Invoke(ctx, kind, OpLink, req)
	if err != nil || !res.Success() {
		return nil, res, err
	}
	if len(strings.TrimSpace(string(res.Stdout))) == 0 {
		return &resp, res, nil
	}
	if err := res.Decode(&resp); err != nil {
		return nil, res, fmt.Errorf("%s/%s: %w", kind, OpLink, err)
	}
	return &resp, res, nil
}

func call(ctx context.Context, d Driver, kind models.SiteKind, op Operation, req, out any) (*Result, error) {
	res, err := d.Invoke(ctx, kind, op, req)
	if err != nil || !res.Success() {
		return res, err
	}
	if err := res.Decode(out); err != nil {
		return res, fmt.Errorf("%s/%s: %w", kind, op, err)
	}
	return res, nil
}
