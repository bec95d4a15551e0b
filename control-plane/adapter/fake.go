package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/saintparish4/fedsdn/shared/models"
)

// Call is one invocation recorded by FakeDriver. Request holds the JSON
// form of the request as an adapter would have received it.
type Call struct {
	Kind      models.SiteKind
	Operation Operation
	Request   json.RawMessage
}

// Handler answers a fake invocation from its decoded request.
type Handler func(req json.RawMessage) (*Result, error)

// FakeDriver is an in-memory Driver. Unregistered operations fail with
// ErrNotInstalled.
type FakeDriver struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// NewFakeDriver creates a FakeDriver with no adapters installed.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{handlers: map[string]Handler{}}
}

// Handle installs h for kind and op.
func (f *FakeDriver) Handle(kind models.SiteKind, op Operation, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[fakeKey(kind, op)] = h
}

// Respond installs an adapter that always exits 0 with resp encoded on
// stdout.
func (f *FakeDriver) Respond(kind models.SiteKind, op Operation, resp any) {
	f.Handle(kind, op, func(json.RawMessage) (*Result, error) {
		out, err := EncodePayload(resp)
		if err != nil {
			return nil, err
		}
		return &Result{Stdout: out}, nil
	})
}

// Fail installs an adapter that always exits with code and prints output.
func (f *FakeDriver) Fail(kind models.SiteKind, op Operation, code int, output string) {
	f.Handle(kind, op, func(json.RawMessage) (*Result, error) {
		return &Result{ExitCode: code, Stdout: []byte(output)}, nil
	})
}

func (f *FakeDriver) Invoke(ctx context.Context, kind models.SiteKind, op Operation, req any) (*Result, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode adapter request: %w", err)
	}
	f.mu.Lock()
	f.calls = append(f.calls, Call{Kind: kind, Operation: op, Request: raw})
	h, ok := f.handlers[fakeKey(kind, op)]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotInstalled, kind, op)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(raw)
}

// Calls returns the recorded invocations of op, in order. An empty op
// returns every invocation.
func (f *FakeDriver) Calls(op Operation) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Operation == op {
			out = append(out, c)
		}
	}
	return out
}

func fakeKey(kind models.SiteKind, op Operation) string {
	return kind.AdapterDir() + "/" + string(op)
}
