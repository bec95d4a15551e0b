package federation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/saintparish4/fedsdn/control-plane/database"
)

// Kind classifies a federation failure.
type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindForbidden
	KindNotFound
	KindConflict
	KindAuth
	KindAdapter
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindAdapter:
		return "adapter"
	default:
		return "store"
	}
}

// Error is the outcome of a failed federation operation. Output carries
// what a failing adapter printed.
type Error struct {
	Kind    Kind
	Message string
	Output  string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Output != "" {
		msg += ". Message from driver: " + e.Output
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a federation error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// StatusCode maps an operation outcome onto the HTTP status returned to
// callers. Success is 201 for every operation.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusCreated
	}
	var fe *Error
	if !errors.As(err, &fe) {
		return http.StatusInternalServerError
	}
	switch fe.Kind {
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// storeError translates a store failure. what names the record for
// NotFound and Conflict messages.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: what + " not found", Err: err}
	case errors.Is(err, database.ErrConflict):
		return &Error{Kind: KindConflict, Message: what + " already exists", Err: err}
	default:
		return &Error{Kind: KindStore, Message: "Server exception", Err: err}
	}
}
