package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client matches exactly one of these
// under errors.Is.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("session not found")
	ErrNetwork    = errors.New("network error")
	ErrServer     = errors.New("server error")
)

// Error describes a failed gateway call
type Error struct {
	Op     string // "list", "fetch", "delete", "send"
	Kind   error  // one of the Err* kinds above
	Status int    // HTTP status, 0 when no response arrived
	Detail string // server-provided detail, if any
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// kindForStatus maps a non-2xx status onto the error taxonomy.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrServer
	}
}
