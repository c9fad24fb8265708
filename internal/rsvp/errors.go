package rsvp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/soiree/internal/auth"
)

// Kind classifies failures of the read and write paths.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindInvalid         Kind = "invalid"
	KindServerFault     Kind = "server_fault"
	KindGeneric         Kind = "generic"
)

// Message returns the human-readable text shown for k.
func (k Kind) Message() string {
	switch k {
	case KindUnauthenticated:
		return "You need to sign in to do that."
	case KindNotFound:
		return "That RSVP or party could not be found."
	case KindForbidden:
		return "You can only change your own RSVP."
	case KindInvalid:
		return "That RSVP status is not valid."
	case KindServerFault:
		return "Something went wrong on our end. Please try again."
	default:
		return "Could not update your RSVP."
	}
}

// HTTPStatus returns the response status for k.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain error.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + string(e.Kind)
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies any error. Unclassified errors are generic failures.
func KindOf(err error) Kind {
	var e *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, auth.ErrUnauthenticated):
		return KindUnauthenticated
	default:
		return KindGeneric
	}
}

// ErrorBody is the JSON shape of every API error response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind"`
}

// WriteError writes the classified JSON error response for err.
func WriteError(w http.ResponseWriter, err error) {
	k := KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(k.HTTPStatus())
	json.NewEncoder(w).Encode(ErrorBody{Error: k.Message(), Kind: k})
}
