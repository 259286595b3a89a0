package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies every failure an operation can report to a view.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota
	// KindValidation is a field-scoped input error, caught before any network
	// call or reported by the backend as 400/422.
	KindValidation
	// KindConflict is a 409: correctable, the form stays open.
	KindConflict
	// KindNotFound is a 404: the resource was deleted concurrently.
	KindNotFound
	// KindUnauthorized is a 401: the session is destroyed.
	KindUnauthorized
	// KindForbidden is a 403: ownership violation, the session is kept.
	KindForbidden
	// KindServer covers 5xx, transport failures and an open circuit.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Messages shown when the backend gives nothing better.
const (
	MsgForbidden   = "You are not allowed to modify this resource."
	MsgServerError = "Server error, please try again."
)

// ErrValidation carries field errors found before submission, or a 400/422
// returned by the backend (then only Global is set).
type ErrValidation struct {
	Fields FieldErrors
}

func (e *ErrValidation) Error() string {
	if msg, ok := e.Fields[GlobalField]; ok {
		return fmt.Sprintf("validation error: %s", msg)
	}
	return fmt.Sprintf("validation error on %d field(s)", len(e.Fields))
}

// ErrConflict is a 409. Field is empty when the message is not attributable
// to a single field.
type ErrConflict struct {
	Field   string
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates invalid credentials or a rejected token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrServer is a 5xx or any unexpected status.
type ErrServer struct {
	Status int
	Detail string
}

func (e *ErrServer) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("server error (%d)", e.Status)
}

// ErrExternalService indicates the backend could not be reached.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// KindOf maps any error returned by this module to its ErrorKind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var validation *ErrValidation
	var conflict *ErrConflict
	var notFound *ErrNotFound
	var unauthorized *ErrUnauthorized
	var forbidden *ErrForbidden

	switch {
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &unauthorized):
		return KindUnauthorized
	case errors.As(err, &forbidden):
		return KindForbidden
	default:
		return KindServer
	}
}

// ErrorFromStatus builds the typed error for a non-2xx backend response.
// detail is the backend message, surfaced verbatim where the taxonomy says so.
func ErrorFromStatus(status int, resource, id, detail string) error {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		msg := detail
		if msg == "" {
			msg = MsgServerError
		}
		return &ErrValidation{Fields: FieldErrors{GlobalField: msg}}
	case status == http.StatusUnauthorized:
		return &ErrUnauthorized{Message: detail}
	case status == http.StatusForbidden:
		return &ErrForbidden{Action: resource}
	case status == http.StatusNotFound:
		return &ErrNotFound{Resource: resource, ID: id}
	case status == http.StatusConflict:
		return &ErrConflict{Message: detail}
	default:
		return &ErrServer{Status: status, Detail: detail}
	}
}

// FieldErrorsOf turns an operation error into the error map a form displays.
func FieldErrorsOf(err error) FieldErrors {
	if err == nil {
		return nil
	}

	var validation *ErrValidation
	var conflict *ErrConflict
	var unauthorized *ErrUnauthorized

	switch {
	case errors.As(err, &validation):
		return validation.Fields.Clone()
	case errors.As(err, &conflict):
		field := conflict.Field
		if field == "" {
			field = GlobalField
		}
		return FieldErrors{field: conflict.Message}
	case errors.As(err, &unauthorized):
		return FieldErrors{GlobalField: unauthorized.Error()}
	}

	switch KindOf(err) {
	case KindNotFound:
		return FieldErrors{GlobalField: err.Error()}
	case KindForbidden:
		return FieldErrors{GlobalField: MsgForbidden}
	default:
		return FieldErrors{GlobalField: MsgServerError}
	}
}
