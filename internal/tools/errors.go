package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/HerbHall/devicedesk/internal/services"
)

// Kind classifies a tool failure. The zero value is KindInternal so an
// unclassified error never masquerades as a client mistake.
type Kind int

const (
	KindInternal Kind = iota
	KindUnknownTool
	KindInvalidArgument
	KindNotFound
	KindConflict
	KindStorageUnavailable
)

var kindNames = [...]string{
	KindInternal:           "Internal",
	KindUnknownTool:        "UnknownTool",
	KindInvalidArgument:    "InvalidArgument",
	KindNotFound:           "NotFound",
	KindConflict:           "Conflict",
	KindStorageUnavailable: "StorageUnavailable",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// StatusCode is the HTTP-style status carried in a Response for this kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnknownTool, KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured failure of a tool invocation.
type Error struct {
	Kind    Kind
	Tool    string
	Field   string // set for KindInvalidArgument
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Tool != "" {
		msg = e.Tool + ": " + msg
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of err, KindInternal for anything that is not a
// *Error.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

func invalidArgument(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// classify maps repository and context errors onto the tool taxonomy.
func classify(tool string, err error) *Error {
	var te *Error
	if errors.As(err, &te) {
		if te.Tool == "" {
			te.Tool = tool
		}
		return te
	}

	e := &Error{Tool: tool, Err: err}
	switch {
	case errors.Is(err, services.ErrNotFound):
		e.Kind = KindNotFound
		e.Message = notFoundMessage(err)
	case errors.Is(err, services.ErrAlreadyExists):
		e.Kind = KindConflict
		e.Message = "resource already exists"
	case errors.Is(err, context.Canceled):
		// The caller went away; nothing the backend did is at fault.
		e.Kind = KindInternal
		e.Message = "call canceled"
	case errors.Is(err, services.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindStorageUnavailable
		e.Message = "storage temporarily unavailable, retry later"
	default:
		e.Kind = KindInternal
		e.Message = "internal error"
	}
	return e
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNetworkNotFound):
		return "wifi network not found"
	case errors.Is(err, services.ErrSettingsNotFound):
		return "device settings not found"
	case errors.Is(err, services.ErrDeviceNotFound):
		return "device not found"
	case errors.Is(err, services.ErrUserNotFound):
		return "user not found"
	default:
		return "not found"
	}
}
