package tools

import (
	"errors"
	"net/http"
)

// Response is the transport-agnostic outcome of a tool call.
type Response struct {
	StatusCode int `json:"statusCode"`
	Body       any `json:"body"`
}

// ErrorBody is the Response body of a failed call.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Tool    string `json:"tool,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Format converts a Call outcome into a Response. Errors that are not a
// *Error are reported as Internal without their detail.
func Format(result any, err error) Response {
	if err == nil {
		return Response{StatusCode: http.StatusOK, Body: result}
	}
	var te *Error
	if !errors.As(err, &te) {
		te = &Error{Kind: KindInternal, Message: "internal error"}
	}
	return Response{
		StatusCode: te.Kind.StatusCode(),
		Body: ErrorBody{
			Error:   te.Kind.String(),
			Message: te.Message,
			Tool:    te.Tool,
			Field:   te.Field,
		},
	}
}

// OK reports whether the response carries a result.
func (r Response) OK() bool { return r.StatusCode == http.StatusOK }
