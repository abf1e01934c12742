// Package errors maps engine error kinds onto HTTP statuses and Connect
// codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/moolen/riskgraph/internal/riskerr"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PartialDetail is the Details key carrying a partial result on timeout.
const PartialDetail = "partial"

// APIError is an error with its HTTP status and Connect code.
type APIError struct {
	Kind        riskerr.Kind
	HTTPStatus  int
	ConnectCode connect.Code
	Message     string
	Details     map[string]interface{}
}

// NewAPIError creates an error of the given kind. The status and code follow
// from the kind.
func NewAPIError(kind riskerr.Kind, message string) *APIError {
	code := ConnectCodeFor(kind)
	return &APIError{
		Kind:        kind,
		HTTPStatus:  ConnectToHTTPCode(code),
		ConnectCode: code,
		Message:     message,
		Details:     make(map[string]interface{}),
	}
}

// NewInvalidRequestError reports a malformed request parameter or body.
func NewInvalidRequestError(format string, args ...interface{}) *APIError {
	return NewAPIError(riskerr.KindInvalidParameter, fmt.Sprintf(format, args...))
}

// FromError converts any error. *APIError passes through; riskerr errors
// keep their kind, message and details; everything else is Internal.
func FromError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	kind := riskerr.KindOf(err)
	out := NewAPIError(kind, err.Error())
	var rerr *riskerr.Error
	if stderrors.As(err, &rerr) {
		out.Message = rerr.Message
		for k, v := range rerr.Details {
			out.Details[k] = v
		}
	}
	return out
}

// Error returns the message.
func (e *APIError) Error() string {
	return e.Message
}

// WithDetail adds context to the error.
func (e *APIError) WithDetail(key string, value interface{}) *APIError {
	e.Details[key] = value
	return e
}

// WithPartial attaches the partial result computed before a timeout.
func (e *APIError) WithPartial(result interface{}) *APIError {
	return e.WithDetail(PartialDetail, result)
}

// Response returns the JSON body.
func (e *APIError) Response() ErrorResponse {
	resp := ErrorResponse{Error: string(e.Kind), Message: e.Message}
	if len(e.Details) > 0 {
		resp.Details = e.Details
	}
	return resp
}

// ConnectError returns the error as a Connect error.
func (e *APIError) ConnectError() *connect.Error {
	return connect.NewError(e.ConnectCode, fmt.Errorf("%s", e.Message))
}

// ConnectCodeFor maps an error kind onto a Connect code.
func ConnectCodeFor(kind riskerr.Kind) connect.Code {
	switch kind {
	case riskerr.KindNotFound:
		return connect.CodeNotFound
	case riskerr.KindInvalidParameter:
		return connect.CodeInvalidArgument
	case riskerr.KindInsufficientData:
		return connect.CodeFailedPrecondition
	case riskerr.KindTimeout:
		return connect.CodeDeadlineExceeded
	case riskerr.KindUpstreamUnavailable:
		return connect.CodeUnavailable
	default:
		return connect.CodeInternal
	}
}

// ConnectToHTTPCode maps Connect error codes to HTTP status codes.
func ConnectToHTTPCode(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeOutOfRange:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeAlreadyExists, connect.CodeAborted:
		return http.StatusConflict
	case connect.CodeFailedPrecondition:
		return http.StatusUnprocessableEntity
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests
	case connect.CodeUnimplemented:
		return http.StatusNotImplemented
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	case connect.CodeCanceled:
		return http.StatusRequestTimeout
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
