package errors

import (
	"fmt"
	"net/http"
)

// APIError is the one error shape handlers push into the gin error chain.
// Status and Message are rendered to the caller; Internal stays in the logs.
type APIError struct {
	Status   int    `json:"-"`
	Message  string `json:"error"`
	Internal error  `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

func New(status int, message string, internal error) *APIError {
	return &APIError{Status: status, Message: message, Internal: internal}
}

func BadRequest(message string, err error) *APIError {
	return New(http.StatusBadRequest, message, err)
}

func Unauthorized(message string, err error) *APIError {
	return New(http.StatusUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return New(http.StatusForbidden, message, err)
}

func NotFound(message string, err error) *APIError {
	return New(http.StatusNotFound, message, err)
}

func Conflict(message string, err error) *APIError {
	return New(http.StatusConflict, message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, message, err)
}

func Internal(err error) *APIError {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// Validation reports malformed input or a split sum outside tolerance. The
// message always carries the offending total so the caller can self-correct.
func Validation(message string, err error) *APIError {
	return New(http.StatusUnprocessableEntity, message, err)
}

// Locked reports a mutation against a locked facet. Never auto-resolved.
func Locked(facet string) *APIError {
	return New(http.StatusLocked, fmt.Sprintf("The %s splits for this work are locked", facet), nil)
}

// Authentication reports a webhook signature mismatch.
func Authentication(message string, err error) *APIError {
	return New(http.StatusUnauthorized, message, err)
}

// Provider reports an unreachable or failing e-signature provider on a path
// with no local fallback.
func Provider(message string, err error) *APIError {
	return New(http.StatusBadGateway, message, err)
}

// Render reports a failure of the last document-assembly tier.
func Render(err error) *APIError {
	return New(http.StatusInternalServerError, "Document rendering failed", err)
}
