package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the HTTP boundary can pick a response code.
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindAuthorization       Kind = "AUTHORIZATION_ERROR"
	KindNotFound            Kind = "NOT_FOUND"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindUpstreamFailure     Kind = "UPSTREAM_FAILURE"
	KindStateConflict       Kind = "STATE_CONFLICT"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// Generic message for resources the caller may not see.
const msgNotFoundOrUnauthorized = "not found or unauthorized"

// Error is a categorized application error.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"error"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStatus overrides the default HTTP status of the kind.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

func New(kind Kind, message string, status int) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

func Wrap(err error, kind Kind, message string, status int) *Error {
	return &Error{Kind: kind, Message: message, Status: status, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message, http.StatusBadRequest)
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Unauthorized is returned when a workspace is missing or owned by someone else.
func Unauthorized(resource string) *Error {
	return New(KindAuthorization, resource+" "+msgNotFoundOrUnauthorized, http.StatusForbidden)
}

// NotFoundOrUnauthorized hides whether the resource exists at all.
func NotFoundOrUnauthorized(resource string) *Error {
	return New(KindNotFound, resource+" "+msgNotFoundOrUnauthorized, http.StatusNotFound)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found", http.StatusNotFound)
}

func UpstreamUnavailable(provider string, err error) *Error {
	return Wrap(err, KindUpstreamUnavailable, provider+" unavailable", http.StatusServiceUnavailable)
}

func UpstreamFailure(message string, err error) *Error {
	return Wrap(err, KindUpstreamFailure, message, http.StatusInternalServerError)
}

func StateConflict(message string) *Error {
	return New(KindStateConflict, message, http.StatusConflict)
}

func Internal(message string, err error) *Error {
	return Wrap(err, KindInternal, message, http.StatusInternalServerError)
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns KindInternal for uncategorized errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps any error to a response code.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
