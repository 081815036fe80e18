package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// JWT and tokens
	ErrInvalidSigningMethod = fmt.Errorf("invalid token signing method")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token has expired")
	ErrTokenNotYetValid     = fmt.Errorf("token is not valid yet")
	ErrTokenRevoked         = fmt.Errorf("token has been revoked")
	ErrTokenIsNotRefresh    = fmt.Errorf("token is not a refresh token")
	ErrTokenIsNotAccess     = fmt.Errorf("token is not an access token")

	// Authorization
	ErrEmptyAuthHeader    = fmt.Errorf("authorization header is missing")
	ErrInvalidAuthHeader  = fmt.Errorf("authorization header has an invalid format")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserInactive       = fmt.Errorf("user account is deactivated")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrForbidden          = fmt.Errorf("access denied")

	// Context
	ErrUserIDNotFoundInContext = fmt.Errorf("user id not found in request context")

	// Domain families. Typed errors below report Is() == true for their family.
	ErrNotFound          = fmt.Errorf("record not found")
	ErrBadRequest        = fmt.Errorf("bad request")
	ErrValidation        = fmt.Errorf("validation failed")
	ErrConflict          = fmt.Errorf("conflict")
	ErrNotAvailable      = fmt.Errorf("equipment is not available")
	ErrNotAssigned       = fmt.Errorf("equipment is not assigned")
	ErrInvalidTransition = fmt.Errorf("invalid status transition")
	ErrUnknownType       = fmt.Errorf("unknown equipment type")
	ErrEmailTaken        = fmt.Errorf("email is already registered")
	ErrTooManyAttempts   = fmt.Errorf("too many failed login attempts, try again later")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFoundError(entity string, id uint64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type NotAvailableError struct {
	EquipmentID uint64
	Status      string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("equipment %d is not available for assignment (status %q)", e.EquipmentID, e.Status)
}

func (e *NotAvailableError) Is(target error) bool { return target == ErrNotAvailable }

type NotAssignedError struct {
	EquipmentID uint64
	Status      string
}

func (e *NotAssignedError) Error() string {
	return fmt.Sprintf("equipment %d is not assigned (status %q)", e.EquipmentID, e.Status)
}

func (e *NotAssignedError) Is(target error) bool { return target == ErrNotAssigned }

type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("equipment is already %s", e.From)
	}
	return fmt.Sprintf("cannot change status from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("no factory registered for equipment type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
	Context map[string]interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, ctx map[string]interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Context: ctx}
}

// ToHttpError maps a domain error to its HTTP status. Anything unrecognised
// is an infrastructure failure and becomes a 500 with a generic message.
func ToHttpError(err error) *HttpError {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownType):
		code = http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotAvailable), errors.Is(err, ErrNotAssigned),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrEmailTaken):
		code = http.StatusConflict
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrUserInactive):
		code = http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenNotYetValid),
		errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrTokenIsNotAccess), errors.Is(err, ErrTokenIsNotRefresh),
		errors.Is(err, ErrEmptyAuthHeader), errors.Is(err, ErrInvalidAuthHeader), errors.Is(err, ErrInvalidSigningMethod),
		errors.Is(err, ErrUserIDNotFoundInContext):
		code = http.StatusUnauthorized
	case errors.Is(err, ErrTooManyAttempts):
		code = http.StatusTooManyRequests
	}

	if code == http.StatusInternalServerError {
		return NewHttpError(code, "internal server error", err, nil)
	}
	return NewHttpError(code, err.Error(), err, nil)
}
