package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindBadRequest
	KindUnauthorized
	KindConflict
	KindInternal
	KindThirdParty
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s doesn't exist", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Kind:    KindBadRequest,
		Message: message,
		Err:     err,
	}
}

func Conflict(message string, err error) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Message: message,
		Err:     err,
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Kind:    KindUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// ThirdParty marks a failure of an external collaborator (e.g. the
// scheduler registration call) so callers can tell it apart from
// local persistence failures.
func ThirdParty(service string, err error) *AppError {
	return &AppError{
		Kind:    KindThirdParty,
		Message: fmt.Sprintf("%s request failed", service),
		Err:     err,
	}
}

// KindOf extracts the kind of an error, unwrapping as needed.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Critical reports whether an error must abort a job and flip it to
// failed. Per-transport send failures are wrapped with NonCritical and
// only ever logged; everything else on the execution path is critical.
func Critical(err error) bool {
	if err == nil {
		return false
	}
	var nc *nonCriticalError
	return !errors.As(err, &nc)
}

type nonCriticalError struct {
	err error
}

func (e *nonCriticalError) Error() string {
	return e.err.Error()
}

func (e *nonCriticalError) Unwrap() error {
	return e.err
}

// NonCritical tags an error as one that is logged but never fails the job.
func NonCritical(err error) error {
	if err == nil {
		return nil
	}
	return &nonCriticalError{err: err}
}
