// Package apperror defines the error taxonomy shared by services and handlers.
//
// Every failure a caller can observe falls into exactly one Kind. Services return
// *AppError values that wrap one sentinel; handlers branch on KindOf(err) and
// never parse messages.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrHandleTaken     = fmt.Errorf("handle taken: %w", ErrConflict)
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUnavailable     = errors.New("unavailable")
	ErrAvatarNotLinked = errors.New("avatar uploaded but not linked")
)

type AppError struct {
	Err     error  // sentinel this error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Key     string // Optional: storage key (AvatarNotLinked)
	Cause   error  // Optional: underlying failure, kept for errors.Is/As and logs
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that resource id already exists.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s %s already exists", resource, id),
	}
}

// HandleTaken reports that another profile already uses handle.
// The caller recovers by picking a different handle.
func HandleTaken(handle string, cause error) *AppError {
	return &AppError{
		Err:     ErrHandleTaken,
		Message: fmt.Sprintf("handle %q is already taken", handle),
		Field:   "handle",
		Cause:   cause,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the caller is not signed in, or the credentials are wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable wraps any store or provider failure that is not classified more
// precisely. It is always safe for the caller to retry later.
func Unavailable(what string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s is unavailable, try again later", what),
		Cause:   cause,
	}
}

// AvatarNotLinked means the avatar blob is stored under key but the profile
// still points at the previous avatar. Retrying only the link step is enough.
func AvatarNotLinked(key string, cause error) *AppError {
	return &AppError{
		Err:     ErrAvatarNotLinked,
		Message: "avatar was uploaded but the profile could not be updated",
		Field:   "avatar_uri",
		Key:     key,
		Cause:   cause,
	}
}

// Kind is the single outcome class of an error.
type Kind string

const (
	KindNone            Kind = ""
	KindValidation      Kind = "validation_error"
	KindHandleTaken     Kind = "handle_taken"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindUnauthorized    Kind = "unauthorized"
	KindUnavailable     Kind = "unavailable"
	KindAvatarNotLinked Kind = "avatar_not_linked"
	KindInternal        Kind = "internal_error"
)

// KindOf classifies err. More specific kinds win: a handle collision is also a
// conflict, and is reported as KindHandleTaken.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrHandleTaken):
		return KindHandleTaken
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrAvatarNotLinked):
		return KindAvatarNotLinked
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindInternal
	}
}
