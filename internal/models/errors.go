package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the coarse class of an AppError.
type ErrorKind string

// Error kinds.
const (
	KindConstraint   ErrorKind = "constraint_violation"
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindValidation   ErrorKind = "validation"
	KindInternal     ErrorKind = "internal"
)

// Generic error codes produced by repositories before a service narrows them.
const (
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeForeignKeyViolation = "FOREIGN_KEY_VIOLATION"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	// Field is the offending column for constraint violations, when known.
	Field string
	Err   error
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

// Is matches on Code so wrapped copies of a sentinel still satisfy errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *AppError) Wrap(cause error) *AppError {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(format string, args ...any) *AppError {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

func newSentinel(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Constraint violations.
var (
	ErrEmailTaken            = newSentinel(KindConstraint, "EMAIL_TAKEN", "email is already registered")
	ErrNicknameTaken         = newSentinel(KindConstraint, "NICKNAME_TAKEN", "nickname is already taken")
	ErrAlreadyLiked          = newSentinel(KindConstraint, "ALREADY_LIKED", "target is already liked by this user")
	ErrDuplicateCategoryName = newSentinel(KindConstraint, "DUPLICATE_CATEGORY_NAME", "category name already exists")
	ErrDuplicateTagName      = newSentinel(KindConstraint, "DUPLICATE_TAG_NAME", "tag name already exists")
)

// Missing entities.
var (
	ErrUserNotFound     = newSentinel(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrPostNotFound     = newSentinel(KindNotFound, "POST_NOT_FOUND", "post not found")
	ErrCommentNotFound  = newSentinel(KindNotFound, "COMMENT_NOT_FOUND", "comment not found")
	ErrCategoryNotFound = newSentinel(KindNotFound, "CATEGORY_NOT_FOUND", "category not found")
	ErrTagNotFound      = newSentinel(KindNotFound, "TAG_NOT_FOUND", "tag not found")
	ErrTargetNotFound   = newSentinel(KindNotFound, "TARGET_NOT_FOUND", "like target not found")
)

// Illegal operations given current state.
var (
	ErrInvalidParent           = newSentinel(KindInvalidState, "INVALID_PARENT", "parent comment must be a top-level comment on the same post")
	ErrUserDeleted             = newSentinel(KindInvalidState, "USER_DELETED", "user account has been deleted")
	ErrUserSuspended           = newSentinel(KindInvalidState, "USER_SUSPENDED", "user account is suspended")
	ErrInvalidStatusTransition = newSentinel(KindInvalidState, "INVALID_STATUS_TRANSITION", "user status transition is not allowed")
	ErrCategoryInUse           = newSentinel(KindInvalidState, "CATEGORY_IN_USE", "category is still referenced by posts")
	ErrInvalidCredentials      = newSentinel(KindInvalidState, "INVALID_CREDENTIALS", "invalid email or password")
	ErrNotAuthor               = newSentinel(KindInvalidState, "NOT_AUTHOR", "only the author or an admin may change this content")
)

// ErrInvalidTargetType rejects like targets other than post and comment.
var ErrInvalidTargetType = newSentinel(KindValidation, "INVALID_TARGET_TYPE", "target type must be post or comment")

// NewNotFoundError builds a generic not-found error for a resource.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewValidationError builds a validation error.
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: message,
	}
}

// NewConstraintError reports a unique constraint breach on field.
func NewConstraintError(field string, err error) *AppError {
	return &AppError{
		Kind:    KindConstraint,
		Code:    CodeConstraintViolation,
		Message: fmt.Sprintf("unique constraint violated on %s", fieldOrUnknown(field)),
		Field:   field,
		Err:     err,
	}
}

// NewForeignKeyError reports a reference to a missing row, or a restricted delete.
func NewForeignKeyError(field string, err error) *AppError {
	return &AppError{
		Kind:    KindConstraint,
		Code:    CodeForeignKeyViolation,
		Message: fmt.Sprintf("foreign key violated on %s", fieldOrUnknown(field)),
		Field:   field,
		Err:     err,
	}
}

// NewInternalError wraps an unexpected storage failure.
func NewInternalError(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

func fieldOrUnknown(field string) string {
	if field == "" {
		return "unknown field"
	}
	return field
}

// AsAppError extracts the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// IsUniqueViolation reports whether err is an untranslated unique constraint breach,
// optionally restricted to one column.
func IsUniqueViolation(err error, field string) bool {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != CodeConstraintViolation {
		return false
	}
	return field == "" || appErr.Field == field
}

// IsForeignKeyViolation reports whether err is an untranslated foreign key breach.
func IsForeignKeyViolation(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == CodeForeignKeyViolation
}

// ErrorCode returns the AppError code for err, or INTERNAL_ERROR for anything else.
func ErrorCode(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to a stable status code for transport layers.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	appErr, ok := AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case appErr.Code == ErrInvalidCredentials.Code:
		return http.StatusUnauthorized
	case appErr.Code == ErrUserSuspended.Code || appErr.Code == ErrUserDeleted.Code || appErr.Code == ErrNotAuthor.Code:
		return http.StatusForbidden
	}
	switch appErr.Kind {
	case KindConstraint, KindInvalidState:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
