package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesOnCode(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", ErrEmailTaken.Wrap(errors.New("duplicate key")))

	assert.ErrorIs(t, wrapped, ErrEmailTaken)
	assert.NotErrorIs(t, wrapped, ErrNicknameTaken)

	custom := ErrPostNotFound.WithMessage("post %d not found", 7)
	assert.ErrorIs(t, custom, ErrPostNotFound)
	assert.Equal(t, "post 7 not found", custom.Error())
	assert.Equal(t, "post not found", ErrPostNotFound.Message, "sentinel must not be mutated")
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewInternalError(errors.New("connection reset"))
	assert.Equal(t, "Internal server error: connection reset", err.Error())
	assert.ErrorContains(t, errors.Unwrap(err), "connection reset")
}

func TestConstraintHelpers(t *testing.T) {
	unique := NewConstraintError("email", errors.New("dup"))
	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(unique, "email"))
	assert.False(t, IsUniqueViolation(unique, "nickname"))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.True(t, IsKind(unique, KindConstraint))

	fk := NewForeignKeyError("category_id", nil)
	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(fk, ""))
	assert.Equal(t, "foreign key violated on category_id", fk.Message)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ALREADY_LIKED", ErrorCode(ErrAlreadyLiked))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{ErrEmailTaken, http.StatusConflict},
		{ErrInvalidParent, http.StatusConflict},
		{ErrPostNotFound, http.StatusNotFound},
		{ErrInvalidTargetType, http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrUserSuspended, http.StatusForbidden},
		{ErrNotAuthor, http.StatusForbidden},
		{NewInternalError(nil), http.StatusInternalServerError},
		{errors.New("raw"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestUserStatus_Transitions(t *testing.T) {
	assert.True(t, StatusActive.CanTransitionTo(StatusSuspended))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusActive))
	assert.True(t, StatusActive.CanTransitionTo(StatusDeleted))
	assert.True(t, StatusSuspended.CanTransitionTo(StatusDeleted))
	assert.False(t, StatusDeleted.CanTransitionTo(StatusActive))
	assert.False(t, StatusDeleted.CanTransitionTo(StatusSuspended))
	assert.False(t, StatusActive.CanTransitionTo(StatusActive))
}

func TestTargetType_Valid(t *testing.T) {
	assert.True(t, TargetPost.Valid())
	assert.True(t, TargetComment.Valid())
	assert.False(t, TargetType("user").Valid())
}
