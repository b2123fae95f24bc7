// Package service enforces the invariants that span entities on top of the repositories.
package service

import (
	"context"
	"fmt"
	"strings"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Transactor runs fn so that all repository calls made with the context it
// receives commit or roll back together. database.TxManager implements it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type call struct {
	service string
	method  string
	span    *observability.Span
}

func begin(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, *call) {
	span, ctx := observability.NewSpan(ctx, service+"."+method, attrs...)
	observability.LogServiceCall(ctx, service, method, nil)
	return ctx, &call{service: service, method: method, span: span}
}

// end closes the span and counts the error. Anything that is not an AppError by
// now is wrapped as internal so storage errors never leave the package raw.
func (c *call) end(errp *error) {
	defer c.span.End()
	if errp == nil || *errp == nil {
		return
	}
	if _, ok := models.AsAppError(*errp); !ok {
		*errp = models.NewInternalError(*errp)
	}
	c.span.SetError(*errp)
	observability.RecordDomainError(c.service, models.ErrorCode(*errp))
}

// ensureCanWrite loads the acting user and rejects accounts that may not author content.
func ensureCanWrite(ctx context.Context, users repository.UserRepository, userID uint) (*models.User, error) {
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	switch user.Status {
	case models.StatusDeleted:
		return nil, models.ErrUserDeleted
	case models.StatusSuspended:
		return nil, models.ErrUserSuspended
	}
	return user, nil
}

// ensureAuthor allows the author of a row and admins.
func ensureAuthor(actor *models.User, authorID uint) error {
	if actor.ID == authorID || actor.Role == models.RoleAdmin {
		return nil
	}
	return models.ErrNotAuthor
}

func required(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", models.NewValidationError(field + " is required")
	}
	return value, nil
}

func maxLen(field, value string, limit int) error {
	if len([]rune(value)) > limit {
		return models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", field, limit))
	}
	return nil
}
