// Package repository implements the data access layer for the application.
// Every repository runs on the ambient transaction carried by the context when
// there is one, and on its own pool handle otherwise.
package repository

import (
	"context"
	"errors"
	"math"
	"time"

	"agora/internal/database"
	"agora/internal/models"
	"agora/internal/observability"

	"gorm.io/gorm"
)

type base struct {
	db    *gorm.DB
	table string
	log   *observability.RepoLogger
}

func newBase(db *gorm.DB, table string) base {
	return base{db: db, table: table, log: observability.NewRepoLogger(table)}
}

func (b base) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, b.db)
}

func (b base) track(operation string) func() {
	return observability.TrackQuery(operation, b.table)
}

// fail translates err and logs it when it is unexpected.
func (b base) fail(ctx context.Context, operation string, err error) error {
	err = translateError(err)
	if models.IsKind(err, models.KindInternal) {
		b.log.LogError(ctx, err, operation)
	}
	return err
}

// translateError maps driver errors onto the taxonomy. Unique and foreign key
// breaches keep the offending column so services can pick the specific error.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if c, ok := database.ParseConstraintError(err); ok {
		switch c.Kind {
		case database.ConstraintUnique:
			return models.NewConstraintError(c.Column, err)
		case database.ConstraintForeignKey:
			return models.NewForeignKeyError(c.Column, err)
		case database.ConstraintCheck:
			return models.NewValidationError("check constraint violated: " + c.Name).Wrap(err)
		}
	}
	return models.NewInternalError(err)
}

func takeOrNil[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func exists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
	if offset > 0 && limit <= 0 {
		limit = math.MaxInt32
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// applyUpdates writes changes to the row with id and stamps updated_at.
// It reports whether a row matched.
func applyUpdates(q *gorm.DB, model any, id uint, changes map[string]any) (bool, error) {
	changes["updated_at"] = time.Now().UTC()
	res := q.Model(model).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// adjustCounter adds delta to likes_count unless that would go below zero.
func adjustCounter(q *gorm.DB, model any, id uint, delta int) (bool, error) {
	res := q.Model(model).
		Where("id = ? AND likes_count + ? >= 0", id, delta).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
