package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// WithTx returns a copy of ctx carrying tx as the ambient transaction.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the ambient transaction, if any.
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// InTx reports whether ctx carries an ambient transaction.
func InTx(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}

// Conn returns the handle a repository should use for ctx: the ambient
// transaction when there is one, otherwise db itself.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// TxManager runs units of work inside a single database transaction.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTransaction runs fn in a transaction carried by the context passed to fn.
// A call made while a transaction is already ambient joins it instead of nesting.
// Any returned error, panic, or context cancellation rolls the whole unit back.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(WithTx(ctx, tx)); err != nil {
			return err
		}
		return ctx.Err()
	})
}
