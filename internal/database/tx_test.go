package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openWidgetDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, db.Exec("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)").Error)
	return db
}

func countWidgets(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithinTransaction_Commit(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)

	err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		return Conn(ctx, db).Create(&widget{Name: "a"}).Error
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, countWidgets(t, db))
}

func TestWithinTransaction_RollbackOnError(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)
	boom := errors.New("boom")

	err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, Conn(ctx, db).Create(&widget{Name: "a"}).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countWidgets(t, db))
}

func TestWithinTransaction_RollbackOnPanic(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)

	assert.Panics(t, func() {
		_ = tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
			require.NoError(t, Conn(ctx, db).Create(&widget{Name: "a"}).Error)
			panic("kaboom")
		})
	})
	assert.Zero(t, countWidgets(t, db))
}

func TestWithinTransaction_NestedJoinsOuter(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)

	err := tm.WithinTransaction(context.Background(), func(ctx context.Context) error {
		outer, _ := TxFromContext(ctx)
		require.NoError(t, tm.WithinTransaction(ctx, func(inner context.Context) error {
			tx, _ := TxFromContext(inner)
			assert.Same(t, outer, tx)
			return Conn(inner, db).Create(&widget{Name: "inner"}).Error
		}))
		return errors.New("outer fails")
	})
	assert.Error(t, err)
	assert.Zero(t, countWidgets(t, db), "inner work is undone with the outer transaction")
}

func TestWithinTransaction_CanceledContext(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := tm.WithinTransaction(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithinTransaction_CancelMidway(t *testing.T) {
	db := openWidgetDB(t)
	tm := NewTxManager(db)

	ctx, cancel := context.WithCancel(context.Background())
	err := tm.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := Conn(ctx, db).Create(&widget{Name: "a"}).Error; err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.Error(t, err)
	assert.Zero(t, countWidgets(t, db))
}

func TestConn_WithoutTxUsesPool(t *testing.T) {
	db := openWidgetDB(t)
	_, ok := TxFromContext(context.Background())
	assert.False(t, ok)
	require.NoError(t, Conn(context.Background(), db).Create(&widget{Name: "direct"}).Error)
	assert.EqualValues(t, 1, countWidgets(t, db))
}
