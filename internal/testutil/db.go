// Package testutil provides database fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/seed"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Admin credentials used by OpenSeededDB.
const (
	AdminEmail    = "admin@agora.test"
	AdminNickname = "admin"
	AdminPassword = "admin-password-1"
)

var counter atomic.Int64

// OpenDB returns a fully migrated private in-memory SQLite database.
// A single connection keeps every statement on the same in-memory store.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := &config.Config{
		Env:            "test",
		DBDriver:       database.DialectSQLite,
		DBSQLitePath:   fmt.Sprintf("file:agora_test_%d?mode=memory&cache=shared", counter.Add(1)),
		DBMaxOpenConns: 1,
		DBMaxIdleConns: 1,
	}
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	m, err := database.NewMigrator(db)
	require.NoError(t, err)
	_, err = m.Apply(context.Background(), 0)
	require.NoError(t, err)
	return db
}

// OpenSeededDB returns a migrated database with the baseline seed applied.
func OpenSeededDB(t testing.TB) (*gorm.DB, seed.Summary) {
	t.Helper()
	db := OpenDB(t)
	summary, err := seed.Baseline(context.Background(), db, seed.BaselineOptions{
		AdminEmail:    AdminEmail,
		AdminNickname: AdminNickname,
		AdminPassword: AdminPassword,
		BcryptCost:    4,
	})
	require.NoError(t, err)
	return db, summary
}
