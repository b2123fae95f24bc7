// Package database handles database connections, transactions, and schema migrations.
package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agora/internal/config"
	"agora/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported dialect names, as reported by gorm.Dialector.Name().
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Connect opens a database connection using the provided configuration and returns the gorm DB instance.
// The schema is not touched; run a Migrator afterwards.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case DialectPostgres:
		dialector = postgres.Open(cfg.PostgresDSN())
	case DialectSQLite:
		dialector = sqlite.Open(SQLiteDSN(cfg.DBSQLitePath))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	slowThreshold := time.Duration(cfg.DBSlowQueryMS) * time.Millisecond
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(observability.Logger, slowThreshold, logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}

	observability.Logger.Info("Database connected successfully",
		slog.String("driver", cfg.DBDriver),
		slog.Int("max_open_conns", cfg.DBMaxOpenConns),
	)
	return db, nil
}

// SQLiteDSN appends the connection parameters every SQLite handle needs:
// foreign key enforcement and a busy timeout.
func SQLiteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	idle := cfg.DBMaxIdleConns
	if idle > cfg.DBMaxOpenConns {
		idle = cfg.DBMaxOpenConns
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
