package database

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"agora/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// migrationLockKey serializes concurrent migrators on PostgreSQL.
const migrationLockKey = 827_361_004

// SchemaMigration is one ledger row: a schema change that is structurally present.
type SchemaMigration struct {
	Version   uint      `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Batch     int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName returns the database table name for SchemaMigration.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// BatchResult describes one applied or reverted batch.
type BatchResult struct {
	Batch    int
	Versions []uint
}

// MigrationStatus reports whether a registered migration is applied.
type MigrationStatus struct {
	Version   uint
	Name      string
	Applied   bool
	Batch     int
	AppliedAt *time.Time
}

// Migrator applies and reverts the registered migrations in batches.
// Every batch runs in a single transaction together with its ledger rows,
// so the ledger always matches what is structurally present.
type Migrator struct {
	db         *gorm.DB
	dialect    string
	migrations []Migration
}

// NewMigrator returns a Migrator over the embedded migrations for db's dialect.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	dialect := db.Dialector.Name()
	migrations, err := MigrationsFor(dialect)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, dialect: dialect, migrations: migrations}, nil
}

// NewMigratorWith returns a Migrator over an explicit migration set.
func NewMigratorWith(db *gorm.DB, migrations []Migration) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, dialect: db.Dialector.Name(), migrations: sorted}
}

// Migrations returns the registered migrations in ascending order.
func (m *Migrator) Migrations() []Migration {
	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	return out
}

// Latest returns the highest registered version, or 0 when none are registered.
func (m *Migrator) Latest() uint {
	if len(m.migrations) == 0 {
		return 0
	}
	return m.migrations[len(m.migrations)-1].Version
}

func (m *Migrator) find(version uint) (Migration, bool) {
	for _, mig := range m.migrations {
		if mig.Version == version {
			return mig, true
		}
	}
	return Migration{}, false
}

// Apply runs every pending migration up to and including upTo (0 means latest)
// as one new batch. Nothing pending is a no-op returning an empty result.
func (m *Migrator) Apply(ctx context.Context, upTo uint) (BatchResult, error) {
	span, ctx := observability.NewSpan(ctx, "migrator.apply",
		attribute.String("db.system", m.dialect),
		attribute.Int64("migration.up_to", int64(upTo)),
	)
	defer span.End()

	if upTo != 0 {
		if _, ok := m.find(upTo); !ok {
			err := fmt.Errorf("migration version %d not found", upTo)
			span.SetError(err)
			return BatchResult{}, err
		}
	}

	if err := m.ensureLedger(ctx); err != nil {
		span.SetError(err)
		return BatchResult{}, err
	}

	var result BatchResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.lock(tx); err != nil {
			return err
		}
		applied, err := loadLedger(tx)
		if err != nil {
			return err
		}
		if err := validateAppliedVersions(applied, m.migrations); err != nil {
			return err
		}

		appliedSet := make(map[uint]bool, len(applied))
		for _, row := range applied {
			appliedSet[row.Version] = true
		}

		batch := maxBatch(applied) + 1
		for _, mig := range m.migrations {
			if appliedSet[mig.Version] {
				continue
			}
			if upTo != 0 && mig.Version > upTo {
				break
			}

			observability.Logger.InfoContext(ctx, "Applying migration",
				slog.Uint64("version", uint64(mig.Version)),
				slog.String("name", mig.Name),
				slog.Int("batch", batch),
			)
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", mig, err)
			}
			row := SchemaMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Batch:     batch,
				AppliedAt: time.Now().UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", mig, err)
			}
			result.Versions = append(result.Versions, mig.Version)
		}
		if len(result.Versions) > 0 {
			result.Batch = batch
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		observability.Logger.ErrorContext(ctx, "Migration batch failed and was rolled back", slog.String("error", err.Error()))
		return BatchResult{}, err
	}

	if len(result.Versions) == 0 {
		observability.Logger.DebugContext(ctx, "No pending migrations")
	} else {
		observability.MigrationsApplied.WithLabelValues("up").Add(float64(len(result.Versions)))
		observability.Logger.InfoContext(ctx, "Migration batch applied",
			slog.Int("batch", result.Batch),
			slog.Int("count", len(result.Versions)),
		)
	}
	return result, nil
}

// Rollback reverts the most recent steps batches (at least one), newest first.
// Each batch is reverted in its own transaction, versions descending.
func (m *Migrator) Rollback(ctx context.Context, steps int) ([]BatchResult, error) {
	if steps < 1 {
		steps = 1
	}
	span, ctx := observability.NewSpan(ctx, "migrator.rollback",
		attribute.String("db.system", m.dialect),
		attribute.Int("migration.steps", steps),
	)
	defer span.End()

	results, err := m.rollback(ctx, steps)
	if err != nil {
		span.SetError(err)
	}
	return results, err
}

func (m *Migrator) rollback(ctx context.Context, steps int) ([]BatchResult, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&SchemaMigration{}) {
		return nil, nil
	}

	var results []BatchResult
	for steps < 0 || len(results) < steps {
		result, err := m.rollbackBatch(ctx)
		if err != nil {
			return results, err
		}
		if result.Batch == 0 {
			break
		}
		results = append(results, result)
	}
	return results, nil
}

func (m *Migrator) rollbackBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := m.lock(tx); err != nil {
			return err
		}
		applied, err := loadLedger(tx)
		if err != nil {
			return err
		}
		if err := validateAppliedVersions(applied, m.migrations); err != nil {
			return err
		}
		batch := maxBatch(applied)
		if batch == 0 {
			return nil
		}

		for i := len(applied) - 1; i >= 0; i-- {
			row := applied[i]
			if row.Batch != batch {
				continue
			}
			mig, _ := m.find(row.Version)

			observability.Logger.InfoContext(ctx, "Rolling back migration",
				slog.Uint64("version", uint64(mig.Version)),
				slog.String("name", mig.Name),
				slog.Int("batch", batch),
			)
			if err := tx.Exec(mig.DownScript).Error; err != nil {
				return fmt.Errorf("failed to run rollback SQL for migration %s: %w", mig, err)
			}
			if err := tx.Where("version = ?", row.Version).Delete(&SchemaMigration{}).Error; err != nil {
				return fmt.Errorf("failed to remove migration record %d: %w", row.Version, err)
			}
			result.Versions = append(result.Versions, row.Version)
		}
		result.Batch = batch
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	if result.Batch != 0 {
		observability.MigrationsApplied.WithLabelValues("down").Add(float64(len(result.Versions)))
	}
	return result, nil
}

// Reset reverts every batch and then drops the ledger itself, leaving no tables behind.
func (m *Migrator) Reset(ctx context.Context) ([]BatchResult, error) {
	span, ctx := observability.NewSpan(ctx, "migrator.reset", attribute.String("db.system", m.dialect))
	defer span.End()

	results, err := m.rollback(ctx, -1)
	if err != nil {
		span.SetError(err)
		return results, err
	}
	if err := m.db.WithContext(ctx).Migrator().DropTable(&SchemaMigration{}); err != nil {
		span.SetError(err)
		return results, fmt.Errorf("failed to drop migration ledger: %w", err)
	}
	observability.Logger.InfoContext(ctx, "Schema reset", slog.Int("batches", len(results)))
	return results, nil
}

// Status lists every registered migration with its ledger state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	var applied []SchemaMigration
	if m.db.WithContext(ctx).Migrator().HasTable(&SchemaMigration{}) {
		var err error
		applied, err = loadLedger(m.db.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if err := validateAppliedVersions(applied, m.migrations); err != nil {
			return nil, err
		}
	}

	byVersion := make(map[uint]SchemaMigration, len(applied))
	for _, row := range applied {
		byVersion[row.Version] = row
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if row, ok := byVersion[mig.Version]; ok {
			appliedAt := row.AppliedAt
			st.Applied = true
			st.Batch = row.Batch
			st.AppliedAt = &appliedAt
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (m *Migrator) ensureLedger(ctx context.Context) error {
	var ddl string
	switch m.dialect {
	case DialectPostgres:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	batch INTEGER NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	batch INTEGER NOT NULL,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	}
	if err := m.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to ensure migration ledger: %w", err)
	}
	return nil
}

func (m *Migrator) lock(tx *gorm.DB) error {
	if m.dialect != DialectPostgres {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	return nil
}

func loadLedger(db *gorm.DB) ([]SchemaMigration, error) {
	var rows []SchemaMigration
	if err := db.Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return rows, nil
}

func maxBatch(rows []SchemaMigration) int {
	batch := 0
	for _, row := range rows {
		if row.Batch > batch {
			batch = row.Batch
		}
	}
	return batch
}

func validateAppliedVersions(applied []SchemaMigration, registered []Migration) error {
	if len(applied) == 0 {
		return nil
	}
	known := make(map[uint]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	for _, row := range applied {
		if _, ok := known[row.Version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", row.Version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf(
		"schema_migrations contains unknown versions not present in code: %s",
		strings.Join(unknown, ", "),
	)
}
