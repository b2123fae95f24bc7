package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is one schema change paired with its exact inverse.
type Migration struct {
	Version    uint
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// MigrationsFor returns the embedded migrations for a dialect in ascending order.
func MigrationsFor(dialect string) ([]Migration, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	return LoadMigrations(migrationFS, path.Join("migrations", dialect))
}

// LoadMigrations reads NNNNNN_name.up.sql / NNNNNN_name.down.sql pairs from dir.
// Every up script needs a matching down script and versions must be unique.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[uint]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, fmt.Errorf("invalid migration file name %q", name)
		}
		version, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil || version == 0 {
			return nil, fmt.Errorf("invalid migration version in %q", name)
		}
		if prev, dup := seen[uint(version)]; dup {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[uint(version)] = name

		upBytes, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration %s: %w", name, err)
		}
		downName := base + ".down.sql"
		downBytes, err := fs.ReadFile(fsys, path.Join(dir, downName))
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration %s: %w", downName, err)
		}

		migrations = append(migrations, Migration{
			Version:    uint(version),
			Name:       parts[1],
			UpScript:   string(upBytes),
			DownScript: string(downBytes),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
