package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one numbered schema change. Files are named
// NNN_name.up.sql and, optionally, NNN_name.down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationStatus reports whether a migration has been applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies migrations read from fsys against one schema.
type Migrator struct {
	pool   *pgxpool.Pool
	fsys   fs.FS
	schema string
}

func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, schema string) *Migrator {
	if schema == "" {
		schema = "public"
	}
	return &Migrator{pool: pool, fsys: fsys, schema: schema}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, pgx.Identifier{m.schema}.Sanitize())
	if _, err := m.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema_migrations in %s: %w", m.schema, err)
	}
	return nil
}

// Load reads every migration in the filesystem root, sorted by version.
// Files without a numeric prefix or a .up.sql/.down.sql suffix are skipped.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		file := entry.Name()

		var direction string
		switch {
		case strings.HasSuffix(file, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(file, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		prefix, rest, ok := strings.Cut(file, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		body, err := fs.ReadFile(m.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: strings.TrimSuffix(rest, "."+direction+".sql")}
			byVersion[version] = mig
		}
		if direction == "up" {
			mig.Up = string(body)
		} else {
			mig.Down = string(body)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" {
			return nil, fmt.Errorf("migration %d has no up script", mig.Version)
		}
		migrations = append(migrations, *mig)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx, fmt.Sprintf(`SELECT version, applied_at FROM %s.schema_migrations`,
		pgx.Identifier{m.schema}.Sanitize()))
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var v int
		var at time.Time
		if err := rows.Scan(&v, &at); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = at
	}
	return applied, rows.Err()
}

// Up applies every pending migration in version order, each in its own
// transaction, and returns how many were applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	migrations, err := m.Load()
	if err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.run(ctx, mig.Up, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// Down reverts the most recent applied migrations, newest first.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, nil
	}
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	migrations, err := m.Load()
	if err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(migrations) - 1; i >= 0 && count < steps; i-- {
		mig := migrations[i]
		if _, ok := applied[mig.Version]; !ok {
			continue
		}
		if mig.Down == "" {
			return count, fmt.Errorf("migration %d (%s) cannot be reverted", mig.Version, mig.Name)
		}
		err := m.run(ctx, mig.Down, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, "DELETE FROM schema_migrations WHERE version = $1", mig.Version)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("revert migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

func (m *Migrator) run(ctx context.Context, script string, record func(pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET LOCAL search_path TO "+pgx.Identifier{m.schema}.Sanitize()); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, script); err != nil {
		return fmt.Errorf("execute SQL: %w", err)
	}
	if err := record(tx); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit(ctx)
}

// Status lists all known migrations with their applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := m.Load()
	if err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	return buildStatus(migrations, applied), nil
}

func buildStatus(migrations []Migration, applied map[int]time.Time) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			st.Applied = true
			st.AppliedAt = &at
		}
		statuses = append(statuses, st)
	}
	return statuses
}
