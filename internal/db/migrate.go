package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationMaxRetries = 3

// MigrationStatus describes one migration file and whether it has been applied.
type MigrationStatus struct {
	Name    string
	Applied bool
}

// Migrator applies the .sql files found in a directory in lexical order, recording
// each one in schema_migrations.
type Migrator struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewMigrator reads migrations from fsys, typically os.DirFS(dir).
func NewMigrator(fsys fs.FS, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{fsys: fsys, logger: logger}
}

// Status lists every migration file alongside whether it has been applied.
func (m *Migrator) Status(ctx context.Context, pool Pool) ([]MigrationStatus, error) {
	names, err := m.list()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(names))
	for _, name := range names {
		_, ok := applied[name]
		out = append(out, MigrationStatus{Name: name, Applied: ok})
	}
	return out, nil
}

// Up applies every pending migration and returns the names it applied.
func (m *Migrator) Up(ctx context.Context, pool Pool) ([]string, error) {
	names, err := m.list()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, name := range names {
		if _, ok := applied[name]; ok {
			continue
		}

		contents, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return done, fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := m.apply(ctx, conn, name, string(contents)); err != nil {
			return done, err
		}

		m.logger.Info("applied migration", "name", name)
		done = append(done, name)
	}
	return done, nil
}

// ApplyFile executes a single SQL file (such as a seed) inside a retried transaction
// without recording it.
func ApplyFile(ctx context.Context, pool Pool, fsys fs.FS, name string) error {
	contents, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return Retry(ctx, migrationMaxRetries, func(int) error {
		return pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
			return nil
		})
	})
}

func (m *Migrator) list() ([]string, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(path.Ext(entry.Name()), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (m *Migrator) apply(ctx context.Context, conn *pgxpool.Conn, name, contents string) error {
	return Retry(ctx, migrationMaxRetries, func(attempt int) error {
		if attempt > 0 {
			m.logger.Warn("retrying migration after transient error", "name", name, "attempt", attempt+1)
		}
		return pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, contents); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
	})
}

func appliedMigrations(ctx context.Context, conn *pgxpool.Conn) (map[string]struct{}, error) {
	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
                version TEXT PRIMARY KEY,
                applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}
