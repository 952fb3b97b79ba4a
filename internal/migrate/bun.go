// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/logging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/migrate"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// ErrNoDSN is returned by BunDriver.Migrate without a connection string.
var ErrNoDSN = errors.New("migrate: no database URL configured (set migrate.dsn or DATABASE_URL)")

// timestampLayout names migration files; bun orders them by this prefix.
const timestampLayout = "20060102150405"

// BunOptions configures a BunDriver.
type BunOptions struct {
	DSN     string
	Dialect string
	// Dir holds the migration files.
	Dir string
	// Table records applied migrations; "<Table>_locks" guards concurrent runs.
	Table string
	// Root resolves relative SQLite paths.
	Root string
}

// BunDriver applies plain SQL migration files with bun/migrate.
type BunDriver struct {
	opts BunOptions
	now  func() time.Time
}

// NewBunDriver returns a driver for opts.
func NewBunDriver(opts BunOptions) *BunDriver {
	if opts.Table == "" {
		opts.Table = "schema_migrations"
	}
	return &BunDriver{opts: opts, now: time.Now}
}

// Migrate applies every pending `.up.sql` file as one migration group.
func (d *BunDriver) Migrate(ctx context.Context) error {
	if strings.TrimSpace(d.opts.DSN) == "" {
		return ErrNoDSN
	}
	target, err := ParseDSN(d.opts.DSN, d.opts.Dialect)
	if err != nil {
		return err
	}
	if target.Dialect == SQLite {
		target.DSN = d.sqlitePath(target.DSN)
	}

	if _, err := os.Stat(d.opts.Dir); errors.Is(err, fs.ErrNotExist) {
		logging.Debugf("migrate: %s does not exist", d.opts.Dir)
		logging.Infof("%s", i18n.T("migrate.up_to_date"))
		return nil
	}

	migrations := migrate.NewMigrations(migrate.WithMigrationsDirectory(d.opts.Dir))
	if err := migrations.Discover(os.DirFS(d.opts.Dir)); err != nil {
		return fmt.Errorf("migrate: reading %s: %w", d.opts.Dir, err)
	}
	if len(migrations.Sorted()) == 0 {
		logging.Infof("%s", i18n.T("migrate.up_to_date"))
		return nil
	}

	db, err := openDB(target)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m := migrate.NewMigrator(db, migrations,
		migrate.WithTableName(d.opts.Table),
		migrate.WithLocksTableName(d.opts.Table+"_locks"),
	)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("migrate: init: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("migrate: lock: %w", err)
	}
	defer func() { _ = m.Unlock(ctx) }()

	start := time.Now()
	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if group.IsZero() {
		logging.Infof("%s", i18n.T("migrate.up_to_date"))
		return nil
	}
	logging.Infof("%s", i18n.T("migrate.applied", group.ID, group.Migrations.String()))
	logging.Debugf("migrate: applied %d migration(s) in %s", len(group.Migrations), time.Since(start))
	return nil
}

// Create writes an empty up/down pair named after message.
func (d *BunDriver) Create(ctx context.Context, message string) ([]string, error) {
	slug := Slugify(message)
	if slug == "" {
		return nil, fmt.Errorf("migrate: %q does not yield a usable file name", message)
	}
	if err := os.MkdirAll(d.opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	version, err := d.freeVersion()
	if err != nil {
		return nil, err
	}
	base := version + "_" + slug
	var created []string
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(d.opts.Dir, base+suffix)
		content := fmt.Sprintf("-- %s\n\nSELECT 1;\n", strings.ReplaceAll(message, "\n", " "))
		if err := writeNew(path, content); err != nil {
			return created, err
		}
		created = append(created, path)
	}
	return created, nil
}

// freeVersion returns the first timestamp prefix, starting now, that no
// existing migration uses. bun keys migrations by this prefix.
func (d *BunDriver) freeVersion() (string, error) {
	entries, err := os.ReadDir(d.opts.Dir)
	if err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	taken := make(map[string]bool, len(entries))
	for _, e := range entries {
		if prefix, _, ok := strings.Cut(e.Name(), "_"); ok {
			taken[prefix] = true
		}
	}

	at := d.now().UTC().Truncate(time.Second)
	for taken[at.Format(timestampLayout)] {
		at = at.Add(time.Second)
	}
	return at.Format(timestampLayout), nil
}

func (d *BunDriver) sqlitePath(dsn string) string {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") || filepath.IsAbs(dsn) || d.opts.Root == "" {
		return dsn
	}
	return filepath.Join(d.opts.Root, dsn)
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	return f.Close()
}

func openDB(t Target) (*bun.DB, error) {
	switch t.Dialect {
	case Postgres:
		cfg, err := pgx.ParseConfig(t.DSN)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return bun.NewDB(stdlib.OpenDB(*cfg), pgdialect.New()), nil
	case MySQL:
		sqlDB, err := sql.Open(t.Driver, t.DSN)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return bun.NewDB(sqlDB, mysqldialect.New()), nil
	case SQLite:
		sqlDB, err := sql.Open(t.Driver, t.DSN)
		if err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		// an in-memory database lives in a single connection
		if t.DSN == ":memory:" {
			sqlDB.SetMaxOpenConns(1)
		}
		return bun.NewDB(sqlDB, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("migrate: unsupported dialect %q", t.Dialect)
	}
}
