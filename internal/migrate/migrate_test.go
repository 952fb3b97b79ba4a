// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

type recordingRunner struct {
	names []string
	vars  []map[string]string
}

func (r *recordingRunner) RunTask(ctx context.Context, name string, vars map[string]string) error {
	r.names = append(r.names, name)
	r.vars = append(r.vars, vars)
	return nil
}

func TestExecDriver_DelegatesToTasks(t *testing.T) {
	r := &recordingRunner{}
	d := NewExecDriver(r)

	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	files, err := d.Create(context.Background(), "add users; drop 'x'")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if files != nil {
		t.Fatalf("exec driver should not report files, got %v", files)
	}
	if !reflect.DeepEqual(r.names, []string{"migrate", "create-migration"}) {
		t.Fatalf("unexpected tasks %v", r.names)
	}
	if r.vars[1]["message"] != "add users; drop 'x'" {
		t.Fatalf("message not passed verbatim: %q", r.vars[1]["message"])
	}
}

func TestParseDSN(t *testing.T) {
	cases := []struct {
		raw     string
		hint    string
		dialect Dialect
		dsn     string
	}{
		{"postgresql+asyncpg://u:p@localhost:5432/notifications", "", Postgres, "postgres://u:p@localhost:5432/notifications"},
		{"postgres://u@db/app?sslmode=disable", "postgres", Postgres, "postgres://u@db/app?sslmode=disable"},
		{"sqlite:///./app.db", "", SQLite, "./app.db"},
		{"sqlite+aiosqlite:////var/lib/app.db", "", SQLite, "/var/lib/app.db"},
		{"sqlite://", "", SQLite, ":memory:"},
		{"app.db", "", SQLite, "app.db"},
		{":memory:", "", SQLite, ":memory:"},
	}
	for _, tc := range cases {
		got, err := ParseDSN(tc.raw, tc.hint)
		if err != nil {
			t.Fatalf("ParseDSN(%q): %v", tc.raw, err)
		}
		if got.Dialect != tc.dialect || got.DSN != tc.dsn {
			t.Fatalf("ParseDSN(%q) = %+v, want %s %s", tc.raw, got, tc.dialect, tc.dsn)
		}
	}
}

func TestParseDSN_MySQL(t *testing.T) {
	got, err := ParseDSN("mysql+pymysql://app:secret@db/notifications", "")
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if got.Dialect != MySQL || got.Driver != "mysql" {
		t.Fatalf("unexpected target %+v", got)
	}
	cfg, err := mysql.ParseDSN(got.DSN)
	if err != nil {
		t.Fatalf("driver cannot parse %q: %v", got.DSN, err)
	}
	if cfg.User != "app" || cfg.Passwd != "secret" || cfg.Addr != "db:3306" || cfg.DBName != "notifications" || !cfg.ParseTime {
		t.Fatalf("unexpected mysql config %+v", cfg)
	}
}

func TestParseDSN_Errors(t *testing.T) {
	for _, tc := range []struct{ raw, hint string }{
		{"", ""},
		{"redis://localhost:6379/0", ""},
		{"postgresql://u@db/app", "mysql"},
		{"host=db user=u", ""},
		{"whatever", "oracle"},
	} {
		if _, err := ParseDSN(tc.raw, tc.hint); err == nil {
			t.Fatalf("ParseDSN(%q, %q) should fail", tc.raw, tc.hint)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Add users table":              "add_users_table",
		"  add   index -- on email!! ": "add_index_on_email",
		"Übersicht für Benachrichtigungen": "ubersicht_fur_benachrichtigungen",
		"!!!":                           "",
		"v2 schema":                     "v2_schema",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slugify(strings.Repeat("word ", 40)); len(got) > maxSlugLen || strings.HasSuffix(got, "_") {
		t.Fatalf("slug not truncated cleanly: %q", got)
	}
}

func TestBunDriver_CreateWritesPair(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	d := NewBunDriver(BunOptions{Dir: dir})
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) }

	files, err := d.Create(context.Background(), "Create notifications")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []string{
		filepath.Join(dir, "20260301123045_create_notifications.up.sql"),
		filepath.Join(dir, "20260301123045_create_notifications.down.sql"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	body, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(body), "-- Create notifications") {
		t.Fatalf("unexpected body %q", body)
	}

	again, err := d.Create(context.Background(), "Create notifications")
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if filepath.Base(again[0]) != "20260301123046_create_notifications.up.sql" {
		t.Fatalf("second create should move to the next free second, got %v", again)
	}
	if _, err := d.Create(context.Background(), "???"); err == nil {
		t.Fatalf("unusable message should be rejected")
	}
}

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBunDriver_MigrateSQLite(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	writeMigration(t, dir, "20260101000000_create_notifications.up.sql",
		"CREATE TABLE notifications (id INTEGER PRIMARY KEY, body TEXT NOT NULL);\n")
	writeMigration(t, dir, "20260101000000_create_notifications.down.sql",
		"DROP TABLE notifications;\n")
	writeMigration(t, dir, "20260102000000_add_read_flag.up.sql",
		"ALTER TABLE notifications ADD COLUMN read INTEGER NOT NULL DEFAULT 0;\n")

	d := NewBunDriver(BunOptions{DSN: "sqlite:///app.db", Dir: dir, Root: root})
	ctx := context.Background()
	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// a second run has nothing to do
	if err := d.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "app.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("INSERT INTO notifications (body, read) VALUES ('hi', 1)"); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", applied)
	}
}

func TestBunDriver_MigrateCreatedFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	d := NewBunDriver(BunOptions{DSN: filepath.Join(root, "dev.db"), Dialect: "sqlite", Dir: dir})

	if _, err := d.Create(context.Background(), "initial"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate over generated placeholder: %v", err)
	}
}

func TestBunDriver_SameSecondMigrationsAreAllApplied(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	d := NewBunDriver(BunOptions{DSN: filepath.Join(root, "dev.db"), Dialect: "sqlite", Dir: dir})
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC) }

	for _, table := range []string{"users", "posts"} {
		files, err := d.Create(context.Background(), "create "+table)
		if err != nil {
			t.Fatalf("Create %s: %v", table, err)
		}
		ddl := "CREATE TABLE " + table + " (id INTEGER PRIMARY KEY);\n"
		if err := os.WriteFile(files[0], []byte(ddl), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(root, "dev.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = db.Close() }()

	var recorded int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&recorded); err != nil {
		t.Fatalf("count: %v", err)
	}
	if recorded != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", recorded)
	}
	for _, table := range []string{"users", "posts"} {
		if _, err := db.Exec("INSERT INTO " + table + " DEFAULT VALUES"); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
}

func TestBunDriver_EmptyDirIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	d := NewBunDriver(BunOptions{DSN: ":memory:", Dir: dir})
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate on empty dir: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "missing")
	if err := NewBunDriver(BunOptions{DSN: ":memory:", Dir: missing}).Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate without a migrations dir: %v", err)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatalf("Migrate must not create the migrations dir")
	}
}

func TestBunDriver_Errors(t *testing.T) {
	if err := NewBunDriver(BunOptions{Dir: t.TempDir()}).Migrate(context.Background()); err != ErrNoDSN {
		t.Fatalf("expected ErrNoDSN, got %v", err)
	}
	notDir := filepath.Join(t.TempDir(), "migrations")
	if err := os.WriteFile(notDir, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewBunDriver(BunOptions{DSN: ":memory:", Dir: notDir}).Migrate(context.Background()); err == nil {
		t.Fatalf("expected error when the migrations path is a file")
	}
}
