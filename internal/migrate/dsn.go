// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package migrate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// Dialect names a supported database.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// Target is a normalised connection target.
type Target struct {
	Dialect Dialect
	// Driver is the database/sql driver name.
	Driver string
	DSN    string
}

// ParseDSN normalises a connection URL. SQLAlchemy style URLs with a driver
// suffix (postgresql+asyncpg://, mysql+pymysql://, sqlite:///./app.db) are
// accepted. hint, when set, names the expected dialect; it is required for
// DSNs without a URL scheme other than SQLite file names.
func ParseDSN(raw, hint string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("migrate: empty DSN")
	}

	scheme, rest, hasScheme := strings.Cut(raw, "://")
	if !hasScheme {
		return parseBare(raw, Dialect(hint))
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	var t Target
	var err error
	switch base {
	case "postgres", "postgresql":
		t, err = parsePostgres("postgres://" + rest)
	case "mysql", "mariadb":
		t, err = parseMySQL(rest)
	case "sqlite", "sqlite3":
		t = sqliteTarget(strings.TrimPrefix(rest, "/"))
	default:
		return Target{}, fmt.Errorf("migrate: unsupported scheme %q", scheme)
	}
	if err != nil {
		return Target{}, err
	}
	if hint != "" && Dialect(hint) != t.Dialect {
		return Target{}, fmt.Errorf("migrate: dialect %q does not match DSN scheme %q", hint, scheme)
	}
	return t, nil
}

func parseBare(raw string, hint Dialect) (Target, error) {
	switch hint {
	case Postgres:
		return parsePostgres(raw)
	case MySQL:
		if _, err := mysql.ParseDSN(raw); err != nil {
			return Target{}, fmt.Errorf("migrate: %w", err)
		}
		return Target{Dialect: MySQL, Driver: "mysql", DSN: raw}, nil
	case SQLite:
		return sqliteTarget(raw), nil
	case "":
		if raw == ":memory:" || strings.HasPrefix(raw, "file:") ||
			strings.HasSuffix(raw, ".db") || strings.HasSuffix(raw, ".sqlite") || strings.HasSuffix(raw, ".sqlite3") {
			return sqliteTarget(raw), nil
		}
		return Target{}, fmt.Errorf("migrate: cannot infer dialect of %q; set migrate.dialect", raw)
	default:
		return Target{}, fmt.Errorf("migrate: unsupported dialect %q", hint)
	}
}

func parsePostgres(dsn string) (Target, error) {
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return Target{}, fmt.Errorf("migrate: %w", err)
	}
	return Target{Dialect: Postgres, Driver: "pgx", DSN: dsn}, nil
}

func parseMySQL(rest string) (Target, error) {
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return Target{}, fmt.Errorf("migrate: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	if q := u.Query(); len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}
	return Target{Dialect: MySQL, Driver: "mysql", DSN: cfg.FormatDSN()}, nil
}

func sqliteTarget(path string) Target {
	if path == "" {
		path = ":memory:"
	}
	return Target{Dialect: SQLite, Driver: "sqlite", DSN: path}
}
