// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package migrate applies and creates database schema migrations.
//
// Two drivers exist. ExecDriver delegates both operations to the project's
// migration tool through the task runner (alembic by default). BunDriver is
// a self-contained alternative built on bun/migrate: it applies
// `<timestamp>_<slug>.up.sql` files from a directory and records applied
// versions in a table, for projects without a migration tool of their own.
package migrate
