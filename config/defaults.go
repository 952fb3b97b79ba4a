// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import "time"

// DefaultCommands returns the delegated argv lists of every task, keyed by
// task name. Each call returns a fresh copy.
func DefaultCommands() map[string][][]string {
	return map[string][][]string{
		"venv":        {{"${python}", "-m", "venv", "${env_dir}"}},
		"install":     {{"pip", "install", "-r", "requirements.txt"}},
		"install-dev": {{"pip", "install", "-r", "requirements-dev.txt"}},
		"test":        {{"pytest"}},
		"test-cov": {{
			"pytest", "--cov=app", "--cov-report=term-missing",
			"--cov-report=html", "--cov-report=xml",
		}},
		"lint": {
			{"flake8", "app", "tests"},
			{"mypy", "app"},
			{"bandit", "-r", "app"},
		},
		"format": {
			{"black", "app", "tests"},
			{"isort", "app", "tests"},
		},
		"docker-build":     {{"docker-compose", "build"}},
		"docker-run":       {{"docker-compose", "up", "-d"}},
		"docker-down":      {{"docker-compose", "down"}},
		"migrate":          {{"alembic", "upgrade", "head"}},
		"create-migration": {{"alembic", "revision", "--autogenerate", "-m", "${message}"}},
	}
}

// Defaults returns the flat key/value defaults fed to viper.
func Defaults() map[string]any {
	d := map[string]any{
		"language":    "en",
		"log_level":   "info",
		"project_dir": ".",

		"env.mode":       ModeVenv,
		"env.dir":        "venv",
		"env.python":     "python3",
		"env.template":   ".env.example",
		"env.file":       ".env",
		"env.host_tools": []string{"docker", "docker-compose", "git"},

		"server.app":       "app.main:app",
		"server.host":      "0.0.0.0",
		"server.port":      8000,
		"server.reload":    true,
		"server.command":   []string{"uvicorn", "${app}", "--host", "${host}", "--port", "${port}"},
		"server.watch":     []string{"app"},
		"server.watch_ext": []string{".py"},
		"server.debounce":  300 * time.Millisecond,
		"server.grace":     5 * time.Second,

		"exec.wait_delay": 5 * time.Second,

		"migrate.driver":  DriverExec,
		"migrate.dir":     "migrations",
		"migrate.dsn":     "",
		"migrate.dialect": "",
		"migrate.table":   "schema_migrations",

		"clean.recursive": []string{"__pycache__", ".pytest_cache", ".mypy_cache", ".ruff_cache", "*.pyc", "*.pyo"},
		"clean.root":      []string{"build", "dist", "*.egg-info", "htmlcov", ".coverage", ".coverage.*", "coverage.xml"},
		"clean.exclude":   []string{".git", "venv", ".venv", "node_modules"},

		"telemetry.endpoint": "",
		"telemetry.insecure": false,
	}
	for name, steps := range DefaultCommands() {
		d["commands."+name] = steps
	}
	return d
}
