// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version, Commit and Date are set at link time, e.g.
// `-ldflags "-X github.com/toeirei/devrun/buildvars.Version=v1.0.0"`.
// They stay empty for local or development builds.
var (
	Version string
	Commit  string
	Date    string
)

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}

// CommitOrDefault returns `Commit` if set, otherwise returns the provided default.
func CommitOrDefault(def string) string {
	if len(Commit) > 0 {
		return Commit
	}
	return def
}
