// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package process supervises long-lived child processes such as the
// development server.
//
// A Supervisor starts commands, tracks them until they exit and stops them
// gracefully: SIGTERM first, SIGKILL once the grace period is over. On
// Windows, where there is no SIGTERM, stopping kills immediately.
//
// The child's stdio is whatever the caller set on the exec.Cmd; the
// supervisor never creates pipes, so server output reaches the terminal
// unmodified.
package process
