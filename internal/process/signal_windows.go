// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build windows

package process

import (
	"os"
	"os/exec"
)

// Windows has no SIGTERM; terminating a process kills it.
func terminate(p *os.Process) error {
	return p.Kill()
}

// Interrupt kills p. Windows cannot deliver os.Interrupt to a child.
func Interrupt(p *os.Process) error {
	return p.Kill()
}

func exitStatus(ee *exec.ExitError) (int, bool) {
	return ee.ExitCode(), false
}
