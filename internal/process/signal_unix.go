// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !windows

package process

import (
	"os"
	"os/exec"
	"syscall"
)

func terminate(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// Interrupt delivers SIGINT to p. It is meant as exec.Cmd.Cancel so a
// cancelled task gets the same signal as a Ctrl-C in the terminal.
func Interrupt(p *os.Process) error {
	return p.Signal(os.Interrupt)
}

func exitStatus(ee *exec.ExitError) (int, bool) {
	if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}
	return ee.ExitCode(), false
}
