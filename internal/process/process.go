// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package process

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// State represents the state of a process.
type State int

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process exited on its own, with any code.
	StateExited
	// StateKilled indicates the process was terminated by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Sentinel errors for the process package.
var (
	ErrProcessNotStarted     = errors.New("process not started")
	ErrProcessAlreadyStarted = errors.New("process already started")
	ErrProcessNotFound       = errors.New("process not found")
	ErrSupervisorShutdown    = errors.New("supervisor is shut down")
)

// Process is a managed child process. It is safe for concurrent use.
type Process struct {
	ID      string
	Name    string
	Cmd     *exec.Cmd
	Started time.Time

	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32

	mu      sync.RWMutex
	exitErr error
	exited  time.Time
}

// NewProcess wraps cmd, which must not have been started yet.
func NewProcess(id, name string, cmd *exec.Cmd) *Process {
	p := &Process{
		ID:   id,
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	p.state.Store(int32(StateCreated))
	p.exitCode.Store(-1)
	return p
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the exit status, 128+signal for a signalled process,
// or -1 while the process has not exited.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// ExitError returns the error reported by Wait, if any.
func (p *Process) ExitError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// Done is closed once the process has exited and its state is final.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// IsRunning reports whether the process is running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// HasExited reports whether the process has exited, normally or killed.
func (p *Process) HasExited() bool {
	state := p.State()
	return state == StateExited || state == StateKilled
}

// PID returns the OS process id, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Terminate asks the process to exit.
func (p *Process) Terminate() error {
	if !p.IsRunning() || p.Cmd.Process == nil {
		return ErrProcessNotStarted
	}
	return terminate(p.Cmd.Process)
}

// Kill stops the process immediately.
func (p *Process) Kill() error {
	if !p.IsRunning() || p.Cmd.Process == nil {
		return ErrProcessNotStarted
	}
	return p.Cmd.Process.Kill()
}

// Stop terminates the process and waits up to grace for it to exit before
// killing it. It returns once the process has exited.
func (p *Process) Stop(grace time.Duration) {
	if p.HasExited() {
		return
	}
	if p.State() == StateCreated {
		return
	}
	if err := p.Terminate(); err != nil {
		_ = p.Kill()
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return
	case <-timer.C:
		_ = p.Kill()
	}
	<-p.done
}

func (p *Process) start() error {
	if p.State() != StateCreated {
		return ErrProcessAlreadyStarted
	}
	if err := p.Cmd.Start(); err != nil {
		return fmt.Errorf("start process: %w", err)
	}

	p.Started = time.Now()
	p.state.Store(int32(StateRunning))
	go p.waitLoop()
	return nil
}

func (p *Process) waitLoop() {
	err := p.Cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.exited = time.Now()
	p.mu.Unlock()

	code, signaled := ExitStatus(err)
	state := StateExited
	if signaled {
		state = StateKilled
	}
	p.exitCode.Store(int32(code))
	p.state.Store(int32(state))
	close(p.done)
}

// Runtime returns how long the process has been (or was) running.
func (p *Process) Runtime() time.Duration {
	if p.Started.IsZero() {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.exited.IsZero() {
		return p.exited.Sub(p.Started)
	}
	return time.Since(p.Started)
}

// ExitStatus maps an error returned by exec.Cmd.Wait or Run to a shell-style
// exit code. A process terminated by a signal yields 128+signal and
// signaled=true. Errors that carry no exit status yield -1.
func ExitStatus(err error) (code int, signaled bool) {
	if err == nil {
		return 0, false
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return -1, false
	}
	return exitStatus(ee)
}
