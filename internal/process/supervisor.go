// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package process

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Supervisor starts and tracks child processes and stops them on shutdown.
// It is safe for concurrent use.
type Supervisor struct {
	mu        sync.RWMutex
	processes map[string]*Process
	monitors  sync.WaitGroup
	closed    atomic.Bool

	onExit func(p *Process)
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithProcessExitCallback sets a callback run after a process exits.
func WithProcessExitCallback(fn func(p *Process)) SupervisorOption {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates a new process supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{processes: make(map[string]*Process)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts cmd under a fresh random ID.
func (s *Supervisor) Start(name string, cmd *exec.Cmd) (*Process, error) {
	return s.StartWithID(uuid.NewString(), name, cmd)
}

// StartWithID starts cmd under the given ID.
func (s *Supervisor) StartWithID(id, name string, cmd *exec.Cmd) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}
	if _, exists := s.processes[id]; exists {
		return nil, fmt.Errorf("process ID already exists: %s", id)
	}

	proc := NewProcess(id, name, cmd)
	if err := proc.start(); err != nil {
		return nil, err
	}
	s.processes[id] = proc

	s.monitors.Add(1)
	go s.monitor(proc)
	return proc, nil
}

func (s *Supervisor) monitor(proc *Process) {
	defer s.monitors.Done()
	<-proc.Done()

	if s.onExit != nil {
		s.onExit(proc)
	}

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()
}

// Get returns a tracked process by ID, or nil.
func (s *Supervisor) Get(id string) *Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[id]
}

// List returns all tracked processes.
func (s *Supervisor) List() []*Process {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		result = append(result, p)
	}
	return result
}

// Stop gracefully stops the process with the given ID.
func (s *Supervisor) Stop(id string, grace time.Duration) error {
	proc := s.Get(id)
	if proc == nil {
		return ErrProcessNotFound
	}
	proc.Stop(grace)
	return nil
}

// Shutdown refuses new processes, stops every tracked process with the
// given grace period and waits until all exit callbacks have run.
func (s *Supervisor) Shutdown(grace time.Duration) {
	if s.closed.Swap(true) {
		s.monitors.Wait()
		return
	}

	var wg sync.WaitGroup
	for _, p := range s.List() {
		wg.Add(1)
		go func(p *Process) {
			defer wg.Done()
			p.Stop(grace)
		}(p)
	}
	wg.Wait()
	s.monitors.Wait()
}
