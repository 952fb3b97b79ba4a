// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package server runs the development server, optionally restarting it
// whenever watched source files change.
package server

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/toeirei/devrun/internal/i18n"
	"github.com/toeirei/devrun/internal/logging"
	"github.com/toeirei/devrun/internal/process"
	"github.com/toeirei/devrun/internal/watch"
)

// CommandFunc builds a fresh, unstarted server command.
type CommandFunc func(ctx context.Context) (*exec.Cmd, error)

// Config configures Run.
type Config struct {
	Command CommandFunc
	Reload  bool

	// Watch lists the directories watched in reload mode.
	Watch      []string
	Extensions []string
	Debounce   time.Duration
	// Grace is how long a stopping server gets between SIGTERM and SIGKILL.
	Grace time.Duration
}

// ErrNoCommand is returned when Config.Command is nil.
var ErrNoCommand = errors.New("server: no command")

// Run starts the server and blocks until ctx is cancelled or, without
// reload, until the server exits. It returns the exit code of the last
// server process; err is reserved for failures to build, start or watch,
// and for a cancellation that found no server running.
//
// In reload mode a server that exits on its own is reported and Run waits
// for the next source change before starting it again.
func Run(ctx context.Context, cfg Config) (int, error) {
	if cfg.Command == nil {
		return 0, ErrNoCommand
	}

	sup := process.NewSupervisor(process.WithProcessExitCallback(func(p *process.Process) {
		logging.Debugf("server: pid %d exited with %d after %s (%v)",
			p.PID(), p.ExitCode(), p.Runtime().Round(time.Millisecond), p.ExitError())
	}))
	defer sup.Shutdown(cfg.Grace)

	// stop ends proc through the supervisor; an already reaped process is
	// no longer tracked and needs no stopping.
	stop := func(proc *process.Process) {
		if err := sup.Stop(proc.ID, cfg.Grace); err != nil && !errors.Is(err, process.ErrProcessNotFound) {
			logging.Warnf("server: %v", err)
		}
	}

	start := func() (*process.Process, error) {
		cmd, err := cfg.Command(ctx)
		if err != nil {
			return nil, err
		}
		return sup.Start("server", cmd)
	}

	proc, err := start()
	if err != nil {
		return 0, err
	}

	var changes chan []string
	if cfg.Reload {
		changes = make(chan []string, 1)
		w, err := watch.New(cfg.Watch, watch.Options{Extensions: cfg.Extensions, Debounce: cfg.Debounce}, func(paths []string) {
			select {
			case changes <- paths:
			default:
				// a restart is already queued
			}
		})
		if err != nil {
			stop(proc)
			return 0, err
		}
		if err := w.Start(ctx); err != nil {
			stop(proc)
			return 0, err
		}
		defer func() {
			w.Stop()
			st := w.Stats()
			logging.Debugf("watch: %d event(s), %d restart batch(es), %d error(s)", st.Events, st.Batches, st.Errors)
		}()
	}

	lastCode := 0
	for {
		var exited <-chan struct{}
		if proc != nil {
			exited = proc.Done()
		}

		select {
		case <-ctx.Done():
			if proc == nil {
				return lastCode, ctx.Err()
			}
			stop(proc)
			return proc.ExitCode(), nil

		case <-exited:
			lastCode = proc.ExitCode()
			if !cfg.Reload {
				return lastCode, nil
			}
			logging.Warnf("%s", i18n.T("server.crashed", lastCode))
			proc = nil

		case paths := <-changes:
			logging.Infof("%s", i18n.T("server.restarting", summarize(paths)))
			if proc != nil {
				stop(proc)
			}
			proc, err = start()
			if err != nil {
				return lastCode, err
			}
		}
	}
}

func summarize(paths []string) string {
	const max = 3
	if len(paths) <= max {
		return strings.Join(paths, ", ")
	}
	return strings.Join(paths[:max], ", ") + ", ..."
}
