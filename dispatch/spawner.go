// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"runtime/debug"
	"sync"
	"syscall"

	"github.com/bureau-foundation/catsock/lib/netutil"
	"github.com/bureau-foundation/catsock/lib/process"
	"github.com/bureau-foundation/catsock/lib/socket"
)

// Spawner starts one isolated worker for an accepted connection.
//
// Spawn takes ownership of connection on every path: on success the
// worker owns it, on failure Spawn has closed it. Spawn must not wait
// for the worker to finish.
type Spawner interface {
	Spawn(ctx context.Context, handoff Handoff, connection net.Conn) error
}

// ProcessSpawner runs each worker as a child process: the current
// executable re-invoked with Args, the connection on fd 3 and the
// handoff on stdin.
type ProcessSpawner struct {
	// Executable is the worker binary. Empty means os.Executable().
	Executable string

	// Args are the worker's arguments. Nil means {"--worker"}.
	Args []string

	// Env is appended to the dispatcher's environment.
	Env []string

	// Stderr receives the worker's stderr. Nil means os.Stderr.
	Stderr io.Writer

	// Logger receives spawn and exit events. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

func (s *ProcessSpawner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Spawn implements Spawner.
func (s *ProcessSpawner) Spawn(ctx context.Context, handoff Handoff, connection net.Conn) error {
	executable := s.Executable
	if executable == "" {
		var err error
		executable, err = os.Executable()
		if err != nil {
			connection.Close()
			return fmt.Errorf("locating worker executable: %w", err)
		}
	}
	arguments := s.Args
	if arguments == nil {
		arguments = []string{"--worker"}
	}

	var encoded bytes.Buffer
	if err := WriteHandoff(&encoded, handoff); err != nil {
		connection.Close()
		return err
	}

	connectionFile, err := socket.File(connection)
	if err != nil {
		connection.Close()
		return err
	}
	// The child has its own copy after Start; the parent's goes either way.
	defer connectionFile.Close()

	command := exec.Command(executable, arguments...)
	command.Stdin = &encoded
	command.ExtraFiles = []*os.File{connectionFile} // becomes fd 3 in child
	command.Stderr = s.Stderr
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}
	if len(s.Env) > 0 {
		command.Env = append(os.Environ(), s.Env...)
	}
	// A terminal's SIGINT goes to the foreground process group; workers
	// must outlive the dispatcher's shutdown.
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := command.Start(); err != nil {
		return fmt.Errorf("starting worker %q: %w", executable, err)
	}

	logger := s.logger().With("connection_id", handoff.ConnectionID)
	logger.Debug("worker started", "pid", command.Process.Pid)

	go func() {
		err := command.Wait()
		switch {
		case err == nil:
			logger.Debug("worker exited", "pid", command.Process.Pid, "exit_code", 0)
		default:
			logger.Warn("worker failed",
				"pid", command.Process.Pid,
				"exit_code", process.ExitCode(err),
				"error", err,
			)
		}
	}()
	return nil
}

// GoroutineSpawner runs each worker in a goroutine of the dispatcher's
// process, recovering panics so one connection cannot take down the
// others.
type GoroutineSpawner struct {
	// Logger receives worker events. If nil, slog.Default() is used.
	Logger *slog.Logger

	// runWorker is RunWorker; tests substitute it.
	runWorker func(ctx context.Context, handoff Handoff, near int, logger *slog.Logger) error

	workers sync.WaitGroup
}

func (s *GoroutineSpawner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Spawn implements Spawner.
func (s *GoroutineSpawner) Spawn(ctx context.Context, handoff Handoff, connection net.Conn) error {
	near, err := socket.Detach(connection)
	if err != nil {
		connection.Close()
		return err
	}

	run := s.runWorker
	if run == nil {
		run = RunWorker
	}
	logger := s.logger().With("connection_id", handoff.ConnectionID)
	// Workers are not cancelled with the dispatcher.
	workerContext := context.WithoutCancel(ctx)

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Error("worker panicked",
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
			}
		}()

		err := run(workerContext, handoff, near, logger)
		logWorkerResult(logger, err)
	}()
	return nil
}

// Wait blocks until every spawned worker has returned.
func (s *GoroutineSpawner) Wait() {
	s.workers.Wait()
}

func logWorkerResult(logger *slog.Logger, err error) {
	switch {
	case err == nil:
		logger.Debug("connection finished")
	case netutil.IsExpectedCloseError(err):
		logger.Debug("connection lost", "error", err)
	default:
		logger.Warn("worker failed", "error", err)
	}
}
