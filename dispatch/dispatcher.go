// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"github.com/bureau-foundation/catsock/lib/addrspec"
)

// Isolation names how workers are separated from the dispatcher.
type Isolation string

const (
	// IsolationProcess runs each worker as a child process.
	IsolationProcess Isolation = "process"
	// IsolationGoroutine runs each worker in a supervised goroutine.
	IsolationGoroutine Isolation = "goroutine"
)

// ParseIsolation validates an isolation name. Empty means process.
func ParseIsolation(name string) (Isolation, error) {
	switch Isolation(name) {
	case "", IsolationProcess:
		return IsolationProcess, nil
	case IsolationGoroutine:
		return IsolationGoroutine, nil
	}
	return "", fmt.Errorf("unknown isolation %q (want process or goroutine)", name)
}

// Dispatcher accepts connections on Listener and spawns a worker that
// relays each one to Target.
type Dispatcher struct {
	// Listener is the bound listening socket. Run closes it.
	Listener net.Listener

	// Target is the addrspec every worker connects to.
	Target addrspec.Spec

	// Isolation selects the default Spawner when Spawner is nil.
	Isolation Isolation

	// Spawner starts workers. Nil selects ProcessSpawner or
	// GoroutineSpawner according to Isolation.
	Spawner Spawner

	// Strategy and BufferSize are passed to workers for
	// relay.StrategyByName.
	Strategy   string
	BufferSize int

	// LogLevel and LogFormat are passed to worker processes.
	LogLevel  string
	LogFormat string

	// Logger receives structured log output. If nil, slog.Default() is
	// used. Per-connection events are logged at Debug level; lifecycle
	// events at Info; spawn failures at Error.
	Logger *slog.Logger

	connectionCount int64
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Dispatcher) spawner() Spawner {
	if d.Spawner != nil {
		return d.Spawner
	}
	if d.Isolation == IsolationGoroutine {
		return &GoroutineSpawner{Logger: d.logger()}
	}
	return &ProcessSpawner{Logger: d.logger()}
}

// Run accepts connections until ctx is cancelled, in which case it
// closes the listener and returns nil, or until Accept fails. An
// interrupted Accept (EINTR) is retried; any other failure is returned
// and ends the dispatcher. Spawn failures are logged and the offending
// connection dropped; they never end Run.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.Listener == nil {
		return fmt.Errorf("dispatch: Listener is required")
	}
	if d.Target.IsZero() {
		return fmt.Errorf("dispatch: Target is required")
	}

	spawner := d.spawner()
	defer func() {
		if waiter, ok := spawner.(interface{ Wait() }); ok {
			waiter.Wait()
		}
	}()

	stop := context.AfterFunc(ctx, func() { d.Listener.Close() })
	defer stop()
	defer d.Listener.Close()

	d.logger().Info("dispatcher started",
		"listen_addr", d.Listener.Addr().String(),
		"target", d.Target.String(),
	)

	for {
		connection, err := d.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				d.logger().Info("dispatcher stopped", "connections", d.connectionCount)
				return nil
			}
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("dispatch: listener closed")
			}
			return fmt.Errorf("dispatch: accept: %w", err)
		}

		d.connectionCount++
		handoff := d.handoff(d.connectionCount)
		d.logger().Debug("connection accepted",
			"connection_id", handoff.ConnectionID,
			"remote_addr", connection.RemoteAddr(),
		)

		if err := spawner.Spawn(ctx, handoff, connection); err != nil {
			d.logger().Error("spawning worker failed",
				"connection_id", handoff.ConnectionID,
				"error", err,
			)
		}
	}
}

func (d *Dispatcher) handoff(connectionID int64) Handoff {
	return Handoff{
		ConnectionID: connectionID,
		Target:       d.Target,
		Strategy:     d.Strategy,
		BufferSize:   d.BufferSize,
		LogLevel:     d.LogLevel,
		LogFormat:    d.LogFormat,
	}
}
