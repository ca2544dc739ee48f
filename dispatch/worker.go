// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/catsock/lib/socket"
	"github.com/bureau-foundation/catsock/relay"
)

// RunWorker connects to handoff.Target and relays between near and the
// new connection until both directions are closed. It takes ownership
// of near, which is closed on every path.
//
// A nil logger uses slog.Default().
func RunWorker(ctx context.Context, handoff Handoff, near int, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	strategy, err := relay.StrategyByName(handoff.Strategy, handoff.BufferSize)
	if err != nil {
		unix.Close(near)
		return err
	}

	connection, err := socket.Dial(ctx, handoff.Target)
	if err != nil {
		unix.Close(near)
		return fmt.Errorf("connecting to %s: %w", handoff.Target, err)
	}
	logger.Debug("connected to target",
		"target", handoff.Target.String(),
		"remote_addr", connection.RemoteAddr(),
	)

	far, err := socket.Detach(connection)
	if err != nil {
		unix.Close(near)
		return fmt.Errorf("taking ownership of target connection: %w", err)
	}

	engine, err := relay.New(near, far, strategy, logger)
	if err != nil {
		return err
	}
	return engine.Run()
}
