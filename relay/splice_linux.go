// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

const spliceSupported = true

const spliceFlags = unix.SPLICE_F_NONBLOCK | unix.SPLICE_F_MOVE

// pipeTransfer stages one chunk inside a kernel pipe.
type pipeTransfer struct {
	reader   int
	writer   int
	capacity int
}

func newPipeTransfer(size int) (transfer, error) {
	var ends [2]int
	if err := unix.Pipe2(ends[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	pipe := &pipeTransfer{reader: ends[0], writer: ends[1], capacity: PageAlign(size)}

	// Best effort: unprivileged processes are capped by
	// /proc/sys/fs/pipe-max-size and keep the kernel default.
	if actual, err := unix.FcntlInt(uintptr(pipe.writer), unix.F_SETPIPE_SZ, pipe.capacity); err == nil {
		pipe.capacity = actual
	} else if actual, err := unix.FcntlInt(uintptr(pipe.writer), unix.F_GETPIPE_SZ, 0); err == nil {
		pipe.capacity = actual
	}
	return pipe, nil
}

func (p *pipeTransfer) fill(source int) (int, error) {
	count, err := unix.Splice(source, nil, p.writer, nil, p.capacity, spliceFlags)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (p *pipeTransfer) drain(destination int, from, to int) (int, error) {
	count, err := unix.Splice(p.reader, nil, destination, nil, to-from, spliceFlags)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (p *pipeTransfer) close() error {
	return errors.Join(unix.Close(p.reader), unix.Close(p.writer))
}
