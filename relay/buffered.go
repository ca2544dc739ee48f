// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import "golang.org/x/sys/unix"

// bufferTransfer stages one chunk in process memory.
type bufferTransfer struct {
	buffer []byte
}

func (b *bufferTransfer) fill(source int) (int, error) {
	count, err := unix.Read(source, b.buffer)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (b *bufferTransfer) drain(destination int, from, to int) (int, error) {
	count, err := unix.Write(destination, b.buffer[from:to])
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (b *bufferTransfer) close() error {
	b.buffer = nil
	return nil
}
