// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package relay

const spliceSupported = false

func newPipeTransfer(size int) (transfer, error) {
	return nil, ErrUnsupported
}
