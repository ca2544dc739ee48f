// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the optional catsock configuration file.
//
// The file is named either by the CATSOCK_CONFIG environment variable
// (via [Load]) or a --config flag (via [LoadFile]). There is no
// automatic discovery. Command-line flags given explicitly and the two
// positional addrspecs override values from the file.
//
// YAML is the default format. Files ending in .json or .jsonc are read
// as JSON with comments and trailing commas allowed.
//
//	listen: TCP::8080
//	connect: UDS:${XDG_RUNTIME_DIR}/app.sock
//	isolation: process
//	relay:
//	  strategy: splice
//	  buffer_size: 262144
//	log:
//	  level: debug
//	  format: json
//
// ${VAR} and ${VAR:-default} patterns are expanded in listen and
// connect. No other environment variables override config values.
package config
