// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/catsock/dispatch"
	"github.com/bureau-foundation/catsock/lib/addrspec"
	"github.com/bureau-foundation/catsock/lib/config"
	"github.com/bureau-foundation/catsock/lib/netutil"
	"github.com/bureau-foundation/catsock/lib/process"
	"github.com/bureau-foundation/catsock/lib/socket"
	"github.com/bureau-foundation/catsock/lib/version"
	"github.com/bureau-foundation/catsock/relay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		process.Fatal(err)
	}
}

// usageError prints message and the usage text to stderr and returns
// a silent exit-code-2 error.
func usageError(stderr io.Writer, format string, args ...any) error {
	fmt.Fprintf(stderr, "catsock: "+format+"\n\n", args...)
	printUsage(stderr)
	return &process.ExitError{Code: 2}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var (
		strategyName  string
		isolationName string
		bufferSize    int
		configPath    string
		logFormat     string
		verbose       bool
		showHelp      bool
		showVersion   bool
		workerMode    bool
	)

	flagSet := pflag.NewFlagSet("catsock", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.Usage = func() {}
	flagSet.StringVar(&strategyName, "strategy", "auto", "relay strategy: auto, buffered or splice")
	flagSet.StringVar(&isolationName, "isolation", "process", "per-connection isolation: process or goroutine")
	flagSet.IntVar(&bufferSize, "buffer-size", 0, "per-direction buffer size in bytes, rounded down to whole pages (default 1 MiB)")
	flagSet.StringVar(&configPath, "config", "", "config file (default: $CATSOCK_CONFIG if set)")
	flagSet.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log per-connection events")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "show help")
	flagSet.BoolVar(&showVersion, "version", false, "print version information")
	flagSet.BoolVar(&workerMode, "worker", false, "serve one handed-off connection (internal)")
	flagSet.MarkHidden("worker")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout)
			return nil
		}
		return usageError(stderr, "%v", err)
	}
	if showHelp {
		printUsage(stdout)
		return nil
	}
	if showVersion {
		version.Print(stdout, "catsock")
		return nil
	}
	if workerMode {
		return runWorker(stdin, stderr)
	}

	cfg := config.Default()
	if configPath == "" {
		configPath = os.Getenv(config.EnvironmentVariable)
	}
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if flagSet.Changed("strategy") {
		cfg.Relay.Strategy = strategyName
	}
	if flagSet.Changed("isolation") {
		cfg.Isolation = isolationName
	}
	if flagSet.Changed("buffer-size") {
		cfg.Relay.BufferSize = bufferSize
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	positional := flagSet.Args()
	switch {
	case len(positional) == 2:
		cfg.Listen, cfg.Connect = positional[0], positional[1]
	case len(positional) == 0 && cfg.Listen != "" && cfg.Connect != "":
	default:
		return usageError(stderr, "expected 2 arguments (listen_addrspec connect_addrspec), got %d", len(positional))
	}

	listenSpec, err := addrspec.Parse(cfg.Listen)
	if err != nil {
		return usageError(stderr, "listen address: %v", err)
	}
	if !listenSpec.Kind().CanListen() {
		return usageError(stderr, "listen address: %s addresses are connect only", listenSpec.Kind())
	}
	connectSpec, err := addrspec.Parse(cfg.Connect)
	if err != nil {
		return usageError(stderr, "connect address: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return usageError(stderr, "%v", err)
	}

	if _, err := relay.StrategyByName(cfg.Relay.Strategy, cfg.Relay.BufferSize); err != nil {
		return err
	}
	isolation, err := dispatch.ParseIsolation(cfg.Isolation)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	listener, err := socket.Listen(listenSpec)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenSpec, err)
	}

	dispatcher := &dispatch.Dispatcher{
		Listener:   listener,
		Target:     connectSpec,
		Isolation:  isolation,
		Strategy:   cfg.Relay.Strategy,
		BufferSize: cfg.Relay.BufferSize,
		LogLevel:   cfg.Log.Level,
		LogFormat:  cfg.Log.Format,
		Logger:     logger,
	}
	return dispatcher.Run(ctx)
}

// runWorker serves the single connection a dispatcher handed to this
// process.
func runWorker(stdin io.Reader, stderr io.Writer) error {
	handoff, err := dispatch.ReadHandoff(stdin)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, handoff.LogLevel, handoff.LogFormat)
	if err != nil {
		return err
	}
	logger = logger.With("connection_id", handoff.ConnectionID, "pid", os.Getpid())

	near, err := dispatch.InheritedConnection()
	if err != nil {
		return err
	}

	err = dispatch.RunWorker(context.Background(), handoff, near, logger)
	switch {
	case err == nil:
		logger.Debug("connection finished")
		return nil
	case netutil.IsExpectedCloseError(err):
		logger.Debug("connection lost", "error", err)
	default:
		logger.Error("relay failed", "error", err)
	}
	return &process.ExitError{Code: 1}
}

// newLogger builds the stderr logger. Empty level and format mean info
// and text.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var logLevel slog.Level
	if level != "" {
		if err := logLevel.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	options := &slog.HandlerOptions{Level: logLevel}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `catsock - relay stream connections between socket transports

USAGE
    catsock [flags] <listen_addrspec> <connect_addrspec>

When a client connects to listen_addrspec, catsock accepts the
connection, hands it to an isolated worker, connects to
connect_addrspec, and forwards data in both directions until both
sides have closed.

ADDRSPECS
    TCP:host:port              IPv4 (empty host listens on all addresses)
    TCP6:host:port             IPv6 (bracket hosts with colons: TCP6:[::1]:80)
    UDS:path                   Unix domain socket
    VSOCK:cid:port             VM socket (Linux only)
    VSOCKMULT:path:cid:port    VM socket via a mediator socket (connect only)

FLAGS
        --strategy <name>      relay strategy: auto, buffered or splice (default: auto)
        --isolation <mode>     process or goroutine (default: process)
        --buffer-size <bytes>  per-direction buffer, rounded down to pages (default: 1 MiB)
        --config <path>        YAML or JSONC config file (default: $CATSOCK_CONFIG)
        --log-format <format>  text or json (default: text)
    -v, --verbose              log per-connection events
    -h, --help                 show this help
        --version              print version information

EXAMPLES
    # Expose a local Unix socket on TCP port 8080
    catsock TCP::8080 UDS:/run/app.sock

    # Forward host port 2222 to SSH inside guest 3
    catsock TCP:127.0.0.1:2222 VSOCK:3:22

    # Reach a guest through a hypervisor's mediator socket
    catsock UDS:/tmp/guest.sock VSOCKMULT:/run/vm/v.sock:3:5000
`)
}
