// Command xatlas-worker hosts the xatlas module for worker.Process. It reads
// requests on stdin and writes responses on stdout; logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wippyai/xatlas-go/engine"
	"github.com/wippyai/xatlas-go/internal/logger"
	"github.com/wippyai/xatlas-go/native"
	"github.com/wippyai/xatlas-go/worker"
)

func main() {
	var (
		wasmPath = flag.String("wasm", native.WasmFileName, "Path to xatlas.wasm")
		level    = flag.String("log-level", "warn", "Log level: debug, info, warn or error")
		logFile  = flag.String("log-file", "", "Also write logs to this file")
		memLimit = flag.Uint("memory-limit", 0, "Maximum guest memory in 64KB pages (0 = no limit)")
	)
	flag.Parse()

	var fileCfg logger.FileConfig
	if *logFile != "" {
		fileCfg = logger.DefaultFileConfig(*logFile)
	}
	log := logger.New(*level, os.Stderr, fileCfg)
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log)

	// stdout carries frames, so guest output is redirected to stderr
	mod := engine.NewWithConfig(&engine.Config{
		Logger:           log,
		Stdout:           os.Stderr,
		Stderr:           os.Stderr,
		MemoryLimitPages: uint32(*memLimit),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := worker.Serve(ctx, os.Stdin, os.Stdout, mod, worker.ServeOptions{
		Logger:   log,
		WasmPath: *wasmPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
