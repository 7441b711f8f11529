// Command unwrap generates lightmap UVs for OBJ meshes and packs them into
// a single atlas.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/wippyai/xatlas-go/config"
	"github.com/wippyai/xatlas-go/internal/logger"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	var (
		outDir      = flag.String("o", "out", "Output directory")
		sphere      = flag.Bool("sphere", false, "Unwrap a generated sphere")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		saveConfig  = flag.String("save-config", "", "Write the effective config to this path and exit")
	)
	flag.Parse()
	inputs := flag.Args()

	if len(inputs) == 0 && !*sphere && *saveConfig == "" {
		fmt.Fprintln(os.Stderr, "Usage: unwrap [flags] <mesh.obj>...")
		fmt.Fprintln(os.Stderr, "       unwrap [flags] -sphere")
		fmt.Fprintln(os.Stderr, "       unwrap [flags] -save-config xatlas.yaml")
		os.Exit(1)
	}

	cfg, err := config.Load(flags.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *saveConfig != "" {
		if err := cfg.SaveTo(*saveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "stdout is not a terminal, running without TUI")
		*interactive = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j := &job{
		cfg:    cfg,
		inputs: inputs,
		outDir: *outDir,
		sphere: *sphere,
	}

	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}

	if *interactive {
		// the TUI owns the terminal, so logs only go to the file
		j.log = logger.New(cfg.Logging.Level, nil, fileCfg)
		cfg.Unwrap.LogProgress = true
		err = runInteractive(ctx, j)
	} else {
		j.log = logger.New(cfg.Logging.Level, os.Stderr, fileCfg)
		var sum *summary
		if sum, err = j.run(ctx, nil); err == nil {
			sum.print(os.Stdout)
		}
	}
	_ = j.log.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
