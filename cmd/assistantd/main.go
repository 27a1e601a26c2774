// ABOUTME: Process entry point: loads config, wires internal/app, and runs
// ABOUTME: the hotkey message pump and command surface until signaled to stop
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/askanywhere/assistant-core/internal/aiclient"
	"github.com/askanywhere/assistant-core/internal/app"
	"github.com/askanywhere/assistant-core/internal/config"
	"github.com/askanywhere/assistant-core/internal/log"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	args := parseFlags()

	if args.version {
		fmt.Println("assistantd " + version)
		os.Exit(0)
	}

	if args.verbose {
		log.SetLevel(log.LevelDebug)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args cliArgs) error {
	path := args.configPath
	if path == "" {
		p, err := config.ConfigFile()
		if err != nil {
			return fmt.Errorf("resolving config path: %w", err)
		}
		path = p
	}

	store, err := config.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	a := app.New(store, aiclient.New())

	// Win32's message queue is thread-affine: the pump must run on the same
	// OS thread for the process's lifetime, so it gets its own locked
	// goroutine rather than sharing the scheduler with everything else.
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		a.Hotkeys().Run()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- a.Server().Run(os.Stdin, os.Stdout) }()

	select {
	case err := <-runErr:
		shutdown(a)
		return err
	case <-ctx.Done():
		log.Info("assistantd: received shutdown signal")
		shutdown(a)
		return nil
	}
}

func shutdown(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Warn("assistantd: shutdown: %v", err)
	}
}
