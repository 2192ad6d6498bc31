// Package main is the entry point for the migrate-verify application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/migrate-verify/internal/config"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 2
	exitUsage     = 64
)

func main() {
	cfg, err := config.ParseFlags()

	switch {
	case errors.Is(err, config.ErrHelpShown):
		os.Exit(exitOK)
	case errors.Is(err, config.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}

	app := &app{
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
	}

	os.Exit(app.run(context.Background(), cfg))
}
