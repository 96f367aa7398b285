// Command model-declarator classifies the compiled types of a JVM artifact
// and writes its model declaration (model-declaration.xml).
//
// Usage:
//
//	model-declarator [generate] [flags]   write the descriptor (default)
//	model-declarator check                 exit 3 if the descriptor is stale
//	model-declarator inspect <type>...     show how types are classified
//	model-declarator watch                 regenerate when classes change
//	model-declarator init                  write model-declarator.toml
//	model-declarator clean                 drop the run snapshot
//
// Exit codes: 0 success, 1 failure, 2 usage error, 3 stale descriptor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
)

// Version is set via -ldflags at release time.
var Version = "dev"

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
	exitStale = 3
)

// ExitError carries a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error { return &ExitError{Code: exitUsage, Err: err} }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(stderr, "model-declarator: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "model-declarator: %v\n", err)
	return exitFail
}
