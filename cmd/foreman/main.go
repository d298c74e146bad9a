package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/cmd"
	"github.com/xkilldash9x/foreman-cli/internal/observability"
)

// Exit codes at the orchestration boundary. Each failure class is separately
// observable by the caller.
const (
	exitOK         = 0
	exitInternal   = 1
	exitValidation = 2
	exitTimeout    = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err == nil {
		os.Exit(exitOK)
	}
	if errors.Is(err, context.Canceled) {
		os.Exit(exitOK)
	}
	switch schemas.CategoryOf(err) {
	case schemas.CategoryValidation:
		os.Exit(exitValidation)
	case schemas.CategoryTimeout:
		os.Exit(exitTimeout)
	default:
		os.Exit(exitInternal)
	}
}
