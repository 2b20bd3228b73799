// Command shiftgraph builds labelled molecular graph datasets from NMR SDF
// collections.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/ShiftGraph/internal/interfaces/cli"
	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(apperrors.ExitCode(err))
	}
}
