// Command rcr runs reverse causal reasoning over a causal network.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/rcr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/rcr/internal/interfaces/cli"
	"github.com/turtacn/rcr/pkg/errors"
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
	_ = logging.Default().Sync()
	if err != nil {
		os.Exit(errors.ExitStatus(err))
	}
}
