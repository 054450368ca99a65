package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwizard/dbmigrator/pkg/cmd"
	"github.com/jwizard/dbmigrator/pkg/config"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	app := fx.New(
		config.Module,
		cmd.Module,
		fx.Supply(
			logger,
			level,
			&cmd.Version{
				Version:   version,
				Commit:    commit,
				Timestamp: date,
			},
		),
		fx.Provide(
			func() []string { return os.Args },
			func() context.Context { return ctx },
		),
		// leaves room for sandbox to remove its container after an interrupt
		fx.StopTimeout(time.Minute),
		fx.NopLogger,
	)

	app.Run()
}
