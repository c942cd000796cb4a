package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/cli"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/iocli"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(iocli.NewStdio(), os.Stderr, Version)
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close database: %v\n", err)
		}
	}()

	cmd := app.Command()
	cmd.SetVersionTemplate(versionTemplate("caresync"))

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func versionTemplate(name string) string {
	return fmt.Sprintf("%s\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n", name, Version, BuildDate, GitCommit)
}
