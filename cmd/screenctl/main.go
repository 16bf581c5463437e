package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/billy1976-servant/screenloom/internal/cmd/screenctl"
	"github.com/billy1976-servant/screenloom/internal/platform/config"
)

// main runs a screenctl maintenance subcommand.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := screenctl.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		config.Exitf("screenctl: %v", err)
	}
}
