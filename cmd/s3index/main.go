package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(newApp()).ExecuteContext(ctx)
	if err != nil {
		NewPrinter(os.Stderr).Error(err)
		stop()
		os.Exit(1)
	}
}
