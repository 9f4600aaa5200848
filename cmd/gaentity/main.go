package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Arbaz-Dispo/data-processing-utils-georgia/cmd/gaentity/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	commands.ExecuteContext(ctx)
}
