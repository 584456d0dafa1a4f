package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"diary-sync/cmd/diary-sync/commands"
)

func main() {
	// Root context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.New(os.Stdout, "[diary-sync] ", log.LstdFlags|log.Lshortfile)

	commands.ExecuteContext(ctx, logger)
}
