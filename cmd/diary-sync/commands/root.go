package commands

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// logger is set once by ExecuteContext and shared by every command.
var logger = log.Default()

var rootCmd = &cobra.Command{
	Use:   "diary-sync",
	Short: "diary-sync archives diary entries, translates them and publishes them to Notion.",
	// Commands report their own failures through the logger.
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context, l *log.Logger) {
	if l != nil {
		logger = l
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
