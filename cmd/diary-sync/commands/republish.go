package commands

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(republishCmd)
}

var republishCmd = &cobra.Command{
	Use:   "republish",
	Short: "Retries the upload of stored entries that were never published.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg := loadConfig()
		if !cfg.NotionEnabled() {
			logger.Fatalf("republish needs NOTION_TOKEN and NOTION_DATABASE_ID")
		}

		a, err := newApp(ctx, cfg, needs{store: true})
		if err != nil {
			logger.Fatalf("setup failed: %v", err)
		}
		defer a.close()

		report, err := a.svc.Republish(ctx)
		logReport(report)
		if err != nil {
			a.close()
			logger.Fatalf("republish failed: %v", err)
		}
	},
}
