package commands

import (
	"encoding/json"
	"os"

	"diary-sync/internal/entry"

	"github.com/spf13/cobra"
)

var (
	singleTitle       *string
	singleSearchPages *int
	singleOut         *string
)

func init() {
	singleTitle = singleCmd.Flags().String("title", "", "Subject of the entry to process.")
	singleSearchPages = singleCmd.Flags().Int("search-pages", 5, "How many listing pages to search.")
	singleOut = singleCmd.Flags().String("out", "test_output.json", "File the processed entry is written to.")
	rootCmd.AddCommand(singleCmd)
}

var singleCmd = &cobra.Command{
	Use:   "single [--title <subject>] [--search-pages <n>] [--out <path>]",
	Short: "Processes one entry end to end without touching the store.",
	Long: "Processes one entry end to end without touching the store. The entry is " +
		"chosen by title, else the first one with a video cover, else the newest.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx, loadConfig(), needs{source: true})
		if err != nil {
			logger.Fatalf("setup failed: %v", err)
		}
		defer a.close()

		e, report, err := a.svc.ProcessSingle(ctx, *singleTitle, *singleSearchPages)
		logReport(report)
		if err != nil {
			a.close()
			logger.Fatalf("single failed: %v", err)
		}

		logger.Printf("cover type: %s, cover file: %q, %d content blocks", e.CoverType, e.CoverFilename, len(e.Blocks))
		for i, b := range e.Blocks {
			logger.Printf("  [%d] %s %s%s", i, b.Kind, blockLabel(b), coverSuffix(b))
		}

		body, err := json.MarshalIndent([]*entry.Entry{e}, "", "  ")
		if err != nil {
			logger.Fatalf("encode result: %v", err)
		}
		if err := os.WriteFile(*singleOut, body, 0o644); err != nil {
			logger.Fatalf("write %s: %v", *singleOut, err)
		}
		logger.Printf("saved result to %s", *singleOut)
	},
}

func blockLabel(b entry.Block) string {
	switch b.Kind {
	case entry.BlockImage, entry.BlockVideo:
		if b.Filename != "" {
			return b.Filename
		}
		return b.URL
	case entry.BlockDivider:
		return ""
	}
	return ellipsize(b.Content, 40)
}

func coverSuffix(b entry.Block) string {
	if b.IsCover {
		return " (cover)"
	}
	return ""
}
