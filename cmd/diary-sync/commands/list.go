package commands

import (
	"os"
	"sort"

	"diary-sync/internal/entry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listLimit *int

func init() {
	listLimit = listCmd.Flags().Int("limit", 20, "Show at most this many entries, newest first (0 for all).")
	rootCmd.AddCommand(listCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var listCmd = &cobra.Command{
	Use:   "list [--limit <n>]",
	Short: "Lists the entries recorded in the store.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		a, err := newApp(ctx, loadConfig(), needs{store: true})
		if err != nil {
			logger.Fatalf("setup failed: %v", err)
		}
		defer a.close()

		entries, err := a.store.List(ctx)
		if err != nil {
			a.close()
			logger.Fatalf("list entries: %v", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Date", "Title", "Cover", "Blocks", "Published", "Page"})
		for _, e := range newest(entries, *listLimit) {
			published := "no"
			if e.Published && e.PublishedAt != nil {
				published = e.PublishedAt.Local().Format("2006-01-02 15:04")
			}
			t.AppendRow(table.Row{e.ID, e.Date, ellipsize(e.Title, 30), e.CoverType, len(e.Blocks), published, e.PageURL})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "total", len(entries)})
		t.Render()
	},
}

// newest returns up to limit entries ordered by timestamp, latest first.
func newest(entries []entry.Entry, limit int) []entry.Entry {
	out := append([]entry.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func ellipsize(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
