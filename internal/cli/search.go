package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSearchCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search comics by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}

			html, err := a.fetcher.GetSearchPage(ctx, args[0], page)
			if err != nil {
				return fmt.Errorf("fetching search page: %w", err)
			}
			results, err := a.extractor.ExtractSearchResults(html)
			if err != nil {
				return fmt.Errorf("parsing search page: %w", err)
			}

			if ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			for _, r := range results {
				fmt.Printf("%d  %s  (%s)  %s\n", r.ID, r.Title, r.LastUpdateChapter, r.Authors)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page number")
	return cmd
}
