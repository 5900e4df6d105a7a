package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newComicCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comic COMIC_ID",
		Short: "Show a comic's profile and chapter groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comicID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid comic id %q: %w", args[0], err)
			}

			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}

			html, err := a.fetcher.GetComicPage(ctx, comicID)
			if err != nil {
				return fmt.Errorf("fetching comic page: %w", err)
			}
			profile, err := a.extractor.ExtractComicProfile(html, comicID)
			if err != nil {
				return fmt.Errorf("parsing comic profile: %w", err)
			}
			groups, err := a.extractor.ExtractComicChapters(html, comicID, profile.Title, profile.Status)
			if err != nil {
				return fmt.Errorf("parsing chapter list: %w", err)
			}
			profile.Groups = groups

			if ro.JSONOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(profile)
			}

			fmt.Printf("%s  (%s)\n", profile.Title, profile.Status)
			if profile.Intro != "" {
				fmt.Println(profile.Intro)
			}
			for group, chapters := range groups {
				downloaded := 0
				for _, c := range chapters {
					if a.layout.IsDownloaded(c) {
						downloaded++
					}
				}
				fmt.Printf("  %s: %d/%d downloaded\n", group, downloaded, len(chapters))
			}
			return nil
		},
	}

	return cmd
}
